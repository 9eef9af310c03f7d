package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DFBlok/market-link-app/internal/api"
	"github.com/DFBlok/market-link-app/internal/api/handlers"
	"github.com/DFBlok/market-link-app/internal/cache"
	"github.com/DFBlok/market-link-app/internal/captcha"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/db"
	"github.com/DFBlok/market-link-app/internal/email"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/storage"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/store/memstore"
	"github.com/DFBlok/market-link-app/internal/store/mongostore"
	"github.com/DFBlok/market-link-app/internal/store/sqlstore"
	"github.com/DFBlok/market-link-app/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks and image processing), 'all' (default), 'seed' (seed the supplier directory and exit)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.AppEnv,
		ServiceName: "market-link",
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zlog := logger.GetLogger()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	st, err := openStore(rootCtx, cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			zlog.Error("Error closing store", zap.Error(err))
		}
	}()

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = cache.ConnectRedis(rootCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := cache.DisconnectRedis(redisClient); err != nil {
				zlog.Error("Error disconnecting from Redis", zap.Error(err))
			}
		}()
	} else {
		zlog.Warn("Redis disabled: no supplier cache, no background tasks")
	}

	var supplierCache cache.Cache = cache.Nop{}
	var taskClient tasks.TaskClient
	if redisClient != nil {
		supplierCache = cache.NewRedisCache(redisClient, "marketlink:")
		asynqClient := tasks.NewClient(cfg)
		defer asynqClient.Close()
		taskClient = asynqClient
	}

	var objects storage.IS3Storage
	if cfg.AwsS3Bucket != "" {
		objects, err = storage.NewS3Storage(rootCtx, cfg)
		if err != nil {
			zlog.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
	} else {
		zlog.Info("AWS_S3_BUCKET not set, product image uploads disabled")
	}

	svc := api.NewServices(cfg, st, supplierCache, objects, taskClient)

	if cfg.RunMode == "seed" {
		n, err := svc.Suppliers.SeedDefaultSuppliers(rootCtx)
		if err != nil {
			zlog.Fatal("Seeding suppliers failed", zap.Error(err))
		}
		zlog.Info("Seed finished", zap.Int("suppliers_created", n))
		return
	}
	if cfg.StoreDriver == config.StoreDriverMemory {
		// Nothing survives a restart, so the directory is seeded on every start.
		if _, err := svc.Suppliers.SeedDefaultSuppliers(rootCtx); err != nil {
			zlog.Fatal("Seeding in-memory suppliers failed", zap.Error(err))
		}
	}

	// Email delivery happens on the worker.
	compositeSender := email.NewCompositeEmailSender()
	if cfg.MockServices && redisClient != nil {
		zlog.Info("MOCK_SERVICES enabled: using Redis email sender")
		compositeSender.AddSender(email.NewRedisSender(redisClient, cfg.SmtpFromAddress))
	} else {
		compositeSender.AddSender(email.NewSMTPSender(cfg))
	}
	if cfg.LogEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(cfg.LogEmailsPath)
		if err != nil {
			zlog.Warn("Failed to initialize file email sender, proceeding without it",
				zap.String("path", cfg.LogEmailsPath), zap.Error(err))
		} else {
			compositeSender.AddSender(fileSender)
			zlog.Info("File email logger enabled", zap.String("path", cfg.LogEmailsPath))
		}
	}

	taskProcessor := tasks.NewTaskProcessor(cfg, compositeSender, services.NewEmailTemplateService(), objects, svc.Products)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// The service API always runs.
	var mockEmails handlers.MockEmailStore
	if redisClient != nil {
		mockEmails = redisClient
	}
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(mockEmails, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		zlog.Info("Service API listening", zap.String("port", cfg.ServiceApiPort))
		if err := serviceSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Service API ListenAndServe error", zap.Error(err))
		}
	}()

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server

	zlog.Info("Starting application", zap.String("mode", cfg.RunMode), zap.String("store", cfg.StoreDriver))

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:              ":" + cfg.ApiPort,
			Handler:           api.SetupRouter(rootCtx, cfg, svc, captcha.NewTurnstileVerifier(cfg)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			zlog.Info("Main API listening", zap.String("port", cfg.ApiPort))
			if err := mainApiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zlog.Fatal("Main API ListenAndServe error", zap.Error(err))
			}
		}()
	}

	bgMode := func() {
		if redisClient == nil {
			zlog.Warn("Background worker needs Redis, not starting it")
			return
		}
		var mux *asynq.ServeMux
		taskSrv, mux = tasks.SetupServer(cfg, taskProcessor, objects != nil, true)
		if taskSrv == nil {
			return
		}
		// Start does not wait for signals the way Run does, so the service API can stop it too.
		zlog.Info("Background task server starting")
		if err := taskSrv.Start(mux); err != nil {
			zlog.Fatal("Background task server error", zap.Error(err))
		}
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		zlog.Fatal("Invalid run mode", zap.String("mode", cfg.RunMode))
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zlog.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case <-shutdownChan:
		zlog.Info("Shutdown requested via service API")
	}
	cancelRoot()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		zlog.Error("Service API shutdown error", zap.Error(err))
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			zlog.Error("Main API shutdown error", zap.Error(err))
		}
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	zlog.Info("Server gracefully stopped")
}

// openStore connects the backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		gdb, err := db.ConnectPostgres(db.PostgresConfig{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.DbMaxOpenConns,
			MaxIdleConns:    cfg.DbMaxIdleConns,
			ConnMaxLifetime: cfg.DbConnMaxLifetime,
			Debug:           cfg.LogLevel == "debug",
		}, zlog, sqlstore.Models()...)
		if err != nil {
			return nil, err
		}
		return sqlstore.New(gdb), nil
	case config.StoreDriverMongo:
		_, database, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName, zlog)
		if err != nil {
			return nil, err
		}
		ms := mongostore.New(database)
		if err := ms.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return ms, nil
	}
	zlog.Warn("Using the in-memory store, data is lost on restart")
	return memstore.New(), nil
}
