package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/DFBlok/market-link-app/internal/api/handlers"
	"github.com/DFBlok/market-link-app/internal/api/middleware"
	"github.com/DFBlok/market-link-app/internal/cache"
	"github.com/DFBlok/market-link-app/internal/captcha"
	"github.com/DFBlok/market-link-app/internal/config"
	"github.com/DFBlok/market-link-app/internal/logger"
	"github.com/DFBlok/market-link-app/internal/metrics"
	"github.com/DFBlok/market-link-app/internal/services"
	"github.com/DFBlok/market-link-app/internal/storage"
	"github.com/DFBlok/market-link-app/internal/store"
	"github.com/DFBlok/market-link-app/internal/tasks"
)

// Services bundles the services the main API serves.
type Services struct {
	Users     services.IUserService
	Suppliers services.ISupplierService
	Products  services.IProductService
	Inquiries services.IInquiryService
	Orders    services.IOrderService
}

// NewServices wires every API service to one store. objects and queue may be nil:
// image uploads are then disabled and notifications are skipped.
func NewServices(cfg *config.Config, st store.Store, c cache.Cache, objects storage.IS3Storage, queue tasks.TaskClient) Services {
	return Services{
		Users:     services.NewUserService(st, cfg),
		Suppliers: services.NewSupplierService(st, st, c, cfg),
		Products:  services.NewProductService(st, objects, queue, c),
		Inquiries: services.NewInquiryService(st, queue, cfg),
		Orders:    services.NewOrderService(st, queue),
	}
}

// Tighter limits for the endpoints that create accounts or send mail.
var (
	signupSoft  = middleware.Limit{RefillRate: 1, BucketSize: 5}
	signupHard  = middleware.Limit{RefillRate: 1, BucketSize: 20}
	routeLimits = map[string]middleware.RouteLimits{
		"POST /auth/register": {Soft: &signupSoft, Hard: &signupHard},
		"POST /auth/login":    {Soft: &signupSoft},
		"POST /inquiries":     {Soft: &signupSoft},
		"POST /suppliers":     {Soft: &signupSoft, Hard: &signupHard},
	}
)

// SetupRouter configures and returns the main Gin engine. Rate limiter cleanup
// stops when ctx is cancelled.
func SetupRouter(ctx context.Context, cfg *config.Config, svc Services, captchaVerifier captcha.ITurnstileVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg, routeLimits)

	// Order matters: the request logger reads the request id, the limiter reads the captcha result.
	r.Use(middleware.RequestIDMiddleware())
	r.Use(logger.Middleware())
	r.Use(metrics.NewHTTPMetrics("api").Middleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CaptchaMiddleware(cfg, captchaVerifier))
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewRestAuthHandler(cfg, svc.Users)
	supplierHandler := handlers.NewRestSupplierHandler(svc.Suppliers)
	productHandler := handlers.NewRestProductHandler(svc.Products)
	inquiryHandler := handlers.NewRestInquiryHandler(svc.Inquiries)
	orderHandler := handlers.NewRestOrderHandler(svc.Orders)

	requireAuth := middleware.AuthMiddleware(cfg.JwtSecret)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg.JwtSecret)
	requireSupplier := middleware.SupplierMiddleware()

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", requireAuth, authHandler.Me)
	}

	suppliers := r.Group("/suppliers")
	{
		suppliers.GET("", supplierHandler.SearchSuppliers)
		suppliers.POST("", optionalAuth, supplierHandler.RegisterSupplier)
		suppliers.GET("/:id", supplierHandler.GetSupplier)
		suppliers.PUT("/:id", requireAuth, supplierHandler.UpdateSupplier)
	}

	products := r.Group("/products")
	{
		products.GET("", productHandler.ListProducts)

		owned := products.Group("", requireAuth, requireSupplier)
		owned.POST("", productHandler.CreateProduct)
		owned.PUT("/:id", productHandler.UpdateProduct)
		owned.DELETE("/:id", productHandler.DeleteProduct)
		owned.POST("/:id/image-upload", productHandler.RequestImageUpload)
		owned.POST("/:id/image-confirm", productHandler.ConfirmImageUpload)
	}

	inquiries := r.Group("/inquiries")
	{
		inquiries.POST("", optionalAuth, inquiryHandler.SubmitInquiry)
		inquiries.GET("", requireAuth, inquiryHandler.ListInquiries)
		inquiries.GET("/:id", requireAuth, inquiryHandler.GetInquiry)

		supplierOnly := inquiries.Group("/:id", requireAuth, requireSupplier)
		supplierOnly.POST("/respond", inquiryHandler.RespondToInquiry)
		supplierOnly.PATCH("/status", inquiryHandler.UpdateInquiryStatus)
	}

	orders := r.Group("/orders", requireAuth)
	{
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.ListOrders)
	}

	return r
}

// SetupServiceRouter configures the internal service API and the metrics endpoint.
// mockEmails may be nil when redis is disabled.
func SetupServiceRouter(mockEmails handlers.MockEmailStore, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestIDMiddleware(), logger.Middleware())

	serviceApiHandler := handlers.NewServiceApiHandler(mockEmails, shutdownChan)
	r.POST("/api", serviceApiHandler.HandleRequest)
	r.GET("/metrics", gin.WrapH(metrics.GetPrometheusHandler()))
	return r
}
