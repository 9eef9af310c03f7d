package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig holds connection settings for ConnectPostgres.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
}

// ConnectPostgres opens a gorm connection, configures the pool and migrates models.
func ConnectPostgres(cfg PostgresConfig, log *zap.Logger, models ...interface{}) (*gorm.DB, error) {
	logLevel := gormlogger.Error
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	pgConfig := postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	gdb, err := gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		// Millisecond UTC timestamps, matching the other stores
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if len(models) > 0 {
		start := time.Now()
		log.Info("Starting database migration...")
		if err := gdb.AutoMigrate(models...); err != nil {
			log.Error("Database migration failed", zap.Error(err))
			return nil, fmt.Errorf("failed to migrate database schema: %w", err)
		}
		log.Info("Database migration completed successfully", zap.Duration("duration", time.Since(start)))
	}

	log.Info("Successfully connected to PostgreSQL")
	return gdb, nil
}

// DisconnectPostgres closes the underlying connection pool.
func DisconnectPostgres(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", err)
	}
	return nil
}
