package db

import (
	"context"
	"time"

	"github.com/sponsorhub/sponsorhub/internal/config"
	obslogger "github.com/sponsorhub/sponsorhub/internal/observability/logger"
	"github.com/sponsorhub/sponsorhub/pkg/rls"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprom "gorm.io/plugin/prometheus"
)

// Module provides the dual database handles and exposes the service handle
// as the default *gorm.DB for consumers that do not care about privilege.
var Module = fx.Module("db",
	fx.Provide(NewDual),
	fx.Provide(ServiceHandle),
)

// Dual pairs the two portal database roles. Anon is subject to row-level
// security and carries the requesting user via SET LOCAL; Service bypasses
// RLS for invitation acceptance, approvals and background jobs.
type Dual struct {
	Anon    *gorm.DB
	Service *gorm.DB
}

func NewDual(cfg config.Config, log *zap.Logger) (*Dual, error) {
	service, err := open(serviceConfig(cfg), true)
	if err != nil {
		return nil, err
	}
	anon, err := open(anonConfig(cfg), false)
	if err != nil {
		return nil, err
	}

	log.Info("database handles ready",
		zap.String("type", cfg.DBType),
		zap.String("database", cfg.DBName),
	)
	return &Dual{Anon: anon, Service: service}, nil
}

// ServiceHandle exposes the privileged handle for consumers taking *gorm.DB.
func ServiceHandle(dual *Dual) *gorm.DB {
	return dual.Service
}

// Scoped runs fn in a transaction on the anon handle with the requesting
// user pinned via SET LOCAL, so row-level security policies apply to every
// query fn issues. Postgres-only; SET LOCAL has no meaning elsewhere.
func (d *Dual) Scoped(ctx context.Context, userID string, fn func(tx *gorm.DB) error) error {
	return d.Anon.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rls.WithUser(tx, userID); err != nil {
			return err
		}
		return fn(tx)
	})
}

func open(cfg Config, instrument bool) (*gorm.DB, error) {
	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         obslogger.NewGormLogger(obslogger.DefaultGormLoggerConfig()),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := gdb.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Name))); err != nil {
		return nil, err
	}
	if instrument {
		if err := gdb.Use(gormprom.New(gormprom.Config{
			DBName:          cfg.Name,
			RefreshInterval: 15,
		})); err != nil {
			return nil, err
		}
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxIdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	}
	if cfg.MaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)
	}

	return gdb, nil
}

func anonConfig(cfg config.Config) Config {
	return Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBAnonUser,
		Password:        cfg.DBAnonPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}

func serviceConfig(cfg config.Config) Config {
	return Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBServiceUser,
		Password:        cfg.DBServicePassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}
