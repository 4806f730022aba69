package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d0ggzi/celery-clinic/internal/bootstrap"
)

// adminInfra holds the clients and services a command needs.
type adminInfra struct {
	DB       *sql.DB
	Redis    redis.UniversalClient
	Services *bootstrap.ServiceContainer
}

// connectInfra connects Redis, plus PostgreSQL when the postgres backend is selected, and
// builds the service graph without starting any workers.
func connectInfra(cmdCtx *commandContext) (*adminInfra, error) {
	cfg := &cmdCtx.Config
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cfg.Postgres,
		RedisConfig: cfg.Redis,
		Logger:      cmdCtx.Logger,
	}

	infra := &adminInfra{}
	client, err := bootstrap.ConnectRedis(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	infra.Redis = client

	if cfg.RecordStore.UsesPostgres() {
		db, dbErr := bootstrap.ConnectDB(dbCfg)
		if dbErr != nil {
			return nil, errors.Join(fmt.Errorf("connect db: %w", dbErr), infra.Close())
		}
		infra.DB = db
	}

	// Admin commands never publish events.
	svcCfg := *cfg
	svcCfg.Observability.Events.NATSURL = ""
	svcs, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &svcCfg,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, errors.Join(err, infra.Close())
	}
	infra.Services = svcs
	return infra, nil
}

// withInfra runs fn with connected infrastructure and a bounded context.
func withInfra(cmdCtx *commandContext, timeout time.Duration, fn func(ctx context.Context, infra *adminInfra) error) error {
	infra, err := connectInfra(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close infrastructure failed", "error", closeErr)
		}
	}()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, timeout)
	defer cancel()
	return fn(ctx, infra)
}

func (a *adminInfra) Close() error {
	var closeErr error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close db: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	return closeErr
}
