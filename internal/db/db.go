package db

import (
	"context"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	maxConnIdleTime = 5 * time.Minute
	maxConnLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// poolConfig parses dsn and applies the pool limits shared by every binary.
func poolConfig(dsn string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse db dsn")
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	cfg.MaxConnLifetime = maxConnLifetime
	return cfg, nil
}

// Connect opens the order and catalog database pool and pings it before
// handing it out.
func Connect(ctx context.Context, dsn string, logger logrus.FieldLogger) (*pgxpool.Pool, error) {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	cfg, err := poolConfig(dsn)
	if err != nil {
		return nil, err
	}
	log := logger.WithFields(logrus.Fields{
		"host":      cfg.ConnConfig.Host,
		"database":  cfg.ConnConfig.Database,
		"max_conns": cfg.MaxConns,
	})

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	start := time.Now()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.WithError(err).Warn("db ping failed")
		return nil, errors.Wrap(err, "ping db")
	}

	log.WithField("ping", time.Since(start)).Info("db pool ready")
	return pool, nil
}
