package main

import (
	"context"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/migrate"
)

func main() {
	cfg := config.Load()
	log := cfg.NewLogger().WithField("component", "migrate")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool, log); err != nil {
		log.WithError(err).Fatal("apply migrations")
	}

	log.Info("migrations applied")
}
