package main

import (
	"context"

	"storefront/internal/config"
	"storefront/internal/db"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/seed"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	log := logger.WithField("component", "seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.WithError(err).Fatal("connect db")
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, productrepo.NewPostgres(pool, logger), cfg.Currency)
	if err != nil {
		log.WithError(err).Fatal("seed apply")
	}

	log.WithField("products", n).Info("seed applied")
}
