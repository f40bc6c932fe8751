package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/proofstore"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	cartsvc "storefront/internal/service/cart"
	ordersvc "storefront/internal/service/order"
	productsvc "storefront/internal/service/product"
	"storefront/internal/service/session"
	"storefront/internal/totals"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	log := logger.WithField("component", "api")

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, log)
	if err != nil {
		log.WithError(err).Fatal("connect to db")
	}
	defer dbpool.Close()

	proofs, err := newProofStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("init proof store")
	}

	sessionService, err := session.New(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.WithError(err).Fatal("init sessions")
	}
	productRepo := productrepo.NewPostgres(dbpool, logger)
	productService := productsvc.New(productRepo)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	cartService := cartsvc.New(cartRepo, productRepo)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	orderService := ordersvc.New(orderRepo, proofs, totals.Rates{ShippingFee: cfg.ShippingFee}, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		SessionSvc: sessionService,
		ProductSvc: productService,
		CartSvc:    cartService,
		OrderSvc:   orderService,
	})
	if err != nil {
		log.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Infof("received signal %s, shutting down", sig)
	case err := <-serverErr:
		log.WithError(err).Error("server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	} else {
		log.Info("server stopped")
	}
}

// newProofStore uses S3 when a bucket is configured and keeps proofs in
// memory otherwise.
func newProofStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (proofstore.Store, error) {
	if cfg.ProofBucket == "" {
		log.Warn("PROOF_BUCKET not set, payment proofs are kept in memory")
		return proofstore.NewMemory(), nil
	}
	return proofstore.NewS3(ctx, proofstore.S3Config{
		Bucket:   cfg.ProofBucket,
		Region:   cfg.AWSRegion,
		Endpoint: cfg.ProofEndpoint,
	})
}
