package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/localstore"
	"storefront/internal/remote"
	"storefront/internal/service/session"
	"storefront/internal/storefront"
	"storefront/internal/totals"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()
	log := logger.WithField("component", "storefront")

	ctx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	storage, closeStorage := newLocalStorage(ctx, cfg, log)
	defer closeStorage()

	sessions, err := session.New(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.WithError(err).Fatal("init sessions")
	}

	rates := totals.Rates{ShippingFee: cfg.ShippingFee}
	carts := remote.NewCartClient(cfg.CartServiceURL, nil, cfg.RemoteTimeout, logger)
	orders := remote.NewOrderClient(cfg.CartServiceURL, nil, cfg.RemoteTimeout, logger)
	shoppers := storefront.NewShoppers(storefront.Factory{
		Remote:  func(token string) cartstore.Remote { return carts.ForSession(token) },
		Orders:  func(token string) checkout.Orders { return orders.ForSession(token) },
		Storage: storage,
		Rates:   rates,
		Logger:  logger,
	}, cfg.SessionIdle)
	defer shoppers.Close()
	go shoppers.Run(ctx, time.Minute)

	srv, err := storefront.New(cfg.StorefrontAddr, logger, storefront.Deps{
		Sessions:    sessions,
		Shoppers:    shoppers,
		Rates:       rates,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		log.WithError(err).Fatal("init server")
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("starting storefront on %s (cart service %s)", cfg.StorefrontAddr, cfg.CartServiceURL)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Open event streams only end once their shoppers are closed.
	shoppers.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	} else {
		log.Info("server stopped")
	}
}

// newLocalStorage uses Redis when REDIS_ADDR is set so offline carts survive
// restarts, and process memory otherwise.
func newLocalStorage(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (localstore.Storage, func()) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, offline carts are kept in memory")
		return localstore.NewMemory(cfg.LocalQuotaBytes), func() {}
	}
	rdb, err := localstore.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	store := localstore.NewRedis(rdb, localstore.RedisOptions{
		TTL:        cfg.SessionTTL,
		QuotaBytes: cfg.LocalQuotaBytes,
	})
	return store, func() { _ = rdb.Close() }
}
