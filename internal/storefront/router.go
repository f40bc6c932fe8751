// Package storefront is the backend-for-frontend that browser surfaces talk
// to. It holds one cart store per shopper session and streams cart-changed
// signals over server-sent events.
package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront/internal/totals"
)

type tokenService interface {
	Issue(ctx context.Context) (token, sessionID string, err error)
	Lookup(ctx context.Context, token string) (string, error)
	TTLSeconds() int
}

// Deps are the collaborators behind the storefront routes.
type Deps struct {
	Sessions    tokenService
	Shoppers    *Shoppers
	Rates       totals.Rates
	CORSOrigins []string
	// Keepalive is the SSE ping interval; zero means 25s.
	Keepalive time.Duration
}

func buildRouter(logger *logrus.Logger, deps Deps) (*gin.Engine, error) {
	if deps.Sessions == nil || deps.Shoppers == nil {
		return nil, errors.New("storefront: missing dependencies")
	}
	if deps.Keepalive <= 0 {
		deps.Keepalive = 25 * time.Second
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "shoppers": deps.Shoppers.Len()})
	})

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api")
	api.POST("/session", h.issueSession)

	shop := api.Group("/", h.shopperMiddleware)
	shop.GET("/cart", h.getCart)
	shop.DELETE("/cart", h.clearCart)
	shop.POST("/cart/items", h.addItem)
	shop.PATCH("/cart/items/:lineId", h.setQuantity)
	shop.DELETE("/cart/items/:lineId", h.removeItem)
	shop.GET("/cart/events", h.cartEvents)
	shop.POST("/checkout/validate", h.validateCheckout)
	shop.POST("/checkout", h.submitCheckout)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger logrus.FieldLogger
}
