package httpserver

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

type sessionService interface {
	Issue(ctx context.Context) (token, sessionID string, err error)
	Lookup(ctx context.Context, token string) (string, error)
	TTLSeconds() int
}

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Add(ctx context.Context, sessionID string, in cartsvc.LineInput) (*domain.Cart, error)
	Update(ctx context.Context, sessionID string, in cartsvc.LineInput) (*domain.Cart, error)
	Remove(ctx context.Context, sessionID, productID string, variant domain.Variant) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string) (*domain.Cart, error)
}

type orderService interface {
	Create(ctx context.Context, sessionID string, draft domain.OrderDraft) (*domain.Order, error)
	Get(ctx context.Context, sessionID, orderNumber string) (*domain.Order, error)
}

// Deps are the services behind the API.
type Deps struct {
	SessionSvc sessionService
	ProductSvc productService
	CartSvc    cartService
	OrderSvc   orderService
}

// buildRouter wires routes for the API.
func buildRouter(logger *logrus.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if deps.SessionSvc == nil || deps.ProductSvc == nil || deps.CartSvc == nil || deps.OrderSvc == nil {
		return nil, errors.New("httpserver: missing dependencies")
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	router.POST("/sessions", h.issueSession)
	router.GET("/products", h.listProducts)
	router.GET("/products/:id", h.getProduct)

	authed := router.Group("/", sessionMiddleware(deps.SessionSvc))
	authed.GET("/cart", h.getCart)
	authed.POST("/cart/add", h.addToCart)
	authed.PUT("/cart/update", h.updateCart)
	authed.DELETE("/cart/remove/:productId", h.removeFromCart)
	authed.DELETE("/cart/clear", h.clearCart)
	authed.POST("/orders", h.createOrder)
	authed.GET("/orders/:orderNumber", h.getOrder)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger logrus.FieldLogger
}
