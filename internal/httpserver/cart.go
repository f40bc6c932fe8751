package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Get(c.Request.Context(), sessionFrom(c))
	h.respondCart(c, cart, err)
}

func (h *handlers) addToCart(c *gin.Context) {
	var in cartsvc.LineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", "invalid body"))
		return
	}
	cart, err := h.deps.CartSvc.Add(c.Request.Context(), sessionFrom(c), in)
	h.respondCart(c, cart, err)
}

func (h *handlers) updateCart(c *gin.Context) {
	var in cartsvc.LineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", "invalid body"))
		return
	}
	cart, err := h.deps.CartSvc.Update(c.Request.Context(), sessionFrom(c), in)
	h.respondCart(c, cart, err)
}

func (h *handlers) removeFromCart(c *gin.Context) {
	variant := domain.Variant{Size: c.Query("size"), Color: c.Query("color")}
	cart, err := h.deps.CartSvc.Remove(c.Request.Context(), sessionFrom(c), c.Param("productId"), variant)
	h.respondCart(c, cart, err)
}

func (h *handlers) clearCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Clear(c.Request.Context(), sessionFrom(c))
	h.respondCart(c, cart, err)
}

func (h *handlers) respondCart(c *gin.Context, cart *domain.Cart, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := *cart
	out.Recompute()
	c.JSON(http.StatusOK, out)
}
