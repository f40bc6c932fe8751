package storefront

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/domain"
	"storefront/internal/totals"
)

type cartView struct {
	Items      []domain.CartLine            `json:"items"`
	Subtotal   decimal.Decimal              `json:"subtotal"`
	TotalItems int                          `json:"totalItems"`
	Pricing    domain.Pricing               `json:"pricing"`
	Mode       domain.SyncMode              `json:"mode"`
	Offline    bool                         `json:"offline"`
	LineStatus map[string]domain.LineStatus `json:"lineStatus"`
	Checkout   checkout.State               `json:"checkoutState"`
}

func (h *handlers) view(sh *Shopper, cart domain.Cart) cartView {
	mode := sh.Cart.Mode()
	return cartView{
		Items:      cart.Lines,
		Subtotal:   cart.Subtotal,
		TotalItems: cart.TotalItems,
		Pricing:    totals.Calculate(cart.Lines, h.deps.Rates),
		Mode:       mode,
		Offline:    mode == domain.SyncLocal,
		LineStatus: sh.Cart.LineStatuses(),
		Checkout:   sh.Checkout.State(),
	}
}

func (h *handlers) respondCart(c *gin.Context, sh *Shopper, cart domain.Cart, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(sh, cart))
}

func (h *handlers) getCart(c *gin.Context) {
	sh := shopperFrom(c)
	cart, err := sh.Cart.Get(c.Request.Context())
	h.respondCart(c, sh, cart, err)
}

type addItemRequest struct {
	cartstore.AddInput
	Quantity *int `json:"quantity"`
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", "invalid body"))
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	sh := shopperFrom(c)
	cart, err := sh.Cart.AddItem(c.Request.Context(), req.AddInput, qty)
	h.respondCart(c, sh, cart, err)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) setQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", "invalid body"))
		return
	}
	sh := shopperFrom(c)
	cart, err := sh.Cart.SetQuantity(c.Request.Context(), c.Param("lineId"), req.Quantity)
	h.respondCart(c, sh, cart, err)
}

func (h *handlers) removeItem(c *gin.Context) {
	sh := shopperFrom(c)
	cart, err := sh.Cart.RemoveItem(c.Request.Context(), c.Param("lineId"))
	h.respondCart(c, sh, cart, err)
}

func (h *handlers) clearCart(c *gin.Context) {
	sh := shopperFrom(c)
	cart, err := sh.Cart.Clear(c.Request.Context())
	h.respondCart(c, sh, cart, err)
}
