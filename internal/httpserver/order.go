package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
)

// maxOrderBody leaves room for a base64 encoded payment proof.
const maxOrderBody = 8 << 20

func (h *handlers) createOrder(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxOrderBody)
	var draft domain.OrderDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_order", "invalid body"))
		return
	}
	order, err := h.deps.OrderSvc.Create(c.Request.Context(), sessionFrom(c), draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, domain.OrderConfirmation{
		OrderNumber:    order.OrderNumber,
		CreatedAt:      order.CreatedAt,
		PaymentStatus:  order.PaymentStatus,
		TrackingNumber: order.TrackingNumber,
	})
}

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.deps.OrderSvc.Get(c.Request.Context(), sessionFrom(c), c.Param("orderNumber"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
