package storefront

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cartstore"
	"storefront/internal/checkout"
	"storefront/internal/domain"
)

func errorBody(code, message string) gin.H {
	return gin.H{"error": code, "message": message}
}

func (h *handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cartstore.ErrInvalidQuantity), errors.Is(err, cartstore.ErrInvalidLine):
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, cartstore.ErrLineBusy):
		c.JSON(http.StatusConflict, errorBody("line_busy", err.Error()))
	case errors.Is(err, checkout.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, errorBody("submit_in_progress", err.Error()))
	case errors.Is(err, checkout.ErrOrderRejected):
		c.JSON(http.StatusConflict, errorBody("order_rejected", err.Error()))
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusUnprocessableEntity, errorBody("empty_cart", err.Error()))
	case errors.Is(err, checkout.ErrOrderFailed):
		h.logger.WithError(err).Warn("order submission failed")
		c.JSON(http.StatusBadGateway, errorBody("order_failed", "the order service is unavailable, please retry"))
	case errors.Is(err, cartstore.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, errorBody("unavailable", "session closed"))
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "internal error"))
	}
}
