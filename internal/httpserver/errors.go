package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	cartsvc "storefront/internal/service/cart"
)

func errorBody(code, message string) gin.H {
	return gin.H{"error": code, "message": message}
}

func (h *handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, domain.ErrStockConflict):
		c.JSON(http.StatusConflict, errorBody("stock_conflict", err.Error()))
	case errors.Is(err, domain.ErrInvalidOrder):
		c.JSON(http.StatusUnprocessableEntity, errorBody("invalid_order", err.Error()))
	case errors.Is(err, cartsvc.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorBody("invalid_input", err.Error()))
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "internal error"))
	}
}
