package storefront

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookie = "sf_session"
	shopperKey    = "storefront.shopper"
)

type sessionResponse struct {
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
	ExpiresIn int    `json:"expiresIn"`
}

func (h *handlers) issueSession(c *gin.Context) {
	token, id, err := h.deps.Sessions.Issue(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("issue session")
		c.JSON(http.StatusInternalServerError, errorBody("internal", "internal error"))
		return
	}
	ttl := h.deps.Sessions.TTLSeconds()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, token, ttl, "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusCreated, sessionResponse{Token: token, SessionID: id, ExpiresIn: ttl})
}

// shopperMiddleware resolves the session token from the cookie or a bearer
// header and attaches the shopper to the request.
func (h *handlers) shopperMiddleware(c *gin.Context) {
	token := requestToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("unauthorized", "missing session"))
		return
	}
	id, err := h.deps.Sessions.Lookup(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("unauthorized", "invalid session"))
		return
	}
	sh, err := h.deps.Shoppers.Acquire(id, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody("unavailable", "shutting down"))
		return
	}
	c.Set(shopperKey, sh)
	c.Next()
}

func shopperFrom(c *gin.Context) *Shopper {
	return c.MustGet(shopperKey).(*Shopper)
}

func requestToken(c *gin.Context) string {
	const prefix = "bearer "
	if header := c.GetHeader("Authorization"); len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}
