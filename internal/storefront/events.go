package storefront

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// cartEvents streams cart-changed signals until the client disconnects or
// the shopper is evicted. Events carry no cart data; clients re-fetch.
func (h *handlers) cartEvents(c *gin.Context) {
	sh := shopperFrom(c)
	sub := sh.Events.Subscribe()
	defer sub.Close()

	keepalive := time.NewTicker(h.deps.Keepalive)
	defer keepalive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"mode": sh.Cart.Mode()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			h.deps.Shoppers.Touch(sh)
			c.SSEvent(string(ev.Kind), ev)
			c.Writer.Flush()
		case <-keepalive.C:
			h.deps.Shoppers.Touch(sh)
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			c.Writer.Flush()
		}
	}
}
