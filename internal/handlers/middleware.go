package handlers

import (
	"context"
	"net/http"
	"strings"

	"user_management/internal/service"

	"github.com/gin-gonic/gin"
)

const ctxIdentityKey = "identity"

func (h *Handler) identityMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	id, err := h.services.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxIdentityKey, id)
	c.Next()
}

func (h *Handler) adminOnly(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	if !id.Admin {
		if h.log != nil {
			h.log.Infow("auth_admin_required", "user_id", id.UserID, "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin token required"})
		return
	}
	c.Next()
}

func identityFrom(c *gin.Context) (service.Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return service.Identity{}, false
	}
	id, ok := v.(service.Identity)
	return id, ok
}

// timeoutMiddleware attaches a deadline to the request context. Handlers see it
// through c.Request.Context() and pass it down to storage.
func (h *Handler) timeoutMiddleware(c *gin.Context) {
	if h.requestTimeout <= 0 {
		c.Next()
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
