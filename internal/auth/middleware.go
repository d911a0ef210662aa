package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/interviewly/voicegate/internal/domain"
)

const identityKey = "identity"

// Middleware verifies the Bearer token of the primary HTTP channel
// and attaches the resulting identity to the request context.
func Middleware(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Access denied. No token provided.",
			})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		ident, err := issuer.Verify(raw)
		if err != nil {
			log.Warn().Err(err).Str("module", "auth").Msg("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token. Please login again.",
			})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// IdentityFrom returns the identity the middleware attached.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	ident, ok := v.(domain.Identity)
	return ident, ok
}
