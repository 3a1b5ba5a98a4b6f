package auth

import (
	"strings"

	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	adminContextKey   = "admin"
	adminIDContextKey = "adminID"

	// TokenCookie is read when no Authorization header is sent
	TokenCookie = "token"

	MsgNotAuthorized = "Not authorized, please login"
)

// Protect resolves the admin behind the request token and rejects the
// request with 401 when there is none.
func Protect(tokens *Tokens, admins AdminStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c)
			return
		}

		adminID, err := tokens.Verify(token)
		if err != nil {
			logger.Debug("Rejected token", zap.Error(err))
			abortUnauthorized(c)
			return
		}

		admin, err := admins.ByID(c.Request.Context(), adminID)
		if err != nil {
			if !errors.Is(err, errors.NotFound) {
				logger.Error("Admin lookup failed", zap.String("admin", adminID), zap.Error(err))
			}
			abortUnauthorized(c)
			return
		}

		c.Set(adminContextKey, admin)
		c.Set(adminIDContextKey, admin.ID)
		c.Next()
	}
}

// CurrentAdminID returns the id attached by Protect
func CurrentAdminID(c *gin.Context) string {
	return c.GetString(adminIDContextKey)
}

// CurrentAdmin returns the admin attached by Protect, or nil
func CurrentAdmin(c *gin.Context) *Admin {
	v, ok := c.Get(adminContextKey)
	if !ok {
		return nil
	}
	a, _ := v.(*Admin)
	return a
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func abortUnauthorized(c *gin.Context) {
	_ = c.Error(errors.Unauthorized.Explain(MsgNotAuthorized))
	c.Abort()
}
