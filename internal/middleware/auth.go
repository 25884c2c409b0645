package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/medconnecthq/medconnect/internal/auth"
	"github.com/medconnecthq/medconnect/pkg/errors"
	"github.com/medconnecthq/medconnect/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxRoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole rejects requests whose validated token does not carry the role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(CtxRoleKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if actual, _ := v.(string); actual != role {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
