package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/yawiki/internal/model"
	"github.com/xxxsen/yawiki/internal/pkg/errcode"
	appErr "github.com/xxxsen/yawiki/internal/pkg/errors"
	"github.com/xxxsen/yawiki/internal/pkg/jwt"
	"github.com/xxxsen/yawiki/internal/pkg/response"
)

const (
	ContextUserIDKey = "user_id"
	ContextRoleKey   = "user_role"
	ContextClaimsKey = "claims"
)

// Authenticator validates bearer tokens, including revocation.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwt.Claims, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextRoleKey, claims.Role)
	c.Set(ContextClaimsKey, claims)
}

func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Abort(c, errcode.ErrUnauthorized, "missing authorization")
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Abort(c, errcode.ErrUnauthorized, "invalid authorization")
			return
		}
		claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			code := errcode.ErrInternal
			if appErr.IsUnauthorized(err) {
				code = errcode.ErrUnauthorized
			}
			response.Abort(c, code, appErr.Message(err, "invalid token"))
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalJWTAuth sets the caller identity when a valid token is sent and
// lets anonymous requests through otherwise.
func OptionalJWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if claims, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Abort(c, errcode.ErrForbidden, "admin only")
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextRoleKey) == model.RoleAdmin
}

func Claims(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
