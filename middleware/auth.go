package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/chunxia/legion/cache"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminKeyHeader  = "X-Admin-Key"
	AdminSubjectKey = "admin_subject"
	sessionPrefix   = "admin_session:"
)

// AdminAuthConfig configures AdminAuth.
type AdminAuthConfig struct {
	// AdminKey is the plain admin key or its bcrypt hash. Empty disables
	// every admin route.
	AdminKey  string
	JWTSecret string
}

// SessionKey is the cache key that keeps an admin token alive.
func SessionKey(token string) string { return sessionPrefix + token }

func newTokenID() string { return uuid.New().String() }

// CheckAdminKey reports whether given matches configured, which may be a
// bcrypt hash.
func CheckAdminKey(configured, given string) bool {
	if configured == "" || given == "" {
		return false
	}
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// AdminAuth accepts either the X-Admin-Key header or a Bearer session token
// issued by the admin login endpoint and still present in the cache.
// If no admin key is configured all admin endpoints answer 503.
func AdminAuth(cfg AdminAuthConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if cfg.AdminKey == "" {
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"success": false, "error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		if key := ctx.GetHeader(AdminKeyHeader); key != "" {
			if !CheckAdminKey(cfg.AdminKey, key) {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
				return
			}
			ctx.Set(AdminSubjectKey, "key:"+ctx.ClientIP())
			ctx.Next()
			return
		}

		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := ParseToken(tokenStr, cfg.JWTSecret)
		if err != nil || claims.Role != RoleAdmin {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "session expired"})
			return
		}

		ctx.Set(AdminSubjectKey, claims.Subject)
		ctx.Next()
	}
}

// GetAdminSubject returns who passed AdminAuth.
func GetAdminSubject(c *gin.Context) string {
	return c.GetString(AdminSubjectKey)
}
