package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/chunxia/legion/cache"
	"github.com/chunxia/legion/config"
	mw "github.com/chunxia/legion/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler issues and revokes admin session tokens.
type AuthHandler struct {
	adminKey string
	cache    cache.Cache
	sec      config.SecurityConfig
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(adminKey string, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sec.SessionTTL <= 0 {
		sec.SessionTTL = 12 * time.Hour
	}
	return &AuthHandler{adminKey: adminKey, cache: c, sec: sec, logger: logger}
}

type loginRequest struct {
	Key string `json:"key" binding:"required,max=128"`
}

// Login handles POST /api/admin/login.
func (h *AuthHandler) Login(c *gin.Context) {
	if h.adminKey == "" {
		fail(c, http.StatusServiceUnavailable, "admin endpoints disabled")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !mw.CheckAdminKey(h.adminKey, req.Key) {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		fail(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := mw.GenerateToken(c.ClientIP(), h.sec.JWTSecret, h.sec.SessionTTL)
	if err != nil {
		fail(c, http.StatusInternalServerError, "token error")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), "1", h.sec.SessionTTL); err != nil {
		h.logger.Error("admin session store failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "session error")
		return
	}

	ok(c, gin.H{
		"token":     token,
		"expiresAt": time.Now().Add(h.sec.SessionTTL),
	})
}

// Logout handles POST /api/admin/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if tokenStr == "" {
		fail(c, http.StatusBadRequest, "missing token")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	ok(c, gin.H{"message": "logged out"})
}
