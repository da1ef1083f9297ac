package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/chunxia/legion/aion"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Error: msg})
}

// upstreamFail maps a character loading error: unknown characters are 404,
// everything else is the upstream's fault.
func upstreamFail(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, aion.ErrNotFound) {
		fail(c, http.StatusNotFound, "角色不存在")
		return
	}
	logger.Warn("upstream request failed",
		zap.String("path", c.Request.URL.Path),
		zap.String("query", c.Request.URL.RawQuery),
		zap.Error(err))
	fail(c, http.StatusBadGateway, "获取角色数据失败")
}

// characterQuery reads a character id and its server id from the query.
func characterQuery(c *gin.Context, idKey, serverKey string) (string, int, bool) {
	id := strings.TrimSpace(c.Query(idKey))
	server, err := strconv.Atoi(c.Query(serverKey))
	if id == "" || err != nil || server <= 0 {
		fail(c, http.StatusBadRequest, "缺少参数 "+idKey+" 或 "+serverKey)
		return "", 0, false
	}
	return id, server, true
}
