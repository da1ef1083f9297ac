package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceRequest(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(TraceID())
	r.GET("/trace", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})
	req := httptest.NewRequest(http.MethodGet, "/trace", nil)
	if header != "" {
		req.Header.Set(TraceIDHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w
}

func TestTraceID_Generated(t *testing.T) {
	w := traceRequest(t, "")
	id := w.Body.String()
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Header().Get(TraceIDHeader))
}

func TestTraceID_ProvidedKept(t *testing.T) {
	w := traceRequest(t, "sync-run_42.a")
	assert.Equal(t, "sync-run_42.a", w.Body.String())
	assert.Equal(t, "sync-run_42.a", w.Header().Get(TraceIDHeader))
}

func TestTraceID_MalformedReplaced(t *testing.T) {
	for _, h := range []string{strings.Repeat("a", 65), "has space", "换行\n"} {
		w := traceRequest(t, h)
		assert.Len(t, w.Body.String(), 36, "header %q", h)
	}
}

func TestTraceID_UniquePerRequest(t *testing.T) {
	assert.NotEqual(t, traceRequest(t, "").Body.String(), traceRequest(t, "").Body.String())
}

func TestGetTraceID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetTraceID(c))
}
