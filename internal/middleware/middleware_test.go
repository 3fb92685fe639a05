package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveWith(h gin.HandlerFunc, method, path, origin string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(h)
	r.GET("/api/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, path, nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORS_Wildcard(t *testing.T) {
	w := serveWith(CORS("*"), http.MethodGet, "/api/events", "http://kiosk.local")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowList(t *testing.T) {
	h := CORS("http://a.local, http://b.local")

	w := serveWith(h, http.MethodGet, "/api/events", "http://b.local")
	assert.Equal(t, "http://b.local", w.Header().Get("Access-Control-Allow-Origin"))

	w = serveWith(h, http.MethodGet, "/api/events", "http://evil.local")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	w := serveWith(CORS("*"), http.MethodOptions, "/api/events", "http://kiosk.local")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Logger(zap.New(core))

	serveWith(h, http.MethodGet, "/api/events", "")
	serveWith(h, http.MethodGet, "/health", "")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "/api/events", entries[0].ContextMap()["path"])
		assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
	}
}
