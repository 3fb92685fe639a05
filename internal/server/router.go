// Package server assembles the HTTP API.
package server

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qr-attendance/backend/internal/attendance"
	"github.com/qr-attendance/backend/internal/events"
	"github.com/qr-attendance/backend/internal/export"
	"github.com/qr-attendance/backend/internal/middleware"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/internal/realtime"
	"github.com/qr-attendance/backend/pkg/response"
)

// Deps are the collaborators behind the routes. Exports may be nil when Redis is not configured.
type Deps struct {
	Codec      qrcode.Generator
	Events     events.Store
	Attendance *attendance.Service
	Hub        *realtime.Hub
	Exports    export.Jobs

	CORSAllowedOrigins string
	StaticDir          string
	Logger             *zap.Logger
}

// NewRouter builds the gin engine with all routes.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	qrHandler := qrcode.NewHandler(d.Codec, logger)
	eventHandler := events.NewHandler(d.Events, logger)
	attendanceHandler := attendance.NewHandler(d.Attendance, logger)
	exportHandler := export.NewHandler(d.Exports, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.POST("/generate-qr", qrHandler.Generate)
		api.GET("/events", eventHandler.List)
		api.POST("/attendance", attendanceHandler.Record)
		api.GET("/attendance", attendanceHandler.List)
		api.POST("/attendance/export", exportHandler.Request)
		api.GET("/attendance/export/:id", exportHandler.Status)
	}

	if d.Hub != nil {
		router.GET("/ws/attendance", realtime.ServeWs(d.Hub, logger))
	}

	router.NoRoute(staticHandler(d.StaticDir, logger))
	return router
}

// staticHandler serves the front end from dir for GET and HEAD. Anything else is a JSON 404.
func staticHandler(dir string, logger *zap.Logger) gin.HandlerFunc {
	var files http.Handler
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			files = http.FileServer(http.Dir(dir))
		} else {
			logger.Warn("static dir not served", zap.String("dir", dir))
		}
	}
	return func(c *gin.Context) {
		if files == nil || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			response.NotFound(c, "not found")
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
