// Package server exposes the normalizer as an upload-and-download HTTP
// service: a budget workbook goes in, the Sienge import workbook comes out.
package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ginjaninja78/sienge-budget-normalizer/internal/config"
	"github.com/ginjaninja78/sienge-budget-normalizer/internal/converter"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(defaults config.ColumnMapping, maxUploadMB int64, logger converter.Logger) *gin.Engine {
	h := NewHandler(defaults, maxUploadMB, logger)

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.POST("/sheets", h.Sheets)
	api.POST("/preview", h.Preview)
	api.POST("/normalize", h.Normalize)

	return r
}

// RequestID injects an X-Request-ID header into the request and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// RequestLogger logs each HTTP request with method, path, status, and latency.
func RequestLogger(logger converter.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		requestID, _ := c.Get("request_id")
		logger.Info("[%s] %s %s %d %s",
			requestID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency,
		)
	}
}
