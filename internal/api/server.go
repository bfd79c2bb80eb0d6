// Package api exposes the elicitation engine over HTTP. The public API is a
// gin engine; health and metrics live on a separate admin router.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"goelicit/app"
	"goelicit/internal"
	"goelicit/internal/metrics"
)

// NewRouter builds the public API. hub may be nil to disable event streams.
func NewRouter(service *app.ElicitationService, hub *SSEHub, recorder *metrics.Recorder, logger *internal.Logger) *gin.Engine {
	logger = internal.OrDefault(logger)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.Named("http")), instrument(recorder))

	var events *SSEEventBroadcaster
	if hub != nil {
		events = NewSSEEventBroadcaster(hub)
		r.GET("/v1/events", hub.HandleSSE)
	}
	h := NewDesignHandler(service, events, logger)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "fingerprint": service.Generator().Fingerprint()})
	})

	v1 := r.Group("/v1")
	{
		v1.GET("/profiles/info", h.GetProfileInfo)
		v1.GET("/profiles", h.ListProfiles)

		v1.POST("/design/static", h.PlanStaticBattery)
		v1.POST("/design/statistics", h.BatteryStatistics)

		v1.GET("/batteries/:id", h.GetBattery)
		v1.GET("/batteries/:id/xlsx", h.ExportBattery)

		v1.POST("/posterior/report", h.PosteriorReport)

		v1.POST("/adaptive/next", h.NextVignette)
		v1.POST("/adaptive/choice", h.RecordChoice)
	}
	return r
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// instrument records request counts and latency labelled by route template
func instrument(recorder *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		recorder.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
