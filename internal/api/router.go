// Package api serves the read helpers over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tweetarchive/internal/analytics"
	"tweetarchive/internal/logging"
	"tweetarchive/internal/store"
	"tweetarchive/internal/tweet"
)

// Reader is the read side of store.Store.
type Reader interface {
	CreatedInRange(ctx context.Context, start, end time.Time) ([]tweet.Record, error)
	EarliestCreatedAt(ctx context.Context) (*time.Time, error)
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
	CountApprox(ctx context.Context) (int64, error)
}

type handlers struct {
	r        Reader
	strategy store.CountStrategy
	loc      *time.Location
}

// NewRouter wires the read routes. strategy is reported with counts so
// clients know whether the number is an estimate; hourly buckets are cut
// in loc, nil meaning UTC.
func NewRouter(r Reader, strategy store.CountStrategy, loc *time.Location) *gin.Engine {
	if loc == nil {
		loc = time.UTC
	}
	h := handlers{r: r, strategy: strategy, loc: loc}
	e := gin.New()
	e.Use(gin.Recovery(), Logger())

	e.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tweets := e.Group("/tweets")
	tweets.GET("", h.createdInRange)
	tweets.GET("/bounds", h.bounds)
	tweets.GET("/count", h.count)
	tweets.GET("/hourly", h.hourly)
	return e
}

// Logger logs method, path, status and latency.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Info("http_request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
	}
}

// rangeRecords reads start and end (RFC 3339) from the query and loads the
// records in between. It writes the error response itself.
func (h handlers) rangeRecords(c *gin.Context) ([]tweet.Record, bool) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		respondError(c, "start: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		respondError(c, "end: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if end.Before(start) {
		respondError(c, "end is before start", http.StatusBadRequest)
		return nil, false
	}
	recs, err := h.r.CreatedInRange(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return recs, true
}

// GET /tweets?start=RFC3339&end=RFC3339
func (h handlers) createdInRange(c *gin.Context) {
	recs, ok := h.rangeRecords(c)
	if !ok {
		return
	}
	if recs == nil {
		recs = []tweet.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"tweets": recs, "count": len(recs)})
}

// GET /tweets/bounds
func (h handlers) bounds(c *gin.Context) {
	ctx := c.Request.Context()
	earliest, err := h.r.EarliestCreatedAt(ctx)
	if err != nil {
		respondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	latest, err := h.r.LatestCreatedAt(ctx)
	if err != nil {
		respondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"earliest_created_at": earliest, "latest_created_at": latest})
}

// GET /tweets/count
func (h handlers) count(c *gin.Context) {
	n, err := h.r.CountApprox(c.Request.Context())
	if err != nil {
		respondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n, "approximate": h.strategy == store.CountEstimated})
}

// GET /tweets/hourly?start=RFC3339&end=RFC3339
func (h handlers) hourly(c *gin.Context) {
	recs, ok := h.rangeRecords(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": analytics.HourlyVolume(recs, h.loc)})
}

func respondError(c *gin.Context, msg string, status int) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
