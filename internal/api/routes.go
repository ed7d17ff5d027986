package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user00265/ctyresolve/internal/cty"
	"github.com/user00265/ctyresolve/internal/logging"
	"github.com/user00265/ctyresolve/internal/lookup"
	"github.com/user00265/ctyresolve/internal/metrics"
)

// Resolver is what the routes need from the lookup service.
type Resolver interface {
	Lookup(ctx context.Context, call string) (lookup.Info, bool)
	LookupBatch(ctx context.Context, calls []string) ([]lookup.Info, error)
	Status() (lookup.Status, bool)
}

// StoreStats reports on the stored country file. It may be nil.
type StoreStats interface {
	Stats(ctx context.Context) (cty.Stats, error)
}

// Options configures the router.
type Options struct {
	BaseURL  string
	BatchMax int
}

type batchRequest struct {
	Callsigns []string `json:"callsigns" binding:"required"`
}

// NewRouter builds the HTTP API with the project's logging middleware.
func NewRouter(opts Options, svc Resolver, store StoreStats) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	// Collapse "//" before routing.
	router.RemoveExtraSlash = true
	router.SetTrustedProxies(nil)

	router.Use(logging.GinRecovery())
	router.Use(logging.GinLogger())

	base := opts.BaseURL
	if base == "" {
		base = "/"
	}
	group := router.Group(base)
	group.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	SetupRoutes(group, svc, store, opts.BatchMax)
	return router
}

// SetupRoutes configures all API endpoints on r.
func SetupRoutes(r *gin.RouterGroup, svc Resolver, store StoreStats, batchMax int) {
	// GET /lookup/*callsign - resolve one callsign. Compound calls such as
	// VE3/K1ABC keep their slash.
	r.GET("/lookup/*callsign", func(c *gin.Context) {
		call := strings.Trim(c.Param("callsign"), "/ ")
		if call == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "callsign is required"})
			return
		}
		info, ok := svc.Lookup(c.Request.Context(), call)
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": lookup.ErrNoDataset.Error()})
			return
		}
		c.JSON(http.StatusOK, info)
	})

	// POST /lookup - resolve a batch: {"callsigns": ["K1ABC", ...]}.
	r.POST("/lookup", func(c *gin.Context) {
		var req batchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request body: %v", err)})
			return
		}
		if batchMax > 0 && len(req.Callsigns) > batchMax {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d callsigns per request", batchMax)})
			return
		}

		out, err := svc.LookupBatch(c.Request.Context(), req.Callsigns)
		switch {
		case errors.Is(err, lookup.ErrNoDataset):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": fmt.Sprintf("batch lookup aborted: %v", err)})
		default:
			c.JSON(http.StatusOK, out)
		}
	})

	// GET /stats - dataset version and sizes.
	r.GET("/stats", func(c *gin.Context) {
		stats := gin.H{
			"loaded":       false,
			"version":      nil,
			"loaded_at":    nil,
			"exact_calls":  0,
			"prefixes":     0,
			"last_updated": nil,
			"source_url":   nil,
		}
		if st, ok := svc.Status(); ok {
			stats["loaded"] = true
			stats["version"] = st.Version
			stats["loaded_at"] = st.LoadedAt.Format(time.RFC3339)
			stats["exact_calls"] = st.ExactCalls
			stats["prefixes"] = st.Prefixes
		}
		if store != nil {
			if s, err := store.Stats(c.Request.Context()); err != nil {
				logging.Warn("Failed to read country file stats: %v", err)
			} else if !s.LastUpdated.IsZero() {
				stats["last_updated"] = s.LastUpdated.Format(time.RFC3339)
				stats["source_url"] = s.SourceURL
			}
		}
		c.JSON(http.StatusOK, stats)
	})

	// GET /metrics - Prometheus exposition.
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
