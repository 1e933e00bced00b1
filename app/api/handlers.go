package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-digest/app/database"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/pipeline"
	"github.com/lysyi3m/rss-digest/app/tasks"
)

const digestTitle = "RSS Digest"

type HandlerOptions struct {
	PublicURL string
	Version   string
	// Retention is the snapshot retention window; zero means unbounded.
	Retention time.Duration
}

func NewHandler(reader SnapshotReader, sourceRepo database.SourceRepository, itemRepo database.ItemRepository,
	store Pinger, generator GeneratorInterface, scheduler tasks.TaskSchedulerInterface, opts HandlerOptions) *Handler {
	return &Handler{
		reader:     reader,
		sourceRepo: sourceRepo,
		itemRepo:   itemRepo,
		store:      store,
		generator:  generator,
		scheduler:  scheduler,
		publicURL:  opts.PublicURL,
		version:    opts.Version,
		retention:  opts.Retention,
	}
}

// GetItems serves the snapshot. ?refresh=true rebuilds it first.
func (h *Handler) GetItems(c *gin.Context) {
	snapshot, err := h.reader.Read(c.Request.Context(), c.Query("refresh") == "true")
	if err != nil {
		h.respondError(c, "Failed to read items", err)
		return
	}

	c.JSON(http.StatusOK, newItemsResponse(snapshot))
}

// GetRecentItems splits the snapshot into the current and previous period.
func (h *Handler) GetRecentItems(c *gin.Context) {
	policy, err := feed.ParsePolicy(c.DefaultQuery("policy", string(feed.PolicyWeekly)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := h.reader.Read(c.Request.Context(), false)
	if err != nil {
		h.respondError(c, "Failed to read items", err)
		return
	}

	now := time.Now()
	current, previous := feed.NewClassifier(policy).Run(snapshot.Items, now)

	c.JSON(http.StatusOK, recentResponse{
		Policy:   policy,
		Current:  nonNil(current),
		Previous: nonNil(previous),
		Partial:  h.retention > 0 && h.retention < feed.PolicySpan(policy, now),
	})
}

// GetFeed renders the snapshot as RSS 2.0.
func (h *Handler) GetFeed(c *gin.Context) {
	snapshot, err := h.reader.Read(c.Request.Context(), false)
	if err != nil {
		slog.Error("Failed to read items for feed", "error", err)
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	rss, err := h.generator.Run(digestTitle, h.publicURL, snapshot.Items)
	if err != nil {
		slog.Error("Failed to generate RSS", "items", len(snapshot.Items), "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate feed")
		return
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(rss))
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "store unavailable",
		})
		return
	}

	itemCount, err := h.itemRepo.GetItemCount(ctx)
	if err != nil {
		slog.Warn("Failed to count items", "error", err)
	}

	sources, err := h.sourceRepo.GetSources(ctx)
	if err != nil {
		slog.Warn("Failed to load sources", "error", err)
	}

	var lastRefresh *time.Time
	if last := h.reader.LastRefresh(); !last.IsZero() {
		lastRefresh = &last
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"version":      h.version,
		"items":        itemCount,
		"sources":      len(sources),
		"last_refresh": lastRefresh,
	})
}

func (h *Handler) APIListSources(c *gin.Context) {
	sources, err := h.sourceRepo.GetSources(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to load sources", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": nonNil(sources),
		"count":   len(sources),
	})
}

// APIReplaceSources swaps the whole source list.
func (h *Handler) APIReplaceSources(c *gin.Context) {
	var req sourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if err := h.sourceRepo.ReplaceSources(c.Request.Context(), req.Sources); err != nil {
		h.respondError(c, "Failed to replace sources", err)
		return
	}

	slog.Info("Sources replaced", "count", len(req.Sources))
	h.scheduleRefresh()

	c.JSON(http.StatusOK, gin.H{
		"sources": nonNil(req.Sources),
		"count":   len(req.Sources),
	})
}

func (h *Handler) APIAddSource(c *gin.Context) {
	var source feed.Source
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}
	if source.Kind == "" {
		source.Kind = feed.SourceKindFeed
	}

	if err := h.sourceRepo.AddSource(c.Request.Context(), source); err != nil {
		h.respondError(c, "Failed to add source", err)
		return
	}

	slog.Info("Source added", "url", source.URL, "kind", source.Kind)
	h.scheduleRefresh()

	c.JSON(http.StatusCreated, source)
}

func (h *Handler) APIDeleteSource(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	removed, err := h.sourceRepo.RemoveSource(c.Request.Context(), url)
	if err != nil {
		h.respondError(c, "Failed to remove source", err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found", "url": url})
		return
	}

	slog.Info("Source removed", "url", url)
	h.scheduleRefresh()

	c.Status(http.StatusNoContent)
}

// APIRefresh rebuilds the snapshot synchronously.
func (h *Handler) APIRefresh(c *gin.Context) {
	snapshot, err := h.reader.Read(c.Request.Context(), true)
	if err != nil {
		h.respondError(c, "Failed to refresh items", err)
		return
	}

	c.JSON(http.StatusOK, newItemsResponse(snapshot))
}

func (h *Handler) scheduleRefresh() {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.EnqueueRefresh(); err != nil {
		slog.Warn("Failed to schedule refresh", "error", err)
	}
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	if feed.IsKind(err, feed.KindInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "message": err.Error()})
		return
	}

	slog.Error(msg, "error", err)

	status := http.StatusInternalServerError
	if feed.IsKind(err, feed.KindStorage) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": msg})
}

func newItemsResponse(snapshot *pipeline.Snapshot) itemsResponse {
	resp := itemsResponse{
		Items:  nonNil(snapshot.Items),
		Errors: nonNil(snapshot.Errors),
		Cached: snapshot.Cached,
	}
	if snapshot.StoreErr != nil {
		resp.StoreError = snapshot.StoreErr.Error()
	}
	return resp
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
