package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_fetch_total",
		Help: "Source fetches by source kind and result.",
	}, []string{"kind", "result"})

	SummariesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_summaries_total",
		Help: "Item enrichments by outcome (ok, short, fallback).",
	}, []string{"result"})

	CacheReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "digest_cache_reads_total",
		Help: "Snapshot reads by result (hit, miss, error).",
	}, []string{"result"})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "digest_refresh_duration_seconds",
		Help:    "Duration of full pipeline refreshes.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)

const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultShort    = "short"
	ResultFallback = "fallback"
	ResultHit      = "hit"
	ResultMiss     = "miss"
)
