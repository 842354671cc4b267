package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Total number of roster imports broken down by kind and result.",
	}, []string{"kind", "result"})

	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Total number of roster rows broken down by kind and outcome.",
	}, []string{"kind", "outcome"})

	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roster",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Wall time of a full roster import.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"kind"})

	groupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "import",
		Name:      "groups_created_total",
		Help:      "Total number of groups created by roster imports.",
	})

	mirrorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "mirror",
		Name:      "writes_total",
		Help:      "Total number of mirror cache writes broken down by entity kind and result.",
	}, []string{"kind", "result"})

	mirrorReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "mirror",
		Name:      "reads_total",
		Help:      "Total number of mirror cache lookups broken down by entity kind and hit/miss.",
	}, []string{"kind", "result"})
)

func RecordImport(kind string, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	importRuns.WithLabelValues(kind, result).Inc()
	importDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func RecordRows(kind, outcome string, n int) {
	if n <= 0 {
		return
	}
	importRows.WithLabelValues(kind, outcome).Add(float64(n))
}

func RecordGroupsCreated(n int) {
	if n > 0 {
		groupsCreated.Add(float64(n))
	}
}

func RecordMirrorWrite(kind string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	mirrorWrites.WithLabelValues(kind, result).Inc()
}

func RecordMirrorRead(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	mirrorReads.WithLabelValues(kind, result).Inc()
}
