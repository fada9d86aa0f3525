package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type importMetrics struct {
	records   *prometheus.CounterVec
	snapshots *prometheus.CounterVec
	duration  prometheus.Histogram
}

var importMetricsSingleton = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		records: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgadmin",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Records processed by the importer.",
		}, []string{"entity", "result"}),
		snapshots: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgadmin",
			Subsystem: "import",
			Name:      "snapshots_total",
			Help:      "Staffing snapshots evaluated by the importer.",
		}, []string{"result"}),
		duration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "orgadmin",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Duration of full import runs.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}
})
