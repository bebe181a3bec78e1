package manager

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the manager's own registry plus the gauges the
// reconciliation loop feeds every tick.
type Metrics struct {
	registry *prometheus.Registry

	// unix timestamp of the last accepted upstream snapshot,
	// exported as vatsim_data_age_sec
	dataTimestamp atomic.Int64

	ObjectsOnline        *prometheus.GaugeVec
	DatabaseObjectsCount *prometheus.GaugeVec
	DataLoadTime         prometheus.Gauge
	DBCountersFetchTime  prometheus.Gauge
	DBCleanupTime        prometheus.Gauge
	ProcessingTime       *prometheus.GaugeVec
}

func NewMetrics(extra ...prometheus.Collector) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ObjectsOnline: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vatsim_objects_online",
			Help: "Number of objects in the last accepted snapshot",
		}, []string{"object_type", "country_code", "continent_code"}),
		DatabaseObjectsCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "database_objects_count",
			Help: "Number of rows in the track store",
		}, []string{"object_type"}),
		DataLoadTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vatsim_data_load_time_sec",
			Help: "Time spent fetching the last upstream snapshot",
		}),
		DBCountersFetchTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "database_objects_count_fetch_time_sec",
			Help: "Time spent reading the track store counters",
		}),
		DBCleanupTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "db_cleanup_time_sec",
			Help: "Duration of the last track store cleanup",
		}),
		ProcessingTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "processing_time_sec",
			Help: "Per-pass processing time of the last tick",
		}, []string{"object_type"}),
	}

	age := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "vatsim_data_age_sec",
		Help: "Seconds since the last accepted snapshot's upstream timestamp",
	}, func() float64 {
		ts := m.dataTimestamp.Load()
		if ts == 0 {
			return 0
		}
		return float64(time.Now().Unix() - ts)
	})

	m.registry.MustRegister(
		m.ObjectsOnline,
		m.DatabaseObjectsCount,
		m.DataLoadTime,
		m.DBCountersFetchTime,
		m.DBCleanupTime,
		m.ProcessingTime,
		age,
	)
	for _, c := range extra {
		m.registry.MustRegister(c)
	}
	return m
}

func (m *Metrics) SetDataTimestamp(ts int64) {
	m.dataTimestamp.Store(ts)
}

// Registry exposes the metrics for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
