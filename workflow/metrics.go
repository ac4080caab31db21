package workflow

import (
	"strconv"
	"time"

	"github.com/iov-one/docseal/errors"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Metrics of saga stages.
type Metrics struct {
	stages   *prom.CounterVec
	retries  *prom.CounterVec
	duration *prom.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		stages: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: "docseal",
				Subsystem: "workflow",
				Name:      "stage_count",
				Help:      "Total number of finished saga stages by error code.",
			},
			[]string{"saga", "stage", "code"},
		),
		retries: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: "docseal",
				Subsystem: "workflow",
				Name:      "stage_retry_count",
				Help:      "Total number of retried stage attempts.",
			},
			[]string{"saga", "stage"},
		),
		duration: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: "docseal",
				Subsystem: "workflow",
				Name:      "stage_duration_seconds",
				Help:      "Stage time including retries.",
				Buckets:   prom.DefBuckets,
			},
			[]string{"saga", "stage"},
		),
	}
}

func (m *Metrics) observe(saga Saga, stage Stage, start time.Time, err error) {
	code := strconv.FormatUint(uint64(errors.Code(err)), 10)
	m.stages.WithLabelValues(string(saga), string(stage), code).Inc()
	m.duration.WithLabelValues(string(saga), string(stage)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) retried(saga Saga, stage Stage) {
	m.retries.WithLabelValues(string(saga), string(stage)).Inc()
}

// Register adds all collectors to the registry.
func (m *Metrics) Register(reg prom.Registerer) error {
	for _, c := range []prom.Collector{m.stages, m.retries, m.duration} {
		if err := reg.Register(c); err != nil {
			return errors.Wrap(errors.ErrState, err.Error())
		}
	}
	return nil
}
