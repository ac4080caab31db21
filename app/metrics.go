package app

import (
	"strconv"
	"time"

	"github.com/iov-one/docseal/errors"
	prom "github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	txs      *prom.CounterVec
	duration *prom.HistogramVec
}

func newLedgerMetrics() *ledgerMetrics {
	return &ledgerMetrics{
		txs: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: "docseal",
				Subsystem: "ledger",
				Name:      "tx_count",
				Help:      "Total number of processed transactions.",
			},
			[]string{"call", "path", "code"},
		),
		duration: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: "docseal",
				Subsystem: "ledger",
				Name:      "tx_duration_seconds",
				Help:      "Transaction processing time, including waiting for key locks.",
				Buckets:   prom.DefBuckets,
			},
			[]string{"call", "path"},
		),
	}
}

// observe records one processed transaction. Code 0 stands for success.
func (m *ledgerMetrics) observe(call, path string, start time.Time, err error) {
	code := strconv.FormatUint(uint64(errors.Code(err)), 10)
	m.txs.WithLabelValues(call, path, code).Inc()
	m.duration.WithLabelValues(call, path).Observe(time.Since(start).Seconds())
}

func (m *ledgerMetrics) register(reg prom.Registerer) error {
	if err := reg.Register(m.txs); err != nil {
		return errors.Wrap(errors.ErrState, err.Error())
	}
	if err := reg.Register(m.duration); err != nil {
		return errors.Wrap(errors.ErrState, err.Error())
	}
	return nil
}
