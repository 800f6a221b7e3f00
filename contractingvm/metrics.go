// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const metricsNamespace = "contractingvm"

type metrics struct {
	txs       *prometheus.CounterVec
	stamps    prometheus.Counter
	contracts prometheus.Counter
	events    prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		txs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "txs",
			Help:      "transactions processed, by operation and outcome",
		}, []string{"op", "outcome"}),
		stamps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stamps_charged",
			Help:      "total stamps charged across all transactions",
		}),
		contracts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "contracts_deployed",
			Help:      "contracts deployed successfully",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_emitted",
			Help:      "events emitted by committed transactions",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.txs),
		registerer.Register(m.stamps),
		registerer.Register(m.contracts),
		registerer.Register(m.events),
	)
	return m, errs.Err
}

func (m *metrics) observe(receipt *Receipt) {
	m.txs.WithLabelValues(receipt.Op.String(), receipt.Status.String()).Inc()
	m.stamps.Add(float64(receipt.StampsUsed))
	if receipt.Status == StatusCommitted {
		if receipt.Op == OpDeploy {
			m.contracts.Inc()
		}
		m.events.Add(float64(len(receipt.Events)))
	}
}
