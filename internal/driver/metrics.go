package driver

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	txnTotalDesc = prometheus.NewDesc(
		prometheus.BuildFQName("networking", "ovn", "nb_txn_total"),
		"northbound transactions submitted.",
		nil,
		nil)
	txnFailuresDesc = prometheus.NewDesc(
		prometheus.BuildFQName("networking", "ovn", "nb_txn_failures_total"),
		"northbound transactions rejected.",
		nil,
		nil)
	outOfSyncDesc = prometheus.NewDesc(
		prometheus.BuildFQName("networking", "ovn", "acl_out_of_sync_total"),
		"ACL reconciliations that failed after the policy change was durable.",
		nil,
		nil)
)

type MetricsCollector struct {
	txnTotal    atomic.Int64
	txnFailures atomic.Int64
	outOfSync   atomic.Int64
}

func (d *Driver) GetMetricsCollector() prometheus.Collector {
	return d.mCol
}

func (e *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- txnTotalDesc
	ch <- txnFailuresDesc
	ch <- outOfSyncDesc
}

func (e *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		txnTotalDesc, prometheus.CounterValue, float64(e.txnTotal.Load()))
	ch <- prometheus.MustNewConstMetric(
		txnFailuresDesc, prometheus.CounterValue, float64(e.txnFailures.Load()))
	ch <- prometheus.MustNewConstMetric(
		outOfSyncDesc, prometheus.CounterValue, float64(e.outOfSync.Load()))
}
