package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TxMetrics 定义交易生命周期相关的业务指标
type TxMetrics struct {
	TransactionsTotal    *prometheus.CounterVec
	TransactionsInflight *prometheus.GaugeVec
	SigningDuration      *prometheus.HistogramVec
	FeeEstimateFailures  *prometheus.CounterVec
	RegistryRecords      *prometheus.GaugeVec
	NotificationsTotal   *prometheus.CounterVec
}

// Tx is the process-wide instance; it is a no-op sink until Init runs.
var Tx = NewTxMetrics()

// NewTxMetrics builds unregistered metric vectors.
func NewTxMetrics() *TxMetrics {
	return &TxMetrics{
		TransactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txcore_transactions_total",
			Help: "Transactions that reached a terminal status",
		}, []string{"chain", "status"}),
		TransactionsInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "txcore_transactions_inflight",
			Help: "Transactions currently PENDING or PROCESSING",
		}, []string{"chain"}),
		SigningDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "txcore_signing_duration_seconds",
			Help:    "Time spent waiting for a signing backend",
			Buckets: []float64{0.05, 0.5, 2, 10, 30, 120, 300},
		}, []string{"mode"}),
		FeeEstimateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txcore_fee_estimate_failures_total",
			Help: "Fee estimations that fell back to zero",
		}, []string{"chain", "ledger"}),
		RegistryRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "txcore_registry_records",
			Help: "Records held by the transaction registry by status",
		}, []string{"status"}),
		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txcore_notifications_total",
			Help: "Transaction notifications delivered by the worker",
		}, []string{"status"}),
	}
}

// MustRegister registers every vector on reg.
func (m *TxMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.TransactionsTotal,
		m.TransactionsInflight,
		m.SigningDuration,
		m.FeeEstimateFailures,
		m.RegistryRecords,
		m.NotificationsTotal,
	)
}
