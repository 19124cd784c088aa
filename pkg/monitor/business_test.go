package monitor

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTxMetrics()
	m.MustRegister(reg)

	m.TransactionsTotal.WithLabelValues("polkadot", "SUCCESS").Inc()
	m.RegistryRecords.WithLabelValues("PENDING").Set(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsTotal.WithLabelValues("polkadot", "SUCCESS")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RegistryRecords.WithLabelValues("PENDING")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}
