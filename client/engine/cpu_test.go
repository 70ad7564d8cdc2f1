package engine

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUSamplerNeedsBaseline(t *testing.T) {
	_, err := NewCPUSampler(nil).Usage()

	assert.ErrorIs(t, err, errNoCPUBaseline)
}

func TestCPUSamplerUsage(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	sampler := NewCPUSampler(metrics)

	if err := sampler.Start(); err != nil {
		t.Skipf("cpu statistics unavailable: %v", err)
	}

	sum := 0
	for i := range 2_000_000 {
		sum += i
	}

	_ = sum

	usage, err := sampler.Usage()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, usage.Busy, 0.0)
	assert.LessOrEqual(t, usage.Busy, 100.0)
	assert.Equal(t, usage.Busy, testutil.ToFloat64(metrics.ClientCPU.WithLabelValues("busy")))
}
