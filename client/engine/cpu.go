package engine

import (
	"errors"
	"sync"

	"github.com/mackerelio/go-osstat/cpu"
)

// CPUUsage is the client host CPU usage in percent over the sampled interval.
type CPUUsage struct {
	User   float64 `json:"user"`
	System float64 `json:"system"`
	Idle   float64 `json:"idle"`
	Iowait float64 `json:"iowait,omitempty"`
	Steal  float64 `json:"steal,omitempty"`
	Busy   float64 `json:"busy"`
}

var errNoCPUBaseline = errors.New("no cpu baseline")

// CPUSampler measures the load generator's own host CPU between Start and Usage,
// so that a saturated client can be told apart from a slow server.
type CPUSampler struct {
	mu       sync.Mutex
	baseline *cpu.Stats
	metrics  *Metrics
}

func NewCPUSampler(metrics *Metrics) *CPUSampler {
	return &CPUSampler{metrics: metrics}
}

// Start records the baseline.
func (c *CPUSampler) Start() error {
	stats, err := cpu.Get()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.baseline = stats
	c.mu.Unlock()

	return nil
}

// Usage returns the usage since Start and exports it as gauges.
func (c *CPUSampler) Usage() (*CPUUsage, error) {
	c.mu.Lock()
	baseline := c.baseline
	c.mu.Unlock()

	if baseline == nil {
		return nil, errNoCPUBaseline
	}

	current, err := cpu.Get()
	if err != nil {
		return nil, err
	}

	total := float64(current.Total - baseline.Total)
	if total <= 0 {
		return &CPUUsage{Idle: 100}, nil
	}

	usage := usageBetween(baseline, current, total)
	usage.Busy = max(100-usage.Idle-usage.Iowait, 0)

	if c.metrics != nil {
		c.metrics.ClientCPU.WithLabelValues("user").Set(usage.User)
		c.metrics.ClientCPU.WithLabelValues("system").Set(usage.System)
		c.metrics.ClientCPU.WithLabelValues("idle").Set(usage.Idle)
		c.metrics.ClientCPU.WithLabelValues("busy").Set(usage.Busy)
	}

	return usage, nil
}
