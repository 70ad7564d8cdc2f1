//go:build linux

package engine

import (
	"github.com/mackerelio/go-osstat/cpu"
)

func usageBetween(oldCPU, newCPU *cpu.Stats, total float64) *CPUUsage {
	return &CPUUsage{
		User:   float64(newCPU.User-oldCPU.User) / total * 100,
		System: float64(newCPU.System-oldCPU.System) / total * 100,
		Idle:   float64(newCPU.Idle-oldCPU.Idle) / total * 100,
		Iowait: float64(newCPU.Iowait-oldCPU.Iowait) / total * 100,
		Steal:  float64(newCPU.Steal-oldCPU.Steal) / total * 100,
	}
}
