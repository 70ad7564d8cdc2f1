package engine

import (
	"fmt"
	"time"
)

const reportLabelWidth = 16

// RenderReport prints the final statistics in the layout of the report
// section. An empty aggregate renders 0% rates and omits latency.
func RenderReport(c *Console, r Report) {
	c.Line("Connections:")
	c.Line("%s%d", label("success"), r.ConnectionsSuccess)
	c.Line("%s%d", label("failed"), r.ConnectionsFailed)
	c.Line("%s%s", label("success rate"), formatRate(r.ConnectionsSuccess+r.ConnectionsFailed, r.ConnectionSuccessRate))

	c.Line("")
	c.Line("Messages:")
	c.Line("%s%d", label("success"), r.MessagesSuccess)
	c.Line("%s%d", label("failed"), r.MessagesFailed)
	c.Line("%s%s", label("success rate"), formatRate(r.MessagesSuccess+r.MessagesFailed, r.MessageSuccessRate))

	if hasFailures(r.Failures) {
		c.Line("")
		c.Line("Failures by kind:")

		for _, kind := range FailureKinds {
			if n := r.Failures[kind]; n > 0 {
				c.Line("%s%d", label(kind.String()), n)
			}
		}
	}

	if r.Latency != nil {
		l := r.Latency

		c.Line("")
		c.Line("Response times (%d samples):", l.Count)
		c.Line("%s%s", label("mean"), formatMs(l.Mean))
		c.Line("%s%s", label("median"), formatMs(l.Median))
		c.Line("%s%s", label("min"), formatMs(l.Min))
		c.Line("%s%s", label("max"), formatMs(l.Max))

		if l.HasStdDev {
			c.Line("%s%s", label("stddev"), formatMs(l.StdDev))
		}

		c.Line("%s%s", label("p90"), formatMs(l.P90))
		c.Line("%s%s", label("p99"), formatMs(l.P99))
	}

	if r.ClientCPU != nil {
		c.Line("")
		c.Line("Client CPU: busy %.1f%% (user %.1f%%, system %.1f%%)", r.ClientCPU.Busy, r.ClientCPU.User, r.ClientCPU.System)
	}

	if r.Abandoned > 0 {
		c.Line("")
		c.Line("Background sessions still running at report time: %d", r.Abandoned)
	}
}

func label(name string) string {
	return "  " + padToCellsRight(name+":", max(reportLabelWidth, displayWidth(name)+2))
}

func formatRate(total int64, rate float64) string {
	if total == 0 {
		return "0%"
	}

	return fmt.Sprintf("%.1f%%", rate)
}

func hasFailures(failures map[ErrorKind]int64) bool {
	for _, n := range failures {
		if n > 0 {
			return true
		}
	}

	return false
}

// banner returns the journal start/end marker line.
func banner(prefix string, at time.Time) string {
	return fmt.Sprintf("%s: %s", prefix, at.Format(time.DateTime))
}
