package engine

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/croessner/echoprobe/client/definitions"
	"github.com/croessner/echoprobe/client/log/level"
)

// metricSelector is one entry of --target-metrics: a metric name with an
// optional label filter, e.g. reactor_connections{state="open"}.
type metricSelector struct {
	raw    string
	name   string
	labels map[string]string
}

func parseSelector(raw string) metricSelector {
	sel := metricSelector{raw: raw, name: raw, labels: map[string]string{}}

	if i := strings.IndexByte(raw, '{'); i >= 0 {
		sel.name = raw[:i]
		if j := strings.LastIndexByte(raw, '}'); j > i {
			sel.labels = parseLabels(raw[i : j+1])
		}
	}

	return sel
}

func (m metricSelector) matches(name string, labels map[string]string) bool {
	if name != m.name {
		return false
	}

	for k, v := range m.labels {
		if labels[k] != v {
			return false
		}
	}

	return true
}

// MetricsPoller periodically fetches the Prometheus text endpoint of the
// server under test and sums the selected series into a short status text.
type MetricsPoller struct {
	client    *http.Client
	url       string
	interval  time.Duration
	selectors []metricSelector
	line      atomic.Value
	logger    *slog.Logger
}

func NewMetricsPoller(client *http.Client, endpoint string, names []string, interval time.Duration, logger *slog.Logger) *MetricsPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	p := &MetricsPoller{
		client:   client,
		url:      endpoint,
		interval: interval,
		logger:   logger,
	}

	for _, name := range names {
		p.selectors = append(p.selectors, parseSelector(name))
	}

	p.line.Store("[server metrics: collecting…]")

	return p
}

// Run polls until ctx is cancelled. The first poll happens immediately.
func (p *MetricsPoller) Run(ctx context.Context) {
	if p == nil {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		line, err := p.fetchAndFormat(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			level.Debug(p.logger).Log(definitions.LogKeyMsg, "Server metrics unavailable", definitions.LogKeyError, err)

			line = "[server metrics: n/a]"
		}

		p.line.Store(line)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// StatusLine returns the most recent formatted values. A nil poller has none.
func (p *MetricsPoller) StatusLine() string {
	if p == nil {
		return ""
	}

	if s, ok := p.line.Load().(string); ok {
		return s
	}

	return ""
}

func (p *MetricsPoller) fetchAndFormat(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Accept", "text/plain; version=0.0.4")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, seen, err := p.collect(bufio.NewScanner(resp.Body))
	if err != nil {
		return "", err
	}

	return p.format(values, seen), nil
}

// collect sums every sample line matching a selector, indexed like p.selectors.
func (p *MetricsPoller) collect(scanner *bufio.Scanner) (values []float64, seen []bool, err error) {
	values = make([]float64, len(p.selectors))
	seen = make([]bool, len(p.selectors))

	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		head, rest, ok := splitSample(line)
		if !ok {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}

		val, parseErr := strconv.ParseFloat(fields[0], 64)
		if parseErr != nil {
			continue
		}

		name := head
		labels := map[string]string{}
		if i := strings.IndexByte(head, '{'); i >= 0 {
			name = head[:i]
			labels = parseLabels(head[i:])
		}

		for i, sel := range p.selectors {
			if sel.matches(name, labels) {
				values[i] += val
				seen[i] = true
			}
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, nil, err
	}

	return values, seen, nil
}

func (p *MetricsPoller) format(values []float64, seen []bool) string {
	var sb strings.Builder

	sb.WriteString("[server ")

	for i, sel := range p.selectors {
		if i > 0 {
			sb.WriteString(" ")
		}

		sb.WriteString(sel.raw)
		sb.WriteString("=")

		if !seen[i] {
			sb.WriteString("-")
		} else {
			sb.WriteString(strconv.FormatFloat(values[i], 'f', -1, 64))
		}
	}

	sb.WriteString("]")

	return sb.String()
}

// splitSample separates "name{labels}" from the value part. Label values may
// contain blanks, so the head ends at the closing brace when there is one.
func splitSample(line string) (head, rest string, ok bool) {
	if i := strings.IndexByte(line, '{'); i >= 0 {
		j := strings.LastIndexByte(line, '}')
		if j < i {
			return "", "", false
		}

		return line[:j+1], line[j+1:], true
	}

	head, rest, ok = strings.Cut(line, " ")

	return head, rest, ok
}

func parseLabels(s string) map[string]string {
	m := make(map[string]string)
	s = strings.Trim(s, "{}")
	if s == "" {
		return m
	}

	var key, val string
	var inVal bool
	var escaped bool

	add := func() {
		if key != "" {
			m[key] = val
		}
		key, val = "", ""
		inVal, escaped = false, false
	}

	for _, r := range s {
		if escaped {
			val += string(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if r == '"' {
			inVal = !inVal
			continue
		}
		if !inVal {
			if r == ',' {
				add()
				continue
			}
			if r == '=' {
				continue
			}
			if unicode.IsSpace(r) {
				continue
			}
			key += string(r)
			continue
		}
		val += string(r)
	}

	if key != "" {
		add()
	}

	return m
}
