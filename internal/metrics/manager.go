// Package metrics keeps in-process counters and timings for the bot.
// Dot-import it to use the Metric* helpers.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxSamples = 500

// MetricsManager holds every metric recorded since start (or the last Reset)
type MetricsManager struct {
	mu          sync.RWMutex
	timings     map[string]*TimingMetric
	counters    map[string]*CounterMetric
	gauges      map[string]*GaugeMetric
	successFail map[string]*SuccessFailMetric
	outcomes    map[string]*OutcomeMetric
	started     time.Time
}

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton metrics manager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = newManager()
	})
	return instance
}

func newManager() *MetricsManager {
	return &MetricsManager{
		timings:     make(map[string]*TimingMetric),
		counters:    make(map[string]*CounterMetric),
		gauges:      make(map[string]*GaugeMetric),
		successFail: make(map[string]*SuccessFailMetric),
		outcomes:    make(map[string]*OutcomeMetric),
		started:     time.Now(),
	}
}

// Reset drops all recorded metrics
func (m *MetricsManager) Reset() {
	fresh := newManager()
	m.mu.Lock()
	m.timings = fresh.timings
	m.counters = fresh.counters
	m.gauges = fresh.gauges
	m.successFail = fresh.successFail
	m.outcomes = fresh.outcomes
	m.started = fresh.started
	m.mu.Unlock()
}

// buildPath creates a normalized path from topic and function
func buildPath(topic, function string) string {
	if function == "" {
		return topic
	}
	return topic + "/" + function
}

// RecordDuration records a duration
func (m *MetricsManager) RecordDuration(topic, function string, duration time.Duration) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, exists := m.timings[path]
	if !exists {
		metric = &TimingMetric{
			samples: make([]time.Duration, 0, maxSamples),
			Min:     duration,
			Max:     duration,
		}
		m.timings[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	defer metric.mu.Unlock()

	metric.Count++
	metric.Total += duration
	metric.Last = duration
	if duration < metric.Min {
		metric.Min = duration
	}
	if duration > metric.Max {
		metric.Max = duration
	}
	if len(metric.samples) < maxSamples {
		metric.samples = append(metric.samples, duration)
	} else {
		metric.samples[metric.sampleIdx] = duration
		metric.sampleIdx = (metric.sampleIdx + 1) % maxSamples
	}
}

// AddCounter adds delta to a counter
func (m *MetricsManager) AddCounter(topic, function string, delta int64) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, exists := m.counters[path]
	if !exists {
		metric = &CounterMetric{}
		m.counters[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	metric.Value += delta
	metric.Last = time.Now()
	metric.mu.Unlock()
}

// SetGauge sets a gauge value
func (m *MetricsManager) SetGauge(topic, function string, value int64) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, exists := m.gauges[path]
	if !exists {
		metric = &GaugeMetric{Min: value, Max: value}
		m.gauges[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	defer metric.mu.Unlock()
	metric.Value = value
	metric.Last = time.Now()
	if value < metric.Min {
		metric.Min = value
	}
	if value > metric.Max {
		metric.Max = value
	}
}

func (m *MetricsManager) successFailFor(path string) *SuccessFailMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	metric, exists := m.successFail[path]
	if !exists {
		metric = &SuccessFailMetric{FailureReasons: make(map[string]int64)}
		m.successFail[path] = metric
	}
	return metric
}

// RecordSuccess records a successful operation
func (m *MetricsManager) RecordSuccess(topic, function string) {
	metric := m.successFailFor(buildPath(topic, function))

	metric.mu.Lock()
	metric.Success++
	metric.LastSuccess = time.Now()
	metric.mu.Unlock()
}

// RecordFailure records a failed operation, optionally with a reason
func (m *MetricsManager) RecordFailure(topic, function, reason string) {
	metric := m.successFailFor(buildPath(topic, function))

	metric.mu.Lock()
	metric.Failures++
	metric.LastFailure = time.Now()
	if reason != "" {
		metric.FailureReasons[reason]++
	}
	metric.mu.Unlock()
}

// RecordOutcome records one of several named outcomes
func (m *MetricsManager) RecordOutcome(topic, function, outcome string) {
	path := buildPath(topic, function)

	m.mu.Lock()
	metric, exists := m.outcomes[path]
	if !exists {
		metric = &OutcomeMetric{Outcomes: make(map[string]int64)}
		m.outcomes[path] = metric
	}
	m.mu.Unlock()

	metric.mu.Lock()
	metric.Outcomes[outcome]++
	metric.Total++
	metric.LastOutcome = outcome
	metric.mu.Unlock()
}

// GetSnapshot returns a copy of every metric keyed by path
func (m *MetricsManager) GetSnapshot() map[string]*MetricSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*MetricSnapshot)

	for path, t := range m.timings {
		t.mu.RLock()
		snap := TimingSnapshot{
			Count:  t.Count,
			MinMs:  ms(t.Min),
			MaxMs:  ms(t.Max),
			LastMs: ms(t.Last),
			P95Ms:  calculatePercentile(t.samples, 95),
		}
		if t.Count > 0 {
			snap.AvgMs = ms(t.Total) / float64(t.Count)
		}
		t.mu.RUnlock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeTiming, Data: snap}
	}

	for path, c := range m.counters {
		c.mu.RLock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeCounter, Data: CounterSnapshot{Value: c.Value}}
		c.mu.RUnlock()
	}

	for path, g := range m.gauges {
		g.mu.RLock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeGauge, Data: GaugeSnapshot{Value: g.Value, Min: g.Min, Max: g.Max}}
		g.mu.RUnlock()
	}

	for path, sf := range m.successFail {
		sf.mu.RLock()
		snap := SuccessFailSnapshot{
			Success:  sf.Success,
			Failures: sf.Failures,
		}
		if total := sf.Success + sf.Failures; total > 0 {
			snap.SuccessRate = float64(sf.Success) / float64(total)
		}
		if len(sf.FailureReasons) > 0 {
			snap.FailureReasons = make(map[string]int64, len(sf.FailureReasons))
			for k, v := range sf.FailureReasons {
				snap.FailureReasons[k] = v
			}
		}
		sf.mu.RUnlock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeSuccessFail, Data: snap}
	}

	for path, o := range m.outcomes {
		o.mu.RLock()
		snap := OutcomeSnapshot{Total: o.Total, Outcomes: make(map[string]int64, len(o.Outcomes))}
		for k, v := range o.Outcomes {
			snap.Outcomes[k] = v
		}
		o.mu.RUnlock()
		out[path] = &MetricSnapshot{Path: path, Type: TypeOutcome, Data: snap}
	}

	return out
}

// Summary renders the snapshot as sorted one-line entries for the shutdown log
func (m *MetricsManager) Summary() []string {
	snaps := m.GetSnapshot()
	paths := make([]string, 0, len(snaps))
	for p := range snaps {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		switch d := snaps[p].Data.(type) {
		case TimingSnapshot:
			lines = append(lines, fmt.Sprintf("%s: n=%d avg=%.1fms max=%.1fms p95=%.1fms", p, d.Count, d.AvgMs, d.MaxMs, d.P95Ms))
		case CounterSnapshot:
			lines = append(lines, fmt.Sprintf("%s: %d", p, d.Value))
		case GaugeSnapshot:
			lines = append(lines, fmt.Sprintf("%s: %d (min %d, max %d)", p, d.Value, d.Min, d.Max))
		case SuccessFailSnapshot:
			line := fmt.Sprintf("%s: ok=%d fail=%d", p, d.Success, d.Failures)
			if len(d.FailureReasons) > 0 {
				line += " reasons=" + formatCounts(d.FailureReasons)
			}
			lines = append(lines, line)
		case OutcomeSnapshot:
			lines = append(lines, fmt.Sprintf("%s: %s", p, formatCounts(d.Outcomes)))
		}
	}
	return lines
}

// Uptime returns the time since the manager was created or reset
func (m *MetricsManager) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.started)
}

func formatCounts(counts map[string]int64) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ",")
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func calculatePercentile(samples []time.Duration, percentile int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := (len(sorted) * percentile) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return ms(sorted[idx])
}
