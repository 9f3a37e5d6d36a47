package app

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/drafter/internal/event"
)

// Metrics counts what the application did during its lifetime.
type Metrics struct {
	mu     sync.RWMutex
	topics map[event.Topic]uint64

	exportCount   atomic.Uint64
	exportErrors  atomic.Uint64
	exportTotalNs atomic.Int64

	scriptCount   atomic.Uint64
	scriptErrors  atomic.Uint64
	scriptTotalNs atomic.Int64

	reloads atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		topics:    make(map[event.Topic]uint64),
		startTime: time.Now(),
	}
}

// RecordEvent counts one event on topic.
func (m *Metrics) RecordEvent(topic event.Topic) {
	m.mu.Lock()
	m.topics[topic]++
	m.mu.Unlock()
}

// RecordExport records one export run.
func (m *Metrics) RecordExport(duration time.Duration, err error) {
	m.exportCount.Add(1)
	m.exportTotalNs.Add(duration.Nanoseconds())
	if err != nil {
		m.exportErrors.Add(1)
	}
}

// RecordScript records one script run.
func (m *Metrics) RecordScript(duration time.Duration, err error) {
	m.scriptCount.Add(1)
	m.scriptTotalNs.Add(duration.Nanoseconds())
	if err != nil {
		m.scriptErrors.Add(1)
	}
}

// RecordReload counts a configuration reload.
func (m *Metrics) RecordReload() {
	m.reloads.Add(1)
}

// TopicCount is the number of events seen on one topic.
type TopicCount struct {
	Topic event.Topic
	Count uint64
}

// MetricsSnapshot is a point-in-time copy of the metrics.
type MetricsSnapshot struct {
	Uptime time.Duration

	Events []TopicCount

	Exports       uint64
	ExportErrors  uint64
	ExportAverage time.Duration

	Scripts       uint64
	ScriptErrors  uint64
	ScriptAverage time.Duration

	Reloads uint64
}

// TotalEvents sums the per-topic counts.
func (s MetricsSnapshot) TotalEvents() uint64 {
	var n uint64
	for _, tc := range s.Events {
		n += tc.Count
	}
	return n
}

// Snapshot returns the current metrics. Events are sorted by topic.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Uptime:       time.Since(m.startTime),
		Exports:      m.exportCount.Load(),
		ExportErrors: m.exportErrors.Load(),
		Scripts:      m.scriptCount.Load(),
		ScriptErrors: m.scriptErrors.Load(),
		Reloads:      m.reloads.Load(),
	}
	if s.Exports > 0 {
		s.ExportAverage = time.Duration(m.exportTotalNs.Load() / int64(s.Exports))
	}
	if s.Scripts > 0 {
		s.ScriptAverage = time.Duration(m.scriptTotalNs.Load() / int64(s.Scripts))
	}

	m.mu.RLock()
	for t, n := range m.topics {
		s.Events = append(s.Events, TopicCount{Topic: t, Count: n})
	}
	m.mu.RUnlock()
	sort.Slice(s.Events, func(i, j int) bool { return s.Events[i].Topic < s.Events[j].Topic })
	return s
}
