package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks rate limiting decisions. It satisfies ratelimit.Observer.
type Metrics struct {
	totalDecisions   atomic.Int64
	allowedDecisions atomic.Int64
	deniedDecisions  atomic.Int64

	// Per-key stats
	mu        sync.RWMutex
	keyStats  map[string]*KeyStats
	startTime time.Time

	decisions *prometheus.CounterVec
}

// KeyStats tracks decisions for a single rate limit key
type KeyStats struct {
	Key             string    `json:"key"`
	TotalDecisions  int64     `json:"total_decisions"`
	AllowedCount    int64     `json:"allowed"`
	DeniedCount     int64     `json:"denied"`
	FirstDecisionAt time.Time `json:"first_decision_at"`
	LastDecisionAt  time.Time `json:"last_decision_at"`
}

// NewMetrics creates a metrics tracker. When reg is not nil a
// cryptofence_ratelimit_decisions_total{key,outcome} counter is registered on it.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		keyStats:  make(map[string]*KeyStats),
		startTime: time.Now(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cryptofence",
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions by key and outcome.",
		}, []string{"key", "outcome"}),
	}

	if reg != nil {
		if err := reg.Register(m.decisions); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordDecision records one allow/deny decision for key
func (m *Metrics) RecordDecision(key string, allowed bool) {
	m.totalDecisions.Add(1)

	outcome := "allowed"
	if allowed {
		m.allowedDecisions.Add(1)
	} else {
		m.deniedDecisions.Add(1)
		outcome = "denied"
	}
	m.decisions.WithLabelValues(key, outcome).Inc()

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats, exists := m.keyStats[key]
	if !exists {
		stats = &KeyStats{
			Key:             key,
			FirstDecisionAt: now,
		}
		m.keyStats[key] = stats
	}

	stats.TotalDecisions++
	if allowed {
		stats.AllowedCount++
	} else {
		stats.DeniedCount++
	}
	stats.LastDecisionAt = now
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() *Snapshot {
	m.mu.RLock()
	topKeys := make([]*KeyStats, 0, len(m.keyStats))
	for _, stats := range m.keyStats {
		copied := *stats
		topKeys = append(topKeys, &copied)
	}
	uniqueKeys := int64(len(m.keyStats))
	m.mu.RUnlock()

	// Busiest first, ties by key for a stable order
	sort.Slice(topKeys, func(i, j int) bool {
		if topKeys[i].TotalDecisions != topKeys[j].TotalDecisions {
			return topKeys[i].TotalDecisions > topKeys[j].TotalDecisions
		}
		return topKeys[i].Key < topKeys[j].Key
	})
	if len(topKeys) > 10 {
		topKeys = topKeys[:10]
	}

	return &Snapshot{
		TotalDecisions:   m.totalDecisions.Load(),
		AllowedDecisions: m.allowedDecisions.Load(),
		DeniedDecisions:  m.deniedDecisions.Load(),
		UniqueKeys:       uniqueKeys,
		TopKeys:          topKeys,
		UptimeSeconds:    int64(time.Since(m.startTime).Seconds()),
		StartTime:        m.startTime,
	}
}

// Snapshot represents a point-in-time view of metrics
type Snapshot struct {
	TotalDecisions   int64       `json:"total_decisions"`
	AllowedDecisions int64       `json:"allowed_decisions"`
	DeniedDecisions  int64       `json:"denied_decisions"`
	UniqueKeys       int64       `json:"unique_keys"`
	TopKeys          []*KeyStats `json:"top_keys"`
	UptimeSeconds    int64       `json:"uptime_seconds"`
	StartTime        time.Time   `json:"start_time"`
}
