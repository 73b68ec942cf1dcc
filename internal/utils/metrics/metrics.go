package metrics

import (
	"log/slog"
	"sync"
	"time"
)

// Metrics counts outgoing API requests and their latency.
type Metrics struct {
	mu                 sync.Mutex
	totalRequests      int
	successfulRequests int
	failedRequests     int
	totalExecutionTime time.Duration
	lastExecutionTime  time.Duration
}

type Stats struct {
	Total       int
	Successful  int
	Failed      int
	AvgDuration time.Duration
	LastElapsed time.Duration
}

func (m *Metrics) RecordSuccess(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.successfulRequests++
	m.totalExecutionTime += duration
	m.lastExecutionTime = duration
}

func (m *Metrics) RecordFailure(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalRequests++
	m.failedRequests++
	m.totalExecutionTime += duration
	m.lastExecutionTime = duration
}

func (m *Metrics) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	avg := time.Duration(0)
	if m.totalRequests > 0 {
		avg = m.totalExecutionTime / time.Duration(m.totalRequests)
	}

	return Stats{
		Total:       m.totalRequests,
		Successful:  m.successfulRequests,
		Failed:      m.failedRequests,
		AvgDuration: avg,
		LastElapsed: m.lastExecutionTime,
	}
}

func (m *Metrics) PrintMetrics(log *slog.Logger) {
	s := m.Snapshot()

	log.Info("Metrics",
		"Total Requests", s.Total,
		"Successful Requests", s.Successful,
		"Failed Requests", s.Failed,
		"Avg Execution Time", s.AvgDuration,
	)
}
