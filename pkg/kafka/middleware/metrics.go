package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"carrental/pkg/kafka"
)

// Metrics holds producer counters.
type Metrics struct {
	messagesPublished       atomic.Int64
	messagesPublishedFailed atomic.Int64
	publishDurationTotal    atomic.Int64 // Nanoseconds
}

type MetricsSnapshot struct {
	Published          int64
	Failed             int64
	AvgPublishDuration time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Reset() {
	m.messagesPublished.Store(0)
	m.messagesPublishedFailed.Store(0)
	m.publishDurationTotal.Store(0)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	published := m.messagesPublished.Load()
	failed := m.messagesPublishedFailed.Load()

	var avg time.Duration
	if total := published + failed; total > 0 {
		avg = time.Duration(m.publishDurationTotal.Load() / total)
	}

	return MetricsSnapshot{
		Published:          published,
		Failed:             failed,
		AvgPublishDuration: avg,
	}
}

// MetricsProducerMiddleware tracks producer metrics
func MetricsProducerMiddleware(m *Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		m.publishDurationTotal.Add(int64(time.Since(start)))

		if err != nil {
			m.messagesPublishedFailed.Add(1)
		} else {
			m.messagesPublished.Add(1)
		}

		return err
	}
}
