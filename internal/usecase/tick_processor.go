package usecase

import (
	"context"
	"fmt"
	"time"

	"GoldPulse/internal/domain/models"
	drepo "GoldPulse/internal/domain/repository"
)

// TickProcessor routes raw price samples to the configured backend: straight
// into ClickHouse, or onto Kafka for a downstream ingest worker.
type TickProcessor struct {
	pub     drepo.TickPublisher
	store   drepo.TickStore
	metrics drepo.Metrics
	backend string
}

// NewTickProcessor creates a tick processor for the given backend
// ("kafka" or "clickhouse").
func NewTickProcessor(pub drepo.TickPublisher, store drepo.TickStore, metrics drepo.Metrics, backend string) *TickProcessor {
	return &TickProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process persists one sample via the configured backend.
func (p *TickProcessor) Process(ctx context.Context, symbol string, s *models.PriceSample) error {
	if s == nil {
		return fmt.Errorf("sample is nil")
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, symbol, s)
	case "clickhouse":
		err = p.store.Store(ctx, symbol, s)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("tick_process")
		return fmt.Errorf("process tick: %w", err)
	}

	p.metrics.RecordLatency("tick_process", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
