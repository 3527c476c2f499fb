package repository

import (
	"context"
	"time"

	"GoldPulse/internal/domain/models"
)

// Terminal is the market-data terminal contract. Every call may fail or
// return empty results; none may be assumed to raise reliably, so callers
// must treat nil/empty as "terminal degraded" rather than fatal.
type Terminal interface {
	Connect(ctx context.Context) error
	Symbols(ctx context.Context) ([]string, error)
	Quote(ctx context.Context, symbol string) (*models.PriceQuote, error)
	Ping(ctx context.Context) error
	Disconnect() error
}

// TickStore persists raw price samples and serves window queries.
type TickStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, symbol string, s *models.PriceSample) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceSample, error)
	Health(ctx context.Context) error
	Close() error
}

// TickPublisher publishes raw price samples to a message broker.
type TickPublisher interface {
	Publish(ctx context.Context, symbol string, s *models.PriceSample) error
	Close() error
}

// ForecastStore is the append-only forecast log. The only mutation is the
// single pending-to-verified transition performed by MarkVerified.
type ForecastStore interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, f *models.Forecast) error
	PendingDue(ctx context.Context, now time.Time) ([]*models.Forecast, error)
	MarkVerified(ctx context.Context, f *models.Forecast) error
	StatsLast24h(ctx context.Context) (*models.Stats, error)
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordTick(symbol string, price float64)
	RecordPrediction(method string, signal string)
	RecordVerification(accuracy float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetConnected(connected bool)
}
