package models

import "time"

// PriceSample is one observed tick. Immutable once created.
type PriceSample struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
}

// PriceQuote is a raw quote as returned by the terminal.
type PriceQuote struct {
	Symbol string    `json:"symbol"`
	Bid    float64   `json:"bid"`
	Ask    float64   `json:"ask"`
	Last   float64   `json:"last"`
	Time   time.Time `json:"time"`
}

// Signal is the discrete trading signal derived from the ensemble forecast.
type Signal string

const (
	SignalStrongBullish Signal = "strong_bullish"
	SignalBullish       Signal = "bullish"
	SignalFlat          Signal = "flat"
	SignalBearish       Signal = "bearish"
	SignalStrongBearish Signal = "strong_bearish"
)

// Forecast is one forecast record. Created pending by the predictor loop and
// transitioned to verified exactly once by the verifier loop.
type Forecast struct {
	ID             string     `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	CurrentPrice   float64    `json:"current_price"`
	PredictedPrice float64    `json:"predicted_price"`
	Signal         Signal     `json:"signal"`
	Confidence     float64    `json:"confidence"`
	Method         string     `json:"method"`
	TargetTime     time.Time  `json:"target_time"`
	ActualPrice    float64    `json:"actual_price,omitempty"`
	Accuracy       float64    `json:"accuracy,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

// Verified reports whether the forecast has been resolved against a realized price.
func (f *Forecast) Verified() bool { return f.VerifiedAt != nil }

// Stats aggregates verified forecasts over the trailing 24 hours.
type Stats struct {
	Count       int       `json:"count"`
	AvgAccuracy float64   `json:"avg_accuracy"`
	GoodRate    float64   `json:"good_prediction_rate"`
	ComputedAt  time.Time `json:"computed_at"`
}

// ConnectionStatus is the externally visible state of the terminal link.
type ConnectionStatus struct {
	Connected             bool      `json:"connected"`
	Symbol                string    `json:"symbol,omitempty"`
	LastConnectionTime    time.Time `json:"last_connection_time,omitempty"`
	LastSuccessfulRequest time.Time `json:"last_successful_request,omitempty"`
}
