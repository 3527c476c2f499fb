package service

import (
	"context"

	"GoldPulse/internal/domain/models"
)

// Estimate is a single predictor's output for one round.
type Estimate struct {
	Price      float64
	Confidence float64
}

// Predictor produces a short-horizon price estimate from recent history.
// Returning (nil, nil) means the predictor abstains this round.
type Predictor interface {
	Name() string
	Weight() float64
	Predict(ctx context.Context, history []*models.PriceSample) (*Estimate, error)
}
