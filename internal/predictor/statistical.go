package predictor

import (
	"context"
	"math"
	"time"

	"GoldPulse/internal/domain/models"
	domsvc "GoldPulse/internal/domain/service"
)

const statisticalMinSamples = 30

// Statistical is the regression tier: ordinary least squares over the recent
// window, extrapolated to the horizon. Confidence follows the fit quality.
type Statistical struct {
	horizon time.Duration
	weight  float64
	window  int
}

// NewStatistical creates the statistical tier.
func NewStatistical(horizon time.Duration, weight float64, window int) *Statistical {
	if window <= 0 {
		window = 120
	}
	return &Statistical{horizon: horizon, weight: weight, window: window}
}

func (p *Statistical) Name() string    { return "statistical" }
func (p *Statistical) Weight() float64 { return p.weight }

// Predict fits price = a + b*t over the window and evaluates at now+horizon.
// Abstains below the minimum sample count or on a degenerate time axis.
func (p *Statistical) Predict(ctx context.Context, history []*models.PriceSample) (*domsvc.Estimate, error) {
	if len(history) < statisticalMinSamples {
		return nil, nil
	}
	window := history
	if len(window) > p.window {
		window = window[len(window)-p.window:]
	}

	t0 := window[0].Timestamp
	n := float64(len(window))
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range window {
		x := s.Timestamp.Sub(t0).Seconds()
		sumX += x
		sumY += s.Price
		sumXY += x * s.Price
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return nil, nil
	}
	b := (n*sumXY - sumX*sumY) / den
	a := (sumY - b*sumX) / n

	target := window[len(window)-1].Timestamp.Add(p.horizon).Sub(t0).Seconds()
	predicted := a + b*target
	if predicted <= 0 || math.IsNaN(predicted) {
		return nil, nil
	}

	conf := 0.4 + 0.5*rSquared(window, a, b, t0)
	return &domsvc.Estimate{Price: predicted, Confidence: conf}, nil
}

func rSquared(window []*models.PriceSample, a, b float64, t0 time.Time) float64 {
	var mean float64
	for _, s := range window {
		mean += s.Price
	}
	mean /= float64(len(window))

	var ssRes, ssTot float64
	for _, s := range window {
		x := s.Timestamp.Sub(t0).Seconds()
		fit := a + b*x
		ssRes += (s.Price - fit) * (s.Price - fit)
		ssTot += (s.Price - mean) * (s.Price - mean)
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		return 0
	}
	return r2
}
