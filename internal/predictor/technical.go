// Package predictor provides the capability-checked forecast tiers combined
// by the ensemble: a technical heuristic, a statistical regression, and a
// deep-sequence model reached over HTTP.
package predictor

import (
	"context"
	"math"
	"time"

	"GoldPulse/internal/domain/models"
	domsvc "GoldPulse/internal/domain/service"
)

const (
	technicalFastWindow = 5
	technicalSlowWindow = 20
	technicalRSIWindow  = 14
)

// Technical is the lightweight heuristic tier: moving-average drift scaled by
// RSI positioning, projected over the horizon.
type Technical struct {
	horizon time.Duration
	weight  float64
}

// NewTechnical creates the technical tier.
func NewTechnical(horizon time.Duration, weight float64) *Technical {
	return &Technical{horizon: horizon, weight: weight}
}

func (p *Technical) Name() string    { return "technical" }
func (p *Technical) Weight() float64 { return p.weight }

// Predict extrapolates the fast/slow moving-average spread over the horizon.
// Abstains when history is shorter than the slow window.
func (p *Technical) Predict(ctx context.Context, history []*models.PriceSample) (*domsvc.Estimate, error) {
	if len(history) < technicalSlowWindow {
		return nil, nil
	}
	last := history[len(history)-1].Price
	fast := sma(history, technicalFastWindow)
	slow := sma(history, technicalSlowWindow)
	if slow == 0 {
		return nil, nil
	}

	// Per-sample drift implied by the MA spread, projected over the horizon
	// expressed in samples of the same cadence.
	spread := (fast - slow) / slow
	horizonSamples := horizonInSamples(history, p.horizon)
	drift := spread * float64(horizonSamples) / technicalFastWindow

	// RSI extremes damp the drift: overbought trims bullish projections,
	// oversold trims bearish ones.
	r := rsi(history, technicalRSIWindow)
	switch {
	case r > 70 && drift > 0:
		drift *= 0.5
	case r < 30 && drift < 0:
		drift *= 0.5
	}

	conf := 0.5 + math.Min(math.Abs(spread)*200, 0.3)
	return &domsvc.Estimate{Price: last * (1 + drift), Confidence: conf}, nil
}

func sma(history []*models.PriceSample, window int) float64 {
	if window > len(history) {
		window = len(history)
	}
	if window == 0 {
		return 0
	}
	var sum float64
	for _, s := range history[len(history)-window:] {
		sum += s.Price
	}
	return sum / float64(window)
}

func rsi(history []*models.PriceSample, window int) float64 {
	if len(history) < window+1 {
		return 50
	}
	var gains, losses float64
	tail := history[len(history)-window-1:]
	for i := 1; i < len(tail); i++ {
		d := tail[i].Price - tail[i-1].Price
		if d > 0 {
			gains += d
		} else {
			losses -= d
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// horizonInSamples estimates how many samples span the horizon, from the
// observed cadence of the history window.
func horizonInSamples(history []*models.PriceSample, horizon time.Duration) int {
	n := len(history)
	if n < 2 {
		return 1
	}
	span := history[n-1].Timestamp.Sub(history[0].Timestamp)
	if span <= 0 {
		return 1
	}
	cadence := span / time.Duration(n-1)
	if cadence <= 0 {
		return 1
	}
	k := int(horizon / cadence)
	if k < 1 {
		k = 1
	}
	return k
}
