// Package ensemble merges independent predictor outputs into one forecast
// with a confidence score and a discrete trading signal.
package ensemble

import (
	"math"
	"strings"

	"GoldPulse/internal/domain/models"
)

// Threshold constants for the five-way signal mapping, in fractional change.
// Inside FlatThreshold the signal collapses to flat; beyond StrongThreshold
// confidence earns a bonus; at twice StrongThreshold the signal upgrades to
// its strong variant.
const (
	FlatThreshold   = 0.0005 // 0.05%
	StrongThreshold = 0.002  // 0.2%

	strongConfidenceBonus = 0.1
	strongConfidenceCap   = 0.9
	flatConfidencePenalty = 0.8
	flatConfidenceFloor   = 0.3
)

// Contribution is one predictor's output for the round. A nil Estimate means
// the predictor abstained and is excluded from the weighted mean.
type Contribution struct {
	Name   string
	Weight float64
	Price  float64
	Skip   bool
}

// Result is the combined forecast.
type Result struct {
	Price      float64
	Confidence float64
	Signal     models.Signal
	Method     string
}

// Combine merges contributions against the current price. Weights are
// renormalized over the contributing subset; confidence is the sum of
// contributing prior weights capped at 1.0, then adjusted by the signal
// band. Returns nil when every predictor abstained.
func Combine(currentPrice float64, contribs []Contribution) *Result {
	var weightSum, priceSum float64
	var names []string
	for _, c := range contribs {
		if c.Skip {
			continue
		}
		weightSum += c.Weight
		priceSum += c.Weight * c.Price
		names = append(names, c.Name)
	}
	if weightSum == 0 || currentPrice == 0 {
		return nil
	}

	price := priceSum / weightSum
	confidence := math.Min(weightSum, 1.0)
	pct := (price - currentPrice) / currentPrice
	signal, confidence := classify(pct, confidence)

	return &Result{
		Price:      price,
		Confidence: confidence,
		Signal:     signal,
		Method:     strings.Join(names, "+"),
	}
}

func classify(pct, confidence float64) (models.Signal, float64) {
	abs := math.Abs(pct)
	switch {
	case abs <= FlatThreshold:
		confidence = math.Max(confidence*flatConfidencePenalty, flatConfidenceFloor)
		return models.SignalFlat, confidence
	case abs > StrongThreshold:
		confidence = math.Min(confidence+strongConfidenceBonus, strongConfidenceCap)
		if abs >= 2*StrongThreshold {
			if pct > 0 {
				return models.SignalStrongBullish, confidence
			}
			return models.SignalStrongBearish, confidence
		}
	}
	if pct > 0 {
		return models.SignalBullish, confidence
	}
	return models.SignalBearish, confidence
}
