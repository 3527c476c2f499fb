package engine

import (
	"context"
	"fmt"
	"time"

	"GoldPulse/internal/domain/models"
	"GoldPulse/internal/ensemble"
	"GoldPulse/pkg/logger"
)

// predictOnce performs one prediction round: snapshot history, collect every
// registered predictor's estimate, combine, persist the pending forecast,
// and publish it as latest.
func (e *Engine) predictOnce(ctx context.Context) {
	if n := e.hist.Len(); n < e.cfg.MinSamples {
		// Insufficient data is not an error; the loop waits for the
		// collector to fill the buffer.
		e.log.Debug("skipping prediction round",
			logger.Int("samples", n), logger.Int("min", e.cfg.MinSamples))
		return
	}

	snap := e.hist.Snapshot()
	current := snap[len(snap)-1].Price

	contribs := make([]ensemble.Contribution, 0, len(e.predictors))
	for _, p := range e.predictors {
		est, err := p.Predict(ctx, snap)
		if err != nil {
			e.metrics.RecordError("predictor_" + p.Name())
			e.log.Warn("predictor failed", logger.String("tier", p.Name()), logger.Error(err))
		}
		c := ensemble.Contribution{Name: p.Name(), Weight: p.Weight(), Skip: est == nil}
		if est != nil {
			c.Price = est.Price
		}
		contribs = append(contribs, c)
	}

	res := ensemble.Combine(current, contribs)
	if res == nil {
		// Every tier abstained: an empty ensemble is "abstain", not a crash.
		e.log.Warn("ensemble abstained, no contributing predictors")
		return
	}

	now := time.Now()
	forecast := &models.Forecast{
		ID:             fmt.Sprintf("fc-%d", now.UnixNano()),
		CreatedAt:      now,
		CurrentPrice:   current,
		PredictedPrice: res.Price,
		Signal:         res.Signal,
		Confidence:     res.Confidence,
		Method:         res.Method,
		TargetTime:     now.Add(e.cfg.Horizon),
	}

	if err := e.forecasts.Append(ctx, forecast); err != nil {
		e.metrics.RecordError("forecast_persist")
		e.log.Error("forecast persist failed", logger.Error(err))
		// Still publish as latest; the record just won't be verifiable.
	}
	e.setLatest(forecast)
	e.metrics.RecordPrediction(res.Method, string(res.Signal))
	e.log.Info("forecast published",
		logger.String("signal", string(res.Signal)),
		logger.Float64("current", current),
		logger.Float64("predicted", res.Price),
		logger.Float64("confidence", res.Confidence))
}
