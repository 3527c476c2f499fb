package engine

import (
	"context"
	"math"
	"time"

	"GoldPulse/pkg/logger"
)

// verifyOnce resolves pending forecasts whose target time has elapsed
// against the realized price closest to that target. Forecasts with no
// sample inside the tolerance window stay pending; once their window has
// permanently drained from the history buffer they never resolve, which is
// accepted data loss, not a failure.
func (e *Engine) verifyOnce(ctx context.Context) {
	due, err := e.forecasts.PendingDue(ctx, time.Now())
	if err != nil {
		e.metrics.RecordError("pending_query")
		e.log.Warn("pending forecast query failed", logger.Error(err))
		return
	}

	for _, f := range due {
		closest := e.hist.ClosestTo(f.TargetTime)
		if closest == nil {
			continue
		}
		dist := closest.Timestamp.Sub(f.TargetTime)
		if dist < 0 {
			dist = -dist
		}
		if dist > e.cfg.VerifyTolerance {
			continue
		}

		now := time.Now()
		f.ActualPrice = closest.Price
		f.Accuracy = Accuracy(f.CurrentPrice, f.PredictedPrice, closest.Price)
		f.VerifiedAt = &now

		if err := e.forecasts.MarkVerified(ctx, f); err != nil {
			e.metrics.RecordError("verify_persist")
			e.log.Warn("verification persist failed", logger.String("id", f.ID), logger.Error(err))
			continue
		}
		e.updateLatestIfSame(f)
		e.metrics.RecordVerification(f.Accuracy)
		e.log.Info("forecast verified",
			logger.String("id", f.ID),
			logger.Float64("predicted", f.PredictedPrice),
			logger.Float64("actual", f.ActualPrice),
			logger.Float64("accuracy", f.Accuracy))
	}
}

// Accuracy grades a forecast in [0,1]. Direction correctness is primary: a
// correct direction scores at least 0.5, a wrong one at most 0.5, and the
// magnitude error shifts the score within each half.
func Accuracy(baseline, predicted, actual float64) float64 {
	if actual == baseline {
		// No movement to grade.
		return 0.5
	}

	dPred := math.Abs(predicted - baseline)
	dActual := math.Abs(actual - baseline)
	priceAccuracy := 1 - math.Min(math.Abs(dPred-dActual)/dActual, 1)

	sameDirection := (predicted-baseline >= 0) == (actual-baseline >= 0)
	if predicted == baseline {
		// A no-move call against a moved market counts as a miss.
		sameDirection = false
	}
	if sameDirection {
		return 0.5 + 0.5*priceAccuracy
	}
	return 0.5 * (1 - priceAccuracy)
}
