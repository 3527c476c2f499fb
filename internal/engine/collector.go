package engine

import (
	"context"
	"time"

	"GoldPulse/internal/domain/models"
	"GoldPulse/pkg/logger"
)

// collectOnce performs one collection iteration: resolve the symbol, fetch a
// quote, normalize it into a sample, append it to history, and persist the
// raw tick. Every failure mode degrades to "try again next tick".
func (e *Engine) collectOnce(ctx context.Context) {
	symbol, ok := e.conn.Symbol(ctx)
	if !ok {
		// Terminal degraded or no tradable symbol; the fixed sleep is the
		// backoff, the terminal either recovers quickly or not at all.
		return
	}

	quote := e.conn.Price(ctx, symbol)
	if quote == nil {
		return
	}

	sample := normalizeQuote(quote)
	if sample == nil {
		e.metrics.RecordError("collector_empty_quote")
		return
	}

	e.hist.Append(sample)
	e.metrics.RecordTick(symbol, sample.Price)

	if err := e.ticks.Process(ctx, symbol, sample); err != nil {
		// Persistence lag must not block collection; the in-memory history
		// already has the sample.
		e.metrics.RecordError("tick_persist")
		e.log.Warn("tick persist failed", logger.Error(err))
	}
}

// normalizeQuote maps a terminal quote to a sample. Markets without a last
// trade still have a bid, so fall back from last to bid; a quote with
// neither is unusable.
func normalizeQuote(q *models.PriceQuote) *models.PriceSample {
	price := q.Last
	if price == 0 {
		price = q.Bid
	}
	if price == 0 {
		return nil
	}
	ts := q.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return &models.PriceSample{Timestamp: ts, Price: price, Bid: q.Bid, Ask: q.Ask}
}
