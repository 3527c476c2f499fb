// Package engine owns the collector, predictor, and verifier loops and the
// shared state between them.
package engine

import (
	"context"
	"sync"
	"time"

	"GoldPulse/internal/connection"
	"GoldPulse/internal/domain/models"
	drepo "GoldPulse/internal/domain/repository"
	domsvc "GoldPulse/internal/domain/service"
	"GoldPulse/internal/history"
	"GoldPulse/internal/usecase"
	"GoldPulse/pkg/logger"
)

// Config tunes loop cadence and the verification window.
type Config struct {
	CollectInterval time.Duration // tick cadence, typically 1-10s
	Horizon         time.Duration // forecast horizon and predictor cadence
	VerifyInterval  time.Duration // pending-scan cadence
	VerifyTolerance time.Duration // max distance to accept a realized sample
	MinSamples      int           // predictor loop skips below this
}

func (c *Config) applyDefaults() {
	if c.CollectInterval <= 0 {
		c.CollectInterval = 5 * time.Second
	}
	if c.Horizon <= 0 {
		c.Horizon = 15 * time.Minute
	}
	if c.VerifyInterval <= 0 {
		c.VerifyInterval = time.Minute
	}
	if c.VerifyTolerance <= 0 {
		c.VerifyTolerance = 5 * time.Minute
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 30
	}
}

// Engine runs the three loops and serves read queries from the main thread.
type Engine struct {
	cfg        Config
	conn       *connection.Manager
	hist       *history.Buffer
	predictors []domsvc.Predictor
	ticks      *usecase.TickProcessor
	forecasts  drepo.ForecastStore
	metrics    drepo.Metrics
	log        *logger.Logger

	mu      sync.RWMutex
	latest  *models.Forecast
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New assembles an engine. It does not start any loops.
func New(
	cfg Config,
	conn *connection.Manager,
	hist *history.Buffer,
	predictors []domsvc.Predictor,
	ticks *usecase.TickProcessor,
	forecasts drepo.ForecastStore,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:        cfg,
		conn:       conn,
		hist:       hist,
		predictors: predictors,
		ticks:      ticks,
		forecasts:  forecasts,
		metrics:    metrics,
		log:        log,
	}
}

// Start launches the collector, predictor, and verifier loops. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.runLoop(ctx, "collector", e.cfg.CollectInterval, e.collectOnce)
	e.runLoop(ctx, "predictor", e.cfg.Horizon, e.predictOnce)
	e.runLoop(ctx, "verifier", e.cfg.VerifyInterval, e.verifyOnce)
	e.log.Info("engine started",
		logger.Duration("collect_interval", e.cfg.CollectInterval),
		logger.Duration("horizon", e.cfg.Horizon),
		logger.Int("predictors", len(e.predictors)))
}

// runLoop runs iterate on a fixed cadence until the engine stops. The stop
// signal also interrupts the inter-iteration sleep so shutdown latency is
// bounded by one iteration, not one interval. A failed iteration is logged
// and followed by the normal sleep; it never terminates the loop.
func (e *Engine) runLoop(ctx context.Context, name string, interval time.Duration, iterate func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			e.safeIterate(ctx, name, iterate)
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}()
}

func (e *Engine) safeIterate(ctx context.Context, name string, iterate func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordError(name + "_panic")
			e.log.Error("loop iteration panicked", logger.String("loop", name), logger.Any("panic", r))
		}
	}()
	start := time.Now()
	iterate(ctx)
	e.metrics.RecordLatency(name+"_iteration", time.Since(start).Seconds())
}

// Stop halts the loops, waits for in-flight iterations, and releases the
// terminal connection. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}
	e.started = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	if err := e.conn.Close(); err != nil {
		e.log.Warn("terminal close on stop", logger.Error(err))
	}
	e.log.Info("engine stopped")
}

// LatestPrediction returns a copy of the most recent forecast, or nil before
// the first prediction round completes.
func (e *Engine) LatestPrediction() *models.Forecast {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return nil
	}
	cp := *e.latest
	return &cp
}

// Stats returns the trailing-24h aggregate. A degraded store yields a
// zero-valued stats object, never an error.
func (e *Engine) Stats(ctx context.Context) *models.Stats {
	st, err := e.forecasts.StatsLast24h(ctx)
	if err != nil || st == nil {
		if err != nil {
			e.metrics.RecordError("stats_query")
			e.log.Warn("stats query failed", logger.Error(err))
		}
		return &models.Stats{ComputedAt: time.Now()}
	}
	return st
}

// ConnectionStatus reports the terminal link state.
func (e *Engine) ConnectionStatus() models.ConnectionStatus {
	return e.conn.Status()
}

func (e *Engine) setLatest(f *models.Forecast) {
	e.mu.Lock()
	e.latest = f
	e.mu.Unlock()
}

func (e *Engine) updateLatestIfSame(f *models.Forecast) {
	e.mu.Lock()
	if e.latest != nil && e.latest.ID == f.ID {
		cp := *f
		e.latest = &cp
	}
	e.mu.Unlock()
}
