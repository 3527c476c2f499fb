package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"GoldPulse/internal/connection"
	"GoldPulse/internal/domain/models"
	domsvc "GoldPulse/internal/domain/service"
	"GoldPulse/internal/history"
	"GoldPulse/internal/usecase"
	"GoldPulse/pkg/logger"
)

// fakeTerminal scripts terminal behavior for engine tests.
type fakeTerminal struct {
	mu      sync.Mutex
	symbols []string
	quote   *models.PriceQuote
}

func (f *fakeTerminal) Connect(ctx context.Context) error { return nil }
func (f *fakeTerminal) Ping(ctx context.Context) error    { return nil }
func (f *fakeTerminal) Disconnect() error                 { return nil }

func (f *fakeTerminal) Symbols(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.symbols, nil
}

func (f *fakeTerminal) Quote(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quote, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordTick(string, float64)      {}
func (nopMetrics) RecordPrediction(string, string) {}
func (nopMetrics) RecordVerification(float64)      {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) SetConnected(bool)               {}

// fakeForecastStore records forecasts in memory.
type fakeForecastStore struct {
	mu       sync.Mutex
	appended []*models.Forecast
	verified []*models.Forecast
	statsErr error
	stats    *models.Stats
}

func (f *fakeForecastStore) Init(ctx context.Context) error { return nil }

func (f *fakeForecastStore) Append(ctx context.Context, fc *models.Forecast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *fc
	f.appended = append(f.appended, &cp)
	return nil
}

func (f *fakeForecastStore) PendingDue(ctx context.Context, now time.Time) ([]*models.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*models.Forecast
	for _, fc := range f.appended {
		if !fc.Verified() && !fc.TargetTime.After(now) {
			cp := *fc
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (f *fakeForecastStore) MarkVerified(ctx context.Context, fc *models.Forecast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, old := range f.appended {
		if old.ID == fc.ID {
			cp := *fc
			f.appended[i] = &cp
			f.verified = append(f.verified, &cp)
			return nil
		}
	}
	return errors.New("unknown forecast")
}

func (f *fakeForecastStore) StatsLast24h(ctx context.Context) (*models.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakeForecastStore) Close() error { return nil }

// fakeTickStore counts stored ticks.
type fakeTickStore struct {
	mu      sync.Mutex
	stored  []*models.PriceSample
	symbols []string
}

func (f *fakeTickStore) Init(ctx context.Context) error { return nil }

func (f *fakeTickStore) Store(ctx context.Context, symbol string, s *models.PriceSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, s)
	f.symbols = append(f.symbols, symbol)
	return nil
}

func (f *fakeTickStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceSample, error) {
	return nil, nil
}

func (f *fakeTickStore) Health(ctx context.Context) error { return nil }
func (f *fakeTickStore) Close() error                     { return nil }

// stubPredictor returns a fixed estimate.
type stubPredictor struct {
	name   string
	weight float64
	price  float64
	skip   bool
	err    error
}

func (s *stubPredictor) Name() string    { return s.name }
func (s *stubPredictor) Weight() float64 { return s.weight }

func (s *stubPredictor) Predict(ctx context.Context, hist []*models.PriceSample) (*domsvc.Estimate, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.skip {
		return nil, nil
	}
	return &domsvc.Estimate{Price: s.price, Confidence: s.weight}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestEngine(t *testing.T, cfg Config, term *fakeTerminal, preds []domsvc.Predictor, fs *fakeForecastStore, ts *fakeTickStore) *Engine {
	t.Helper()
	log := testLogger(t)
	conn := connection.New(term, nopMetrics{}, log, connection.Config{
		SymbolPriorities: []string{"XAUUSD"},
		SymbolKeyword:    "gold",
		RetryDelay:       time.Millisecond,
	})
	hist := history.New(1000)
	ticks := usecase.NewTickProcessor(nil, ts, nopMetrics{}, "clickhouse")
	return New(cfg, conn, hist, preds, ticks, fs, nopMetrics{}, log)
}

func fillHistory(e *Engine, n int, price float64) {
	base := time.Now().Add(-time.Duration(n) * time.Second)
	for i := 0; i < n; i++ {
		e.hist.Append(&models.PriceSample{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Price:     price,
		})
	}
}

func TestAccuracy(t *testing.T) {
	cases := []struct {
		name                        string
		baseline, predicted, actual float64
		want                        float64
	}{
		{"no movement", 100, 101, 100, 0.5},
		{"same direction half error", 100, 101, 102, 0.75},
		{"same direction exact", 100, 102, 102, 1.0},
		{"wrong direction same magnitude", 100, 99, 101, 0.0},
		{"wrong direction large error", 100, 103, 99, 0.5},
		{"same direction overshoot", 100, 102, 101, 0.5},
		{"no-move call against moved market", 100, 100, 101, 0.5},
	}
	for _, tc := range cases {
		got := Accuracy(tc.baseline, tc.predicted, tc.actual)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: Accuracy(%v, %v, %v) = %v, want %v",
				tc.name, tc.baseline, tc.predicted, tc.actual, got, tc.want)
		}
	}
}

func TestNormalizeQuote(t *testing.T) {
	now := time.Now()

	s := normalizeQuote(&models.PriceQuote{Last: 2400.5, Bid: 2400.1, Ask: 2400.9, Time: now})
	if s == nil || s.Price != 2400.5 {
		t.Fatalf("expected last price, got %+v", s)
	}

	s = normalizeQuote(&models.PriceQuote{Bid: 2400.1, Time: now})
	if s == nil || s.Price != 2400.1 {
		t.Fatalf("expected bid fallback, got %+v", s)
	}

	if s = normalizeQuote(&models.PriceQuote{Time: now}); s != nil {
		t.Fatalf("expected nil for empty quote, got %+v", s)
	}

	s = normalizeQuote(&models.PriceQuote{Last: 2400.5})
	if s == nil || s.Timestamp.IsZero() {
		t.Fatalf("expected timestamp backfill, got %+v", s)
	}
}

func TestCollectOnce(t *testing.T) {
	term := &fakeTerminal{
		symbols: []string{"EURUSD", "XAUUSD"},
		quote:   &models.PriceQuote{Symbol: "XAUUSD", Last: 2400.5, Bid: 2400.1, Ask: 2400.9, Time: time.Now()},
	}
	ts := &fakeTickStore{}
	e := newTestEngine(t, Config{}, term, nil, &fakeForecastStore{}, ts)

	e.collectOnce(context.Background())

	if e.hist.Len() != 1 {
		t.Fatalf("expected 1 sample in history, got %d", e.hist.Len())
	}
	if len(ts.stored) != 1 {
		t.Fatalf("expected 1 persisted tick, got %d", len(ts.stored))
	}
	if ts.symbols[0] != "XAUUSD" {
		t.Fatalf("expected resolved symbol XAUUSD, got %s", ts.symbols[0])
	}
}

func TestCollectOnceNoQuote(t *testing.T) {
	term := &fakeTerminal{symbols: []string{"XAUUSD"}}
	e := newTestEngine(t, Config{}, term, nil, &fakeForecastStore{}, &fakeTickStore{})

	e.collectOnce(context.Background())

	if e.hist.Len() != 0 {
		t.Fatalf("expected empty history, got %d", e.hist.Len())
	}
}

func TestPredictOnce(t *testing.T) {
	fs := &fakeForecastStore{}
	preds := []domsvc.Predictor{
		&stubPredictor{name: "technical", weight: 0.3, price: 101},
		&stubPredictor{name: "statistical", weight: 0.4, price: 99},
		&stubPredictor{name: "deep", weight: 0.3, skip: true},
	}
	e := newTestEngine(t, Config{MinSamples: 10, Horizon: 15 * time.Minute}, &fakeTerminal{}, preds, fs, &fakeTickStore{})
	fillHistory(e, 20, 100)

	e.predictOnce(context.Background())

	latest := e.LatestPrediction()
	if latest == nil {
		t.Fatal("expected a forecast")
	}
	want := (101*0.3 + 99*0.4) / 0.7
	if math.Abs(latest.PredictedPrice-want) > 1e-9 {
		t.Fatalf("predicted price = %v, want %v", latest.PredictedPrice, want)
	}
	if math.Abs(latest.Confidence-0.7) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.7", latest.Confidence)
	}
	if latest.Method != "technical+statistical" {
		t.Fatalf("method = %q", latest.Method)
	}
	if latest.Verified() {
		t.Fatal("new forecast must be pending")
	}
	if len(fs.appended) != 1 {
		t.Fatalf("expected 1 persisted forecast, got %d", len(fs.appended))
	}
	if !latest.TargetTime.After(latest.CreatedAt) {
		t.Fatal("target time must be after creation")
	}
}

func TestPredictOnceBelowMinSamples(t *testing.T) {
	fs := &fakeForecastStore{}
	preds := []domsvc.Predictor{&stubPredictor{name: "technical", weight: 0.3, price: 101}}
	e := newTestEngine(t, Config{MinSamples: 30}, &fakeTerminal{}, preds, fs, &fakeTickStore{})
	fillHistory(e, 5, 100)

	e.predictOnce(context.Background())

	if e.LatestPrediction() != nil {
		t.Fatal("expected no forecast below min samples")
	}
	if len(fs.appended) != 0 {
		t.Fatalf("expected no persisted forecast, got %d", len(fs.appended))
	}
}

func TestPredictOnceAllAbstain(t *testing.T) {
	fs := &fakeForecastStore{}
	preds := []domsvc.Predictor{
		&stubPredictor{name: "technical", weight: 0.3, skip: true},
		&stubPredictor{name: "statistical", weight: 0.4, err: errors.New("boom")},
	}
	e := newTestEngine(t, Config{MinSamples: 5}, &fakeTerminal{}, preds, fs, &fakeTickStore{})
	fillHistory(e, 10, 100)

	e.predictOnce(context.Background())

	if e.LatestPrediction() != nil {
		t.Fatal("expected abstention when no tier contributes")
	}
}

func TestVerifyOnce(t *testing.T) {
	fs := &fakeForecastStore{}
	e := newTestEngine(t, Config{VerifyTolerance: 5 * time.Minute}, &fakeTerminal{}, nil, fs, &fakeTickStore{})

	target := time.Now().Add(-time.Minute)
	fc := &models.Forecast{
		ID:             "fc-1",
		CreatedAt:      target.Add(-15 * time.Minute),
		CurrentPrice:   100,
		PredictedPrice: 101,
		TargetTime:     target,
	}
	if err := fs.Append(context.Background(), fc); err != nil {
		t.Fatal(err)
	}
	e.setLatest(fc)
	e.hist.Append(&models.PriceSample{Timestamp: target.Add(30 * time.Second), Price: 102})

	e.verifyOnce(context.Background())

	if len(fs.verified) != 1 {
		t.Fatalf("expected 1 verified forecast, got %d", len(fs.verified))
	}
	got := fs.verified[0]
	if got.ActualPrice != 102 {
		t.Fatalf("actual price = %v, want 102", got.ActualPrice)
	}
	if math.Abs(got.Accuracy-0.75) > 1e-9 {
		t.Fatalf("accuracy = %v, want 0.75", got.Accuracy)
	}
	if !got.Verified() {
		t.Fatal("expected verified forecast")
	}

	latest := e.LatestPrediction()
	if latest == nil || !latest.Verified() {
		t.Fatal("latest must reflect verification")
	}
}

func TestVerifyOnceOutsideTolerance(t *testing.T) {
	fs := &fakeForecastStore{}
	e := newTestEngine(t, Config{VerifyTolerance: time.Minute}, &fakeTerminal{}, nil, fs, &fakeTickStore{})

	target := time.Now().Add(-time.Hour)
	fc := &models.Forecast{ID: "fc-2", CurrentPrice: 100, PredictedPrice: 101, TargetTime: target}
	if err := fs.Append(context.Background(), fc); err != nil {
		t.Fatal(err)
	}
	// Closest sample is 10 minutes past the target, beyond tolerance.
	e.hist.Append(&models.PriceSample{Timestamp: target.Add(10 * time.Minute), Price: 102})

	e.verifyOnce(context.Background())

	if len(fs.verified) != 0 {
		t.Fatalf("expected forecast to stay pending, got %d verified", len(fs.verified))
	}
}

func TestStatsDegradesToZero(t *testing.T) {
	fs := &fakeForecastStore{statsErr: errors.New("clickhouse down")}
	e := newTestEngine(t, Config{}, &fakeTerminal{}, nil, fs, &fakeTickStore{})

	st := e.Stats(context.Background())
	if st == nil {
		t.Fatal("stats must never be nil")
	}
	if st.Count != 0 || st.AvgAccuracy != 0 {
		t.Fatalf("expected zero-valued stats, got %+v", st)
	}
	if st.ComputedAt.IsZero() {
		t.Fatal("expected computed_at to be set")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	term := &fakeTerminal{symbols: []string{"XAUUSD"}, quote: &models.PriceQuote{Last: 2400, Time: time.Now()}}
	e := newTestEngine(t, Config{
		CollectInterval: time.Hour,
		Horizon:         time.Hour,
		VerifyInterval:  time.Hour,
	}, term, nil, &fakeForecastStore{}, &fakeTickStore{})

	e.Start()
	e.Start()
	e.Stop()
	e.Stop()
}
