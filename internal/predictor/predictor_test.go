package predictor

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"GoldPulse/internal/domain/models"
	"GoldPulse/pkg/logger"
)

func series(n int, price func(i int) float64) []*models.PriceSample {
	base := time.Now().Add(-time.Duration(n) * 5 * time.Second)
	out := make([]*models.PriceSample, n)
	for i := 0; i < n; i++ {
		out[i] = &models.PriceSample{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Second),
			Price:     price(i),
		}
	}
	return out
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestTechnicalAbstainsOnShortHistory(t *testing.T) {
	p := NewTechnical(15*time.Minute, WeightTechnical)
	est, err := p.Predict(context.Background(), series(10, func(i int) float64 { return 2400 }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est != nil {
		t.Fatalf("expected abstention, got %+v", est)
	}
}

func TestTechnicalFollowsTrend(t *testing.T) {
	p := NewTechnical(15*time.Minute, WeightTechnical)

	up := series(50, func(i int) float64 { return 2400 + float64(i)*0.5 })
	est, err := p.Predict(context.Background(), up)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est == nil {
		t.Fatal("expected an estimate")
	}
	last := up[len(up)-1].Price
	if est.Price <= last {
		t.Fatalf("uptrend must project above last price: got %v, last %v", est.Price, last)
	}
	if est.Confidence < 0.5 || est.Confidence > 0.8 {
		t.Fatalf("confidence out of range: %v", est.Confidence)
	}

	down := series(50, func(i int) float64 { return 2400 - float64(i)*0.5 })
	est, err = p.Predict(context.Background(), down)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est == nil {
		t.Fatal("expected an estimate")
	}
	if est.Price >= down[len(down)-1].Price {
		t.Fatalf("downtrend must project below last price: got %v", est.Price)
	}
}

func TestTechnicalFlatSeries(t *testing.T) {
	p := NewTechnical(15*time.Minute, WeightTechnical)
	flat := series(50, func(i int) float64 { return 2400 })
	est, err := p.Predict(context.Background(), flat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est == nil {
		t.Fatal("expected an estimate")
	}
	if math.Abs(est.Price-2400) > 1e-9 {
		t.Fatalf("flat series must project the same price, got %v", est.Price)
	}
}

func TestStatisticalAbstainsOnShortHistory(t *testing.T) {
	p := NewStatistical(15*time.Minute, WeightStatistical, 120)
	est, err := p.Predict(context.Background(), series(20, func(i int) float64 { return 2400 }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est != nil {
		t.Fatalf("expected abstention, got %+v", est)
	}
}

func TestStatisticalExtrapolatesLinearTrend(t *testing.T) {
	p := NewStatistical(15*time.Minute, WeightStatistical, 120)

	// 0.1 per 5s sample, so 0.02/s.
	hist := series(60, func(i int) float64 { return 2400 + float64(i)*0.1 })
	est, err := p.Predict(context.Background(), hist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est == nil {
		t.Fatal("expected an estimate")
	}
	want := hist[len(hist)-1].Price + 0.02*(15*time.Minute).Seconds()
	if math.Abs(est.Price-want) > 0.01 {
		t.Fatalf("extrapolation = %v, want %v", est.Price, want)
	}
	// Perfect fit: confidence = 0.4 + 0.5*1.
	if math.Abs(est.Confidence-0.9) > 1e-6 {
		t.Fatalf("confidence = %v, want 0.9", est.Confidence)
	}
}

func TestDeepRequiresServiceURL(t *testing.T) {
	if _, err := NewDeep("", time.Second, 15*time.Minute, WeightDeep); err == nil {
		t.Fatal("expected error with empty service url")
	}
}

func TestDeepPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Prices         []float64 `json:"prices"`
			Timestamps     []int64   `json:"timestamps"`
			HorizonMinutes int       `json:"horizon_minutes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Prices) != 80 || req.HorizonMinutes != 15 {
			t.Errorf("unexpected request: %d prices, horizon %d", len(req.Prices), req.HorizonMinutes)
		}
		_ = json.NewEncoder(w).Encode(map[string]float64{"price": 2410.5, "confidence": 0.8})
	}))
	defer srv.Close()

	p, err := NewDeep(srv.URL, time.Second, 15*time.Minute, WeightDeep)
	if err != nil {
		t.Fatal(err)
	}

	est, err := p.Predict(context.Background(), series(80, func(i int) float64 { return 2400 }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est == nil || est.Price != 2410.5 {
		t.Fatalf("unexpected estimate %+v", est)
	}
}

func TestDeepAbstainsOnShortHistory(t *testing.T) {
	p, err := NewDeep("http://localhost:1", time.Second, 15*time.Minute, WeightDeep)
	if err != nil {
		t.Fatal(err)
	}
	est, err := p.Predict(context.Background(), series(10, func(i int) float64 { return 2400 }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if est != nil {
		t.Fatalf("expected abstention, got %+v", est)
	}
}

func TestBuildRegistry(t *testing.T) {
	log := testLogger(t)

	preds := Build(RegistryConfig{Horizon: 15 * time.Minute}, log)
	if len(preds) != 2 {
		t.Fatalf("expected 2 tiers without model service, got %d", len(preds))
	}

	preds = Build(RegistryConfig{Horizon: 15 * time.Minute, ModelServiceURL: "http://model:8000"}, log)
	if len(preds) != 3 {
		t.Fatalf("expected 3 tiers with model service, got %d", len(preds))
	}

	var total float64
	for _, p := range preds {
		total += p.Weight()
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("tier weights must sum to 1.0, got %v", total)
	}
}
