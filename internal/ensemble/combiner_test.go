package ensemble

import (
	"math"
	"testing"

	"GoldPulse/internal/domain/models"
)

func TestCombineRenormalizes(t *testing.T) {
	// Two tiers contribute, the third abstains; weights 0.3/0.4 renormalize
	// to 0.429/0.571.
	res := Combine(100, []Contribution{
		{Name: "technical", Weight: 0.3, Price: 101},
		{Name: "statistical", Weight: 0.4, Price: 99},
		{Name: "deep", Weight: 0.3, Skip: true},
	})
	if res == nil {
		t.Fatalf("expected result")
	}
	want := (101*0.3 + 99*0.4) / 0.7
	if math.Abs(res.Price-want) > 1e-9 {
		t.Fatalf("price = %v, want %v", res.Price, want)
	}
	if math.Abs(want-99.857142857) > 1e-6 {
		t.Fatalf("sanity: weighted mean should be ~99.857, got %v", want)
	}
	// 0.143% drop: plain bearish band, confidence stays at the weight sum.
	if res.Signal != models.SignalBearish {
		t.Fatalf("signal = %v, want bearish", res.Signal)
	}
	if math.Abs(res.Confidence-0.7) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.7", res.Confidence)
	}
	if res.Method != "technical+statistical" {
		t.Fatalf("method = %q", res.Method)
	}
}

func TestCombineAllAbstain(t *testing.T) {
	res := Combine(100, []Contribution{
		{Name: "technical", Weight: 0.3, Skip: true},
		{Name: "deep", Weight: 0.3, Skip: true},
	})
	if res != nil {
		t.Fatalf("expected nil when all predictors abstain, got %+v", res)
	}
}

func TestCombineConfidenceCap(t *testing.T) {
	res := Combine(100, []Contribution{
		{Name: "a", Weight: 0.5, Price: 100.1},
		{Name: "b", Weight: 0.4, Price: 100.1},
		{Name: "c", Weight: 0.3, Price: 100.1},
	})
	if res == nil || res.Confidence > 1.0 {
		t.Fatalf("confidence must cap at 1.0, got %+v", res)
	}
}

func TestSignalBands(t *testing.T) {
	cases := []struct {
		name      string
		predicted float64
		want      models.Signal
	}{
		{"bullish above strong threshold", 100.3, models.SignalBullish},
		{"flat at weak threshold", 100.05, models.SignalFlat},
		{"strong bullish", 100.5, models.SignalStrongBullish},
		{"strong bearish", 99.5, models.SignalStrongBearish},
		{"bearish", 99.85, models.SignalBearish},
	}
	for _, tc := range cases {
		res := Combine(100, []Contribution{{Name: "a", Weight: 0.4, Price: tc.predicted}})
		if res == nil {
			t.Fatalf("%s: nil result", tc.name)
		}
		if res.Signal != tc.want {
			t.Fatalf("%s: signal = %v, want %v", tc.name, res.Signal, tc.want)
		}
	}
}

func TestSignalConfidenceAdjustments(t *testing.T) {
	// Flat collapse penalizes confidence with a floor.
	res := Combine(100, []Contribution{{Name: "a", Weight: 0.4, Price: 100.01}})
	if res.Signal != models.SignalFlat {
		t.Fatalf("expected flat, got %v", res.Signal)
	}
	if math.Abs(res.Confidence-0.32) > 1e-9 {
		t.Fatalf("flat penalty: confidence = %v, want 0.32", res.Confidence)
	}
	res = Combine(100, []Contribution{{Name: "a", Weight: 0.2, Price: 100.001}})
	if res.Confidence < 0.3 {
		t.Fatalf("flat floor breached: %v", res.Confidence)
	}

	// Beyond the strong threshold confidence earns the bonus, capped at 0.9.
	res = Combine(100, []Contribution{
		{Name: "a", Weight: 0.5, Price: 100.5},
		{Name: "b", Weight: 0.5, Price: 100.5},
	})
	if res.Confidence > strongConfidenceCap {
		t.Fatalf("strong cap breached: %v", res.Confidence)
	}
}
