package history

import (
	"sync"
	"testing"
	"time"

	"GoldPulse/internal/domain/models"
)

func sample(ts time.Time, price float64) *models.PriceSample {
	return &models.PriceSample{Timestamp: ts, Price: price, Bid: price - 0.1, Ask: price + 0.1}
}

func TestAppendBounded(t *testing.T) {
	b := New(5)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		b.Append(sample(base.Add(time.Duration(i)*time.Second), float64(i)))
	}
	if b.Len() != 5 {
		t.Fatalf("expected len 5, got %d", b.Len())
	}
	snap := b.Snapshot()
	if snap[0].Price != 15 || snap[4].Price != 19 {
		t.Fatalf("expected oldest evicted, got %v..%v", snap[0].Price, snap[4].Price)
	}
}

func TestAppendOrdering(t *testing.T) {
	b := New(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Append(sample(base.Add(2*time.Second), 1))
	// out-of-order sample gets clamped, not reordered
	b.Append(sample(base, 2))
	b.Append(sample(base.Add(3*time.Second), 3))

	snap := b.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i].Timestamp.Before(snap[i-1].Timestamp) {
			t.Fatalf("samples out of order at %d", i)
		}
	}
}

func TestSnapshotIsolated(t *testing.T) {
	b := New(3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b.Append(sample(base, 1))
	snap := b.Snapshot()
	b.Append(sample(base.Add(time.Second), 2))
	b.Append(sample(base.Add(2*time.Second), 3))
	b.Append(sample(base.Add(3*time.Second), 4))
	if len(snap) != 1 || snap[0].Price != 1 {
		t.Fatalf("snapshot mutated by later appends: %+v", snap)
	}
}

func TestClosestTo(t *testing.T) {
	b := New(10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		b.Append(sample(base.Add(time.Duration(i)*time.Minute), float64(i)))
	}
	got := b.ClosestTo(base.Add(2*time.Minute + 20*time.Second))
	if got == nil || got.Price != 2 {
		t.Fatalf("expected sample at +2m, got %+v", got)
	}
	if New(1).ClosestTo(base) != nil {
		t.Fatalf("expected nil on empty buffer")
	}
}

func TestConcurrentReadersSingleWriter(t *testing.T) {
	b := New(100)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				snap := b.Snapshot()
				for i := 1; i < len(snap); i++ {
					if snap[i].Timestamp.Before(snap[i-1].Timestamp) {
						t.Error("reader observed out-of-order snapshot")
						return
					}
				}
				_ = b.Latest()
			}
		}()
	}

	for i := 0; i < 500; i++ {
		b.Append(sample(base.Add(time.Duration(i)*time.Millisecond), float64(i)))
	}
	close(done)
	wg.Wait()

	if b.Len() != 100 {
		t.Fatalf("expected capacity 100, got %d", b.Len())
	}
}
