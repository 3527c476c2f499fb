// Package history holds the in-memory tick buffer shared by the engine loops.
package history

import (
	"sync"
	"time"

	"GoldPulse/internal/domain/models"
)

// Buffer is a capacity-bounded, time-ordered tick buffer. The collector loop
// is the single writer; predictor and verifier loops read snapshots. Oldest
// samples are evicted FIFO on overflow.
type Buffer struct {
	mu      sync.RWMutex
	samples []*models.PriceSample
	cap     int
}

// New creates a buffer holding at most capacity samples.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Buffer{
		samples: make([]*models.PriceSample, 0, capacity),
		cap:     capacity,
	}
}

// Append adds a sample, evicting the oldest when full. Samples arriving with
// a timestamp earlier than the current tail are clamped to preserve ordering
// (terminals occasionally repeat the same server second).
func (b *Buffer) Append(s *models.PriceSample) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if n := len(b.samples); n > 0 && s.Timestamp.Before(b.samples[n-1].Timestamp) {
		clamped := *s
		clamped.Timestamp = b.samples[n-1].Timestamp
		s = &clamped
	}
	if len(b.samples) >= b.cap {
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:len(b.samples)-1]
	}
	b.samples = append(b.samples, s)
}

// Snapshot returns a copy of the current contents, oldest first. Readers
// operate on the copy so eviction mid-read cannot be observed.
func (b *Buffer) Snapshot() []*models.PriceSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.PriceSample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Len returns the current sample count.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// Latest returns the most recent sample, or nil when empty.
func (b *Buffer) Latest() *models.PriceSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.samples) == 0 {
		return nil
	}
	return b.samples[len(b.samples)-1]
}

// ClosestTo returns the sample whose timestamp is nearest to target, or nil
// when the buffer is empty.
func (b *Buffer) ClosestTo(target time.Time) *models.PriceSample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var best *models.PriceSample
	var bestDist time.Duration
	for _, s := range b.samples {
		d := s.Timestamp.Sub(target)
		if d < 0 {
			d = -d
		}
		if best == nil || d < bestDist {
			best = s
			bestDist = d
		}
	}
	return best
}
