package connection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"GoldPulse/internal/domain/models"
	"GoldPulse/pkg/logger"
)

// fakeTerminal scripts terminal behavior for manager tests.
type fakeTerminal struct {
	mu          sync.Mutex
	connectErr  error
	pingErr     error
	symbols     []string
	quote       *models.PriceQuote
	quoteErr    error
	connects    int32
	symbolCalls int32
	quoteCalls  int32
	inFlight    int32 // detects overlapping Connect calls
	overlapped  int32
}

func (f *fakeTerminal) Connect(ctx context.Context) error {
	if atomic.AddInt32(&f.inFlight, 1) > 1 {
		atomic.StoreInt32(&f.overlapped, 1)
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&f.inFlight, -1)
	atomic.AddInt32(&f.connects, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeTerminal) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeTerminal) Symbols(ctx context.Context) ([]string, error) {
	atomic.AddInt32(&f.symbolCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.symbols, nil
}

func (f *fakeTerminal) Quote(ctx context.Context, symbol string) (*models.PriceQuote, error) {
	atomic.AddInt32(&f.quoteCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quote, f.quoteErr
}

func (f *fakeTerminal) Disconnect() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordTick(string, float64)      {}
func (nopMetrics) RecordPrediction(string, string) {}
func (nopMetrics) RecordVerification(float64)      {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLatency(string, float64)   {}
func (nopMetrics) SetConnected(bool)               {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestEnsureConnectionHealthy(t *testing.T) {
	ft := &fakeTerminal{}
	m := New(ft, nopMetrics{}, testLogger(t), Config{})

	if !m.EnsureConnection(context.Background()) {
		t.Fatalf("expected connected")
	}
	// Second call reuses the healthy connection.
	if !m.EnsureConnection(context.Background()) {
		t.Fatalf("expected still connected")
	}
	if n := atomic.LoadInt32(&ft.connects); n != 1 {
		t.Fatalf("expected 1 connect, got %d", n)
	}
}

func TestEnsureConnectionSerialized(t *testing.T) {
	ft := &fakeTerminal{connectErr: fmt.Errorf("down")}
	m := New(ft, nopMetrics{}, testLogger(t), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.EnsureConnection(context.Background())
		}()
	}
	wg.Wait()

	if atomic.LoadInt32(&ft.overlapped) != 0 {
		t.Fatalf("concurrent reconnect attempts overlapped")
	}
}

func TestSymbolResolution(t *testing.T) {
	ft := &fakeTerminal{symbols: []string{"EURUSD", "XAUUSDm", "BTCUSD"}}
	m := New(ft, nopMetrics{}, testLogger(t), Config{
		SymbolPriorities: []string{"XAUUSD", "GOLD"},
		SymbolKeyword:    "gold",
	})

	// No exact match; XAUUSDm has no "gold" substring either, so fall through.
	if s, ok := m.Symbol(context.Background()); ok {
		t.Fatalf("expected no match, got %q", s)
	}

	ft.mu.Lock()
	ft.symbols = []string{"EURUSD", "Gold.Spot", "BTCUSD"}
	ft.mu.Unlock()
	s, ok := m.Symbol(context.Background())
	if !ok || s != "Gold.Spot" {
		t.Fatalf("expected keyword match Gold.Spot, got %q ok=%v", s, ok)
	}
}

func TestSymbolCache(t *testing.T) {
	ft := &fakeTerminal{symbols: []string{"XAUUSD"}}
	m := New(ft, nopMetrics{}, testLogger(t), Config{
		SymbolPriorities: []string{"XAUUSD"},
		SymbolCacheTTL:   time.Hour,
	})

	for i := 0; i < 5; i++ {
		if s, ok := m.Symbol(context.Background()); !ok || s != "XAUUSD" {
			t.Fatalf("expected XAUUSD, got %q ok=%v", s, ok)
		}
	}
	if n := atomic.LoadInt32(&ft.symbolCalls); n != 1 {
		t.Fatalf("expected 1 enumeration, cache should serve the rest; got %d", n)
	}
}

func TestPriceRetries(t *testing.T) {
	ft := &fakeTerminal{quoteErr: fmt.Errorf("no quote")}
	m := New(ft, nopMetrics{}, testLogger(t), Config{
		QuoteRetries: 3,
		RetryDelay:   time.Millisecond,
	})

	if q := m.Price(context.Background(), "XAUUSD"); q != nil {
		t.Fatalf("expected nil quote after retries, got %+v", q)
	}
	if n := atomic.LoadInt32(&ft.quoteCalls); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}

	ft.mu.Lock()
	ft.quoteErr = nil
	ft.quote = &models.PriceQuote{Symbol: "XAUUSD", Bid: 2400.1, Ask: 2400.4, Last: 2400.2, Time: time.Now()}
	ft.mu.Unlock()
	q := m.Price(context.Background(), "XAUUSD")
	if q == nil || q.Last != 2400.2 {
		t.Fatalf("expected quote, got %+v", q)
	}

	st := m.Status()
	if !st.Connected || st.LastSuccessfulRequest.IsZero() {
		t.Fatalf("expected healthy status, got %+v", st)
	}
}

func TestCloseIdempotent(t *testing.T) {
	ft := &fakeTerminal{}
	m := New(ft, nopMetrics{}, testLogger(t), Config{})
	_ = m.EnsureConnection(context.Background())
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if m.Status().Connected {
		t.Fatalf("expected disconnected status after close")
	}
}
