// Package connection owns the lifecycle of the terminal link: health checks,
// reconnects, and the resolved-symbol cache.
package connection

import (
	"context"
	"strings"
	"sync"
	"time"

	"GoldPulse/internal/domain/models"
	drepo "GoldPulse/internal/domain/repository"
	"GoldPulse/pkg/logger"
)

// Config tunes reconnect and symbol-resolution behavior.
type Config struct {
	SymbolPriorities []string      // exact names tried in order
	SymbolKeyword    string        // case-insensitive substring fallback
	SymbolCacheTTL   time.Duration // default 5m
	QuoteRetries     int           // default 3
	RetryDelay       time.Duration // fixed, default 500ms
}

// Manager presents an always-try-to-be-connected handle to the terminal.
// All state is guarded by mu; EnsureConnection is a critical section so two
// loops never reconnect simultaneously.
type Manager struct {
	terminal drepo.Terminal
	metrics  drepo.Metrics
	log      *logger.Logger
	cfg      Config

	mu              sync.Mutex
	connected       bool
	lastConnectTime time.Time
	lastSuccess     time.Time
	cachedSymbol    string
	symbolCachedAt  time.Time
}

// New creates a connection manager. Nothing is dialed until first use.
func New(terminal drepo.Terminal, metrics drepo.Metrics, log *logger.Logger, cfg Config) *Manager {
	if cfg.SymbolCacheTTL <= 0 {
		cfg.SymbolCacheTTL = 5 * time.Minute
	}
	if cfg.QuoteRetries <= 0 {
		cfg.QuoteRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.SymbolKeyword == "" {
		cfg.SymbolKeyword = "gold"
	}
	return &Manager{terminal: terminal, metrics: metrics, log: log, cfg: cfg}
}

// EnsureConnection returns true when the terminal link is healthy, connecting
// or reconnecting as needed. Never returns an error; absence of a connection
// means "try again next tick".
func (m *Manager) EnsureConnection(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(ctx)
}

func (m *Manager) ensureLocked(ctx context.Context) bool {
	if m.connected {
		if err := m.terminal.Ping(ctx); err == nil {
			return true
		}
		// Terminal stopped answering; tear down the stale handle.
		m.log.Warn("terminal health probe failed, reconnecting")
		_ = m.terminal.Disconnect()
		m.connected = false
		m.metrics.SetConnected(false)
	}

	if err := m.terminal.Connect(ctx); err != nil {
		m.metrics.RecordError("terminal_connect")
		m.log.Warn("terminal connect failed", logger.Error(err))
		return false
	}
	// Some terminals accept the dial but answer nothing; probe before
	// declaring the link healthy.
	if err := m.terminal.Ping(ctx); err != nil {
		m.metrics.RecordError("terminal_probe")
		_ = m.terminal.Disconnect()
		return false
	}

	m.connected = true
	m.lastConnectTime = time.Now()
	m.metrics.SetConnected(true)
	m.log.Info("terminal connected")
	return true
}

// Symbol returns the resolved tradable symbol, using the cache when fresh.
// Resolution tries the exact priority list first, then a case-insensitive
// keyword substring match. Returns ("", false) when nothing matches.
func (m *Manager) Symbol(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cachedSymbol != "" && time.Since(m.symbolCachedAt) < m.cfg.SymbolCacheTTL {
		return m.cachedSymbol, true
	}
	if !m.ensureLocked(ctx) {
		return "", false
	}

	symbols, err := m.terminal.Symbols(ctx)
	if err != nil || len(symbols) == 0 {
		m.metrics.RecordError("terminal_symbols")
		m.log.Warn("symbol enumeration failed", logger.Error(err))
		return "", false
	}

	if match := resolve(symbols, m.cfg.SymbolPriorities, m.cfg.SymbolKeyword); match != "" {
		m.cachedSymbol = match
		m.symbolCachedAt = time.Now()
		m.lastSuccess = time.Now()
		return match, true
	}
	m.log.Warn("no symbol matched", logger.String("keyword", m.cfg.SymbolKeyword))
	return "", false
}

func resolve(available, priorities []string, keyword string) string {
	set := make(map[string]struct{}, len(available))
	for _, s := range available {
		set[s] = struct{}{}
	}
	for _, want := range priorities {
		if _, ok := set[want]; ok {
			return want
		}
	}
	kw := strings.ToLower(keyword)
	for _, s := range available {
		if strings.Contains(strings.ToLower(s), kw) {
			return s
		}
	}
	return ""
}

// Price fetches the current quote, retrying with a fixed delay and forcing a
// reconnect between attempts. Returns nil when every attempt fails.
func (m *Manager) Price(ctx context.Context, symbol string) *models.PriceQuote {
	for attempt := 1; attempt <= m.cfg.QuoteRetries; attempt++ {
		m.mu.Lock()
		if !m.ensureLocked(ctx) {
			m.mu.Unlock()
		} else {
			q, err := m.terminal.Quote(ctx, symbol)
			if err == nil && q != nil {
				m.lastSuccess = time.Now()
				m.mu.Unlock()
				return q
			}
			m.metrics.RecordError("terminal_quote")
			m.log.Warn("quote failed", logger.Int("attempt", attempt), logger.Error(err))
			// Force a fresh connect on the next attempt.
			_ = m.terminal.Disconnect()
			m.connected = false
			m.metrics.SetConnected(false)
			m.mu.Unlock()
		}

		if attempt < m.cfg.QuoteRetries {
			select {
			case <-time.After(m.cfg.RetryDelay):
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

// Status reports the current connection state for the query surface.
func (m *Manager) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.ConnectionStatus{
		Connected:             m.connected,
		Symbol:                m.cachedSymbol,
		LastConnectionTime:    m.lastConnectTime,
		LastSuccessfulRequest: m.lastSuccess,
	}
}

// Close releases the terminal handle. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return m.terminal.Disconnect()
	}
	m.connected = false
	m.metrics.SetConnected(false)
	return m.terminal.Disconnect()
}
