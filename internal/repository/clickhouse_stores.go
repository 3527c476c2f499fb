package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"GoldPulse/internal/domain/models"
	"GoldPulse/internal/domain/repository"
)

// ClickHouseTickStore implements TickStore over the price_data table.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseTickStore creates the tick store.
func NewClickHouseTickStore(db *sql.DB, table string) repository.TickStore {
	return &ClickHouseTickStore{db: db, table: table}
}

func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime,
		symbol String,
		price Float64,
		bid Float64,
		ask Float64
	) ENGINE=MergeTree ORDER BY (symbol, ts)`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init price_data: %w", err)
	}
	return nil
}

func (s *ClickHouseTickStore) Store(ctx context.Context, symbol string, sm *models.PriceSample) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, bid, ask) VALUES (?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q, sm.Timestamp, symbol, sm.Price, sm.Bid, sm.Ask)
	return err
}

func (s *ClickHouseTickStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceSample, error) {
	q := fmt.Sprintf("SELECT ts, price, bid, ask FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PriceSample
	for rows.Next() {
		var sm models.PriceSample
		if err := rows.Scan(&sm.Timestamp, &sm.Price, &sm.Bid, &sm.Ask); err != nil {
			return nil, err
		}
		out = append(out, &sm)
	}
	return out, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // connection pool owned by pkg/clickhouse
}

// ClickHouseForecastStore implements ForecastStore over the predictions
// table. The table is a ReplacingMergeTree versioned by verified_at: the
// single pending-to-verified transition is a re-insert of the full row, and
// readers use FINAL to observe the latest version. Pending rows carry
// verified_at = epoch zero.
type ClickHouseForecastStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseForecastStore creates the forecast store.
func NewClickHouseForecastStore(db *sql.DB, table string) repository.ForecastStore {
	return &ClickHouseForecastStore{db: db, table: table}
}

func (s *ClickHouseForecastStore) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id String,
		created_at DateTime,
		current_price Float64,
		predicted_price Float64,
		signal String,
		confidence Float64,
		method String,
		target_time DateTime,
		actual_price Float64,
		accuracy Float64,
		verified_at DateTime
	) ENGINE=ReplacingMergeTree(verified_at) ORDER BY id`, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init predictions: %w", err)
	}
	return nil
}

const forecastCols = "id, created_at, current_price, predicted_price, signal, confidence, method, target_time, actual_price, accuracy, verified_at"

func (s *ClickHouseForecastStore) insert(ctx context.Context, f *models.Forecast) error {
	verifiedAt := time.Unix(0, 0)
	if f.VerifiedAt != nil {
		verifiedAt = *f.VerifiedAt
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, forecastCols)
	_, err := s.db.ExecContext(ctx, q,
		f.ID, f.CreatedAt, f.CurrentPrice, f.PredictedPrice, string(f.Signal),
		f.Confidence, f.Method, f.TargetTime, f.ActualPrice, f.Accuracy, verifiedAt,
	)
	return err
}

func (s *ClickHouseForecastStore) Append(ctx context.Context, f *models.Forecast) error {
	if f.VerifiedAt != nil {
		return fmt.Errorf("append: forecast %s already verified", f.ID)
	}
	return s.insert(ctx, f)
}

// MarkVerified re-inserts the row with the verified fields set; the higher
// verified_at version supersedes the pending row on merge.
func (s *ClickHouseForecastStore) MarkVerified(ctx context.Context, f *models.Forecast) error {
	if f.VerifiedAt == nil {
		return fmt.Errorf("mark verified: forecast %s has no verified_at", f.ID)
	}
	return s.insert(ctx, f)
}

func (s *ClickHouseForecastStore) PendingDue(ctx context.Context, now time.Time) ([]*models.Forecast, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s FINAL
		WHERE verified_at = toDateTime(0) AND target_time <= ?
		ORDER BY target_time ASC LIMIT 500`, forecastCols, s.table)
	rows, err := s.db.QueryContext(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Forecast
	for rows.Next() {
		f, err := scanForecast(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *ClickHouseForecastStore) StatsLast24h(ctx context.Context) (*models.Stats, error) {
	// Pending rows are excluded: an unresolved forecast counts as neither
	// success nor failure.
	q := fmt.Sprintf(`SELECT count(), avg(accuracy), avg(accuracy > 0.6)
		FROM %s FINAL
		WHERE verified_at > toDateTime(0) AND created_at >= now() - INTERVAL 1 DAY`, s.table)

	var st models.Stats
	var avgAcc, goodRate sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, q).Scan(&st.Count, &avgAcc, &goodRate); err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	st.AvgAccuracy = avgAcc.Float64
	st.GoodRate = goodRate.Float64
	st.ComputedAt = time.Now()
	return &st, nil
}

func (s *ClickHouseForecastStore) Close() error {
	return nil // connection pool owned by pkg/clickhouse
}

func scanForecast(scan func(...any) error) (*models.Forecast, error) {
	var f models.Forecast
	var signal string
	var verifiedAt time.Time
	err := scan(
		&f.ID, &f.CreatedAt, &f.CurrentPrice, &f.PredictedPrice, &signal,
		&f.Confidence, &f.Method, &f.TargetTime, &f.ActualPrice, &f.Accuracy, &verifiedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Signal = models.Signal(signal)
	if verifiedAt.Unix() > 0 {
		f.VerifiedAt = &verifiedAt
	}
	return &f, nil
}
