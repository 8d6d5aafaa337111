// internal/state/sqlite.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"

	_ "modernc.org/sqlite"
)

const (
	keyTrackingActive = "tracking_active"
	keyActiveOrder    = "pedido_activo_id"
	keyLastUpdate     = "last_update_timestamp"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracking_state (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS last_known (
    provider    TEXT PRIMARY KEY,
    latitude    REAL NOT NULL,
    longitude   REAL NOT NULL,
    accuracy    REAL NOT NULL DEFAULT 0,
    captured_at INTEGER NOT NULL
);
`

// SQLiteStore keeps tracking state in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) put(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tracking_state (key, value, updated_at) VALUES (?, ?, datetime('now','localtime'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	return err
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM tracking_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLiteStore) update(ctx context.Context, kv map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for k, v := range kv {
		if err := s.put(ctx, tx, k, v); err != nil {
			tx.Rollback()
			return fmt.Errorf("state put %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetTrackingActive(ctx context.Context, active bool) error {
	return s.update(ctx, map[string]string{
		keyTrackingActive: strconv.FormatBool(active),
		keyLastUpdate:     strconv.FormatInt(time.Now().UnixMilli(), 10),
	})
}

func (s *SQLiteStore) TrackingActive(ctx context.Context) (bool, error) {
	v, ok, err := s.get(ctx, keyTrackingActive)
	if err != nil || !ok {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (s *SQLiteStore) SetActiveOrder(ctx context.Context, orderID int64) error {
	return s.update(ctx, map[string]string{
		keyActiveOrder: strconv.FormatInt(orderID, 10),
	})
}

func (s *SQLiteStore) ActiveOrder(ctx context.Context) (int64, error) {
	v, ok, err := s.get(ctx, keyActiveOrder)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (s *SQLiteStore) LastUpdate(ctx context.Context) (time.Time, error) {
	v, ok, err := s.get(ctx, keyLastUpdate)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.update(ctx, map[string]string{
		keyTrackingActive: "false",
		keyActiveOrder:    "0",
	})
}

func (s *SQLiteStore) SaveLastKnown(ctx context.Context, p reporter.PositionSample) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_known (provider, latitude, longitude, accuracy, captured_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			accuracy = excluded.accuracy,
			captured_at = excluded.captured_at`,
		string(p.Provider), p.Latitude, p.Longitude, p.AccuracyMeters, p.CapturedAt)
	if err != nil {
		return fmt.Errorf("save last known: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LastKnown(ctx context.Context, provider reporter.Provider) (reporter.PositionSample, bool, error) {
	out := reporter.PositionSample{Provider: provider}
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, accuracy, captured_at FROM last_known WHERE provider = ?`,
		string(provider),
	).Scan(&out.Latitude, &out.Longitude, &out.AccuracyMeters, &out.CapturedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return reporter.PositionSample{}, false, nil
	}
	if err != nil {
		return reporter.PositionSample{}, false, err
	}
	return out, true, nil
}
