package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Instrument token cache, one row per underlying
	CREATE TABLE IF NOT EXISTS instruments (
		symbol TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		exchange TEXT NOT NULL,
		name TEXT,
		refreshed_at DATETIME NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertInstrument inserts or replaces the token mapping for a symbol.
func (s *SQLiteStore) UpsertInstrument(ctx context.Context, inst models.Instrument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instruments (symbol, token, exchange, name, refreshed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			token = excluded.token,
			exchange = excluded.exchange,
			name = excluded.name,
			refreshed_at = excluded.refreshed_at`,
		inst.Symbol, inst.Token, string(inst.Exchange), inst.Name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting instrument %s: %w", inst.Symbol, err)
	}
	return nil
}

// Token returns the cached instrument token for a symbol. Satisfies the
// gateway's TokenResolver.
func (s *SQLiteStore) Token(ctx context.Context, symbol models.Symbol) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM instruments WHERE symbol = ?`, string(symbol)).Scan(&token)
	if err == sql.ErrNoRows {
		return "", apierrors.Wrapf(apierrors.ErrValidation, "no instrument token for %s", symbol)
	}
	if err != nil {
		return "", fmt.Errorf("querying instrument token: %w", err)
	}
	return token, nil
}

// InstrumentRefreshedAt returns when the symbol's token was last updated.
func (s *SQLiteStore) InstrumentRefreshedAt(ctx context.Context, symbol models.Symbol) (time.Time, error) {
	var refreshed time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT refreshed_at FROM instruments WHERE symbol = ?`, string(symbol)).Scan(&refreshed)
	if err == sql.ErrNoRows {
		return time.Time{}, apierrors.Wrapf(apierrors.ErrValidation, "no instrument token for %s", symbol)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying instrument refresh time: %w", err)
	}
	return refreshed, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ DataStore = (*SQLiteStore)(nil)
