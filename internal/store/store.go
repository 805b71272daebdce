// Package store provides data persistence implementations.
package store

import (
	"context"
	"time"

	"angel-trader/internal/models"
)

// DataStore persists the instrument token master.
type DataStore interface {
	UpsertInstrument(ctx context.Context, inst models.Instrument) error
	Token(ctx context.Context, symbol models.Symbol) (string, error)
	InstrumentRefreshedAt(ctx context.Context, symbol models.Symbol) (time.Time, error)
	Close() error
}
