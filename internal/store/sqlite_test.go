package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "advisor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInstrumentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := models.Instrument{
		Token:    "99926000",
		Symbol:   string(models.Nifty),
		Exchange: models.NSE,
		Name:     "NIFTY",
	}
	require.NoError(t, s.UpsertInstrument(ctx, inst))

	tok, err := s.Token(ctx, models.Nifty)
	require.NoError(t, err)
	assert.Equal(t, "99926000", tok)

	refreshed, err := s.InstrumentRefreshedAt(ctx, models.Nifty)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), refreshed, time.Minute)
}

func TestUpsertReplacesToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inst := models.Instrument{Token: "111", Symbol: string(models.Nifty), Exchange: models.NSE}
	require.NoError(t, s.UpsertInstrument(ctx, inst))

	inst.Token = "222"
	require.NoError(t, s.UpsertInstrument(ctx, inst))

	tok, err := s.Token(ctx, models.Nifty)
	require.NoError(t, err)
	assert.Equal(t, "222", tok)
}

func TestTokenUnknownSymbol(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Token(context.Background(), models.BankNifty)
	assert.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestStoreSatisfiesResolver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for sym, token := range map[models.Symbol]string{
		models.Nifty:     "99926000",
		models.BankNifty: "99926009",
	} {
		inst := models.Instrument{Token: token, Symbol: string(sym), Exchange: models.NSE, Name: string(sym)}
		require.NoError(t, s.UpsertInstrument(ctx, inst))
	}

	tok, err := s.Token(ctx, models.BankNifty)
	require.NoError(t, err)
	assert.Equal(t, "99926009", tok)
}
