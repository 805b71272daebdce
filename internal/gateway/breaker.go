package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"angel-trader/internal/models"
	"angel-trader/internal/provider"
)

// BreakerGateway wraps a MarketData implementation with a circuit breaker
// so a flapping upstream fails fast instead of burning the rate budget.
type BreakerGateway struct {
	inner   MarketData
	breaker *gobreaker.CircuitBreaker
}

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// DefaultBreakerSettings returns conservative defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// NewBreakerGateway wraps inner with a circuit breaker.
func NewBreakerGateway(inner MarketData, settings BreakerSettings, logger zerolog.Logger) *BreakerGateway {
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}

	return &BreakerGateway{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execBreaker is a generic helper for breaker-wrapped calls.
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

type chainResult struct {
	records []provider.GreekRecord
	expiry  string
}

// OptionChain wraps the underlying fetch with the circuit breaker.
func (b *BreakerGateway) OptionChain(ctx context.Context, symbol models.Symbol) ([]provider.GreekRecord, string, error) {
	res, err := execBreaker(b.breaker, func() (chainResult, error) {
		records, expiry, err := b.inner.OptionChain(ctx, symbol)
		return chainResult{records: records, expiry: expiry}, err
	})
	if err != nil {
		return nil, "", err
	}
	return res.records, res.expiry, nil
}

// SpotPrice wraps the underlying fetch with the circuit breaker.
func (b *BreakerGateway) SpotPrice(ctx context.Context, symbol models.Symbol) (float64, error) {
	return execBreaker(b.breaker, func() (float64, error) { return b.inner.SpotPrice(ctx, symbol) })
}

// OHLC wraps the underlying fetch with the circuit breaker.
func (b *BreakerGateway) OHLC(ctx context.Context, symbol models.Symbol, interval string, lookback time.Duration) ([]models.Candle, error) {
	return execBreaker(b.breaker, func() ([]models.Candle, error) {
		return b.inner.OHLC(ctx, symbol, interval, lookback)
	})
}

// Movers wraps the underlying fetch with the circuit breaker.
func (b *BreakerGateway) Movers(ctx context.Context, kind models.MoverKind, scope models.ExpiryScope) ([]models.Mover, error) {
	return execBreaker(b.breaker, func() ([]models.Mover, error) { return b.inner.Movers(ctx, kind, scope) })
}

// Ensure BreakerGateway implements MarketData
var _ MarketData = (*BreakerGateway)(nil)
