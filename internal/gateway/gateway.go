// Package gateway provides typed, retrying access to the market-data feed.
package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/models"
	"angel-trader/internal/provider"
	"angel-trader/internal/session"
	"angel-trader/pkg/utils"
)

// MarketData is the inbound boundary the facade consumes. Implementations
// guarantee a valid session before every upstream call.
type MarketData interface {
	OptionChain(ctx context.Context, symbol models.Symbol) ([]provider.GreekRecord, string, error)
	SpotPrice(ctx context.Context, symbol models.Symbol) (float64, error)
	OHLC(ctx context.Context, symbol models.Symbol, interval string, lookback time.Duration) ([]models.Candle, error)
	Movers(ctx context.Context, kind models.MoverKind, scope models.ExpiryScope) ([]models.Mover, error)
}

// TokenResolver maps an index symbol to its instrument token.
type TokenResolver interface {
	Token(ctx context.Context, symbol models.Symbol) (string, error)
}

// StaticResolver resolves tokens from a fixed map, e.g. the config file.
type StaticResolver map[models.Symbol]string

// Token implements TokenResolver.
func (r StaticResolver) Token(_ context.Context, symbol models.Symbol) (string, error) {
	tok, ok := r[symbol]
	if !ok || tok == "" {
		return "", apierrors.Wrapf(apierrors.ErrValidation, "no instrument token for %s", symbol)
	}
	return tok, nil
}

// Config holds gateway retry behavior.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Gateway fetches market data through the provider, keeping the session
// valid and absorbing transient upstream failures.
type Gateway struct {
	provider provider.Provider
	session  *session.Manager
	tokens   TokenResolver
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a gateway.
func New(p provider.Provider, sm *session.Manager, tokens TokenResolver, cfg Config, logger zerolog.Logger) *Gateway {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 8 * time.Second
	}
	return &Gateway{
		provider: p,
		session:  sm,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// OptionChain fetches the raw option rows for the symbol's nearest expiry.
// The expiry actually used is returned alongside the rows.
func (g *Gateway) OptionChain(ctx context.Context, symbol models.Symbol) ([]provider.GreekRecord, string, error) {
	if !symbol.Valid() {
		return nil, "", apierrors.Wrapf(apierrors.ErrValidation, "unsupported symbol %q", symbol)
	}

	expiry := NearestExpiry(symbol, g.now())
	records, err := fetch(ctx, g, "option_chain", func(c context.Context) ([]provider.GreekRecord, error) {
		return g.provider.OptionGreeks(c, string(symbol), expiry)
	})
	if err != nil {
		return nil, "", err
	}
	return records, expiry, nil
}

// SpotPrice fetches the index LTP.
func (g *Gateway) SpotPrice(ctx context.Context, symbol models.Symbol) (float64, error) {
	if !symbol.Valid() {
		return 0, apierrors.Wrapf(apierrors.ErrValidation, "unsupported symbol %q", symbol)
	}

	token, err := g.tokens.Token(ctx, symbol)
	if err != nil {
		return 0, err
	}

	return fetch(ctx, g, "spot_price", func(c context.Context) (float64, error) {
		return g.provider.LTP(c, models.NSE, string(symbol), token)
	})
}

// candleIntervals are the interval names the historical endpoint accepts.
var candleIntervals = map[string]bool{
	"ONE_MINUTE":     true,
	"THREE_MINUTE":   true,
	"FIVE_MINUTE":    true,
	"TEN_MINUTE":     true,
	"FIFTEEN_MINUTE": true,
	"THIRTY_MINUTE":  true,
	"ONE_HOUR":       true,
	"ONE_DAY":        true,
}

// OHLC fetches historical candles for the symbol over the lookback window.
func (g *Gateway) OHLC(ctx context.Context, symbol models.Symbol, interval string, lookback time.Duration) ([]models.Candle, error) {
	if !symbol.Valid() {
		return nil, apierrors.Wrapf(apierrors.ErrValidation, "unsupported symbol %q", symbol)
	}
	if !candleIntervals[interval] {
		return nil, apierrors.Wrapf(apierrors.ErrValidation, "unknown candle interval %q", interval)
	}
	if lookback <= 0 {
		lookback = 7 * 24 * time.Hour
	}

	token, err := g.tokens.Token(ctx, symbol)
	if err != nil {
		return nil, err
	}

	to := g.now()
	req := provider.CandleRequest{
		Exchange:    models.NSE,
		SymbolToken: token,
		Interval:    interval,
		From:        to.Add(-lookback),
		To:          to,
	}

	return fetch(ctx, g, "ohlc", func(c context.Context) ([]models.Candle, error) {
		return g.provider.CandleData(c, req)
	})
}

// Movers fetches derivative gainers/losers.
func (g *Gateway) Movers(ctx context.Context, kind models.MoverKind, scope models.ExpiryScope) ([]models.Mover, error) {
	if !kind.Valid() {
		return nil, apierrors.Wrapf(apierrors.ErrValidation, "invalid mover kind %q", kind)
	}
	if !scope.Valid() {
		return nil, apierrors.Wrapf(apierrors.ErrValidation, "invalid expiry scope %q", scope)
	}

	return fetch(ctx, g, "movers", func(c context.Context) ([]models.Mover, error) {
		return g.provider.GainersLosers(c, kind, scope)
	})
}

// fetch runs one upstream call under the gateway's retry policy: the
// session is validated first, an auth-class failure triggers exactly one
// forced re-login and retry, and rate-limit/transient failures are retried
// with exponential backoff until attempts run out.
func fetch[T any](ctx context.Context, g *Gateway, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if _, err := g.session.Token(ctx); err != nil {
		return zero, err
	}

	reauthed := false
	cfg := utils.RetryConfig{
		MaxAttempts:   g.cfg.MaxRetries,
		InitialDelay:  g.cfg.InitialBackoff,
		MaxDelay:      g.cfg.MaxBackoff,
		BackoffFactor: 2.0,
		Retryable: func(err error) bool {
			return apierrors.Is(err, apierrors.ErrRateLimited) || apierrors.Is(err, apierrors.ErrTransient)
		},
	}

	result, err := utils.RetryWithResult(ctx, cfg, func() (T, error) {
		res, err := fn(ctx)
		if err != nil && apierrors.Is(err, apierrors.ErrAuthentication) && !reauthed {
			reauthed = true
			g.logger.Warn().Str("operation", op).Msg("Auth failure from upstream, forcing re-login")
			if _, rerr := g.session.ForceReauth(ctx); rerr != nil {
				return res, rerr
			}
			return fn(ctx)
		}
		return res, err
	})
	if err != nil {
		g.logger.Debug().Err(err).Str("operation", op).Msg("Fetch failed")
		return zero, err
	}
	return result, nil
}

// Ensure Gateway implements MarketData
var _ MarketData = (*Gateway)(nil)
