// Package advisor ties the market-data gateway, the chain normalizer, and
// the spread analyzer into one recommendation facade.
package advisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"angel-trader/internal/analysis/spreads"
	"angel-trader/internal/chain"
	"angel-trader/internal/config"
	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/gateway"
	"angel-trader/internal/logging"
	"angel-trader/internal/models"
)

// Options override per-run analysis tunables. Zero values fall back to
// the loaded configuration.
type Options struct {
	Limit        int
	StrikeWindow int
	MinDeltaDiff float64
	MaxDeltaDiff float64
}

// Report is the result of one recommendation run. All figures come from
// a single chain snapshot; nothing is re-fetched mid-analysis.
type Report struct {
	Symbol          models.Symbol                 `json:"symbol"`
	Expiry          string                        `json:"expiry"`
	Spot            float64                       `json:"spot"`
	ATMStrike       float64                       `json:"atm_strike"`
	DroppedRows     int                           `json:"dropped_rows"`
	GeneratedAt     time.Time                     `json:"generated_at"`
	Recommendations []models.SpreadRecommendation `json:"recommendations"`
}

// Advisor produces ranked spread recommendations for an index.
type Advisor struct {
	market gateway.MarketData
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time
}

// New creates an advisor on top of a market-data source.
func New(market gateway.MarketData, cfg *config.Config, logger zerolog.Logger) *Advisor {
	return &Advisor{
		market: market,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Recommendations fetches one chain snapshot plus the spot price and runs
// the spread analysis over it. An empty recommendation list is a valid
// outcome when no pair clears the delta band.
func (a *Advisor) Recommendations(ctx context.Context, symbol models.Symbol, opts Options) (*Report, error) {
	if !symbol.Valid() {
		return nil, apierrors.Wrapf(apierrors.ErrValidation, "unsupported symbol %q", symbol)
	}
	sc, ok := a.cfg.Symbol(symbol)
	if !ok {
		return nil, apierrors.Wrapf(apierrors.ErrValidation, "no contract settings for %s", symbol)
	}

	logger := logging.WithSymbol(a.logger, string(symbol))

	contracts, expiry, dropped, err := a.snapshot(ctx, symbol)
	if err != nil {
		return nil, apierrors.Wrapf(err, "%s option chain", symbol)
	}

	spot, err := a.market.SpotPrice(ctx, symbol)
	if err != nil {
		return nil, apierrors.Wrapf(err, "%s spot price", symbol)
	}
	if spot <= 0 {
		return nil, apierrors.Wrapf(apierrors.ErrDataIntegrity, "non-positive spot %f for %s", spot, symbol)
	}

	params := a.params(sc, opts)
	recs := spreads.Analyze(contracts, spot, params)

	report := &Report{
		Symbol:          symbol,
		Expiry:          expiry,
		Spot:            spot,
		ATMStrike:       spreads.ATMStrike(spot, sc.StrikeInterval),
		DroppedRows:     dropped,
		GeneratedAt:     a.now(),
		Recommendations: recs,
	}

	logger.Info().
		Str("expiry", expiry).
		Float64("spot", spot).
		Int("recommendations", len(recs)).
		Int("dropped_rows", dropped).
		Msg("Analysis run complete")
	return report, nil
}

// Chain fetches and normalizes the option chain without running analysis.
func (a *Advisor) Chain(ctx context.Context, symbol models.Symbol) ([]models.OptionContract, string, error) {
	if !symbol.Valid() {
		return nil, "", apierrors.Wrapf(apierrors.ErrValidation, "unsupported symbol %q", symbol)
	}
	contracts, expiry, dropped, err := a.snapshot(ctx, symbol)
	if err != nil {
		return nil, "", apierrors.Wrapf(err, "%s option chain", symbol)
	}
	if dropped > 0 {
		a.logger.Debug().Str("symbol", string(symbol)).Int("dropped", dropped).Msg("Dropped malformed chain rows")
	}
	return contracts, expiry, nil
}

func (a *Advisor) snapshot(ctx context.Context, symbol models.Symbol) ([]models.OptionContract, string, int, error) {
	records, expiry, err := a.market.OptionChain(ctx, symbol)
	if err != nil {
		return nil, "", 0, err
	}
	contracts, dropped, err := chain.Normalize(records, symbol, expiry)
	if err != nil {
		return nil, "", dropped, err
	}
	return contracts, expiry, dropped, nil
}

func (a *Advisor) params(sc config.SymbolConfig, opts Options) spreads.Params {
	p := spreads.Params{
		LotSize:        sc.LotSize,
		StrikeInterval: sc.StrikeInterval,
		MinDeltaDiff:   a.cfg.Analysis.MinDeltaDiff,
		MaxDeltaDiff:   a.cfg.Analysis.MaxDeltaDiff,
		StrikeWindow:   a.cfg.Analysis.StrikeWindow,
		Limit:          a.cfg.Analysis.TopN,
	}
	if opts.Limit > 0 {
		p.Limit = opts.Limit
	}
	if opts.StrikeWindow > 0 {
		p.StrikeWindow = opts.StrikeWindow
	}
	if opts.MinDeltaDiff > 0 {
		p.MinDeltaDiff = opts.MinDeltaDiff
	}
	if opts.MaxDeltaDiff > 0 {
		p.MaxDeltaDiff = opts.MaxDeltaDiff
	}
	return p
}
