// Package spreads builds and ranks vertical debit spreads from an option
// chain snapshot.
package spreads

import (
	"math"
	"sort"

	"angel-trader/internal/models"
)

// band comparison tolerance for float artifacts at the inclusive edges.
const eps = 1e-9

// rankMidpoint is the delta-difference value the final tie-break prefers.
const rankMidpoint = 0.20

// Params holds per-run analysis parameters. Lot size and strike interval
// are per-symbol contract facts; the rest are tunables.
type Params struct {
	LotSize        int
	StrikeInterval float64
	MinDeltaDiff   float64
	MaxDeltaDiff   float64
	StrikeWindow   int
	Limit          int
}

func (p *Params) applyDefaults() {
	if p.MinDeltaDiff == 0 && p.MaxDeltaDiff == 0 {
		p.MinDeltaDiff, p.MaxDeltaDiff = 0.15, 0.26
	}
	if p.StrikeWindow <= 0 {
		p.StrikeWindow = 6
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
}

// ATMStrike returns the strike-interval multiple nearest to price.
// Exact half-interval midpoints round away from zero, i.e. upward for the
// positive prices seen here.
func ATMStrike(price, interval float64) float64 {
	return math.Round(price/interval) * interval
}

// Analyze builds ranked spread recommendations from one immutable chain
// snapshot. An empty result means no pair satisfied the acceptance band;
// it is a valid outcome, not an error.
func Analyze(contracts []models.OptionContract, spot float64, p Params) []models.SpreadRecommendation {
	p.applyDefaults()
	if len(contracts) == 0 || spot <= 0 || p.StrikeInterval <= 0 || p.LotSize <= 0 {
		return nil
	}

	atm := ATMStrike(spot, p.StrikeInterval)
	lo := atm - float64(p.StrikeWindow)*p.StrikeInterval
	hi := atm + float64(p.StrikeWindow)*p.StrikeInterval

	var calls, puts []models.OptionContract
	for _, c := range contracts {
		if c.Strike < lo-eps || c.Strike > hi+eps {
			continue
		}
		switch c.Type {
		case models.Call:
			calls = append(calls, c)
		case models.Put:
			puts = append(puts, c)
		}
	}

	recs := buildSpreads(calls, atm, models.BullCall, p)
	recs = append(recs, buildSpreads(puts, atm, models.BearPut, p)...)

	rank(recs)

	if len(recs) > p.Limit {
		recs = recs[:p.Limit]
	}
	return recs
}

// buildSpreads pairs the ATM contract (buy leg) with every qualifying OTM
// contract of the same type. For bull call spreads the sell strike is
// above the ATM; for bear put spreads it is below.
func buildSpreads(contracts []models.OptionContract, atm float64, kind models.SpreadType, p Params) []models.SpreadRecommendation {
	buy, ok := atmContract(contracts, atm)
	if !ok {
		return nil
	}

	var recs []models.SpreadRecommendation
	for _, sell := range contracts {
		if kind == models.BullCall && sell.Strike <= buy.Strike+eps {
			continue
		}
		if kind == models.BearPut && sell.Strike >= buy.Strike-eps {
			continue
		}

		// The ATM leg always carries the larger delta magnitude; the
		// difference is computed as a positive magnitude regardless of
		// leg polarity.
		deltaDiff := math.Abs(buy.Delta) - math.Abs(sell.Delta)
		if deltaDiff < p.MinDeltaDiff-eps || deltaDiff > p.MaxDeltaDiff+eps {
			continue
		}

		// Debit spread: buying the nearer strike must cost more than the
		// further one brings in. A credit here signals bad data.
		netPremium := buy.Premium - sell.Premium
		if netPremium <= 0 {
			continue
		}

		lot := float64(p.LotSize)
		strikeWidth := math.Abs(sell.Strike - buy.Strike)
		maxProfit := (strikeWidth - netPremium) * lot
		maxLoss := netPremium * lot
		if maxLoss <= 0 {
			continue
		}

		breakeven := buy.Strike + netPremium
		if kind == models.BearPut {
			breakeven = buy.Strike - netPremium
		}

		per100Up := (buy.Delta - sell.Delta) * 100 * lot

		recs = append(recs, models.SpreadRecommendation{
			Type:   kind,
			Symbol: buy.Symbol,
			Expiry: buy.Expiry,
			Buy: models.SpreadLeg{
				Strike:  buy.Strike,
				Premium: buy.Premium,
				Delta:   buy.Delta,
			},
			Sell: models.SpreadLeg{
				Strike:  sell.Strike,
				Premium: sell.Premium,
				Delta:   sell.Delta,
			},
			DeltaDifference:   deltaDiff,
			NetPremium:        netPremium,
			MaxProfit:         maxProfit,
			MaxLoss:           maxLoss,
			Breakeven:         breakeven,
			ProfitPer100Up:    per100Up,
			ProfitPer100Down:  -per100Up,
			RiskRewardRatio:   maxProfit / maxLoss,
			ProbabilityProfit: profitProbability(deltaDiff, p.MinDeltaDiff, p.MaxDeltaDiff),
			TotalVolume:       buy.Volume + sell.Volume,
		})
	}
	return recs
}

// atmContract returns the contract at the ATM strike. Duplicate rows at
// the same strike resolve to the first in strike order.
func atmContract(contracts []models.OptionContract, atm float64) (models.OptionContract, bool) {
	for _, c := range contracts {
		if math.Abs(c.Strike-atm) < eps {
			return c, true
		}
	}
	return models.OptionContract{}, false
}

// rank orders recommendations by the composite key: risk-reward ratio
// descending, combined leg volume descending, then delta difference
// nearest the band midpoint. The sort is stable, so equal keys keep
// construction order.
func rank(recs []models.SpreadRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].RiskRewardRatio != recs[j].RiskRewardRatio {
			return recs[i].RiskRewardRatio > recs[j].RiskRewardRatio
		}
		if recs[i].TotalVolume != recs[j].TotalVolume {
			return recs[i].TotalVolume > recs[j].TotalVolume
		}
		di := math.Abs(recs[i].DeltaDifference - rankMidpoint)
		dj := math.Abs(recs[j].DeltaDifference - rankMidpoint)
		return di < dj
	})
}

// profitProbability is a delta-derived placeholder, not a priced
// probability: pairs nearer the midpoint of the acceptance band map to
// higher estimates. Kept isolated so a calibrated model can replace it
// without touching ranking or P&L.
func profitProbability(deltaDiff, minDiff, maxDiff float64) float64 {
	mid := (minDiff + maxDiff) / 2
	half := (maxDiff - minDiff) / 2
	if half <= 0 {
		return 50
	}
	closeness := 1 - math.Abs(deltaDiff-mid)/half
	if closeness < 0 {
		closeness = 0
	}
	return 35 + 40*closeness
}
