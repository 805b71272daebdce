package spreads

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"angel-trader/internal/models"
)

func contract(strike float64, typ models.OptionType, premium, delta float64, volume int64) models.OptionContract {
	return models.OptionContract{
		Symbol:  models.Nifty,
		Expiry:  "25SEP2026",
		Strike:  strike,
		Type:    typ,
		Premium: premium,
		Delta:   delta,
		Volume:  volume,
	}
}

func niftyParams() Params {
	return Params{LotSize: 75, StrikeInterval: 50}
}

func TestATMStrike(t *testing.T) {
	tests := []struct {
		price    float64
		interval float64
		want     float64
	}{
		{24012, 50, 24000},
		{24026, 50, 24050},
		{24025, 50, 24050}, // exact midpoint rounds up
		{23974, 50, 23950},
		{51230, 100, 51200},
		{51250, 100, 51300},
	}
	for _, tt := range tests {
		got := ATMStrike(tt.price, tt.interval)
		assert.Equal(t, tt.want, got, "price %.0f interval %.0f", tt.price, tt.interval)
	}
}

func TestAnalyzeBullCallSpread(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24000, models.Call, 180, 0.52, 1000),
		contract(24200, models.Call, 95, 0.30, 800),
	}

	recs := Analyze(contracts, 24010, niftyParams())
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, models.BullCall, r.Type)
	assert.Equal(t, 24000.0, r.Buy.Strike)
	assert.Equal(t, 24200.0, r.Sell.Strike)
	assert.InDelta(t, 0.22, r.DeltaDifference, 1e-9)
	assert.InDelta(t, 85, r.NetPremium, 1e-9)
	assert.InDelta(t, (200-85)*75, r.MaxProfit, 1e-9)
	assert.InDelta(t, 85*75, r.MaxLoss, 1e-9)
	assert.InDelta(t, 24085, r.Breakeven, 1e-9)
	assert.InDelta(t, 0.22*100*75, r.ProfitPer100Up, 1e-9)
	assert.InDelta(t, -0.22*100*75, r.ProfitPer100Down, 1e-9)
	assert.InDelta(t, (200.0-85)/85, r.RiskRewardRatio, 1e-9)
	assert.Equal(t, int64(1800), r.TotalVolume)
}

func TestAnalyzeBearPutSpread(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24000, models.Put, 170, -0.48, 900),
		contract(23800, models.Put, 90, -0.28, 700),
	}

	recs := Analyze(contracts, 23990, niftyParams())
	require.Len(t, recs, 1)

	r := recs[0]
	assert.Equal(t, models.BearPut, r.Type)
	assert.Equal(t, 24000.0, r.Buy.Strike)
	assert.Equal(t, 23800.0, r.Sell.Strike)
	assert.InDelta(t, 0.20, r.DeltaDifference, 1e-9)
	assert.InDelta(t, 80, r.NetPremium, 1e-9)
	assert.InDelta(t, 23920, r.Breakeven, 1e-9)
	// Raw put deltas make the up-move P&L negative and the down-move
	// positive.
	assert.True(t, r.ProfitPer100Up < 0)
	assert.True(t, r.ProfitPer100Down > 0)
	assert.InDelta(t, -r.ProfitPer100Up, r.ProfitPer100Down, 1e-9)
}

func TestAnalyzeRejectsOutsideDeltaBand(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24000, models.Call, 180, 0.52, 1000),
		contract(24050, models.Call, 160, 0.40, 800), // diff 0.12: too narrow
		contract(24300, models.Call, 40, 0.22, 500),  // diff 0.30: too wide
	}

	recs := Analyze(contracts, 24000, niftyParams())
	assert.Empty(t, recs)
}

func TestAnalyzeAcceptsBandEdges(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24000, models.Call, 180, 0.52, 1000),
		contract(24100, models.Call, 130, 0.37, 800), // diff exactly 0.15
		contract(24200, models.Call, 80, 0.26, 600),  // diff exactly 0.26
	}

	recs := Analyze(contracts, 24000, niftyParams())
	assert.Len(t, recs, 2)
}

func TestAnalyzeRejectsCreditPairs(t *testing.T) {
	// Sell premium above buy premium cannot form a debit spread.
	contracts := []models.OptionContract{
		contract(24000, models.Call, 80, 0.52, 1000),
		contract(24200, models.Call, 95, 0.30, 800),
	}

	recs := Analyze(contracts, 24000, niftyParams())
	assert.Empty(t, recs)
}

func TestAnalyzeNoATMContract(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24200, models.Call, 95, 0.30, 800),
		contract(24300, models.Call, 60, 0.25, 500),
	}

	recs := Analyze(contracts, 24000, niftyParams())
	assert.Empty(t, recs)
}

func TestAnalyzeWindowExcludesFarStrikes(t *testing.T) {
	// 24400 is 8 strikes away from the 24000 ATM with a 50 interval.
	contracts := []models.OptionContract{
		contract(24000, models.Call, 180, 0.52, 1000),
		contract(24400, models.Call, 30, 0.30, 800),
	}

	recs := Analyze(contracts, 24000, niftyParams())
	assert.Empty(t, recs)
}

func TestAnalyzeRankingOrder(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24000, models.Call, 180, 0.52, 1000),
		contract(24100, models.Call, 120, 0.36, 500), // debit 60, width 100, rr 0.667
		contract(24200, models.Call, 95, 0.30, 800),  // debit 85, width 200, rr 1.353
	}

	recs := Analyze(contracts, 24000, niftyParams())
	require.Len(t, recs, 2)
	assert.True(t, recs[0].RiskRewardRatio >= recs[1].RiskRewardRatio)
	assert.Equal(t, 24200.0, recs[0].Sell.Strike)
}

func TestAnalyzeLimit(t *testing.T) {
	contracts := []models.OptionContract{
		contract(24000, models.Call, 180, 0.52, 1000),
		contract(24100, models.Call, 125, 0.36, 500),
		contract(24150, models.Call, 110, 0.34, 400),
		contract(24200, models.Call, 95, 0.30, 800),
	}

	p := niftyParams()
	p.Limit = 2
	recs := Analyze(contracts, 24000, p)
	assert.Len(t, recs, 2)
}

func TestAnalyzeEmptyChain(t *testing.T) {
	assert.Nil(t, Analyze(nil, 24000, niftyParams()))
}

func TestProfitProbabilityBounds(t *testing.T) {
	for dd := 0.15; dd <= 0.26; dd += 0.01 {
		p := profitProbability(dd, 0.15, 0.26)
		assert.GreaterOrEqual(t, p, 35.0)
		assert.LessOrEqual(t, p, 75.0)
	}
	mid := profitProbability(0.205, 0.15, 0.26)
	edge := profitProbability(0.26, 0.15, 0.26)
	assert.True(t, mid > edge)
	assert.True(t, math.Abs(mid-75) < 1e-9)
}
