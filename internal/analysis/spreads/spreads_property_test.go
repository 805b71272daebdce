package spreads

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"angel-trader/internal/models"
)

// chainInput is a generated analysis scenario: a spot price plus a
// synthetic call chain around it.
type chainInput struct {
	Spot     float64
	Premiums []float64
	Deltas   []float64
	Volumes  []int64
}

func genChainInput() gopter.Gen {
	return gen.Struct(reflect.TypeOf(chainInput{}), map[string]gopter.Gen{
		"Spot":     gen.Float64Range(20000, 28000),
		"Premiums": gen.SliceOfN(13, gen.Float64Range(1, 500)),
		"Deltas":   gen.SliceOfN(13, gen.Float64Range(0.01, 0.99)),
		"Volumes":  gen.SliceOfN(13, gen.Int64Range(0, 100000)),
	})
}

// buildChain lays the generated values onto the 13 strikes around the ATM.
func buildChain(in chainInput, p Params) []models.OptionContract {
	atm := ATMStrike(in.Spot, p.StrikeInterval)
	contracts := make([]models.OptionContract, 0, len(in.Premiums))
	for i := range in.Premiums {
		offset := float64(i-6) * p.StrikeInterval
		contracts = append(contracts, models.OptionContract{
			Symbol:  models.Nifty,
			Expiry:  "25SEP2026",
			Strike:  atm + offset,
			Type:    models.Call,
			Premium: in.Premiums[i],
			Delta:   in.Deltas[i],
			Volume:  in.Volumes[i],
		})
	}
	return contracts
}

// Every accepted pair has a delta difference inside the configured band,
// a positive debit, and a max loss of exactly debit times lot size.
func TestProperty_AcceptedSpreadsRespectBandAndDebit(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	p := Params{LotSize: 75, StrikeInterval: 50, Limit: 1000}

	properties.Property("band, debit, and max loss invariants", prop.ForAll(
		func(in chainInput) bool {
			contracts := buildChain(in, p)
			recs := Analyze(contracts, in.Spot, p)
			for _, r := range recs {
				dd := math.Abs(r.Buy.Delta) - math.Abs(r.Sell.Delta)
				if dd < 0.15-1e-9 || dd > 0.26+1e-9 {
					return false
				}
				if r.NetPremium <= 0 {
					return false
				}
				if math.Abs(r.MaxLoss-r.NetPremium*75) > 1e-6 {
					return false
				}
				width := math.Abs(r.Sell.Strike - r.Buy.Strike)
				if math.Abs(r.MaxProfit-(width-r.NetPremium)*75) > 1e-6 {
					return false
				}
			}
			return true
		},
		genChainInput(),
	))

	properties.TestingRun(t)
}

// The ranking is a total order: each recommendation's composite key is no
// worse than the next one's.
func TestProperty_RankingIsMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	p := Params{LotSize: 75, StrikeInterval: 50, Limit: 1000}

	properties.Property("ranked output is ordered by the composite key", prop.ForAll(
		func(in chainInput) bool {
			recs := Analyze(buildChain(in, p), in.Spot, p)
			for i := 1; i < len(recs); i++ {
				a, b := recs[i-1], recs[i]
				if a.RiskRewardRatio > b.RiskRewardRatio {
					continue
				}
				if a.RiskRewardRatio < b.RiskRewardRatio {
					return false
				}
				if a.TotalVolume > b.TotalVolume {
					continue
				}
				if a.TotalVolume < b.TotalVolume {
					return false
				}
				da := math.Abs(a.DeltaDifference - 0.20)
				db := math.Abs(b.DeltaDifference - 0.20)
				if da > db {
					return false
				}
			}
			return true
		},
		genChainInput(),
	))

	properties.TestingRun(t)
}

// Analysis over the same snapshot is deterministic: two runs produce
// identical output.
func TestProperty_AnalysisIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	p := Params{LotSize: 75, StrikeInterval: 50}

	properties.Property("repeated runs agree", prop.ForAll(
		func(in chainInput) bool {
			contracts := buildChain(in, p)
			first := Analyze(contracts, in.Spot, p)
			second := Analyze(contracts, in.Spot, p)
			return reflect.DeepEqual(first, second)
		},
		genChainInput(),
	))

	properties.TestingRun(t)
}

// The result never exceeds the configured limit.
func TestProperty_LimitIsRespected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("output length is at most the limit", prop.ForAll(
		func(in chainInput, limit int) bool {
			p := Params{LotSize: 75, StrikeInterval: 50, Limit: limit}
			recs := Analyze(buildChain(in, p), in.Spot, p)
			return len(recs) <= limit
		},
		genChainInput(),
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
