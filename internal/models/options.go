package models

// OptionType represents the option side of a contract.
type OptionType string

const (
	Call OptionType = "CE"
	Put  OptionType = "PE"
)

// SpreadType represents the kind of vertical spread.
type SpreadType string

const (
	BullCall SpreadType = "Bull Call Spread"
	BearPut  SpreadType = "Bear Put Spread"
)

// OptionContract is an immutable snapshot of one option instrument.
// Identity is (Symbol, Expiry, Strike, Type); everything else is market
// state at fetch time.
type OptionContract struct {
	Symbol            Symbol     `json:"symbol"`
	Expiry            string     `json:"expiry"`
	Strike            float64    `json:"strike"`
	Type              OptionType `json:"option_type"`
	Premium           float64    `json:"premium"`
	Delta             float64    `json:"delta"`
	Gamma             float64    `json:"gamma"`
	Theta             float64    `json:"theta"`
	Vega              float64    `json:"vega"`
	ImpliedVolatility float64    `json:"implied_volatility"`
	Volume            int64      `json:"volume"`
}

// SpreadLeg holds the per-leg fields of a recommendation.
type SpreadLeg struct {
	Strike  float64 `json:"strike"`
	Premium float64 `json:"premium"`
	Delta   float64 `json:"delta"`
}

// SpreadRecommendation is a ranked, risk-quantified debit spread candidate.
// Values are fixed at construction; a fresh analysis run produces fresh
// recommendations.
type SpreadRecommendation struct {
	Type   SpreadType `json:"type"`
	Symbol Symbol     `json:"symbol"`
	Expiry string     `json:"expiry"`

	Buy  SpreadLeg `json:"buy"`
	Sell SpreadLeg `json:"sell"`

	DeltaDifference float64 `json:"delta_difference"`
	NetPremium      float64 `json:"net_premium"`
	MaxProfit       float64 `json:"max_profit"`
	MaxLoss         float64 `json:"max_loss"`
	Breakeven       float64 `json:"breakeven"`

	ProfitPer100Up   float64 `json:"profit_per_100_up"`
	ProfitPer100Down float64 `json:"profit_per_100_down"`

	RiskRewardRatio   float64 `json:"risk_reward_ratio"`
	ProbabilityProfit float64 `json:"probability_profit"`

	TotalVolume int64 `json:"total_volume"`
}
