// Package chain converts raw feed rows into canonical option contracts.
package chain

import (
	"math"
	"sort"
	"strconv"

	apierrors "angel-trader/internal/errors"
	"angel-trader/internal/models"
	"angel-trader/internal/provider"
)

// Normalize coerces raw greek rows into OptionContract values ordered by
// ascending strike. Rows missing a usable strike, type, delta, or premium
// are skipped and counted; the error is non-nil only when nothing usable
// remains.
func Normalize(records []provider.GreekRecord, symbol models.Symbol, expiry string) ([]models.OptionContract, int, error) {
	contracts := make([]models.OptionContract, 0, len(records))
	dropped := 0

	for _, rec := range records {
		c, ok := coerce(rec, symbol, expiry)
		if !ok {
			dropped++
			continue
		}
		contracts = append(contracts, c)
	}

	if len(contracts) == 0 {
		return nil, dropped, apierrors.Wrapf(apierrors.ErrDataIntegrity,
			"no usable rows in %s chain (%d dropped)", symbol, dropped)
	}

	sort.SliceStable(contracts, func(i, j int) bool {
		if contracts[i].Strike != contracts[j].Strike {
			return contracts[i].Strike < contracts[j].Strike
		}
		return contracts[i].Type < contracts[j].Type
	})

	return contracts, dropped, nil
}

// coerce validates and converts one raw row. Delta, premium, strike, and
// option type are load-bearing downstream; the remaining greeks are
// best-effort.
func coerce(rec provider.GreekRecord, symbol models.Symbol, expiry string) (models.OptionContract, bool) {
	var zero models.OptionContract

	strike, err := strconv.ParseFloat(rec.StrikePrice, 64)
	if err != nil || strike <= 0 {
		return zero, false
	}

	var optType models.OptionType
	switch rec.OptionType {
	case "CE":
		optType = models.Call
	case "PE":
		optType = models.Put
	default:
		return zero, false
	}

	delta, err := strconv.ParseFloat(rec.Delta, 64)
	if err != nil || math.Abs(delta) > 1 {
		return zero, false
	}

	premium, err := strconv.ParseFloat(rec.LTP, 64)
	if err != nil || premium < 0 {
		return zero, false
	}

	iv := parseOrZero(rec.ImpliedVolatility)
	if iv < 0 {
		iv = 0
	}

	volume := int64(parseOrZero(rec.TradeVolume))
	if volume < 0 {
		volume = 0
	}

	return models.OptionContract{
		Symbol:            symbol,
		Expiry:            expiry,
		Strike:            strike,
		Type:              optType,
		Premium:           premium,
		Delta:             delta,
		Gamma:             parseOrZero(rec.Gamma),
		Theta:             parseOrZero(rec.Theta),
		Vega:              parseOrZero(rec.Vega),
		ImpliedVolatility: iv,
		Volume:            volume,
	}, true
}

func parseOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
