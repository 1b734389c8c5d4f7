package indicators

import "zerodte-api/pkg/market"

// contractMultiplier is the number of underlying units per option contract.
const contractMultiplier = 100.0

// GammaDeltaExposure aggregates dealer gamma (GEX) and delta (DEX) exposure
// across chain.
//
// Sign convention: call gamma counts positive and put gamma negative. Delta is
// summed as reported, since providers already sign put delta negative.
// Records without greeks, or missing gamma or delta, contribute nothing.
func GammaDeltaExposure(chain market.OptionChain, spot float64) (gex, dex float64) {
	for _, opt := range chain {
		if opt.Greeks == nil || opt.Greeks.Gamma == nil || opt.Greeks.Delta == nil {
			continue
		}
		notional := float64(opt.OpenInterest) * contractMultiplier * spot

		gammaExposure := *opt.Greeks.Gamma * notional
		if opt.OptionType == market.OptionPut {
			gammaExposure = -gammaExposure
		}
		gex += gammaExposure
		dex += *opt.Greeks.Delta * notional
	}
	return gex, dex
}
