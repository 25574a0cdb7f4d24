package sim

import "math"

// maxContractsMargin is the largest position the account margin would allow.
func maxContractsMargin(balance, contractMargin float64) float64 {
	if contractMargin <= 0 {
		return 0
	}
	return math.Floor(balance / contractMargin)
}

// maxContractsRisk caps the position so a full stop-out loses at most
// riskPct of the balance.
func maxContractsRisk(balance, riskPct, slTicks, tickValue float64) float64 {
	perContract := slTicks * tickValue
	if perContract <= 0 {
		return 0
	}
	return math.Floor(balance * riskPct / perContract)
}
