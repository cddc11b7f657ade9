package shared

import "math"

// Balances and amounts are stored in integer minor units (cents) to avoid
// floating-point drift; major units exist only at the API boundary.
const minorUnitsPerMajor = 100

// MajorToMinor converts a major-unit amount (e.g. 50.00) to minor units.
// The result keeps the sign of the input.
func MajorToMinor(major float64) int64 {
	return int64(math.Round(major * minorUnitsPerMajor))
}

// MinorToMajor converts integer minor units back to a major-unit amount.
func MinorToMajor(minor int64) float64 {
	return float64(minor) / minorUnitsPerMajor
}

// SignedMajor renders a stored magnitude-only amount as a signed
// major-unit value for display.
func SignedMajor(amountMinor int64, t TransactionType) float64 {
	return MinorToMajor(Signed(amountMinor, t))
}
