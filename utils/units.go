package utils

import "math"

// 1 mmol/L of glucose = 18.0182 mg/dL
const mgdlPerMmol = 18.0182

func MgdlToMmol(v float64) float64 {
	return Round1(v / mgdlPerMmol)
}

func MmolToMgdl(v float64) float64 {
	return math.Round(v * mgdlPerMmol)
}

// Round1 rounds to one decimal place, the precision used for insulin units
// and gram totals throughout.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
