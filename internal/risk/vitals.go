package risk

// Age-banded vital sign limits. These follow the standard pediatric
// advanced-life-support reference ranges; the cut points are safety-relevant
// constants and must not be tuned.
type vitalBand struct {
	maxAgeMonths int // exclusive upper bound; -1 = no bound
	hrHigh       float64
	hrLow        float64
	rrHigh       float64
}

var vitalBands = []vitalBand{
	{maxAgeMonths: 3, hrHigh: 180, hrLow: 100, rrHigh: 60},
	{maxAgeMonths: 12, hrHigh: 160, hrLow: 90, rrHigh: 50},
	{maxAgeMonths: 36, hrHigh: 150, hrLow: 80, rrHigh: 40},
	{maxAgeMonths: 72, hrHigh: 140, hrLow: 70, rrHigh: 34},
	{maxAgeMonths: 144, hrHigh: 120, hrLow: 60, rrHigh: 30},
	{maxAgeMonths: -1, hrHigh: 100, hrLow: 50, rrHigh: 25},
}

// bandFor returns the vital band covering the given age.
func bandFor(ageMonths int) vitalBand {
	for _, b := range vitalBands {
		if b.maxAgeMonths < 0 || ageMonths < b.maxAgeMonths {
			return b
		}
	}
	return vitalBands[len(vitalBands)-1]
}

// tachycardic reports whether hr exceeds the upper limit for the age.
func tachycardic(ageMonths int, hr float64) bool {
	return hr > bandFor(ageMonths).hrHigh
}

// bradycardic reports whether hr is below the lower limit for the age.
func bradycardic(ageMonths int, hr float64) bool {
	return hr < bandFor(ageMonths).hrLow
}

// tachypneic reports whether rr exceeds the upper limit for the age.
func tachypneic(ageMonths int, rr float64) bool {
	return rr > bandFor(ageMonths).rrHigh
}
