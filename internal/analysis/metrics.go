// Package analysis derives the market metrics from the aggregated counts:
// expected infection ranges, the antibiotic adequacy proxy, the weighted
// composite opportunity score, tier assignment, and the TAM arithmetic.
//
// Every function here is pure; the Analyzer in analyze.go wires them to
// the store.
package analysis

import (
	"strings"

	"pjimarket/internal/config"
	"pjimarket/internal/types"
)

// ExpectedInfections applies the configured rate bounds to a procedure
// volume. Linear in volume at every bound.
func ExpectedInfections(volume int, rates config.RateBounds) types.EIIRange {
	v := float64(volume)
	return types.EIIRange{
		Low:  v * rates.Low,
		Mid:  v * rates.Mid,
		High: v * rates.High,
	}
}

// MarketEstimates converts a total expected infection range into the TAM
// at each bound.
func MarketEstimates(totalVolume int, rates config.RateBounds, market config.MarketConfig) []types.MarketEstimate {
	eii := ExpectedInfections(totalVolume, rates)
	mk := func(bound string, rate, infections float64) types.MarketEstimate {
		courses := infections * market.CoursesPerInfection
		return types.MarketEstimate{
			Bound:      bound,
			Rate:       rate,
			Infections: infections,
			Courses:    courses,
			ValueEUR:   courses * market.PricePerCourseEUR,
		}
	}
	return []types.MarketEstimate{
		mk("low", rates.Low, eii.Low),
		mk("mid", rates.Mid, eii.Mid),
		mk("high", rates.High, eii.High),
	}
}

// AdequacyScore computes the AAI from quality-report free text: each
// configured keyword found in the text contributes its points, capped at
// 100. Absent text yields not-computable rather than a silent zero.
func AdequacyScore(text string, signals map[string]int) types.Metric {
	if strings.TrimSpace(text) == "" {
		return types.NoMetric()
	}
	lower := strings.ToLower(text)
	score := 0
	for keyword, points := range signals {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			score += points
		}
	}
	if score > 100 {
		score = 100
	}
	return types.SomeMetric(float64(score))
}

// VolumeScore normalizes a hospital volume against the cohort maximum to
// a 0-100 scale. An empty cohort (max <= 0) is not computable.
func VolumeScore(volume, maxVolume int) types.Metric {
	if maxVolume <= 0 {
		return types.NoMetric()
	}
	return types.SomeMetric(100 * float64(volume) / float64(maxVolume))
}

// TypeScore maps the hospital class to its score contribution. University
// hospitals see the complex revision cases, specialist clinics the volume.
func TypeScore(t types.HospitalType) float64 {
	switch t {
	case types.TypeUniversity:
		return 100
	case types.TypeSpecialist:
		return 70
	default:
		return 40
	}
}

// DeptScore scores the orthopaedics/trauma department match.
func DeptScore(match bool) float64 {
	if match {
		return 100
	}
	return 0
}

// GapScore inverts the adequacy index: hospitals with weak antibiotic
// infrastructure are the larger opportunity.
func GapScore(aai types.Metric) types.Metric {
	if !aai.Valid {
		return types.NoMetric()
	}
	return types.SomeMetric(100 - aai.Value)
}

// CompositeScore combines the four component scores with the configured
// weights. When the adequacy gap is not computable the remaining weights
// are re-normalized so the score stays on the same 0-100 scale; when the
// volume score is not computable no score is produced at all.
func CompositeScore(w config.ScoringConfig, volume types.Metric, typeScore, deptScore float64, gap types.Metric) types.Metric {
	if !volume.Valid {
		return types.NoMetric()
	}

	weighted := float64(w.VolumeWeight)*volume.Value +
		float64(w.TypeWeight)*typeScore +
		float64(w.DeptWeight)*deptScore
	denom := float64(w.VolumeWeight + w.TypeWeight + w.DeptWeight)

	if gap.Valid {
		weighted += float64(w.GapWeight) * gap.Value
		denom += float64(w.GapWeight)
	}
	if denom == 0 {
		return types.NoMetric()
	}
	return types.SomeMetric(weighted / denom)
}

// AssignTier buckets one hospital. The rules are evaluated in order and
// the first match wins, so every input lands in exactly one tier:
//
//	A: high volume, department match, and either a non-general hospital
//	   or a demonstrably weak antibiotic setup (AAI at or below cutoff).
//	B: medium volume and department match.
//	C: everything else.
func AssignTier(volume int, htype types.HospitalType, deptMatch bool, aai types.Metric, t config.TierConfig) types.Tier {
	weakSetup := aai.Valid && aai.Value <= t.AAICutoff
	switch {
	case volume >= t.MinVolumeA && deptMatch && (htype != types.TypeGeneral || weakSetup):
		return types.TierA
	case volume >= t.MinVolumeB && deptMatch:
		return types.TierB
	default:
		return types.TierC
	}
}

// RegionShares fills in each region's share of the total volume. A zero
// cohort volume leaves every share not computable.
func RegionShares(regions []types.RegionRollup) []types.RegionRollup {
	total := 0
	for _, r := range regions {
		total += r.Volume
	}
	out := make([]types.RegionRollup, len(regions))
	for i, r := range regions {
		if total > 0 {
			r.Share = types.SomeMetric(100 * float64(r.Volume) / float64(total))
		} else {
			r.Share = types.NoMetric()
		}
		out[i] = r
	}
	return out
}

// ObservedShare computes the observed infection share (diagnosis count
// over procedure volume) with the empty-denominator guard.
func ObservedShare(diagnoses, procedures int) types.Metric {
	if procedures <= 0 {
		return types.NoMetric()
	}
	return types.SomeMetric(100 * float64(diagnoses) / float64(procedures))
}
