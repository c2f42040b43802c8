package scoring

import "math"

// Grade is a letter band derived from a 0-100 score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// NeutralScore is returned whenever a scorer lacks usable input.
const NeutralScore = 50.0

// GradeFor maps a score to its band: A >= 90, B >= 80, C >= 70, D >= 60, else F.
func GradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// clampScore bounds v to [0,100]. NaN collapses to the neutral score.
func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return NeutralScore
	}
	return math.Max(0, math.Min(100, v))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
