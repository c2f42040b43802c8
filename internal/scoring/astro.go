package scoring

import "github.com/imadgeboyega/kiekky-matching/internal/logging"

// harmony is the signed contribution of each aspect type.
var harmony = map[AspectName]float64{
	Trine:       1.0,
	Sextile:     0.7,
	Conjunction: 0.3,
	Quincunx:    -0.3,
	Opposition:  -0.5,
	Square:      -0.7,
}

// AspectHit records one aspect found between chart A's body and chart B's body.
type AspectHit struct {
	BodyA     Body       `json:"body_a"`
	BodyB     Body       `json:"body_b"`
	Aspect    AspectName `json:"aspect"`
	Deviation float64    `json:"deviation"`
	Weight    float64    `json:"weight"`
}

// AstroResult is the astrological component.
type AstroResult struct {
	Score   float64     `json:"score"`
	Grade   Grade       `json:"grade"`
	Aspects []AspectHit `json:"aspects,omitempty"`
	Usable  bool        `json:"usable"`
	Reason  string      `json:"reason,omitempty"`
}

func neutralAstro(reason string) AstroResult {
	return AstroResult{Score: NeutralScore, Grade: GradeC, Reason: reason}
}

// ScoreAstrological compares two natal charts over the core bodies. Body i of
// chart a is paired with body j of chart b for every i <= j in CoreBodies order,
// 21 pairs in total. Missing charts or placements give the neutral result.
func ScoreAstrological(a, b *NatalChart) AstroResult {
	if a == nil || b == nil {
		return neutralAstro("natal chart missing")
	}
	posA, posB := a.Positions(), b.Positions()
	if len(posA) == 0 || len(posB) == 0 {
		return neutralAstro("natal chart has no core placements")
	}

	var weighted, total float64
	var hits []AspectHit
	for i, bodyA := range CoreBodies {
		degA, okA := posA[bodyA]
		for _, bodyB := range CoreBodies[i:] {
			degB, okB := posB[bodyB]
			if !okA || !okB {
				continue
			}
			if !ValidDegree(degA) || !ValidDegree(degB) {
				logging.Warn().
					Str("body_a", string(bodyA)).
					Str("body_b", string(bodyB)).
					Msg("invalid degree in body pair, skipping")
				continue
			}
			match, ok := ClassifyAspect(degA, degB)
			if !ok {
				continue
			}
			tightness := clamp(1-match.Deviation/match.Aspect.Orb, 0, 1)
			w := pairWeight(bodyA, bodyB) * (1 + tightness*0.5)

			weighted += harmony[match.Aspect.Name] * w
			total += w
			hits = append(hits, AspectHit{
				BodyA:     bodyA,
				BodyB:     bodyB,
				Aspect:    match.Aspect.Name,
				Deviation: match.Deviation,
				Weight:    w,
			})
		}
	}

	if total == 0 {
		r := neutralAstro("no aspects found")
		r.Usable = true
		return r
	}

	score := clampScore(50 + (weighted/total)*25)
	return AstroResult{
		Score:   score,
		Grade:   GradeFor(score),
		Aspects: hits,
		Usable:  true,
	}
}

// pairWeight gives luminaries and the angle more pull; Sun-Moon and Venus-Mars
// pairs are special-cased regardless of order.
func pairWeight(a, b Body) float64 {
	switch {
	case isPair(a, b, Sun, Moon):
		return 2.0
	case isPair(a, b, Venus, Mars):
		return 1.7
	case isPersonal(a) || isPersonal(b):
		return 1.5
	default:
		return 1.0
	}
}

func isPair(a, b, x, y Body) bool {
	return (a == x && b == y) || (a == y && b == x)
}

func isPersonal(b Body) bool {
	return b == Sun || b == Moon || b == Ascendant
}
