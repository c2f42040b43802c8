package scoring

import (
	"math"
	"time"
)

// DefaultRecommendThreshold is the dating deployment's cut-off.
const DefaultRecommendThreshold = 70

// Inputs carries everything known about both users of a pair. Nil charts and
// nil answer slices mean the data is absent.
type Inputs struct {
	Pair           PairKey
	ChartA, ChartB *NatalChart
	AnswersA       []int
	AnswersB       []int
	BasicA, BasicB BasicAttributes
}

// Aggregator combines component scores into a CompatibilityResult.
type Aggregator struct {
	Weights       WeightVectors
	Threshold     int
	Questionnaire QuestionnaireScorer
	now           func() time.Time
}

// NewAggregator validates the weight vectors up front; a bad configuration never
// reaches request time.
func NewAggregator(weights WeightVectors, threshold int, q QuestionnaireScorer) (*Aggregator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		Weights:       weights,
		Threshold:     threshold,
		Questionnaire: q,
		now:           time.Now,
	}, nil
}

// Compute never fails: missing inputs select a smaller weight vector and are
// listed in Reasons.
func (g *Aggregator) Compute(in Inputs) *CompatibilityResult {
	astro := ScoreAstrological(in.ChartA, in.ChartB)
	quest := g.Questionnaire.Score(in.AnswersA, in.AnswersB)
	basic := ScoreBasic(in.BasicA, in.BasicB)

	comps := Components{
		Interests: component(basic.Interests),
		Traits:    component(basic.Traits),
		Politics:  component(basic.Politics),
		Education: component(basic.Education),
		Children:  component(basic.Children),
		Age:       component(basic.Age),
	}

	var reasons []string
	if astro.Usable {
		c := component(astro.Score)
		comps.Astrological = &c
	} else {
		reasons = append(reasons, astro.Reason)
	}
	if quest.Usable {
		c := component(quest.Score)
		comps.Questionnaire = &c
	} else {
		reasons = append(reasons, quest.Reason)
	}

	vector, overall := g.Combine(comps)

	now := time.Now
	if g.now != nil {
		now = g.now
	}
	return &CompatibilityResult{
		Pair:         in.Pair,
		Overall:      overall,
		Grade:        GradeFor(float64(overall)),
		Recommended:  overall >= g.Threshold,
		Vector:       vector,
		Components:   comps,
		AspectsFound: len(astro.Aspects),
		Reasons:      reasons,
		ComputedAt:   now().UTC(),
	}
}

// Combine selects the weight vector from which advanced components are present
// and returns the weighted sum rounded to an integer in [0,100]. Every component
// is clamped before weighting.
func (g *Aggregator) Combine(c Components) (VectorName, int) {
	vector, w := g.Weights.Select(c.Astrological != nil, c.Questionnaire != nil)

	var total float64
	if c.Astrological != nil {
		total += w.Astrological * clampScore(c.Astrological.Score)
	}
	if c.Questionnaire != nil {
		total += w.Questionnaire * clampScore(c.Questionnaire.Score)
	}
	total += w.Interests*clampScore(c.Interests.Score) +
		w.Traits*clampScore(c.Traits.Score) +
		w.Politics*clampScore(c.Politics.Score) +
		w.Education*clampScore(c.Education.Score) +
		w.Children*clampScore(c.Children.Score) +
		w.Age*clampScore(c.Age.Score)

	return vector, int(clampScore(math.Round(clampScore(total))))
}
