package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned by Validate for malformed weight vectors.
var ErrInvalidWeights = errors.New("invalid weight vector")

const weightTolerance = 1e-9

// VectorName identifies which weight vector produced a result.
type VectorName string

const (
	VectorFull          VectorName = "full"
	VectorQuestionnaire VectorName = "questionnaire"
	VectorAstrological  VectorName = "astrological"
	VectorBasic         VectorName = "basic"
)

// WeightSet is one weight vector over every component.
type WeightSet struct {
	Astrological  float64 `json:"astrological"`
	Questionnaire float64 `json:"questionnaire"`
	Interests     float64 `json:"interests"`
	Traits        float64 `json:"traits"`
	Politics      float64 `json:"politics"`
	Education     float64 `json:"education"`
	Children      float64 `json:"children"`
	Age           float64 `json:"age"`
}

// Sum adds every weight.
func (w WeightSet) Sum() float64 {
	return w.Astrological + w.Questionnaire + w.Interests + w.Traits +
		w.Politics + w.Education + w.Children + w.Age
}

func (w WeightSet) values() []float64 {
	return []float64{
		w.Astrological, w.Questionnaire, w.Interests, w.Traits,
		w.Politics, w.Education, w.Children, w.Age,
	}
}

// WeightVectors holds the four vectors the aggregator chooses between.
type WeightVectors struct {
	Full              WeightSet `json:"full"`
	QuestionnaireOnly WeightSet `json:"questionnaire_only"`
	AstrologicalOnly  WeightSet `json:"astrological_only"`
	Basic             WeightSet `json:"basic"`
}

// DefaultWeightVectors returns the dating deployment's vectors.
func DefaultWeightVectors() WeightVectors {
	return WeightVectors{
		Full: WeightSet{
			Astrological: 0.40, Questionnaire: 0.40,
			Interests: 0.05, Traits: 0.05,
			Politics: 0.025, Education: 0.025, Children: 0.025, Age: 0.025,
		},
		QuestionnaireOnly: WeightSet{
			Questionnaire: 0.60,
			Interests:     0.10, Traits: 0.10,
			Politics: 0.05, Education: 0.05, Children: 0.05, Age: 0.05,
		},
		AstrologicalOnly: WeightSet{
			Astrological: 0.60,
			Interests:    0.10, Traits: 0.10,
			Politics: 0.05, Education: 0.05, Children: 0.05, Age: 0.05,
		},
		Basic: WeightSet{
			Interests: 0.25, Traits: 0.20,
			Politics: 0.15, Children: 0.15, Age: 0.15, Education: 0.10,
		},
	}
}

// Select picks the vector matching which advanced inputs are usable.
func (v WeightVectors) Select(astro, questionnaire bool) (VectorName, WeightSet) {
	switch {
	case astro && questionnaire:
		return VectorFull, v.Full
	case questionnaire:
		return VectorQuestionnaire, v.QuestionnaireOnly
	case astro:
		return VectorAstrological, v.AstrologicalOnly
	default:
		return VectorBasic, v.Basic
	}
}

// Validate checks that every vector is non-negative, sums to 1.0, and gives no
// weight to an advanced component it is not selected for.
func (v WeightVectors) Validate() error {
	checks := []struct {
		name VectorName
		set  WeightSet
	}{
		{VectorFull, v.Full},
		{VectorQuestionnaire, v.QuestionnaireOnly},
		{VectorAstrological, v.AstrologicalOnly},
		{VectorBasic, v.Basic},
	}
	for _, c := range checks {
		for _, w := range c.set.values() {
			if math.IsNaN(w) || w < 0 {
				return fmt.Errorf("%w: %s vector has a negative or NaN weight", ErrInvalidWeights, c.name)
			}
		}
		if sum := c.set.Sum(); math.Abs(sum-1) > weightTolerance {
			return fmt.Errorf("%w: %s vector sums to %.12f, want 1.0", ErrInvalidWeights, c.name, sum)
		}
	}
	if v.QuestionnaireOnly.Astrological != 0 {
		return fmt.Errorf("%w: questionnaire vector weights the astrological component", ErrInvalidWeights)
	}
	if v.AstrologicalOnly.Questionnaire != 0 {
		return fmt.Errorf("%w: astrological vector weights the questionnaire component", ErrInvalidWeights)
	}
	if v.Basic.Astrological != 0 || v.Basic.Questionnaire != 0 {
		return fmt.Errorf("%w: basic vector weights an advanced component", ErrInvalidWeights)
	}
	return nil
}
