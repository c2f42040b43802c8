package scoring

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultWeightVectorsSumToOne(t *testing.T) {
	v := DefaultWeightVectors()
	for name, set := range map[VectorName]WeightSet{
		VectorFull:          v.Full,
		VectorQuestionnaire: v.QuestionnaireOnly,
		VectorAstrological:  v.AstrologicalOnly,
		VectorBasic:         v.Basic,
	} {
		if math.Abs(set.Sum()-1) > 1e-9 {
			t.Errorf("%s vector sums to %v", name, set.Sum())
		}
	}
	if err := v.Validate(); err != nil {
		t.Fatalf("default vectors invalid: %v", err)
	}
}

func TestWeightVectorsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*WeightVectors)
	}{
		{"sum below one", func(v *WeightVectors) { v.Full.Age = 0 }},
		{"negative weight", func(v *WeightVectors) { v.Basic.Age = -0.15; v.Basic.Interests = 0.55 }},
		{"nan weight", func(v *WeightVectors) { v.Basic.Age = math.NaN() }},
		{"astro weight in questionnaire vector", func(v *WeightVectors) {
			v.QuestionnaireOnly.Astrological = 0.1
			v.QuestionnaireOnly.Questionnaire = 0.5
		}},
		{"advanced weight in basic vector", func(v *WeightVectors) {
			v.Basic.Questionnaire = 0.25
			v.Basic.Interests = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DefaultWeightVectors()
			tt.mutate(&v)
			if err := v.Validate(); !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("Validate() = %v, want ErrInvalidWeights", err)
			}
		})
	}
}

func TestWeightVectorsSelect(t *testing.T) {
	v := DefaultWeightVectors()
	tests := []struct {
		astro, quest bool
		want         VectorName
	}{
		{true, true, VectorFull},
		{false, true, VectorQuestionnaire},
		{true, false, VectorAstrological},
		{false, false, VectorBasic},
	}
	for _, tt := range tests {
		if got, _ := v.Select(tt.astro, tt.quest); got != tt.want {
			t.Errorf("Select(%v, %v) = %s, want %s", tt.astro, tt.quest, got, tt.want)
		}
	}
}
