package scoring

import "fmt"

const (
	// DefaultGroups and DefaultPerGroup describe the 5x5 questionnaire.
	DefaultGroups   = 5
	DefaultPerGroup = 5

	minAnswer     = 1
	maxAnswer     = 5
	neutralAnswer = 3
	maxDivergence = maxAnswer - minAnswer
)

// QuestionnaireResult is the questionnaire component.
type QuestionnaireResult struct {
	Score       float64   `json:"score"`
	Grade       Grade     `json:"grade"`
	GroupScores []float64 `json:"group_scores,omitempty"`
	Usable      bool      `json:"usable"`
	Reason      string    `json:"reason,omitempty"`
}

// QuestionnaireScorer compares answer sequences laid out as Groups consecutive
// blocks of PerGroup questions.
type QuestionnaireScorer struct {
	Groups   int
	PerGroup int
}

// NewQuestionnaireScorer falls back to 5x5 for non-positive dimensions.
func NewQuestionnaireScorer(groups, perGroup int) QuestionnaireScorer {
	if groups <= 0 {
		groups = DefaultGroups
	}
	if perGroup <= 0 {
		perGroup = DefaultPerGroup
	}
	return QuestionnaireScorer{Groups: groups, PerGroup: perGroup}
}

// Length is the number of answers a usable sequence must contain.
func (q QuestionnaireScorer) Length() int {
	return q.Groups * q.PerGroup
}

// Usable reports whether an answer sequence is long enough to be scored.
func (q QuestionnaireScorer) Usable(answers []int) bool {
	return q.Length() > 0 && len(answers) >= q.Length()
}

// NormalizeAnswers replaces missing (0) and out-of-range answers with the neutral
// midpoint. It returns a new slice.
func NormalizeAnswers(answers []int) []int {
	if answers == nil {
		return nil
	}
	out := make([]int, len(answers))
	for i, a := range answers {
		if a < minAnswer || a > maxAnswer {
			a = neutralAnswer
		}
		out[i] = a
	}
	return out
}

// Score is symmetric in a and b. Sequences shorter than Length give the neutral
// result.
func (q QuestionnaireScorer) Score(a, b []int) QuestionnaireResult {
	if !q.Usable(a) || !q.Usable(b) {
		return QuestionnaireResult{
			Score:  NeutralScore,
			Grade:  GradeC,
			Reason: fmt.Sprintf("questionnaire requires %d answers from both users", q.Length()),
		}
	}

	a, b = NormalizeAnswers(a), NormalizeAnswers(b)
	groupScores := make([]float64, 0, q.Groups)
	for g := 0; g < q.Groups; g++ {
		var sum float64
		var n int
		for i := g * q.PerGroup; i < (g+1)*q.PerGroup; i++ {
			div := a[i] - b[i]
			if div < 0 {
				div = -div
			}
			sum += float64(maxDivergence - div)
			n++
		}
		if n == 0 {
			continue
		}
		groupScores = append(groupScores, sum/float64(n)/maxDivergence*100)
	}

	if len(groupScores) == 0 {
		return QuestionnaireResult{Score: NeutralScore, Grade: GradeC, Reason: "no valid question groups"}
	}

	var total float64
	for _, s := range groupScores {
		total += s
	}
	score := clampScore(total / float64(len(groupScores)))
	return QuestionnaireResult{
		Score:       score,
		Grade:       GradeFor(score),
		GroupScores: groupScores,
		Usable:      true,
	}
}
