package scoring

import (
	"math"
	"strings"
)

// BasicAttributes are the always-available profile fields used for the auxiliary
// components. Empty strings and a zero age mean "not provided".
type BasicAttributes struct {
	UserID       int64    `json:"user_id" db:"user_id"`
	Interests    []string `json:"interests" db:"interests"`
	Traits       []string `json:"traits" db:"traits"`
	Stance       string   `json:"stance" db:"stance"`
	Education    string   `json:"education" db:"education"`
	ChildrenPref string   `json:"children_pref" db:"children_pref"`
	Age          int      `json:"age" db:"age"`
}

// BasicScores holds the six auxiliary components, each in [0,100].
type BasicScores struct {
	Interests float64 `json:"interests"`
	Traits    float64 `json:"traits"`
	Politics  float64 `json:"politics"`
	Education float64 `json:"education"`
	Children  float64 `json:"children"`
	Age       float64 `json:"age"`
}

// ScoreBasic computes every auxiliary component.
func ScoreBasic(a, b BasicAttributes) BasicScores {
	return BasicScores{
		Interests: Jaccard(a.Interests, b.Interests),
		Traits:    Jaccard(a.Traits, b.Traits),
		Politics:  StanceScore(a.Stance, b.Stance),
		Education: EducationScore(a.Education, b.Education),
		Children:  ChildrenScore(a.ChildrenPref, b.ChildrenPref),
		Age:       AgeGapScore(a.Age, b.Age),
	}
}

// Jaccard returns |A∩B| / |A∪B| scaled to 100. Tags are compared trimmed and
// case-insensitively; an empty set on either side scores 0.
func Jaccard(a, b []string) float64 {
	setA, setB := tagSet(a), tagSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for tag := range setA {
		if setB[tag] {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	return float64(common) / float64(union) * 100
}

func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = normalizeLabel(t)
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type camp int

const (
	campNeutral camp = iota
	campLeft
	campRight
	campOther
)

var stanceCamps = map[string]camp{
	"very_liberal":      campLeft,
	"liberal":           campLeft,
	"progressive":       campLeft,
	"left":              campLeft,
	"very_conservative": campRight,
	"conservative":      campRight,
	"right":             campRight,
	"moderate":          campNeutral,
	"neutral":           campNeutral,
	"centrist":          campNeutral,
	"apolitical":        campNeutral,
	"":                  campNeutral,
}

func stanceCamp(s string) camp {
	if c, ok := stanceCamps[s]; ok {
		return c
	}
	return campOther
}

// StanceScore: exact match 100, same broad camp 75, either side neutral 50,
// otherwise 25.
func StanceScore(a, b string) float64 {
	a, b = normalizeLabel(a), normalizeLabel(b)
	if a == b && a != "" {
		return 100
	}
	ca, cb := stanceCamp(a), stanceCamp(b)
	switch {
	case ca == campNeutral || cb == campNeutral:
		return 50
	case ca == cb && ca != campOther:
		return 75
	default:
		return 25
	}
}

// EducationScore: exact match 100, anything else 70.
func EducationScore(a, b string) float64 {
	a, b = normalizeLabel(a), normalizeLabel(b)
	if a != "" && a == b {
		return 100
	}
	return 70
}

// ChildrenScore: exact match 100, either side "maybe" 60, otherwise 20.
// An unstated preference on either side scores neutral.
func ChildrenScore(a, b string) float64 {
	a, b = normalizeLabel(a), normalizeLabel(b)
	switch {
	case a == "" || b == "":
		return NeutralScore
	case a == b:
		return 100
	case a == "maybe" || b == "maybe":
		return 60
	default:
		return 20
	}
}

// AgeGapScore decays 5 points per year of difference. An unknown age (<= 0)
// gives the neutral score.
func AgeGapScore(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return NeutralScore
	}
	gap := math.Abs(float64(a - b))
	return math.Max(0, 100-5*gap)
}
