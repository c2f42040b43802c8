package scoring

import (
	"fmt"
	"time"
)

// PairKey identifies an unordered pair of users. Low is always <= High so that
// (A,B) and (B,A) map to the same key.
type PairKey struct {
	Low  int64 `json:"low"`
	High int64 `json:"high"`
}

// NewPairKey canonicalizes the pair.
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Low: a, High: b}
}

func (k PairKey) String() string {
	return fmt.Sprintf("%d:%d", k.Low, k.High)
}

// Has reports whether userID is part of the pair.
func (k PairKey) Has(userID int64) bool {
	return k.Low == userID || k.High == userID
}

// ComponentScore is one bounded sub-score with its grade.
type ComponentScore struct {
	Score float64 `json:"score"`
	Grade Grade   `json:"grade"`
}

func component(score float64) ComponentScore {
	s := clampScore(score)
	return ComponentScore{Score: s, Grade: GradeFor(s)}
}

// Components groups every sub-score that contributed to a result. Astrological and
// Questionnaire are nil when the corresponding input was not usable.
type Components struct {
	Astrological  *ComponentScore `json:"astrological,omitempty"`
	Questionnaire *ComponentScore `json:"questionnaire,omitempty"`
	Interests     ComponentScore  `json:"interests"`
	Traits        ComponentScore  `json:"traits"`
	Politics      ComponentScore  `json:"politics"`
	Education     ComponentScore  `json:"education"`
	Children      ComponentScore  `json:"children"`
	Age           ComponentScore  `json:"age"`
}

// CompatibilityResult is the cached outcome of scoring one pair.
type CompatibilityResult struct {
	Pair         PairKey    `json:"pair"`
	Overall      int        `json:"overall"`
	Grade        Grade      `json:"grade"`
	Recommended  bool       `json:"recommended"`
	Vector       VectorName `json:"vector"`
	Components   Components `json:"components"`
	AspectsFound int        `json:"aspects_found"`
	Reasons      []string   `json:"reasons,omitempty"`
	ComputedAt   time.Time  `json:"computed_at"`
	ExpiresAt    time.Time  `json:"expires_at,omitempty"`
}

// Expired reports whether the result's lease has lapsed at now. A zero ExpiresAt
// never expires.
func (r *CompatibilityResult) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
