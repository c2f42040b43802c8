package matching

import (
	"strings"
	"time"

	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

// Wildcard admits every category.
const Wildcard = "any"

// Member is the public matching profile of one user.
type Member struct {
	UserID          int64      `json:"user_id" db:"user_id"`
	Gender          string     `json:"gender" db:"gender"`
	Age             int        `json:"age" db:"age"`
	GroupID         *int64     `json:"group_id,omitempty" db:"group_id"`
	GroupCrossOptIn bool       `json:"group_cross_opt_in" db:"cross_group_opt_in"`
	Category        string     `json:"category,omitempty" db:"category"`
	SessionCount    int        `json:"session_count" db:"session_count"`
	LastActive      *time.Time `json:"last_active,omitempty" db:"last_active_at"`
	Latitude        *float64   `json:"-" db:"latitude"`
	Longitude       *float64   `json:"-" db:"longitude"`
}

// HasLocation reports whether both coordinates are known.
func (m *Member) HasLocation() bool {
	return m != nil && m.Latitude != nil && m.Longitude != nil
}

// Preferences are a user's stored matching preferences.
type Preferences struct {
	UserID        int64    `json:"user_id"`
	MinAge        int      `json:"min_age"`
	MaxAge        int      `json:"max_age"`
	Seeking       []string `json:"seeking"`
	Category      string   `json:"category,omitempty"`
	CrossGroup    bool     `json:"cross_group"`
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty"`
}

// Admits reports whether the preference accepts a member of the given
// gender/category. An empty list or the wildcard accepts everyone.
func (p *Preferences) Admits(value string) bool {
	if p == nil || len(p.Seeking) == 0 {
		return true
	}
	value = normalize(value)
	for _, s := range p.Seeking {
		s = normalize(s)
		if s == Wildcard || s == value {
			return true
		}
	}
	return false
}

// ExclusionSet holds the ids a viewer must never be shown. Acted covers swipes
// and pending date requests; Blocked covers blocks in either direction.
type ExclusionSet struct {
	Acted   map[int64]struct{}
	Blocked map[int64]struct{}
}

func NewExclusionSet() ExclusionSet {
	return ExclusionSet{
		Acted:   make(map[int64]struct{}),
		Blocked: make(map[int64]struct{}),
	}
}

func (s ExclusionSet) HasActed(id int64) bool {
	_, ok := s.Acted[id]
	return ok
}

func (s ExclusionSet) IsBlocked(id int64) bool {
	_, ok := s.Blocked[id]
	return ok
}

// Contains is the union of both sets.
func (s ExclusionSet) Contains(id int64) bool {
	return s.HasActed(id) || s.IsBlocked(id)
}

// CandidateRecord is the pipeline-local view of one candidate. Eligible and
// Preferences may be left nil by the pool query and are loaded on demand.
// PrefsLoaded marks Preferences as already read, so nil means none stored.
type CandidateRecord struct {
	Member
	Eligible    *bool                        `json:"-"`
	Preferences *Preferences                 `json:"-"`
	PrefsLoaded bool                         `json:"-"`
	SameGroup   bool                         `json:"same_group"`
	DistanceKm  *float64                     `json:"distance_km,omitempty"`
	Result      *scoring.CompatibilityResult `json:"compatibility,omitempty"`
}

// PoolFilter narrows the raw candidate pool before the pipeline runs. Limit and
// Offset select one window of the pool in last-active order.
type PoolFilter struct {
	GroupID    *int64
	CrossGroup bool
	Exclude    []int64
	Limit      int
	Offset     int
}

// FilterParams are the caller-supplied options of a ranked-candidates request.
// Nil pointers fall back to the viewer's stored preferences.
type FilterParams struct {
	Category      string   `json:"category" validate:"omitempty,max=64"`
	MinAge        *int     `json:"min_age" validate:"omitempty,gte=0,lte=150"`
	MaxAge        *int     `json:"max_age" validate:"omitempty,gte=0,lte=150"`
	MaxDistanceKm *float64 `json:"max_distance_km" validate:"omitempty,gt=0"`
	CrossGroup    *bool    `json:"cross_group"`
	Exclude       []int64  `json:"exclude" validate:"omitempty,dive,gt=0"`
	Limit         int      `json:"limit" validate:"gte=0"`
	Offset        int      `json:"offset" validate:"gte=0"`
}

// CandidatePage is one page of ranked candidates.
type CandidatePage struct {
	RunID      string             `json:"run_id"`
	Candidates []*CandidateRecord `json:"candidates"`
	Total      int                `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
