package matching

import (
	"fmt"
	"math"

	"github.com/imadgeboyega/kiekky-matching/internal/logging"
)

// Gate names the predicate that excluded a candidate.
type Gate string

const (
	GateNone       Gate = ""
	GateSelf       Gate = "self"
	GateExcluded   Gate = "excluded"
	GateBlocked    Gate = "blocked"
	GateIneligible Gate = "ineligible"
	GateGroupScope Gate = "group_scope"
	GatePreference Gate = "preference"
	GateRange      Gate = "range"
	GateCategory   Gate = "category"
)

// Gates lists every gate in evaluation order.
var Gates = []Gate{
	GateSelf, GateExcluded, GateBlocked, GateIneligible,
	GateGroupScope, GatePreference, GateRange, GateCategory,
}

// Decision is the outcome of running one candidate through the pipeline.
type Decision struct {
	Gate       Gate
	Reason     string
	DistanceKm *float64
}

// Admitted is true when no gate failed.
func (d Decision) Admitted() bool { return d.Gate == GateNone }

// ViewerContext is everything the pipeline knows about the viewer, with the
// caller's filter params already merged into the stored preferences.
type ViewerContext struct {
	Member      *Member
	Preferences *Preferences
	Exclusions  ExclusionSet
	Explicit    map[int64]struct{}

	// MinAge and MaxAge of 0 leave that side open.
	MinAge        int
	MaxAge        int
	MaxDistanceKm *float64
	CrossGroup    bool
	Category      string
}

// FilterPipeline applies the candidate gates in a fixed order and stops at the
// first one that fails.
type FilterPipeline struct {
	Ladder *Ladder
}

func NewFilterPipeline(ladder *Ladder) *FilterPipeline {
	return &FilterPipeline{Ladder: ladder}
}

func exclude(g Gate, format string, args ...interface{}) Decision {
	return Decision{Gate: g, Reason: fmt.Sprintf(format, args...)}
}

// Evaluate runs c through every gate.
func (p *FilterPipeline) Evaluate(v *ViewerContext, c *CandidateRecord) Decision {
	if c.UserID == v.Member.UserID {
		return exclude(GateSelf, "candidate is the viewer")
	}

	if v.Exclusions.HasActed(c.UserID) {
		return exclude(GateExcluded, "viewer already acted on candidate")
	}
	if _, ok := v.Explicit[c.UserID]; ok {
		return exclude(GateExcluded, "candidate excluded by request")
	}

	if v.Exclusions.IsBlocked(c.UserID) {
		return exclude(GateBlocked, "block relationship")
	}

	if c.Eligible == nil || !*c.Eligible {
		return exclude(GateIneligible, "no active eligibility grant")
	}

	if d, ok := p.groupScope(v, c); !ok {
		return d
	}

	if !v.Preferences.Admits(c.Gender) {
		return exclude(GatePreference, "viewer does not seek %q", c.Gender)
	}
	if !c.Preferences.Admits(v.Member.Gender) {
		return exclude(GatePreference, "candidate does not seek %q", v.Member.Gender)
	}

	if c.Age > 0 {
		if v.MinAge > 0 && c.Age < v.MinAge {
			return exclude(GateRange, "age %d below %d", c.Age, v.MinAge)
		}
		if v.MaxAge > 0 && c.Age > v.MaxAge {
			return exclude(GateRange, "age %d above %d", c.Age, v.MaxAge)
		}
	}
	var distance *float64
	if v.Member.HasLocation() && c.HasLocation() {
		km := HaversineKm(*v.Member.Latitude, *v.Member.Longitude, *c.Latitude, *c.Longitude)
		distance = &km
		if v.MaxDistanceKm != nil && km > *v.MaxDistanceKm {
			return exclude(GateRange, "distance %.1fkm above %.1fkm", km, *v.MaxDistanceKm)
		}
	}

	if p.Ladder != nil {
		admitted, ok := p.Ladder.Admits(v.Category, c.Category)
		if !ok {
			logging.Warn().
				Int64("candidate_id", c.UserID).
				Str("category", c.Category).
				Str("filter", v.Category).
				Msg("unrecognized category label, excluding candidate")
			return exclude(GateCategory, "unrecognized category %q", c.Category)
		}
		if !admitted {
			return exclude(GateCategory, "category %q not adjacent to %q", c.Category, v.Category)
		}
	}

	return Decision{DistanceKm: distance}
}

// groupScope: same-group mode needs an exact match; cross-group mode also admits
// other groups when both sides opted in. A viewer without a group is unscoped.
func (p *FilterPipeline) groupScope(v *ViewerContext, c *CandidateRecord) (Decision, bool) {
	if v.Member.GroupID == nil {
		return Decision{}, true
	}
	if c.GroupID != nil && *c.GroupID == *v.Member.GroupID {
		return Decision{}, true
	}
	if !v.CrossGroup {
		return exclude(GateGroupScope, "candidate outside viewer's group"), false
	}
	if c.GroupID == nil || !v.Member.GroupCrossOptIn || !c.GroupCrossOptIn {
		return exclude(GateGroupScope, "cross-group matching needs both groups to opt in"), false
	}
	return Decision{}, true
}

// SameGroup reports whether both members belong to the same group.
func SameGroup(a, b *Member) bool {
	return a.GroupID != nil && b.GroupID != nil && *a.GroupID == *b.GroupID
}

const earthRadiusKm = 6371

// HaversineKm is the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
