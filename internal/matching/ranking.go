package matching

import (
	"sort"
	"time"
)

// Rank orders candidates in place: same group first, then recommended, overall
// score, session count, and most recent activity. User id breaks any remaining
// tie so pages are stable across requests.
func Rank(list []*CandidateRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.SameGroup != b.SameGroup {
			return a.SameGroup
		}
		ra, rb := recommended(a), recommended(b)
		if ra != rb {
			return ra
		}
		if sa, sb := overall(a), overall(b); sa != sb {
			return sa > sb
		}
		if a.SessionCount != b.SessionCount {
			return a.SessionCount > b.SessionCount
		}
		if la, lb := lastActive(a), lastActive(b); !la.Equal(lb) {
			return la.After(lb)
		}
		return a.UserID < b.UserID
	})
}

// Paginate slices an already ranked list. Out-of-range offsets give an empty page.
func Paginate(list []*CandidateRecord, limit, offset int) []*CandidateRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) || limit <= 0 {
		return []*CandidateRecord{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

func recommended(c *CandidateRecord) bool {
	return c.Result != nil && c.Result.Recommended
}

func overall(c *CandidateRecord) int {
	if c.Result == nil {
		return -1
	}
	return c.Result.Overall
}

func lastActive(c *CandidateRecord) time.Time {
	if c.LastActive == nil {
		return time.Time{}
	}
	return *c.LastActive
}
