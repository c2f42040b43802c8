package matching

import (
	"fmt"
	"strings"
)

// DefaultCategoryLadder is the weight-class ladder of the training deployment.
var DefaultCategoryLadder = []string{
	"flyweight", "bantamweight", "featherweight", "lightweight",
	"welterweight", "middleweight", "light_heavyweight", "heavyweight",
}

// Ladder is an ordered list of category labels. Adjacent steps are compatible.
type Ladder struct {
	steps []string
	index map[string]int
}

// NewLadder rejects empty ladders, blank labels and duplicates.
func NewLadder(steps []string) (*Ladder, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("category ladder is empty")
	}
	l := &Ladder{
		steps: make([]string, 0, len(steps)),
		index: make(map[string]int, len(steps)),
	}
	for _, s := range steps {
		s = normalize(s)
		if s == "" || s == Wildcard {
			return nil, fmt.Errorf("category ladder contains an invalid label %q", s)
		}
		if _, dup := l.index[s]; dup {
			return nil, fmt.Errorf("category ladder contains %q twice", s)
		}
		l.index[s] = len(l.steps)
		l.steps = append(l.steps, s)
	}
	return l, nil
}

// ParseLadder reads a comma-separated ladder.
func ParseLadder(s string) (*Ladder, error) {
	return NewLadder(strings.Split(s, ","))
}

// Steps returns a copy of the ordered labels.
func (l *Ladder) Steps() []string {
	return append([]string(nil), l.steps...)
}

// Known reports whether the label is on the ladder. The wildcard and the empty
// string are always known.
func (l *Ladder) Known(label string) bool {
	label = normalize(label)
	if label == "" || label == Wildcard {
		return true
	}
	_, ok := l.index[label]
	return ok
}

// Admits reports whether value is the filter value or one step away from it.
// ok is false when either label is not on the ladder.
func (l *Ladder) Admits(filter, value string) (admitted, ok bool) {
	filter = normalize(filter)
	if filter == "" || filter == Wildcard {
		return true, true
	}
	fi, okF := l.index[filter]
	vi, okV := l.index[normalize(value)]
	if !okF || !okV {
		return false, false
	}
	d := fi - vi
	if d < 0 {
		d = -d
	}
	return d <= 1, true
}
