package matching

import (
	"context"
	"errors"
	"sync"

	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

var errDown = errors.New("connection refused")

// fakeRepository is an in-memory Repository. failFor makes every read for that
// user id fail; failOp makes one operation fail for everyone.
type fakeRepository struct {
	mu          sync.Mutex
	members     map[int64]*Member
	charts      map[int64]*scoring.NatalChart
	answers     map[int64][]int
	prefs       map[int64]*Preferences
	basics      map[int64]*scoring.BasicAttributes
	exclusions  map[int64]ExclusionSet
	eligible    map[int64]bool
	pool        []int64
	failFor     map[int64]bool
	failOp      string
	chartReads  int
	prefReads   map[int64]int
	poolCalls   int
	lastPoolArg PoolFilter
	// hydrate fills Eligible and Preferences on pool rows the way the SQL
	// join does.
	hydrate bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		members:    map[int64]*Member{},
		charts:     map[int64]*scoring.NatalChart{},
		answers:    map[int64][]int{},
		prefs:      map[int64]*Preferences{},
		basics:     map[int64]*scoring.BasicAttributes{},
		exclusions: map[int64]ExclusionSet{},
		eligible:   map[int64]bool{},
		failFor:    map[int64]bool{},
		prefReads:  map[int64]int{},
	}
}

// addMember registers an eligible member in the pool.
func (f *fakeRepository) addMember(m *Member) {
	f.members[m.UserID] = m
	f.eligible[m.UserID] = true
	f.pool = append(f.pool, m.UserID)
}

func (f *fakeRepository) fail(op string, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOp == op || f.failFor[userID] {
		return errDown
	}
	return nil
}

func (f *fakeRepository) GetMember(_ context.Context, id int64) (*Member, error) {
	if err := f.fail("member", id); err != nil {
		return nil, err
	}
	m, ok := f.members[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepository) GetNatalChart(_ context.Context, id int64) (*scoring.NatalChart, error) {
	if err := f.fail("chart", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.chartReads++
	f.mu.Unlock()
	return f.charts[id], nil
}

func (f *fakeRepository) GetQuestionnaireResponses(_ context.Context, id int64) ([]int, error) {
	if err := f.fail("answers", id); err != nil {
		return nil, err
	}
	return f.answers[id], nil
}

func (f *fakeRepository) GetPreferences(_ context.Context, id int64) (*Preferences, error) {
	if err := f.fail("prefs", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.prefReads[id]++
	f.mu.Unlock()
	return f.prefs[id], nil
}

func (f *fakeRepository) GetBasicAttributes(_ context.Context, id int64) (*scoring.BasicAttributes, error) {
	if err := f.fail("basic", id); err != nil {
		return nil, err
	}
	return f.basics[id], nil
}

func (f *fakeRepository) GetExclusionSet(_ context.Context, id int64) (ExclusionSet, error) {
	if err := f.fail("exclusions", id); err != nil {
		return ExclusionSet{}, err
	}
	if s, ok := f.exclusions[id]; ok {
		return s, nil
	}
	return NewExclusionSet(), nil
}

func (f *fakeRepository) GetEligibilityStatus(_ context.Context, id int64) (bool, error) {
	if err := f.fail("eligibility", id); err != nil {
		return false, err
	}
	return f.eligible[id], nil
}

// ListCandidatePool pages the pool in insertion order, honouring Limit and
// Offset. Exclusions are left to the pipeline. Unless hydrate is set, Eligible
// and Preferences stay unset so the engine loads them per candidate.
func (f *fakeRepository) ListCandidatePool(_ context.Context, viewerID int64, filter PoolFilter) ([]*CandidateRecord, error) {
	if err := f.fail("pool", viewerID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPoolArg = filter
	f.poolCalls++

	var ids []int64
	for _, id := range f.pool {
		if id != viewerID {
			ids = append(ids, id)
		}
	}
	if filter.Offset >= len(ids) {
		return nil, nil
	}
	ids = ids[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(ids) {
		ids = ids[:filter.Limit]
	}

	out := make([]*CandidateRecord, 0, len(ids))
	for _, id := range ids {
		rec := &CandidateRecord{Member: *f.members[id]}
		if f.hydrate {
			eligible := f.eligible[id]
			rec.Eligible = &eligible
			rec.Preferences = f.prefs[id]
			rec.PrefsLoaded = true
		}
		out = append(out, rec)
	}
	return out, nil
}
