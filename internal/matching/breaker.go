package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/imadgeboyega/kiekky-matching/internal/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

// BreakerSettings configures the repository circuit breaker.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// breakerRepository fails fast once the collaborator keeps erroring, so a dead
// database does not hold every request until its timeout.
type breakerRepository struct {
	next Repository
	cb   *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerRepository wraps repo. Cancelled requests do not count as failures.
func NewBreakerRepository(repo Repository, s BreakerSettings) Repository {
	if s.Name == "" {
		s.Name = "matching-repository"
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &breakerRepository{next: repo, cb: cb}
}

func (b *breakerRepository) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, &PersistenceError{Op: op, Err: err}
	}
	return v, err
}

func cast[T any](v interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", v)
	}
	return typed, nil
}

func (b *breakerRepository) GetMember(ctx context.Context, userID int64) (*Member, error) {
	return cast[*Member](b.execute("get member", func() (interface{}, error) {
		return b.next.GetMember(ctx, userID)
	}))
}

func (b *breakerRepository) GetNatalChart(ctx context.Context, userID int64) (*scoring.NatalChart, error) {
	return cast[*scoring.NatalChart](b.execute("get natal chart", func() (interface{}, error) {
		return b.next.GetNatalChart(ctx, userID)
	}))
}

func (b *breakerRepository) GetQuestionnaireResponses(ctx context.Context, userID int64) ([]int, error) {
	return cast[[]int](b.execute("get questionnaire", func() (interface{}, error) {
		return b.next.GetQuestionnaireResponses(ctx, userID)
	}))
}

func (b *breakerRepository) GetPreferences(ctx context.Context, userID int64) (*Preferences, error) {
	return cast[*Preferences](b.execute("get preferences", func() (interface{}, error) {
		return b.next.GetPreferences(ctx, userID)
	}))
}

func (b *breakerRepository) GetBasicAttributes(ctx context.Context, userID int64) (*scoring.BasicAttributes, error) {
	return cast[*scoring.BasicAttributes](b.execute("get basic attributes", func() (interface{}, error) {
		return b.next.GetBasicAttributes(ctx, userID)
	}))
}

func (b *breakerRepository) GetExclusionSet(ctx context.Context, userID int64) (ExclusionSet, error) {
	set, err := cast[ExclusionSet](b.execute("get exclusion set", func() (interface{}, error) {
		return b.next.GetExclusionSet(ctx, userID)
	}))
	if set.Acted == nil {
		set = NewExclusionSet()
	}
	return set, err
}

func (b *breakerRepository) GetEligibilityStatus(ctx context.Context, userID int64) (bool, error) {
	return cast[bool](b.execute("get eligibility", func() (interface{}, error) {
		return b.next.GetEligibilityStatus(ctx, userID)
	}))
}

func (b *breakerRepository) ListCandidatePool(ctx context.Context, viewerID int64, filter PoolFilter) ([]*CandidateRecord, error) {
	return cast[[]*CandidateRecord](b.execute("list candidate pool", func() (interface{}, error) {
		return b.next.ListCandidatePool(ctx, viewerID, filter)
	}))
}
