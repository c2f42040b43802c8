package matching

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/imadgeboyega/kiekky-matching/internal/common/utils"
	"github.com/imadgeboyega/kiekky-matching/internal/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

// Options are the deployment knobs of an Engine.
type Options struct {
	CacheTTL     time.Duration
	Concurrency  int
	DefaultLimit int
	MaxLimit     int
	PoolSize     int
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.MaxLimit <= 0 {
		o.MaxLimit = 100
	}
	if o.DefaultLimit <= 0 || o.DefaultLimit > o.MaxLimit {
		o.DefaultLimit = 20
		if o.DefaultLimit > o.MaxLimit {
			o.DefaultLimit = o.MaxLimit
		}
	}
	if o.PoolSize <= 0 {
		o.PoolSize = 500
	}
	return o
}

// Engine is the entry point for compatibility scoring and candidate ranking.
type Engine struct {
	repo       Repository
	cache      CompatibilityCache
	aggregator *scoring.Aggregator
	pipeline   *FilterPipeline
	opts       Options
}

func NewEngine(repo Repository, cache CompatibilityCache, aggregator *scoring.Aggregator, pipeline *FilterPipeline, opts Options) *Engine {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Engine{
		repo:       repo,
		cache:      cache,
		aggregator: aggregator,
		pipeline:   pipeline,
		opts:       opts.withDefaults(),
	}
}

// profile is everything scoring needs about one user.
type profile struct {
	userID  int64
	chart   *scoring.NatalChart
	answers []int
	basic   scoring.BasicAttributes
}

func (e *Engine) loadProfile(ctx context.Context, userID int64) (*profile, error) {
	p := &profile{userID: userID, basic: scoring.BasicAttributes{UserID: userID}}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		chart, err := e.repo.GetNatalChart(ctx, userID)
		if err != nil {
			return persistenceErr("get natal chart", err)
		}
		p.chart = chart
		return nil
	})
	g.Go(func() error {
		answers, err := e.repo.GetQuestionnaireResponses(ctx, userID)
		if err != nil {
			return persistenceErr("get questionnaire", err)
		}
		p.answers = answers
		return nil
	})
	g.Go(func() error {
		basic, err := e.repo.GetBasicAttributes(ctx, userID)
		if err != nil {
			return persistenceErr("get basic attributes", err)
		}
		if basic != nil {
			p.basic = *basic
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// score returns the cached result for the pair or computes and caches it. The
// lower user id is always scored as side A.
func (e *Engine) score(ctx context.Context, a, b *profile) *scoring.CompatibilityResult {
	key := scoring.NewPairKey(a.userID, b.userID)
	if cached, ok := e.cache.Get(ctx, key); ok {
		RecordCacheLookup(true)
		return cached
	}
	RecordCacheLookup(false)

	if a.userID > b.userID {
		a, b = b, a
	}
	result := e.aggregator.Compute(scoring.Inputs{
		Pair:     key,
		ChartA:   a.chart,
		ChartB:   b.chart,
		AnswersA: a.answers,
		AnswersB: b.answers,
		BasicA:   a.basic,
		BasicB:   b.basic,
	})
	RecordComputation(result)

	e.cache.Put(ctx, key, result, e.opts.CacheTTL)
	result.ExpiresAt = result.ComputedAt.Add(e.opts.CacheTTL)
	return result
}

// CalculateCompatibility scores a pair. Missing profile data degrades to neutral
// components; only collaborator failures are returned.
func (e *Engine) CalculateCompatibility(ctx context.Context, userA, userB int64) (*scoring.CompatibilityResult, error) {
	if userA <= 0 || userB <= 0 {
		return nil, invalidFilter("user ids must be positive")
	}
	if userA == userB {
		return nil, invalidFilter("cannot score a user against themselves")
	}

	var a, b *profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a, err = e.loadProfile(gctx, userA)
		return err
	})
	g.Go(func() (err error) {
		b, err = e.loadProfile(gctx, userB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return e.score(ctx, a, b), nil
}

// OnProfileChanged is called by the owning write path whenever a user's chart,
// questionnaire, attributes or preferences change.
func (e *Engine) OnProfileChanged(ctx context.Context, userID int64) {
	e.cache.InvalidateUser(ctx, userID)
	logging.Ctx(ctx).Debug().Int64("user_id", userID).Msg("compatibility cache invalidated")
}

// resolveParams validates params and fills limit defaults.
func (e *Engine) resolveParams(p FilterParams) (FilterParams, error) {
	if err := utils.ValidateStruct(p); err != nil {
		return p, invalidFilter("%v", err)
	}
	if p.MinAge != nil && p.MaxAge != nil && *p.MinAge > *p.MaxAge {
		return p, invalidFilter("min_age %d is above max_age %d", *p.MinAge, *p.MaxAge)
	}
	if e.pipeline.Ladder != nil && !e.pipeline.Ladder.Known(p.Category) {
		return p, invalidFilter("unknown category %q", p.Category)
	}
	if p.Limit == 0 {
		p.Limit = e.opts.DefaultLimit
	}
	if p.Limit > e.opts.MaxLimit {
		p.Limit = e.opts.MaxLimit
	}
	return p, nil
}

// viewerContext merges stored preferences with the request. Age bounds from the
// request narrow the stored range; they never widen it.
func viewerContext(m *Member, prefs *Preferences, excl ExclusionSet, p FilterParams) *ViewerContext {
	v := &ViewerContext{
		Member:      m,
		Preferences: prefs,
		Exclusions:  excl,
		Explicit:    make(map[int64]struct{}, len(p.Exclude)),
		Category:    p.Category,
	}
	for _, id := range p.Exclude {
		v.Explicit[id] = struct{}{}
	}
	if prefs != nil {
		v.MinAge, v.MaxAge = prefs.MinAge, prefs.MaxAge
		v.CrossGroup = prefs.CrossGroup
		v.MaxDistanceKm = prefs.MaxDistanceKm
		if v.Category == "" {
			v.Category = prefs.Category
		}
	}
	if p.MinAge != nil && *p.MinAge > v.MinAge {
		v.MinAge = *p.MinAge
	}
	if p.MaxAge != nil && (v.MaxAge == 0 || *p.MaxAge < v.MaxAge) {
		v.MaxAge = *p.MaxAge
	}
	if p.CrossGroup != nil {
		v.CrossGroup = *p.CrossGroup
	}
	if p.MaxDistanceKm != nil {
		v.MaxDistanceKm = p.MaxDistanceKm
	}
	return v
}

// GetRankedCandidates runs the candidate pipeline for viewerID. Candidates that
// fail to load or score are dropped and counted; the request still succeeds.
func (e *Engine) GetRankedCandidates(ctx context.Context, viewerID int64, params FilterParams) (*CandidatePage, error) {
	start := time.Now()
	defer func() { RecordRankingDuration(time.Since(start)) }()

	params, err := e.resolveParams(params)
	if err != nil {
		return nil, err
	}

	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)

	member, err := e.repo.GetMember(ctx, viewerID)
	if err != nil {
		return nil, persistenceErr("get member", err)
	}
	if member == nil {
		return nil, ErrUserNotFound
	}

	var (
		prefs  *Preferences
		excl   ExclusionSet
		viewer *profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if prefs, err = e.repo.GetPreferences(gctx, viewerID); err != nil {
			return persistenceErr("get preferences", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if excl, err = e.repo.GetExclusionSet(gctx, viewerID); err != nil {
			return persistenceErr("get exclusion set", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		viewer, err = e.loadProfile(gctx, viewerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if excl.Acted == nil || excl.Blocked == nil {
		excl = NewExclusionSet()
	}

	vc := viewerContext(member, prefs, excl, params)
	filter := PoolFilter{
		GroupID:    member.GroupID,
		CrossGroup: vc.CrossGroup,
		Exclude:    params.Exclude,
		Limit:      e.opts.PoolSize,
	}

	// Read every window until the pool runs dry; Total counts all admissible
	// candidates.
	var ranked []*CandidateRecord
	scanned := 0
	for {
		window, err := e.repo.ListCandidatePool(ctx, viewerID, filter)
		if err != nil {
			return nil, persistenceErr("list candidate pool", err)
		}
		if len(window) == 0 {
			break
		}
		scanned += len(window)

		admitted, err := e.evaluateWindow(ctx, vc, viewer, window)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, admitted...)
		filter.Offset += filter.Limit
	}
	if ranked == nil {
		ranked = []*CandidateRecord{}
	}
	Rank(ranked)

	log.Info().
		Int64("viewer_id", viewerID).
		Int("pool", scanned).
		Int("admitted", len(ranked)).
		Dur("elapsed", time.Since(start)).
		Msg("ranked candidates")

	return &CandidatePage{
		RunID:      runID,
		Candidates: Paginate(ranked, params.Limit, params.Offset),
		Total:      len(ranked),
		Limit:      params.Limit,
		Offset:     params.Offset,
	}, nil
}

// evaluateWindow evaluates one pool window with at most Concurrency candidates
// in flight and returns the admitted ones.
func (e *Engine) evaluateWindow(ctx context.Context, vc *ViewerContext, viewer *profile, window []*CandidateRecord) ([]*CandidateRecord, error) {
	log := logging.Ctx(ctx)
	survivors := make([]*CandidateRecord, len(window))

	work, wctx := errgroup.WithContext(ctx)
	work.SetLimit(e.opts.Concurrency)
	for i, c := range window {
		i, c := i, c
		work.Go(func() error {
			if wctx.Err() != nil {
				return wctx.Err()
			}
			rec, err := e.evaluateCandidate(wctx, vc, viewer, c)
			if err != nil {
				RecordCandidateError()
				log.Warn().Err(err).Int64("candidate_id", c.UserID).Msg("dropping candidate")
				return nil
			}
			survivors[i] = rec
			return nil
		})
	}
	if err := work.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	admitted := survivors[:0]
	for _, rec := range survivors {
		if rec != nil {
			admitted = append(admitted, rec)
		}
	}
	return admitted, nil
}

// evaluateCandidate returns nil for a filtered candidate and an error only when
// loading the candidate failed.
func (e *Engine) evaluateCandidate(ctx context.Context, vc *ViewerContext, viewer *profile, c *CandidateRecord) (*CandidateRecord, error) {
	if c.Eligible == nil {
		ok, err := e.repo.GetEligibilityStatus(ctx, c.UserID)
		if err != nil {
			return nil, persistenceErr("get eligibility", err)
		}
		c.Eligible = &ok
	}
	if !c.PrefsLoaded {
		prefs, err := e.repo.GetPreferences(ctx, c.UserID)
		if err != nil {
			return nil, persistenceErr("get preferences", err)
		}
		c.Preferences = prefs
		c.PrefsLoaded = true
	}

	d := e.pipeline.Evaluate(vc, c)
	if !d.Admitted() {
		RecordExclusion(d.Gate)
		logging.Ctx(ctx).Debug().
			Int64("candidate_id", c.UserID).
			Str("gate", string(d.Gate)).
			Str("reason", d.Reason).
			Msg("candidate excluded")
		return nil, nil
	}

	cand, err := e.loadProfile(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	c.DistanceKm = d.DistanceKm
	c.SameGroup = SameGroup(vc.Member, &c.Member)
	c.Result = e.score(ctx, viewer, cand)
	return c, nil
}
