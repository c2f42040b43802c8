package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/imadgeboyega/kiekky-matching/internal/logging"
	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

// Repository is the read side of the persistence collaborator. Absent data is
// reported as a nil value with a nil error.
type Repository interface {
	GetMember(ctx context.Context, userID int64) (*Member, error)
	GetNatalChart(ctx context.Context, userID int64) (*scoring.NatalChart, error)
	GetQuestionnaireResponses(ctx context.Context, userID int64) ([]int, error)
	GetPreferences(ctx context.Context, userID int64) (*Preferences, error)
	GetBasicAttributes(ctx context.Context, userID int64) (*scoring.BasicAttributes, error)
	GetExclusionSet(ctx context.Context, userID int64) (ExclusionSet, error)
	GetEligibilityStatus(ctx context.Context, userID int64) (bool, error)
	ListCandidatePool(ctx context.Context, viewerID int64, filter PoolFilter) ([]*CandidateRecord, error)
}

// RequiredTables are the relations the Postgres repository reads.
var RequiredTables = []string{
	"user_profiles", "natal_charts", "questionnaire_responses", "match_preferences",
	"swipes", "date_requests", "blocked_users", "subscriptions",
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const memberColumns = `
	p.user_id,
	COALESCE(p.gender, '') AS gender,
	COALESCE(EXTRACT(YEAR FROM AGE(p.birth_date))::int, 0) AS age,
	p.group_id,
	COALESCE(p.cross_group_opt_in, FALSE) AS cross_group_opt_in,
	COALESCE(p.category, '') AS category,
	COALESCE(p.session_count, 0) AS session_count,
	p.last_active_at,
	p.latitude,
	p.longitude`

func (r *postgresRepository) GetMember(ctx context.Context, userID int64) (*Member, error) {
	var m Member
	query := `SELECT` + memberColumns + `
		FROM user_profiles p
		WHERE p.user_id = $1`

	err := r.db.GetContext(ctx, &m, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member %d: %w", userID, err)
	}
	return &m, nil
}

// chartPlacement is the stored JSON shape; labels are normalized on decode.
type chartPlacement struct {
	Sign     string   `json:"sign"`
	Degree   float64  `json:"degree"`
	Absolute *float64 `json:"absolute_degree"`
}

func (r *postgresRepository) GetNatalChart(ctx context.Context, userID int64) (*scoring.NatalChart, error) {
	var raw []byte
	query := `SELECT placements FROM natal_charts WHERE user_id = $1`

	err := r.db.QueryRowxContext(ctx, query, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get natal chart %d: %w", userID, err)
	}
	return decodeChart(userID, raw), nil
}

// decodeChart never fails; an undecodable document yields a chart without
// placements, which scores as neutral.
func decodeChart(userID int64, raw []byte) *scoring.NatalChart {
	chart := &scoring.NatalChart{UserID: userID, Placements: map[scoring.Body]scoring.Placement{}}
	if len(raw) == 0 {
		return chart
	}

	var doc map[string]chartPlacement
	if err := json.Unmarshal(raw, &doc); err != nil {
		logging.Warn().Err(err).Int64("user_id", userID).Msg("undecodable natal chart")
		return chart
	}
	for body, p := range doc {
		sign, ok := scoring.ParseSign(p.Sign)
		if !ok {
			logging.Warn().Int64("user_id", userID).Str("sign", p.Sign).Msg("unknown sign label in natal chart")
		}
		chart.Placements[scoring.Body(strings.ToLower(strings.TrimSpace(body)))] = scoring.Placement{
			Sign:     sign,
			Degree:   p.Degree,
			Absolute: p.Absolute,
		}
	}
	return chart
}

func (r *postgresRepository) GetQuestionnaireResponses(ctx context.Context, userID int64) ([]int, error) {
	var answers pq.Int64Array
	query := `SELECT answers FROM questionnaire_responses WHERE user_id = $1`

	err := r.db.QueryRowxContext(ctx, query, userID).Scan(&answers)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get questionnaire %d: %w", userID, err)
	}
	if answers == nil {
		return nil, nil
	}
	out := make([]int, len(answers))
	for i, a := range answers {
		out[i] = int(a)
	}
	return scoring.NormalizeAnswers(out), nil
}

type preferencesRow struct {
	UserID        int64           `db:"user_id"`
	MinAge        sql.NullInt64   `db:"min_age"`
	MaxAge        sql.NullInt64   `db:"max_age"`
	Seeking       pq.StringArray  `db:"seeking"`
	Category      sql.NullString  `db:"category"`
	CrossGroup    sql.NullBool    `db:"cross_group"`
	MaxDistanceKm sql.NullFloat64 `db:"max_distance_km"`
}

func (row preferencesRow) toPreferences() *Preferences {
	p := &Preferences{
		UserID:     row.UserID,
		MinAge:     int(row.MinAge.Int64),
		MaxAge:     int(row.MaxAge.Int64),
		Seeking:    []string(row.Seeking),
		Category:   row.Category.String,
		CrossGroup: row.CrossGroup.Bool,
	}
	if row.MaxDistanceKm.Valid {
		km := row.MaxDistanceKm.Float64
		p.MaxDistanceKm = &km
	}
	return p
}

const preferencesColumns = `
	mp.user_id, mp.min_age, mp.max_age, mp.seeking, mp.category,
	mp.cross_group, mp.max_distance_km`

func (r *postgresRepository) GetPreferences(ctx context.Context, userID int64) (*Preferences, error) {
	var row preferencesRow
	query := `SELECT` + preferencesColumns + `
		FROM match_preferences mp
		WHERE mp.user_id = $1`

	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences %d: %w", userID, err)
	}
	return row.toPreferences(), nil
}

type basicRow struct {
	UserID       int64          `db:"user_id"`
	Interests    pq.StringArray `db:"interests"`
	Traits       pq.StringArray `db:"traits"`
	Stance       string         `db:"stance"`
	Education    string         `db:"education"`
	ChildrenPref string         `db:"children_pref"`
	Age          int            `db:"age"`
}

func (r *postgresRepository) GetBasicAttributes(ctx context.Context, userID int64) (*scoring.BasicAttributes, error) {
	var row basicRow
	query := `
		SELECT p.user_id, p.interests, p.traits,
		       COALESCE(p.political_stance, '') AS stance,
		       COALESCE(p.education, '') AS education,
		       COALESCE(p.children_pref, '') AS children_pref,
		       COALESCE(EXTRACT(YEAR FROM AGE(p.birth_date))::int, 0) AS age
		FROM user_profiles p
		WHERE p.user_id = $1`

	err := r.db.GetContext(ctx, &row, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get basic attributes %d: %w", userID, err)
	}
	return &scoring.BasicAttributes{
		UserID:       row.UserID,
		Interests:    []string(row.Interests),
		Traits:       []string(row.Traits),
		Stance:       row.Stance,
		Education:    row.Education,
		ChildrenPref: row.ChildrenPref,
		Age:          row.Age,
	}, nil
}

func (r *postgresRepository) GetExclusionSet(ctx context.Context, userID int64) (ExclusionSet, error) {
	set := NewExclusionSet()
	query := `
		SELECT swiped_id AS other_id, 'acted' AS kind FROM swipes WHERE swiper_id = $1
		UNION
		SELECT receiver_id, 'acted' FROM date_requests WHERE sender_id = $1 AND status = 'pending'
		UNION
		SELECT sender_id, 'acted' FROM date_requests WHERE receiver_id = $1 AND status = 'pending'
		UNION
		SELECT blocked_id, 'blocked' FROM blocked_users WHERE blocker_id = $1
		UNION
		SELECT blocker_id, 'blocked' FROM blocked_users WHERE blocked_id = $1`

	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return set, fmt.Errorf("get exclusion set %d: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var kind string
		if err := rows.Scan(&id, &kind); err != nil {
			return set, fmt.Errorf("scan exclusion row: %w", err)
		}
		if kind == "blocked" {
			set.Blocked[id] = struct{}{}
		} else {
			set.Acted[id] = struct{}{}
		}
	}
	return set, rows.Err()
}

func (r *postgresRepository) GetEligibilityStatus(ctx context.Context, userID int64) (bool, error) {
	var eligible bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND status = 'active'
			  AND (expires_at IS NULL OR expires_at > NOW())
		)`

	if err := r.db.GetContext(ctx, &eligible, query, userID); err != nil {
		return false, fmt.Errorf("get eligibility %d: %w", userID, err)
	}
	return eligible, nil
}

type candidateRow struct {
	Member
	Eligible          bool            `db:"eligible"`
	PrefUserID        sql.NullInt64   `db:"pref_user_id"`
	PrefMinAge        sql.NullInt64   `db:"pref_min_age"`
	PrefMaxAge        sql.NullInt64   `db:"pref_max_age"`
	PrefSeeking       pq.StringArray  `db:"pref_seeking"`
	PrefCategory      sql.NullString  `db:"pref_category"`
	PrefCrossGroup    sql.NullBool    `db:"pref_cross_group"`
	PrefMaxDistanceKm sql.NullFloat64 `db:"pref_max_distance_km"`
}

// ListCandidatePool returns one window of candidates for viewerID. Group scope,
// swipes, blocks in either direction, pending date requests and the explicit
// exclude list are applied here; every other rule is left to the pipeline.
func (r *postgresRepository) ListCandidatePool(ctx context.Context, viewerID int64, filter PoolFilter) ([]*CandidateRecord, error) {
	query := `SELECT` + memberColumns + `,
		EXISTS(
			SELECT 1 FROM subscriptions s
			WHERE s.user_id = p.user_id AND s.status = 'active'
			  AND (s.expires_at IS NULL OR s.expires_at > NOW())
		) AS eligible,
		mp.user_id AS pref_user_id, mp.min_age AS pref_min_age, mp.max_age AS pref_max_age,
		mp.seeking AS pref_seeking, mp.category AS pref_category,
		mp.cross_group AS pref_cross_group, mp.max_distance_km AS pref_max_distance_km
		FROM user_profiles p
		LEFT JOIN match_preferences mp ON mp.user_id = p.user_id
		WHERE p.user_id <> $1
		  AND NOT EXISTS (SELECT 1 FROM swipes sw WHERE sw.swiper_id = $1 AND sw.swiped_id = p.user_id)
		  AND NOT EXISTS (
			SELECT 1 FROM blocked_users b
			WHERE (b.blocker_id = $1 AND b.blocked_id = p.user_id)
			   OR (b.blocker_id = p.user_id AND b.blocked_id = $1)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM date_requests dr
			WHERE dr.status = 'pending'
			  AND ((dr.sender_id = $1 AND dr.receiver_id = p.user_id)
			    OR (dr.sender_id = p.user_id AND dr.receiver_id = $1))
		  )`

	args := []interface{}{viewerID}
	if filter.GroupID != nil {
		args = append(args, *filter.GroupID)
		if filter.CrossGroup {
			query += fmt.Sprintf(" AND (p.group_id = $%d OR p.cross_group_opt_in = TRUE)", len(args))
		} else {
			query += fmt.Sprintf(" AND p.group_id = $%d", len(args))
		}
	}
	if len(filter.Exclude) > 0 {
		args = append(args, pq.Array(filter.Exclude))
		query += fmt.Sprintf(" AND p.user_id <> ALL($%d)", len(args))
	}
	query += " ORDER BY p.last_active_at DESC NULLS LAST, p.user_id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidate pool for %d: %w", viewerID, err)
	}
	defer rows.Close()

	var pool []*CandidateRecord
	for rows.Next() {
		var row candidateRow
		if err := rows.StructScan(&row); err != nil {
			logging.Warn().Err(err).Int64("viewer_id", viewerID).Msg("skipping unreadable candidate row")
			continue
		}
		eligible := row.Eligible
		rec := &CandidateRecord{Member: row.Member, Eligible: &eligible, PrefsLoaded: true}
		if row.PrefUserID.Valid {
			rec.Preferences = preferencesRow{
				UserID:        row.PrefUserID.Int64,
				MinAge:        row.PrefMinAge,
				MaxAge:        row.PrefMaxAge,
				Seeking:       row.PrefSeeking,
				Category:      row.PrefCategory,
				CrossGroup:    row.PrefCrossGroup,
				MaxDistanceKm: row.PrefMaxDistanceKm,
			}.toPreferences()
		}
		pool = append(pool, rec)
	}
	return pool, rows.Err()
}
