package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

func newMockRepository(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPostgresRepository(sqlx.NewDb(db, "postgres")), mock
}

var memberColumnNames = []string{
	"user_id", "gender", "age", "group_id", "cross_group_opt_in",
	"category", "session_count", "last_active_at", "latitude", "longitude",
}

func TestPostgresGetMember(t *testing.T) {
	repo, mock := newMockRepository(t)
	active := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM user_profiles p\s+WHERE p.user_id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(memberColumnNames).
			AddRow(int64(5), "male", 29, int64(3), true, "lightweight", 12, active, 51.5, -0.12))

	m, err := repo.GetMember(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if m.UserID != 5 || m.Gender != "male" || m.Age != 29 || m.Category != "lightweight" {
		t.Errorf("member = %+v", m)
	}
	if m.GroupID == nil || *m.GroupID != 3 || !m.GroupCrossOptIn {
		t.Errorf("group = %v opt-in %v", m.GroupID, m.GroupCrossOptIn)
	}
	if m.LastActive == nil || !m.LastActive.Equal(active) || !m.HasLocation() {
		t.Errorf("last active %v location %v", m.LastActive, m.HasLocation())
	}
}

func TestPostgresGetMemberMissing(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM user_profiles`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(memberColumnNames))

	m, err := repo.GetMember(context.Background(), 8)
	if err != nil || m != nil {
		t.Errorf("GetMember = %+v, %v; want nil, nil", m, err)
	}
}

func TestPostgresGetNatalChart(t *testing.T) {
	repo, mock := newMockRepository(t)
	doc := `{"Sun": {"sign": "Leo", "degree": 10}, "moon": {"sign": "aries", "degree": 2, "absolute_degree": 2.5}, "venus": {"sign": "Ophiuchus", "degree": 3}}`

	mock.ExpectQuery(`SELECT placements FROM natal_charts`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"placements"}).AddRow([]byte(doc)))

	chart, err := repo.GetNatalChart(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetNatalChart: %v", err)
	}
	sun, ok := chart.Placements[scoring.Sun]
	if !ok || sun.Sign != scoring.Leo || sun.Degree != 10 {
		t.Errorf("sun = %+v", sun)
	}
	moon := chart.Placements[scoring.Moon]
	if moon.Absolute == nil || *moon.Absolute != 2.5 {
		t.Errorf("moon = %+v", moon)
	}
	if got := chart.Positions()[scoring.Sun]; got != 130 {
		t.Errorf("sun position = %v, want 130", got)
	}
}

func TestPostgresGetNatalChartEdgeCases(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()

	mock.ExpectQuery(`FROM natal_charts`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"placements"}))
	mock.ExpectQuery(`FROM natal_charts`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"placements"}).AddRow([]byte("not json")))
	mock.ExpectQuery(`FROM natal_charts`).WithArgs(int64(3)).
		WillReturnError(errors.New("connection reset"))

	if chart, err := repo.GetNatalChart(ctx, 1); err != nil || chart != nil {
		t.Errorf("missing chart = %+v, %v", chart, err)
	}
	chart, err := repo.GetNatalChart(ctx, 2)
	if err != nil || chart == nil || chart.Usable() {
		t.Errorf("undecodable chart = %+v, %v; want an empty chart", chart, err)
	}
	if _, err := repo.GetNatalChart(ctx, 3); err == nil {
		t.Error("expected the query error")
	}
}

func TestPostgresGetQuestionnaireResponses(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM questionnaire_responses`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"answers"}).AddRow("{1,5,9,0,3}"))

	answers, err := repo.GetQuestionnaireResponses(context.Background(), 4)
	if err != nil {
		t.Fatalf("GetQuestionnaireResponses: %v", err)
	}
	want := []int{1, 5, 3, 3, 3}
	if len(answers) != len(want) {
		t.Fatalf("answers = %v, want %v", answers, want)
	}
	for i := range want {
		if answers[i] != want[i] {
			t.Errorf("answers = %v, want %v", answers, want)
			break
		}
	}
}

func TestPostgresGetPreferences(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM match_preferences mp`).
		WithArgs(int64(6)).
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "min_age", "max_age", "seeking", "category", "cross_group", "max_distance_km",
		}).AddRow(int64(6), 21, nil, "{female,nonbinary}", nil, true, 25.0))

	p, err := repo.GetPreferences(context.Background(), 6)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if p.MinAge != 21 || p.MaxAge != 0 || !p.CrossGroup || len(p.Seeking) != 2 {
		t.Errorf("preferences = %+v", p)
	}
	if p.MaxDistanceKm == nil || *p.MaxDistanceKm != 25 {
		t.Errorf("distance = %v", p.MaxDistanceKm)
	}
}

func TestPostgresGetExclusionSet(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM swipes WHERE swiper_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"other_id", "kind"}).
			AddRow(int64(2), "acted").
			AddRow(int64(3), "acted").
			AddRow(int64(4), "blocked"))

	set, err := repo.GetExclusionSet(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetExclusionSet: %v", err)
	}
	if !set.HasActed(2) || !set.HasActed(3) || !set.IsBlocked(4) || set.IsBlocked(2) {
		t.Errorf("set = %+v", set)
	}
	if set.Contains(5) {
		t.Error("unexpected member 5")
	}
}

func TestPostgresGetEligibilityStatus(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`FROM subscriptions`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.GetEligibilityStatus(context.Background(), 1)
	if err != nil || !ok {
		t.Errorf("eligibility = %v, %v", ok, err)
	}
}

func TestPostgresListCandidatePool(t *testing.T) {
	repo, mock := newMockRepository(t)
	cols := append(append([]string{}, memberColumnNames...),
		"eligible", "pref_user_id", "pref_min_age", "pref_max_age", "pref_seeking",
		"pref_category", "pref_cross_group", "pref_max_distance_km")

	mock.ExpectQuery(`(?s)LEFT JOIN match_preferences mp .*`+
		`NOT EXISTS \(SELECT 1 FROM swipes sw WHERE sw.swiper_id = \$1 AND sw.swiped_id = p.user_id\).*`+
		`FROM blocked_users b.*b.blocker_id = p.user_id AND b.blocked_id = \$1.*`+
		`FROM date_requests dr.*dr.status = 'pending'.*`+
		`AND \(p.group_id = \$2 OR p.cross_group_opt_in = TRUE\) `+
		`ORDER BY p.last_active_at DESC NULLS LAST, p.user_id LIMIT \$3$`).
		WithArgs(int64(1), int64(10), int64(50)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(2), "male", 30, int64(10), false, "", 4, nil, nil, nil,
				true, int64(2), 25, 35, "{female}", nil, false, nil).
			AddRow(int64(3), "male", 33, nil, true, "", 0, nil, nil, nil,
				false, nil, nil, nil, nil, nil, nil, nil))

	pool, err := repo.ListCandidatePool(context.Background(), 1, PoolFilter{GroupID: i64(10), CrossGroup: true, Limit: 50})
	if err != nil {
		t.Fatalf("ListCandidatePool: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("pool size = %d, want 2", len(pool))
	}
	first, second := pool[0], pool[1]
	if first.Eligible == nil || !*first.Eligible || first.Preferences == nil || first.Preferences.MaxAge != 35 {
		t.Errorf("first = %+v prefs %+v", first, first.Preferences)
	}
	if second.Eligible == nil || *second.Eligible || second.Preferences != nil {
		t.Errorf("second = %+v", second)
	}
	if !first.PrefsLoaded || !second.PrefsLoaded {
		t.Error("pool rows should mark preferences as loaded")
	}
}

func TestPostgresListCandidatePoolWindow(t *testing.T) {
	repo, mock := newMockRepository(t)
	cols := append(append([]string{}, memberColumnNames...),
		"eligible", "pref_user_id", "pref_min_age", "pref_max_age", "pref_seeking",
		"pref_category", "pref_cross_group", "pref_max_distance_km")

	mock.ExpectQuery(`(?s)WHERE p.user_id <> \$1 .* AND p.group_id = \$2 AND p.user_id <> ALL\(\$3\) `+
		`ORDER BY p.last_active_at DESC NULLS LAST, p.user_id LIMIT \$4 OFFSET \$5$`).
		WithArgs(int64(1), int64(10), sqlmock.AnyArg(), int64(2), int64(4)).
		WillReturnRows(sqlmock.NewRows(cols))

	pool, err := repo.ListCandidatePool(context.Background(), 1, PoolFilter{
		GroupID: i64(10),
		Exclude: []int64{3, 5},
		Limit:   2,
		Offset:  4,
	})
	if err != nil {
		t.Fatalf("ListCandidatePool: %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("pool = %v, want empty", pool)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
