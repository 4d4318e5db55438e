package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
)

type groupPrefStub struct {
	pref *models.GroupPreference
}

func (s groupPrefStub) EnsurePreference(ctx context.Context, groupID string, defaultHours float64) (*models.GroupPreference, error) {
	if s.pref != nil {
		return s.pref, nil
	}
	return &models.GroupPreference{GroupID: groupID, PreferredHoursPerWeek: defaultHours}, nil
}

type memberReaderStub struct {
	members []string
}

func (s memberReaderStub) ListApprovedMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	return s.members, nil
}

type canonicalWriterStub struct {
	replaced []models.GroupPlanBlock
}

func (s *canonicalWriterStub) ReplaceForGroupWeek(ctx context.Context, exec sqlx.ExtContext, groupID string, weekStart time.Time, blocks []models.GroupPlanBlock) error {
	for i := range blocks {
		blocks[i].ID = fmt.Sprintf("gblock-%d", i+1)
	}
	s.replaced = blocks
	return nil
}

type commonAvailabilityStub struct {
	free map[int][]Interval
}

func (s commonAvailabilityStub) CommonFreeIntervals(ctx context.Context, userIDs []string, weekStart time.Time) (map[int][]Interval, error) {
	result := make(map[int][]Interval, 7)
	for day := 0; day < 7; day++ {
		result[day] = append([]Interval(nil), s.free[day]...)
	}
	return result, nil
}

type syncPlanStoreStub struct {
	plans map[string]*models.WeeklyPlan
}

func (s *syncPlanStoreStub) GetOrCreate(ctx context.Context, exec sqlx.ExtContext, userID string, weekStart time.Time, source string) (*models.WeeklyPlan, error) {
	if s.plans == nil {
		s.plans = make(map[string]*models.WeeklyPlan)
	}
	if plan, ok := s.plans[userID]; ok {
		return plan, nil
	}
	plan := &models.WeeklyPlan{ID: "plan-" + userID, UserID: userID, WeekStart: weekStart, Source: source}
	s.plans[userID] = plan
	return plan, nil
}

type syncBlockStoreStub struct {
	inserted []models.PlanBlock
	deleted  []string
}

func (s *syncBlockStoreStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, blocks []models.PlanBlock) error {
	s.inserted = append(s.inserted, blocks...)
	return nil
}

func (s *syncBlockStoreStub) DeleteByGroupBlock(ctx context.Context, exec sqlx.ExtContext, groupBlockID string) error {
	s.deleted = append(s.deleted, groupBlockID)
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

type groupPlannerFixture struct {
	planner   *GroupPlanner
	canonical *canonicalWriterStub
	planStore *syncPlanStoreStub
	blocks    *syncBlockStoreStub
	mock      sqlmock.Sqlmock
}

func newGroupPlannerFixture(t *testing.T, members []string, pref *models.GroupPreference, free map[int][]Interval) *groupPlannerFixture {
	tx, mock := newTxProviderMock(t)
	canonical := &canonicalWriterStub{}
	planStore := &syncPlanStoreStub{}
	blocks := &syncBlockStoreStub{}
	planner := NewGroupPlanner(
		tx,
		groupPrefStub{pref: pref},
		memberReaderStub{members: members},
		canonical,
		commonAvailabilityStub{free: free},
		NewPlanSynchronizer(planStore, blocks),
		nil,
		RefinerConfig{SlotMinutes: 30, MaxSessionMinutes: 120},
		2,
		nil,
	)
	return &groupPlannerFixture{planner: planner, canonical: canonical, planStore: planStore, blocks: blocks, mock: mock}
}

func TestGroupPlannerPlacesSharedSlot(t *testing.T) {
	f := newGroupPlannerFixture(t,
		[]string{"alice", "bob"},
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 2},
		map[int][]Interval{
			2: {{Start: 720, End: 900}},
			4: {{Start: 600, End: 690}},
		},
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	group := &models.Group{ID: "group-1", CourseID: "math"}
	report, err := f.planner.PlanGroupWeek(context.Background(), group, testWeek())
	require.NoError(t, err)

	assert.Equal(t, 120, report.TargetMinutes)
	assert.Equal(t, 120, report.PlacedMinutes)
	assert.Equal(t, 0, report.ShortfallMinutes)
	assert.Equal(t, 1, report.Blocks)

	// The longest shared run wins.
	require.Len(t, f.canonical.replaced, 1)
	placed := f.canonical.replaced[0]
	assert.Equal(t, 2, placed.DayOfWeek)
	assert.Equal(t, "12:00", placed.StartTime)
	assert.Equal(t, "14:00", placed.EndTime)
	assert.Equal(t, "system", placed.CreatedBy)

	// One copy fanned out per member, pointing back at the canonical row.
	require.Len(t, f.blocks.inserted, 2)
	for _, copyBlock := range f.blocks.inserted {
		assert.Equal(t, models.BlockKindGroup, copyBlock.Kind)
		require.NotNil(t, copyBlock.GroupBlockID)
		assert.Equal(t, placed.ID, *copyBlock.GroupBlockID)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGroupPlannerReportsShortfall(t *testing.T) {
	f := newGroupPlannerFixture(t,
		[]string{"alice", "bob"},
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 4},
		map[int][]Interval{3: {{Start: 720, End: 840}}},
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	report, err := f.planner.PlanGroupWeek(context.Background(), &models.Group{ID: "group-1", CourseID: "math"}, testWeek())
	require.NoError(t, err)

	assert.Equal(t, 240, report.TargetMinutes)
	assert.Equal(t, 120, report.PlacedMinutes)
	assert.Equal(t, 120, report.ShortfallMinutes)
}

func TestGroupPlannerSplitsLongRunToMeetTarget(t *testing.T) {
	f := newGroupPlannerFixture(t,
		[]string{"alice", "bob"},
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 4},
		map[int][]Interval{2: {{Start: 720, End: 1080}}},
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	report, err := f.planner.PlanGroupWeek(context.Background(), &models.Group{ID: "group-1", CourseID: "math"}, testWeek())
	require.NoError(t, err)

	// 240 minutes fit inside the single six-hour run as two sessions.
	assert.Equal(t, 240, report.TargetMinutes)
	assert.Equal(t, 240, report.PlacedMinutes)
	assert.Equal(t, 0, report.ShortfallMinutes)

	require.Len(t, f.canonical.replaced, 2)
	assert.Equal(t, "12:00", f.canonical.replaced[0].StartTime)
	assert.Equal(t, "14:00", f.canonical.replaced[0].EndTime)
	assert.Equal(t, "14:00", f.canonical.replaced[1].StartTime)
	assert.Equal(t, "16:00", f.canonical.replaced[1].EndTime)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGroupPlannerTopsUpPartialOracleChoice(t *testing.T) {
	f := newGroupPlannerFixture(t,
		[]string{"alice", "bob"},
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 2},
		map[int][]Interval{2: {{Start: 480, End: 840}}},
	)
	oracle := &oracleStub{candidates: []dto.PlacementCandidate{
		{CourseID: "math", DayOfWeek: 2, StartTime: "13:00", EndTime: "13:30"},
	}}
	f.planner.oracle = oracle
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	report, err := f.planner.PlanGroupWeek(context.Background(), &models.Group{ID: "group-1", CourseID: "math"}, testWeek())
	require.NoError(t, err)

	// The accepted half-hour counts, and the rest of the target comes from
	// the remaining shared free time.
	assert.Equal(t, 1, oracle.calls)
	assert.Equal(t, 120, report.TargetMinutes)
	assert.Equal(t, 120, report.PlacedMinutes)
	assert.Equal(t, 0, report.ShortfallMinutes)

	require.Len(t, f.canonical.replaced, 2)
	assert.Equal(t, "08:00", f.canonical.replaced[0].StartTime)
	assert.Equal(t, "09:30", f.canonical.replaced[0].EndTime)
	assert.Equal(t, "13:00", f.canonical.replaced[1].StartTime)
	assert.Equal(t, "13:30", f.canonical.replaced[1].EndTime)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestGroupPlannerNoApprovedMembers(t *testing.T) {
	f := newGroupPlannerFixture(t, nil,
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 2}, nil)

	report, err := f.planner.PlanGroupWeek(context.Background(), &models.Group{ID: "group-1", CourseID: "math"}, testWeek())
	require.NoError(t, err)
	assert.Equal(t, "group has no approved members", report.Error)
	assert.Empty(t, f.canonical.replaced)
}

func TestGroupPlannerZeroTarget(t *testing.T) {
	f := newGroupPlannerFixture(t, []string{"alice"},
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 0}, nil)

	report, err := f.planner.PlanGroupWeek(context.Background(), &models.Group{ID: "group-1", CourseID: "math"}, testWeek())
	require.NoError(t, err)
	assert.Zero(t, report.TargetMinutes)
	assert.Zero(t, report.Blocks)
	assert.Empty(t, f.canonical.replaced)
}

func TestGroupPlannerHonoursPreferredWindows(t *testing.T) {
	summary := []byte(`{"preferred_windows":[{"days":[5],"start_time":"18:00","end_time":"22:00"}]}`)
	f := newGroupPlannerFixture(t,
		[]string{"alice", "bob"},
		&models.GroupPreference{GroupID: "group-1", PreferredHoursPerWeek: 1.5, PreferenceSummary: summary},
		map[int][]Interval{
			1: {{Start: 480, End: 1320}},
			5: {{Start: 480, End: 1320}},
		},
	)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	report, err := f.planner.PlanGroupWeek(context.Background(), &models.Group{ID: "group-1", CourseID: "math"}, testWeek())
	require.NoError(t, err)
	assert.Equal(t, 90, report.PlacedMinutes)

	require.Len(t, f.canonical.replaced, 1)
	assert.Equal(t, 5, f.canonical.replaced[0].DayOfWeek)
	assert.Equal(t, "18:00", f.canonical.replaced[0].StartTime)
}
