package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-planner-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func planBlockRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "plan_id", "course_id", "kind", "day_of_week", "start_time", "end_time", "locked", "origin", "group_block_id", "created_at"})
}

func TestPlanBlockRepositoryListByPlan(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanBlockRepository(db)

	rows := planBlockRows().
		AddRow("block-1", "plan-1", "math", models.BlockKindPersonal, 1, "09:00", "10:00", false, models.BlockOriginAuto, nil, time.Now()).
		AddRow("block-2", "plan-1", "math", models.BlockKindGroup, 2, "12:00", "14:00", false, models.BlockOriginAuto, "gblock-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_blocks WHERE plan_id = $1")).
		WithArgs("plan-1").
		WillReturnRows(rows)

	blocks, err := repo.ListByPlan(context.Background(), "plan-1")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Nil(t, blocks[0].GroupBlockID)
	require.NotNil(t, blocks[1].GroupBlockID)
	assert.Equal(t, "gblock-1", *blocks[1].GroupBlockID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanBlockRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanBlockRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM plan_blocks WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(planBlockRows())

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanBlockRepositoryInsertBatchFillsIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanBlockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO plan_blocks")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	blocks := []models.PlanBlock{{
		PlanID: "plan-1", CourseID: "math", Kind: models.BlockKindPersonal,
		DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", Origin: models.BlockOriginAuto,
	}}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, blocks))
	assert.NotEmpty(t, blocks[0].ID)
	assert.False(t, blocks[0].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanBlockRepositoryInsertBatchEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanBlockRepository(db)

	require.NoError(t, repo.InsertBatch(context.Background(), nil, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanBlockRepositoryDeleteUnlocked(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanBlockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM plan_blocks WHERE plan_id = $1 AND locked = FALSE")).
		WithArgs("plan-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteUnlocked(context.Background(), nil, "plan-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanBlockRepositoryUpdateInterval(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPlanBlockRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE plan_blocks SET day_of_week = $2, start_time = $3, end_time = $4, origin = $5, locked = $6 WHERE id = $1")).
		WithArgs("block-1", 4, "16:00", "17:30", models.BlockOriginManualEdit, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateInterval(context.Background(), nil, "block-1", 4, "16:00", "17:30", models.BlockOriginManualEdit, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
