package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/songquanpeng/contract-tester/common"
	"github.com/songquanpeng/contract-tester/common/logger"
	probe "github.com/songquanpeng/contract-tester/probe/model"
	"github.com/songquanpeng/contract-tester/probe/pipeline"
)

func setupTestDatabase(t *testing.T) context.Context {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	originalDB := DB
	DB = gdb
	useSQLiteFlag(t, true)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
		DB = originalDB
	})

	require.NoError(t, migrateDB())
	return gmw.SetLogger(context.Background(), logger.Logger)
}

func setupMySQLMockDB(t *testing.T) (sqlmock.Sqlmock, func() error) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()
	mock.MatchExpectationsInOrder(false)

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	originalDB := DB
	DB = gdb
	originalMySQL := common.UsingMySQL.Load()
	common.UsingMySQL.Store(true)
	useSQLiteFlag(t, false)

	return mock, func() error {
		DB = originalDB
		common.UsingMySQL.Store(originalMySQL)
		return sqlDB.Close()
	}
}

func sampleResult(passed, failed int, degradations ...probe.Degradation) *pipeline.Result {
	return &pipeline.Result{
		Endpoint:       "http://api.test/api/signup",
		SelectedFields: []string{"email"},
		DefaultBody:    probe.Body{"email": "test@example.com"},
		TestReport: &probe.TestReport{
			Summary: probe.Summary{
				TotalTests:  passed + failed,
				PassedTests: passed,
				FailedTests: failed,
				SuccessRate: "75.00%",
			},
			Timestamp: time.Now(),
		},
		GeneratedCases: passed + failed,
		Degradations:   append([]probe.Degradation{}, degradations...),
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := setupTestDatabase(t)

	run := NewRun("http://api.test/api/signup", []string{"email", "password"})
	require.NotEmpty(t, run.Id)
	require.Equal(t, "email,password", run.Fields)
	require.NoError(t, CreateRun(ctx, run))

	stored, err := GetRun(ctx, run.Id)
	require.NoError(t, err)
	require.Equal(t, RunStatusRunning, stored.Status)
	require.False(t, stored.Finished())
	require.Nil(t, stored.Document())

	require.NoError(t, stored.Finish(sampleResult(3, 1), nil, time.Now()))
	require.NoError(t, SaveRun(ctx, stored))

	stored, err = GetRun(ctx, run.Id)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, stored.Status)
	assert.Equal(t, 4, stored.TotalTests)
	assert.Equal(t, 3, stored.PassedTests)
	assert.Equal(t, 1, stored.FailedTests)
	assert.Equal(t, "75.00%", stored.SuccessRate)
	assert.Equal(t, 4, stored.GeneratedCases)
	assert.NotZero(t, stored.FinishedAt)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(stored.Document(), &doc))
	require.Equal(t, "http://api.test/api/signup", doc["endpoint"])
	require.Contains(t, doc, "test_report")
}

func TestRunFinishStatus(t *testing.T) {
	cancelled := probe.Degradation{Stage: pipeline.StageExecution, Error: "run cancelled: 2 of 4 cases not executed", Dropped: 2}
	oracle := probe.Degradation{Stage: "scenarios", Error: "oracle not configured"}

	tests := []struct {
		name    string
		res     *pipeline.Result
		err     error
		status  string
		errText string
	}{
		{name: "completed", res: sampleResult(2, 0), status: RunStatusCompleted},
		{name: "completed with oracle degradation", res: sampleResult(2, 0, oracle), status: RunStatusCompleted},
		{name: "cancelled", res: sampleResult(1, 1, oracle, cancelled), status: RunStatusCancelled, errText: cancelled.Error},
		{name: "pipeline error", err: errors.New("schema not found"), status: RunStatusFailed, errText: "schema not found"},
		{name: "no result", status: RunStatusFailed, errText: "run produced no result"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := NewRun("http://api.test/a/b", nil)
			require.NoError(t, run.Finish(tt.res, tt.err, time.Now()))
			require.Equal(t, tt.status, run.Status)
			require.Equal(t, tt.errText, run.Error)
			require.True(t, run.Finished())
			if tt.res != nil {
				require.Equal(t, len(tt.res.Degradations), run.Degradations)
				require.NotEmpty(t, run.Result)
			} else {
				require.Empty(t, run.Result)
			}
		})
	}
}

func TestGetRunNotFound(t *testing.T) {
	ctx := setupTestDatabase(t)

	_, err := GetRun(ctx, "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	ctx := setupTestDatabase(t)

	base := time.Now().Add(-time.Hour).UnixMilli()
	for i := range 5 {
		run := NewRun(fmt.Sprintf("http://api.test/v1/r%d", i), nil)
		run.CreatedAt = base + int64(i)
		if i%2 == 0 {
			require.NoError(t, run.Finish(sampleResult(1, 0), nil, time.Now()))
		}
		require.NoError(t, CreateRun(ctx, run))
	}

	runs, total, err := ListRuns(ctx, 0, 2, "")
	require.NoError(t, err)
	require.EqualValues(t, 5, total)
	require.Len(t, runs, 2)
	require.Equal(t, "http://api.test/v1/r4", runs[0].Endpoint)
	require.Equal(t, "http://api.test/v1/r3", runs[1].Endpoint)
	require.Empty(t, runs[0].Result)

	runs, _, err = ListRuns(ctx, 2, 2, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "http://api.test/v1/r0", runs[0].Endpoint)

	runs, total, err = ListRuns(ctx, 0, 0, RunStatusRunning)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, runs, 2)
	for _, r := range runs {
		require.Equal(t, RunStatusRunning, r.Status)
	}
}

func TestFailInterruptedRuns(t *testing.T) {
	ctx := setupTestDatabase(t)

	running := NewRun("http://api.test/a/running", nil)
	done := NewRun("http://api.test/a/done", nil)
	require.NoError(t, done.Finish(sampleResult(1, 0), nil, time.Now()))
	require.NoError(t, CreateRun(ctx, running))
	require.NoError(t, CreateRun(ctx, done))

	n, err := FailInterruptedRuns(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	stored, err := GetRun(ctx, running.Id)
	require.NoError(t, err)
	require.Equal(t, RunStatusFailed, stored.Status)
	require.Contains(t, stored.Error, "interrupted")

	stored, err = GetRun(ctx, done.Id)
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, stored.Status)
}

func TestCleanExpiredRuns(t *testing.T) {
	ctx := setupTestDatabase(t)

	retentionDays := 30
	old := NewRun("http://api.test/a/old", nil)
	oldRunning := NewRun("http://api.test/a/old-running", nil)
	fresh := NewRun("http://api.test/a/fresh", nil)
	require.NoError(t, old.Finish(sampleResult(1, 0), nil, time.Now()))
	require.NoError(t, fresh.Finish(sampleResult(1, 0), nil, time.Now()))

	expired := time.Now().UTC().AddDate(0, 0, -(retentionDays + 1)).UnixMilli()
	old.CreatedAt = expired
	oldRunning.CreatedAt = expired
	fresh.CreatedAt = time.Now().UTC().AddDate(0, 0, -(retentionDays - 1)).UnixMilli()
	for _, r := range []*Run{old, oldRunning, fresh} {
		require.NoError(t, CreateRun(ctx, r))
	}

	deleted, err := CleanExpiredRuns(ctx, retentionDays)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = GetRun(ctx, old.Id)
	require.ErrorIs(t, err, ErrRunNotFound)
	_, err = GetRun(ctx, oldRunning.Id)
	require.NoError(t, err)
	_, err = GetRun(ctx, fresh.Id)
	require.NoError(t, err)

	deleted, err = CleanExpiredRuns(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestGetRunMySQL(t *testing.T) {
	mock, closeDB := setupMySQLMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `runs` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "endpoint", "status", "total_tests", "success_rate"}).
			AddRow("run-1", "http://api.test/a/b", RunStatusCompleted, 4, "100.00%"))

	run, err := GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Equal(t, "http://api.test/a/b", run.Endpoint)
	require.Equal(t, 4, run.TotalTests)

	require.NoError(t, closeDB())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRunMySQL(t *testing.T) {
	mock, closeDB := setupMySQLMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `runs`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := gmw.SetLogger(context.Background(), logger.Logger)
	require.NoError(t, CreateRun(ctx, NewRun("http://api.test/a/b", []string{"email"})))

	require.NoError(t, closeDB())
	require.NoError(t, mock.ExpectationsWereMet())
}
