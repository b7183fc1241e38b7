package joblogs

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/narourip/narourip/pkg/migrations"
	"github.com/narourip/narourip/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createJob(t *testing.T, db *bun.DB) int {
	t.Helper()
	job := &models.Job{Type: models.JobTypeSync, Status: models.JobStatusInProgress, Data: "{}"}
	_, err := db.NewInsert().Model(job).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return job.ID
}

func TestJobLogger_Persists(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	jobID := createJob(t, db)

	jl := svc.NewJobLogger(ctx, jobID, logger.New())
	jl.Info("ripping", logger.Data{"work_id": "n1"})
	jl.Warn("dead works", logger.Data{"count": 2})
	jl.Error("sync failed", errors.New("disk full"), nil)

	logs, err := svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: jobID})
	require.NoError(t, err)
	require.Len(t, logs, 3)

	assert.Equal(t, models.JobLogLevelInfo, logs[0].Level)
	assert.Equal(t, "ripping", logs[0].Message)
	require.NotNil(t, logs[0].Data)
	assert.JSONEq(t, `{"work_id":"n1"}`, *logs[0].Data)
	assert.Nil(t, logs[0].StackTrace)

	require.NotNil(t, logs[2].Data)
	assert.Contains(t, *logs[2].Data, "disk full")
	assert.NotNil(t, logs[2].StackTrace)

	errs, err := svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: jobID, Levels: []string{models.JobLogLevelError}})
	require.NoError(t, err)
	assert.Len(t, errs, 1)

	after, err := svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: jobID, AfterID: &logs[0].ID})
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestJobLogger_TruncatesLongValues(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()
	jobID := createJob(t, db)

	jl := svc.NewJobLogger(ctx, jobID, logger.New())
	jl.Info("long", logger.Data{"dead": strings.Repeat("n1234ab ", 500)})

	logs, err := svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: jobID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Contains(t, *logs[0].Data, " ... ")
	assert.Less(t, len(*logs[0].Data), 1200)
}

func TestTruncateMiddle(t *testing.T) {
	assert.Equal(t, "short", truncateMiddle("short", 10))
	got := truncateMiddle(strings.Repeat("a", 50)+strings.Repeat("b", 50), 25)
	assert.Equal(t, strings.Repeat("a", 10)+" ... "+strings.Repeat("b", 10), got)
}
