package worker

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/narourip/narourip/internal/testgen"
	"github.com/narourip/narourip/pkg/joblogs"
	"github.com/narourip/narourip/pkg/jobs"
	"github.com/narourip/narourip/pkg/migrations"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/works"
	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const stamp = "2024/01/01 00:00"

// testContext holds a worker wired to a fake site and an in-memory store.
type testContext struct {
	t             *testing.T
	ctx           context.Context
	db            *bun.DB
	site          *testgen.Site
	worker        *Worker
	jobService    *jobs.Service
	jobLogService *joblogs.Service
	workService   *works.Service
}

func newTestContext(t *testing.T, opts ...Option) *testContext {
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

	site := testgen.NewSite(t)
	w, err := New(site.Config(), db, opts...)
	require.NoError(t, err)

	return &testContext{
		t:             t,
		ctx:           logger.New().WithContext(context.Background()),
		db:            db,
		site:          site,
		worker:        w,
		jobService:    jobs.NewService(db),
		jobLogService: joblogs.NewService(db),
		workService:   works.NewService(db),
	}
}

// putWork publishes a work with n chapters on the fake site.
func (tc *testContext) putWork(id string, n int) {
	work := testgen.WorkOptions{ID: id, Title: "Title of " + id, Summary: "summary", UpdatedAt: stamp}
	for i := 1; i <= n; i++ {
		slug := strconv.Itoa(i)
		work.Chapters = append(work.Chapters, testgen.ChapterOptions{
			Slug:      slug,
			Title:     "chapter " + slug,
			UpdatedAt: stamp,
			Body:      fmt.Sprintf("<p>body %d</p>", i),
		})
	}
	tc.site.PutWork(work)
}

func (tc *testContext) retrieveJob(id int) *models.Job {
	tc.t.Helper()

	job, err := tc.jobService.RetrieveJob(tc.ctx, jobs.RetrieveJobOptions{ID: &id})
	require.NoError(tc.t, err)
	return job
}

func (tc *testContext) retrieveWork(id string) *models.Work {
	tc.t.Helper()

	work, err := tc.workService.RetrieveWork(tc.ctx, works.RetrieveWorkOptions{ID: &id})
	require.NoError(tc.t, err)
	return work
}

// logMessages returns the persisted log messages of a job at the given levels.
func (tc *testContext) logMessages(jobID int, levels ...string) []string {
	tc.t.Helper()

	logs, err := tc.jobLogService.ListJobLogs(tc.ctx, joblogs.ListJobLogsOptions{JobID: jobID, Levels: levels})
	require.NoError(tc.t, err)
	msgs := make([]string, 0, len(logs))
	for _, l := range logs {
		msgs = append(msgs, l.Message)
	}
	return msgs
}
