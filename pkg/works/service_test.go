package works

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/migrations"
	"github.com/narourip/narourip/pkg/models"
	"github.com/robinjoseph08/golib/pointerutil"
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

func createWork(t *testing.T, svc *Service, id string) {
	t.Helper()
	err := svc.UpsertWork(context.Background(), &models.Work{ID: id, Title: "title " + id}, UpsertWorkOptions{})
	require.NoError(t, err)
}

func TestUpsertWork(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()

	err := svc.UpsertWork(ctx, &models.Work{ID: "w1", Title: "old", Summary: "s1"}, UpsertWorkOptions{})
	require.NoError(t, err)

	err = svc.UpsertWork(ctx, &models.Work{ID: "w1", Title: "new", Summary: "s2"}, UpsertWorkOptions{
		Columns: []string{"title"},
	})
	require.NoError(t, err)

	work, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("w1")})
	require.NoError(t, err)
	assert.Equal(t, "new", work.Title)
	assert.Equal(t, "s1", work.Summary, "columns not listed are kept")
	assert.Nil(t, work.Rank)
	assert.Nil(t, work.RemoteUpdatedAt)

	ids, err := svc.ListWorkIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids)
}

func TestRetrieveWork_NotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))

	_, err := svc.RetrieveWork(context.Background(), RetrieveWorkOptions{ID: pointerutil.String("nope")})
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "not_found", e.Code)
}

func TestAssignRank_SingleHolder(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		createWork(t, svc, id)
	}

	require.NoError(t, svc.AssignRank(ctx, "a", pointerutil.Int(1)))
	require.NoError(t, svc.AssignRank(ctx, "b", pointerutil.Int(2)))
	require.NoError(t, svc.AssignRank(ctx, "c", pointerutil.Int(1)))

	ranked, err := svc.ListWorks(ctx, ListWorksOptions{Ranked: true})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].ID)
	assert.Equal(t, 1, *ranked[0].Rank)
	assert.Equal(t, "b", ranked[1].ID)

	a, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("a")})
	require.NoError(t, err)
	assert.Nil(t, a.Rank)

	// Reassigning the rank a work already holds is a no-op.
	require.NoError(t, svc.AssignRank(ctx, "c", pointerutil.Int(1)))
	c, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("c")})
	require.NoError(t, err)
	assert.Equal(t, 1, *c.Rank)

	require.NoError(t, svc.AssignRank(ctx, "c", nil))
	c, err = svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("c")})
	require.NoError(t, err)
	assert.Nil(t, c.Rank)
}

func TestAssignRank_UnknownWorkIsNoop(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	createWork(t, svc, "a")
	require.NoError(t, svc.AssignRank(ctx, "a", pointerutil.Int(3)))

	// Nobody holds rank 5, so nothing else moves.
	require.NoError(t, svc.AssignRank(ctx, "ghost", pointerutil.Int(5)))
	a, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("a")})
	require.NoError(t, err)
	assert.Equal(t, 3, *a.Rank)
}

func TestSetWatermark(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	createWork(t, svc, "a")
	createWork(t, svc, "b")
	require.NoError(t, svc.AssignRank(ctx, "b", pointerutil.Int(7)))

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("JST", 9*3600))
	err := svc.SetWatermark(ctx, SetWatermarkOptions{
		WorkID:          "a",
		RemoteUpdatedAt: &ts,
		AssignRank:      true,
		Rank:            pointerutil.Int(7),
	})
	require.NoError(t, err)

	a, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("a")})
	require.NoError(t, err)
	require.NotNil(t, a.RemoteUpdatedAt)
	assert.True(t, ts.Equal(*a.RemoteUpdatedAt))
	assert.NotNil(t, a.LastSyncedAt)
	assert.Equal(t, 7, *a.Rank)

	b, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("b")})
	require.NoError(t, err)
	assert.Nil(t, b.Rank)

	// Without AssignRank the stored rank survives.
	require.NoError(t, svc.SetWatermark(ctx, SetWatermarkOptions{WorkID: "a", RemoteUpdatedAt: &ts}))
	a, err = svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("a")})
	require.NoError(t, err)
	assert.Equal(t, 7, *a.Rank)
}

func TestSetWatermark_UnknownWork(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	err := svc.SetWatermark(context.Background(), SetWatermarkOptions{WorkID: "ghost"})
	require.Error(t, err)
}

func TestUpdateSummaryAndReset(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()
	createWork(t, svc, "a")

	ts := time.Now()
	require.NoError(t, svc.SetWatermark(ctx, SetWatermarkOptions{WorkID: "a", RemoteUpdatedAt: &ts}))
	require.NoError(t, svc.UpdateSummary(ctx, "a", "あらすじ"))
	require.NoError(t, svc.UpdateSummary(ctx, "ghost", "ignored"))
	require.NoError(t, svc.ResetTimestamps(ctx))

	a, err := svc.RetrieveWork(ctx, RetrieveWorkOptions{ID: pointerutil.String("a")})
	require.NoError(t, err)
	assert.Equal(t, "あらすじ", a.Summary)
	assert.Nil(t, a.RemoteUpdatedAt)

	works, total, err := svc.ListWorksWithTotal(ctx, ListWorksOptions{Limit: pointerutil.Int(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, works, 1)
}
