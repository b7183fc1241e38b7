package volumes

import (
	"context"
	"database/sql"
	"testing"

	"github.com/narourip/narourip/pkg/migrations"
	"github.com/narourip/narourip/pkg/models"
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

	_, err = db.NewInsert().Model(&models.Work{ID: "w1", Title: "Work"}).Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestReplaceVolumes(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()

	err := svc.ReplaceVolumes(ctx, "w1", []*models.Volume{
		{Title: "", ChapterSlugs: models.JoinSlugs([]string{"1"})},
		{Title: "第一章", ChapterSlugs: models.JoinSlugs([]string{"2", "3"})},
		{Title: "第二章", ChapterSlugs: models.JoinSlugs([]string{"4"})},
	})
	require.NoError(t, err)

	vols, err := svc.ListVolumes(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, vols, 3)
	assert.Equal(t, "w1-1", vols[1].VolumeCode)
	assert.Equal(t, []string{"2", "3"}, vols[1].Slugs())

	// A shorter listing replaces wholesale: changed volumes are overwritten
	// and the leftover one removed.
	err = svc.ReplaceVolumes(ctx, "w1", []*models.Volume{
		{Title: "全話", ChapterSlugs: models.JoinSlugs([]string{"1", "2", "3", "4", "5"})},
	})
	require.NoError(t, err)

	vols, err = svc.ListVolumes(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, vols, 1)
	assert.Equal(t, "全話", vols[0].Title)
	assert.Equal(t, 0, vols[0].VolumeIndex)
	assert.Len(t, vols[0].Slugs(), 5)
}

func TestReplaceVolumes_Empty(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, svc.ReplaceVolumes(ctx, "w1", []*models.Volume{{Title: "a", ChapterSlugs: "1"}}))
	require.NoError(t, svc.ReplaceVolumes(ctx, "w1", nil))

	vols, err := svc.ListVolumes(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, vols)
}
