package main

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/narourip/narourip/pkg/migrations"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/syncer"
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

func TestOptionalInts(t *testing.T) {
	t.Parallel()

	got, err := optionalInts(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []*int{nil, nil}, got)

	got, err = optionalInts([]string{"3"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []*int{pointerutil.Int(3), nil}, got)

	_, err = optionalInts([]string{"1", "2", "3"}, 2)
	assert.Error(t, err)

	_, err = optionalInts([]string{"x"}, 2)
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.NewInsert().Model(&models.Work{ID: "gone1", Title: "Old Story"}).Exec(ctx)
	require.NoError(t, err)

	report := &syncer.Report{
		Works: []syncer.WorkResult{
			{WorkID: "ok", State: syncer.StateDone, Fetched: 4},
			{WorkID: "gone1", State: syncer.StateDead},
			{WorkID: "gone2", State: syncer.StateDead},
		},
		Dead: []string{"gone1", "gone2"},
	}

	var out bytes.Buffer
	require.NoError(t, printReport(ctx, &out, db, report))
	assert.Equal(t, "Done: 1  Skipped: 0  Dead: 2  Chapters fetched: 4\n"+
		"Works not found remotely:\n"+
		"  gone1\tOld Story\n"+
		"  gone2\t\n", out.String())
}
