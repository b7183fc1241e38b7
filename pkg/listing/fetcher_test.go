package listing

import (
	"context"
	"testing"
	"time"

	"github.com/narourip/narourip/internal/testgen"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	site := testgen.NewSite(t)
	site.PutWork(testgen.WorkOptions{
		ID:    "abc123",
		Title: "Work",
		Chapters: []testgen.ChapterOptions{
			{Slug: "1", Title: "one", UpdatedAt: "2024/01/01 00:00"},
			{Slug: "2", Title: "two", UpdatedAt: "2024/01/01 00:00", TimestampAsText: true},
		},
	})

	cfg := site.Config()
	f := NewFetcher(cfg, remote.NewClient(cfg))

	l, err := f.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Work", l.Title)
	require.Len(t, l.Entries, 2)
	assert.Equal(t, site.URL()+"/abc123/2/", l.Entries[1].URL)
}

func TestFetcher_RateLimitedAborts(t *testing.T) {
	t.Parallel()

	site := testgen.NewSite(t)
	site.PutWork(testgen.WorkOptions{ID: "abc123", Title: "Work"})
	site.RateLimitListings(true)

	cfg := site.Config()
	f := NewFetcher(cfg, remote.NewClient(cfg))

	_, err := f.Fetch(context.Background(), "abc123")
	require.Error(t, err)
	assert.True(t, errcodes.IsRateLimited(err))
	assert.Equal(t, 1, site.ListingHits("abc123"))
}

func TestFetcher_NoTitle(t *testing.T) {
	t.Parallel()

	site := testgen.NewSite(t)
	site.PutWork(testgen.WorkOptions{ID: "abc123", NoTitle: true})

	cfg := site.Config()
	f := NewFetcher(cfg, remote.NewClient(cfg))

	_, err := f.Fetch(context.Background(), "abc123")
	assert.True(t, errcodes.IsNoCoherentPage(err))
}

func TestFetcher_XHTML(t *testing.T) {
	t.Parallel()

	site := testgen.NewSite(t)
	site.PutWork(testgen.WorkOptions{
		ID:    "abc123",
		Title: "Work",
		XHTML: true,
		Chapters: []testgen.ChapterOptions{
			{Slug: "1", Title: "one", UpdatedAt: "2024/01/01 00:00"},
		},
	})

	cfg := site.Config()
	f := NewFetcher(cfg, remote.NewClient(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := f.Fetch(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Work", l.Title)
	require.Len(t, l.Entries, 1)
	assert.Equal(t, "1", l.Entries[0].Slug)
	assert.Equal(t, 1, site.ListingHits("abc123"))
}
