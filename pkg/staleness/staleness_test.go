package staleness

import (
	"testing"
	"time"

	"github.com/narourip/narourip/pkg/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func entries() []listing.Entry {
	return []listing.Entry{
		{Slug: "1", UpdatedAt: t0, Ordinal: 1},
		{Slug: "2", UpdatedAt: t1, Ordinal: 2},
		{Slug: "3", UpdatedAt: t0, Ordinal: 3},
		{Slug: "4", UpdatedAt: t0, Ordinal: 4},
	}
}

func slugs(es []listing.Entry) []string {
	out := []string{}
	for _, e := range es {
		out = append(out, e.Slug)
	}
	return out
}

func TestDelta(t *testing.T) {
	t.Parallel()

	// chapter 1 unchanged, 2 changed remotely, 3 stored without timestamp,
	// 4 never stored.
	local := Local{
		"w1-1": &t0,
		"w1-2": &t0,
		"w1-3": nil,
	}

	tests := []struct {
		mode Mode
		want []string
	}{
		{ModeStrict, []string{"2", "3", "4"}},
		{ModeSeen, []string{"3", "4"}},
		{ModeOff, []string{"1", "2", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.want, slugs(Delta("w1", local, entries(), tt.mode)))
		})
	}
}

func TestDelta_UnchangedIsNeverRefetchedInStrictMode(t *testing.T) {
	t.Parallel()

	local := Local{}
	for _, e := range entries() {
		ts := e.UpdatedAt.In(time.FixedZone("JST", 9*3600))
		local[e.Code("w1")] = &ts
	}
	assert.Empty(t, Delta("w1", local, entries(), ModeStrict))
}

func TestDelta_EmptyStoreFetchesEverything(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"1", "2", "3", "4"}, slugs(Delta("w1", nil, entries(), ModeStrict)))
	assert.Empty(t, Delta("w1", nil, nil, ModeStrict))
}

func TestDelta_OtherWorkCodesDontMatch(t *testing.T) {
	t.Parallel()

	local := Local{"w2-1": &t0}
	assert.Equal(t, []string{"1", "2", "3", "4"}, slugs(Delta("w1", local, entries(), ModeSeen)))
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("seen")
	require.NoError(t, err)
	assert.Equal(t, ModeSeen, m)

	_, err = ParseMode("sometimes")
	assert.Error(t, err)
}
