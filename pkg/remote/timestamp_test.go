package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 15, 4, 0, 0, SiteZone)

	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"listing form", "2024/01/02 15:04", true},
		{"embedded with revision note", "2024/01/02 15:04 改稿", true},
		{"api form", "2024-01-02 15:04:00", true},
		{"garbage", "yesterday", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindTimestamp(tt.input)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestFindTimestamp_IsUTCPlusNine(t *testing.T) {
	t.Parallel()

	got, ok := FindTimestamp("2024/01/01 00:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 12, 31, 15, 0, 0, 0, time.UTC), got.UTC())
}

func TestSleep_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, Sleep(context.Background(), 0))
}
