package remote

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
)

// SiteZone is the fixed UTC+9 offset every remote timestamp is written in.
var SiteZone = time.FixedZone("JST", 9*60*60)

var (
	listingTimestampRE = regexp.MustCompile(`[0-9]{4}/[0-1][0-9]/[0-9]{2} [0-2][0-9]:[0-5][0-9]`)
	apiTimestampRE     = regexp.MustCompile(`[0-9]{4}-[0-1][0-9]-[0-9]{2} [0-2][0-9]:[0-5][0-9]:[0-5][0-9]`)
)

// FindTimestamp extracts the first remote timestamp embedded in s. Both the
// index page form (2024/01/02 15:04) and the metadata API form
// (2024-01-02 15:04:05) are accepted.
func FindTimestamp(s string) (time.Time, bool) {
	if m := listingTimestampRE.FindString(s); m != "" {
		t, err := time.ParseInLocation("2006/01/02 15:04", m, SiteZone)
		return t, err == nil
	}
	if m := apiTimestampRE.FindString(s); m != "" {
		t, err := time.ParseInLocation("2006-01-02 15:04:05", m, SiteZone)
		return t, err == nil
	}
	return time.Time{}, false
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-t.C:
		return nil
	}
}
