// Package staleness computes which chapters of a fresh listing need their
// bodies fetched again.
package staleness

import (
	"time"

	"github.com/narourip/narourip/pkg/listing"
	"github.com/pkg/errors"
)

type Mode string

const (
	// ModeStrict refetches a chapter whenever its remote timestamp differs
	// from the stored one.
	ModeStrict Mode = "strict"
	// ModeSeen refetches only chapters that have no stored timestamp.
	ModeSeen Mode = "seen"
	// ModeOff refetches everything.
	ModeOff Mode = "off"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeStrict, ModeSeen, ModeOff:
		return m, nil
	}
	return "", errors.Errorf("unknown chapter check mode %q", s)
}

// Local holds the stored remote timestamp per chapter code. A present key
// with a nil value is a stored chapter whose timestamp was cleared.
type Local map[string]*time.Time

// Delta returns the entries of workID that need a fetch, in listing order.
func Delta(workID string, local Local, entries []listing.Entry, mode Mode) []listing.Entry {
	delta := make([]listing.Entry, 0, len(entries))
	for _, e := range entries {
		if stale(local, e.Code(workID), e.UpdatedAt, mode) {
			delta = append(delta, e)
		}
	}
	return delta
}

func stale(local Local, code string, remote time.Time, mode Mode) bool {
	if mode == ModeOff {
		return true
	}
	stored, ok := local[code]
	if !ok || stored == nil {
		return true
	}
	if mode == ModeSeen {
		return false
	}
	return !stored.Equal(remote)
}
