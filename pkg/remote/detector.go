package remote

import (
	"bytes"
)

// Detector decides whether a response is the remote site's rate-limit signal
// rather than the page that was asked for.
type Detector interface {
	RateLimited(status int, body []byte) bool
}

// DetectorFunc adapts a plain function to a Detector.
type DetectorFunc func(status int, body []byte) bool

func (f DetectorFunc) RateLimited(status int, body []byte) bool {
	return f(status, body)
}

// StatusOrMarker flags a response whose status equals status, or whose body
// contains marker. A zero status or an empty marker disables that half.
func StatusOrMarker(status int, marker string) Detector {
	m := []byte(marker)
	return DetectorFunc(func(code int, body []byte) bool {
		if status != 0 && code == status {
			return true
		}
		return len(m) > 0 && bytes.Contains(body, m)
	})
}
