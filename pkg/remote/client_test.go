package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/narourip/narourip/pkg/config"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOrMarker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"ok page", 200, "<html>chapter</html>", false},
		{"rate limit status", 503, "", true},
		{"marker in body", 200, "<p>Too many access!</p>", true},
		{"other error status", 500, "oops", false},
	}

	d := StatusOrMarker(503, "Too many access!")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.RateLimited(tt.status, []byte(tt.body)))
		})
	}
}

func TestStatusOrMarker_Disabled(t *testing.T) {
	t.Parallel()

	d := StatusOrMarker(0, "")
	assert.False(t, d.RateLimited(503, []byte("Too many access!")))
}

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "narourip-test", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("hello"))
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/marker":
			_, _ = w.Write([]byte("Too many access!"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := config.NewForTest()
	cfg.UserAgent = "narourip-test"
	c := NewClient(cfg)
	ctx := context.Background()

	body, err := c.Fetch(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = c.Fetch(ctx, srv.URL+"/busy")
	assert.True(t, errcodes.IsRateLimited(err))

	_, err = c.Fetch(ctx, srv.URL+"/marker")
	assert.True(t, errcodes.IsRateLimited(err))

	_, err = c.Fetch(ctx, srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, errcodes.IsRateLimited(err))
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := config.NewForTest()
	cfg.ChapterTimeout = 20 * time.Millisecond
	c := NewClient(cfg)

	start := time.Now()
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_WithDetector(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := NewClient(config.NewForTest(), WithDetector(DetectorFunc(func(_ int, body []byte) bool {
		return string(body) == "slow down"
	})))

	_, err := c.Fetch(context.Background(), srv.URL)
	assert.True(t, errcodes.IsRateLimited(err))
}

func TestClient_FetchPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			_, _ = w.Write([]byte("<!DOCTYPE html><html><body><p>hi</p></body></html>"))
		case "/image":
			_, _ = w.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
		case "/xhtml":
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml"><body><p>hi</p></body></html>`))
		case "/feed":
			_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`))
		case "/empty":
		}
	}))
	defer srv.Close()

	c := NewClient(config.NewForTest())
	ctx := context.Background()

	body, err := c.FetchPage(ctx, srv.URL+"/page")
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p>hi</p>")

	body, err = c.FetchPage(ctx, srv.URL+"/xhtml")
	require.NoError(t, err)
	assert.Contains(t, string(body), "<p>hi</p>")

	_, err = c.FetchPage(ctx, srv.URL+"/feed")
	require.Error(t, err)

	_, err = c.FetchPage(ctx, srv.URL+"/image")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image/png")
	assert.False(t, errcodes.IsRateLimited(err))

	_, err = c.FetchPage(ctx, srv.URL+"/empty")
	require.Error(t, err)
}
