package testgen

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/narourip/narourip/pkg/config"
	"github.com/segmentio/encoding/json"
)

const (
	apiPath     = "/novelapi/api/"
	rankingPath = "/rank/list/"
)

// ChapterHook runs before a chapter page is served. attempt starts at 1.
type ChapterHook func(workID, slug string, attempt int)

// Site is an httptest server imitating the remote site.
type Site struct {
	server *httptest.Server

	mu               sync.Mutex
	works            map[string]WorkOptions
	ranking          []RankOptions
	chapterFailures  map[string][]int
	chapterHits      map[string]int
	listingHits      map[string]int
	apiHits          int
	listingRateLimit bool
	hook             ChapterHook
}

// NewSite starts a fake site that is shut down when the test completes.
func NewSite(t *testing.T) *Site {
	t.Helper()

	s := &Site{
		works:           map[string]WorkOptions{},
		chapterFailures: map[string][]int{},
		chapterHits:     map[string]int{},
		listingHits:     map[string]int{},
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.server.Close)
	return s
}

func (s *Site) URL() string {
	return s.server.URL
}

// Config returns a test config pointed at this site.
func (s *Site) Config() *config.Config {
	cfg := config.NewForTest()
	cfg.SiteBaseURL = s.server.URL
	cfg.MetadataAPIURL = s.server.URL + apiPath
	cfg.RankingURL = s.server.URL + rankingPath
	return cfg
}

// PutWork adds or replaces a work.
func (s *Site) PutWork(w WorkOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.works[w.ID] = w
}

func (s *Site) RemoveWork(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.works, id)
}

func (s *Site) SetRanking(rows []RankOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranking = rows
}

// FailChapter makes the next len(statuses) requests for the chapter answer
// with the given statuses, in order.
func (s *Site) FailChapter(workID, slug string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := workID + "/" + slug
	s.chapterFailures[key] = append(s.chapterFailures[key], statuses...)
}

// RateLimitListings makes every index page carry the rate-limit marker.
func (s *Site) RateLimitListings(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listingRateLimit = on
}

func (s *Site) SetChapterHook(h ChapterHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

func (s *Site) ChapterHits(workID, slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapterHits[workID+"/"+slug]
}

// TotalChapterHits counts chapter requests across all works.
func (s *Site) TotalChapterHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.chapterHits {
		n += v
	}
	return n
}

func (s *Site) ListingHits(workID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listingHits[workID]
}

func (s *Site) APIHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apiHits
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == apiPath:
		s.serveAPI(w, r)
	case r.URL.Path == rankingPath:
		s.serveRanking(w)
	default:
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		switch len(parts) {
		case 1:
			s.serveIndex(w, parts[0])
		case 2:
			s.serveChapter(w, parts[0], parts[1])
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Site) serveAPI(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.apiHits++
	out := []interface{}{map[string]int{"allcount": 0}}
	for _, id := range strings.Split(r.URL.Query().Get("ncode"), "-") {
		for _, work := range s.works {
			if work.Unlisted || !strings.EqualFold(work.ID, id) {
				continue
			}
			out = append(out, map[string]string{
				"ncode":           strings.ToUpper(work.ID),
				"novelupdated_at": work.UpdatedAt,
				"story":           work.Summary,
			})
		}
	}
	out[0] = map[string]int{"allcount": len(out) - 1}
	s.mu.Unlock()

	data, err := json.Marshal(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Site) serveRanking(w http.ResponseWriter) {
	s.mu.Lock()
	rows := append([]RankOptions(nil), s.ranking...)
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<html><body><div class="ranking_list">`)
	for _, row := range rows {
		fmt.Fprintf(&b, `<div class="rank_h"><span class="ranking_number">%d位</span><a href="%s/%s/">title</a></div>`,
			row.Rank, s.server.URL, row.WorkID)
	}
	b.WriteString(`</div></body></html>`)
	_, _ = w.Write([]byte(b.String()))
}

func (s *Site) serveIndex(w http.ResponseWriter, id string) {
	s.mu.Lock()
	s.listingHits[id]++
	work, ok := s.works[id]
	limited := s.listingRateLimit
	s.mu.Unlock()

	if limited {
		_, _ = w.Write([]byte(`<html><body><p>Too many access!</p></body></html>`))
		return
	}
	if !ok {
		http.NotFound(w, nil)
		return
	}
	_, _ = w.Write([]byte(RenderIndex(work)))
}

func (s *Site) serveChapter(w http.ResponseWriter, id, slug string) {
	key := id + "/" + slug

	s.mu.Lock()
	s.chapterHits[key]++
	attempt := s.chapterHits[key]
	hook := s.hook
	status := 0
	if failures := s.chapterFailures[key]; len(failures) > 0 {
		status = failures[0]
		s.chapterFailures[key] = failures[1:]
	}
	work, ok := s.works[id]
	s.mu.Unlock()

	if hook != nil {
		hook(id, slug, attempt)
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, nil)
		return
	}
	for _, ch := range work.Chapters {
		if ch.Slug == slug {
			fmt.Fprintf(w, `%s<body><div id="novel_header">nav</div><div class="novel_view" id="novel_honbun">%s</div></body></html>`, pageStart(work), ch.Body)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

const xhtmlStart = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="ja">`

// pageStart opens a page of work up to the body element.
func pageStart(work WorkOptions) string {
	if work.XHTML {
		return xhtmlStart + `<head><title>` + html.EscapeString(work.Title) + `</title></head>`
	}
	return `<html>`
}

// RenderIndex renders the index page markup of work.
func RenderIndex(work WorkOptions) string {
	var b strings.Builder
	b.WriteString(pageStart(work))
	b.WriteString(`<body><div id="novel_color">`)
	if !work.NoTitle {
		fmt.Fprintf(&b, `<p class="novel_title">%s</p>`, html.EscapeString(work.Title))
	}
	b.WriteString(`<div class="index_box">`)
	volume := ""
	for _, ch := range work.Chapters {
		if ch.Volume != volume {
			volume = ch.Volume
			fmt.Fprintf(&b, `<div class="chapter_title">%s</div>`, html.EscapeString(volume))
		}
		updated := ch.UpdatedAt
		if !ch.TimestampAsText {
			updated = fmt.Sprintf(`（<span title="%s 改稿">改稿</span>）`, ch.UpdatedAt)
		}
		fmt.Fprintf(&b, `<dl class="novel_sublist2"><dd class="subtitle"><a href="/%s/%s/">%s</a></dd><dt class="long_update">%s</dt></dl>`,
			work.ID, ch.Slug, html.EscapeString(ch.Title), updated)
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String()
}
