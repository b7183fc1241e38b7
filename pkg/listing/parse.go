// Package listing reads a work's index page: its title, the ordered chapter
// entries with their update times, and the volume headings grouping them.
package listing

import (
	"bytes"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/remote"
	"github.com/pkg/errors"
)

const (
	titleSelector   = "#novel_color .novel_title"
	indexSelector   = ".index_box > *"
	linkSelector    = ".subtitle a"
	updatedSelector = ".long_update"
)

type Entry struct {
	Slug  string
	Title string
	// URL is the absolute chapter page address.
	URL       string
	UpdatedAt time.Time
	// Ordinal is the 1-based position among the page's valid entries.
	Ordinal int
}

// Code returns the chapter code of the entry within workID.
func (e Entry) Code(workID string) string {
	return models.ChapterCode(workID, e.Slug)
}

type Volume struct {
	Index int
	Title string
	Slugs []string
}

type Listing struct {
	WorkID  string
	Title   string
	Entries []Entry
	Volumes []Volume
}

// Parse extracts a Listing from an index page fetched from pageURL. Entries
// whose link doesn't point into the work or that carry no timestamp are
// skipped. A page without a title yields errcodes.NoCoherentPage.
func Parse(workID, pageURL string, body []byte) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	titleSel := doc.Find(titleSelector).First()
	if titleSel.Length() == 0 {
		return nil, errcodes.NoCoherentPage(workID)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid page url %q", pageURL)
	}

	l := &Listing{
		WorkID: workID,
		Title:  strings.TrimSpace(titleSel.Text()),
	}

	seen := map[string]struct{}{}
	current := Volume{}
	flush := func() {
		if len(current.Slugs) == 0 {
			return
		}
		current.Index = len(l.Volumes)
		l.Volumes = append(l.Volumes, current)
	}

	doc.Find(indexSelector).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "div" {
			flush()
			current = Volume{Title: strings.TrimSpace(s.Text())}
			return
		}

		e, ok := parseEntry(workID, base, s)
		if !ok {
			return
		}
		if _, dup := seen[e.Slug]; dup {
			return
		}
		seen[e.Slug] = struct{}{}

		e.Ordinal = len(l.Entries) + 1
		l.Entries = append(l.Entries, e)
		current.Slugs = append(current.Slugs, e.Slug)
	})
	flush()

	return l, nil
}

func parseEntry(workID string, base *url.URL, s *goquery.Selection) (Entry, bool) {
	link := s.Find(linkSelector).First()
	href, ok := link.Attr("href")
	if !ok || !strings.Contains(href, workID) {
		return Entry{}, false
	}

	updated := s.Find(updatedSelector).First()
	if updated.Length() == 0 {
		return Entry{}, false
	}
	raw := updated.Text()
	if span := updated.Find("span").First(); span.Length() > 0 {
		raw, _ = span.Attr("title")
	}
	ts, ok := remote.FindTimestamp(raw)
	if !ok {
		return Entry{}, false
	}

	slug := SlugOf(href)
	if slug == "" {
		return Entry{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return Entry{}, false
	}

	return Entry{
		Slug:      slug,
		Title:     strings.TrimSpace(link.Text()),
		URL:       base.ResolveReference(ref).String(),
		UpdatedAt: ts,
	}, true
}

// SlugOf returns the last non-empty path segment of ref, which may be a
// full URL, a path, or a bare identifier.
func SlugOf(ref string) string {
	ref = strings.TrimRight(strings.TrimSpace(ref), "/")
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
