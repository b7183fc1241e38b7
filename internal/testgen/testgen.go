// Package testgen provides a fake of the remote novel site (metadata API,
// index pages, chapter pages and the ranking list) with programmable
// failures, for testing the sync pipeline without network access.
package testgen

import (
	"os"
	"testing"
)

// ChapterOptions configures one chapter of a generated work.
type ChapterOptions struct {
	Slug      string
	Title     string
	UpdatedAt string // "2024/01/01 00:00"
	Body      string // inner markup of the content container
	Volume    string // volume heading; a change of value starts a new volume
	// TimestampAsText renders the update time as plain text instead of a
	// span title attribute.
	TimestampAsText bool
}

// WorkOptions configures a generated work.
type WorkOptions struct {
	ID        string
	Title     string
	Summary   string
	UpdatedAt string // metadata API timestamp, either format
	Chapters  []ChapterOptions
	// NoTitle renders an index page without the title element.
	NoTitle bool
	// Unlisted works have pages but are missing from the metadata API.
	Unlisted bool
	// XHTML serves the index and chapter pages as XHTML documents, with an
	// XML declaration and an XHTML doctype.
	XHTML bool
}

// RankOptions is one row of the generated ranking page.
type RankOptions struct {
	Rank   int
	WorkID string
}

// TempDir creates a temporary directory for testing and registers cleanup.
// The directory is automatically removed when the test completes.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}
