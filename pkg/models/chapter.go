package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:ch"`

	ID              int        `bun:",pk,autoincrement" json:"id"`
	CreatedAt       time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	WorkID          string     `bun:",notnull" json:"work_id"`
	ChapterCode     string     `bun:",notnull" json:"chapter_code"`
	Slug            string     `bun:",notnull" json:"slug"`
	Ordinal         int        `bun:",notnull" json:"ordinal"`
	Title           string     `bun:",notnull" json:"title"`
	RemoteUpdatedAt *time.Time `json:"remote_updated_at"`
	Content         string     `bun:",notnull" json:"content,omitempty"`

	// Relations
	Work *Work `bun:"rel:belongs-to,join:work_id=id" json:"-"`
}

// ChapterCode builds the globally unique code for a chapter of a work.
func ChapterCode(workID, slug string) string {
	return workID + "-" + slug
}
