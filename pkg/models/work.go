package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Work struct {
	bun.BaseModel `bun:"table:works,alias:w"`

	ID              string     `bun:",pk" json:"id"`
	CreatedAt       time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt       time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Title           string     `bun:",notnull" json:"title"`
	Summary         string     `bun:",notnull" json:"summary"`
	Rank            *int       `json:"rank"`
	RemoteUpdatedAt *time.Time `json:"remote_updated_at"`
	// LastSyncedAt is the watermark. It is only written once every chapter
	// the last listing asked for has been stored.
	LastSyncedAt *time.Time `json:"last_synced_at"`

	// Relations
	Chapters []*Chapter `bun:"rel:has-many,join:id=work_id" json:"chapters,omitempty"`
	Volumes  []*Volume  `bun:"rel:has-many,join:id=work_id" json:"volumes,omitempty"`
}
