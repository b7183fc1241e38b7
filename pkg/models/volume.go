package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Volume struct {
	bun.BaseModel `bun:"table:volumes,alias:v"`

	ID           int       `bun:",pk,autoincrement" json:"id"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	WorkID       string    `bun:",notnull" json:"work_id"`
	VolumeCode   string    `bun:",notnull" json:"volume_code"`
	VolumeIndex  int       `bun:",notnull" json:"volume_index"`
	Title        string    `bun:",notnull" json:"title"`
	ChapterSlugs string    `bun:",notnull" json:"-"`
}

func VolumeCode(workID string, index int) string {
	return fmt.Sprintf("%s-%d", workID, index)
}

// Slugs splits the stored member list back into chapter slugs.
func (v *Volume) Slugs() []string {
	if v.ChapterSlugs == "" {
		return nil
	}
	return strings.Split(v.ChapterSlugs, "\n")
}

func JoinSlugs(slugs []string) string {
	return strings.Join(slugs, "\n")
}
