package chapters

import (
	"github.com/labstack/echo/v4"
	"github.com/narourip/narourip/pkg/works"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers chapter routes on the works group.
func RegisterRoutes(worksGroup *echo.Group, db *bun.DB) {
	h := &handler{
		chapterService: NewService(db),
		workService:    works.NewService(db),
	}

	// GET /works/:id/chapters
	worksGroup.GET("/:id/chapters", h.list)
	worksGroup.GET("/:id/chapters/:ordinal", h.retrieve)
}
