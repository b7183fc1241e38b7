package volumes

import (
	"github.com/labstack/echo/v4"
	"github.com/narourip/narourip/pkg/works"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers volume routes on the works group.
func RegisterRoutes(worksGroup *echo.Group, db *bun.DB) {
	h := &handler{
		volumeService: NewService(db),
		workService:   works.NewService(db),
	}

	// GET /works/:id/volumes
	worksGroup.GET("/:id/volumes", h.list)
}
