package works

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the read-only work routes on g.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		workService: NewService(db),
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
}
