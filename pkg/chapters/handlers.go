package chapters

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/narourip/narourip/pkg/errcodes"
	"github.com/narourip/narourip/pkg/models"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
)

type handler struct {
	chapterService *Service
	workService    *works.Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	workID := c.Param("id")

	// Verify work exists
	if _, err := h.workService.RetrieveWork(ctx, works.RetrieveWorkOptions{ID: &workID}); err != nil {
		return errors.WithStack(err)
	}

	params := ListChaptersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListChaptersOptions{
		WorkID:         workID,
		WithoutContent: !params.Content,
	}
	if params.OrdinalFrom > 0 {
		opts.OrdinalFrom = &params.OrdinalFrom
	}
	if params.OrdinalTo > 0 {
		opts.OrdinalTo = &params.OrdinalTo
	}

	chapters, err := h.chapterService.ListChapters(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Chapters []*models.Chapter `json:"chapters"`
		Total    int               `json:"total"`
	}{chapters, len(chapters)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	workID := c.Param("id")
	ordinal, err := strconv.Atoi(c.Param("ordinal"))
	if err != nil {
		return errcodes.NotFound("Chapter")
	}

	chapter, err := h.chapterService.RetrieveChapter(ctx, RetrieveChapterOptions{
		WorkID:  &workID,
		Ordinal: &ordinal,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, chapter))
}
