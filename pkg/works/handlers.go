package works

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/narourip/narourip/pkg/models"
	"github.com/pkg/errors"
)

type handler struct {
	workService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	work, err := h.workService.RetrieveWork(ctx, RetrieveWorkOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, work))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListWorksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	works, total, err := h.workService.ListWorksWithTotal(ctx, ListWorksOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Ranked: params.Ranked,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Works []*models.Work `json:"works"`
		Total int            `json:"total"`
	}{works, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
