package volumes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/narourip/narourip/pkg/works"
	"github.com/pkg/errors"
)

type handler struct {
	volumeService *Service
	workService   *works.Service
}

type volumeResponse struct {
	Index int      `json:"index"`
	Title string   `json:"title"`
	Slugs []string `json:"slugs"`
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	workID := c.Param("id")

	if _, err := h.workService.RetrieveWork(ctx, works.RetrieveWorkOptions{ID: &workID}); err != nil {
		return errors.WithStack(err)
	}

	vols, err := h.volumeService.ListVolumes(ctx, workID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Volumes []volumeResponse `json:"volumes"`
	}{make([]volumeResponse, 0, len(vols))}
	for _, v := range vols {
		resp.Volumes = append(resp.Volumes, volumeResponse{Index: v.VolumeIndex, Title: v.Title, Slugs: v.Slugs()})
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
