package media_api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mediagrab/cmd/web/handlers/common"
	"thirdcoast.systems/mediagrab/internal/media"
)

// HandleInfo returns metadata for the JSON body's url.
func HandleInfo(svc InfoService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var q media.MediaQuery
		if err := c.Bind(&q); err != nil {
			return common.ErrBadRequest("invalid request body")
		}

		info, err := svc.GetInfo(c.Request().Context(), q)
		if err != nil {
			return common.MediaError(err)
		}
		return c.JSON(http.StatusOK, info)
	}
}
