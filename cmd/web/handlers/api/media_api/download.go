package media_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mediagrab/cmd/web/handlers/api/fileserver"
	"thirdcoast.systems/mediagrab/cmd/web/handlers/common"
	"thirdcoast.systems/mediagrab/internal/media"
)

// HandleDownload fetches ?url= as video or audio (?mode=audio) and streams
// the staged file back as an attachment.
func HandleDownload(svc DownloadService) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := media.DownloadRequest{
			URL:  c.QueryParam("url"),
			Mode: media.ParseMode(c.QueryParam("mode")),
		}

		file, err := svc.Download(c.Request().Context(), req)
		if err != nil {
			return common.MediaError(err)
		}
		defer file.Release()

		slog.Debug("streaming staged file", "name", file.Name, "path", file.Path)
		return fileserver.ServeAttachment(c, file.Path, file.Name, file.ContentType)
	}
}
