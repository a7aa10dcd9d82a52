package media_api

import (
	"errors"
	"log/slog"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"
	"thirdcoast.systems/mediagrab/cmd/web/handlers/common"
	"thirdcoast.systems/mediagrab/cmd/web/templates"
	"thirdcoast.systems/mediagrab/internal/media"
)

type infoCardSignals struct {
	URL string `json:"url"`
}

// HandleInfoCard looks up the url signal and patches the rendered card (or
// the error) into the landing page.
func HandleInfoCard(svc InfoService) echo.HandlerFunc {
	return func(c echo.Context) error {
		signals := &infoCardSignals{}
		if err := datastar.ReadSignals(c.Request(), signals); err != nil {
			return common.ErrBadRequest("invalid signals")
		}

		// NewSSE flushes headers and closes the request body, so it must
		// come after ReadSignals.
		common.SetSSEHeaders(c)
		sse := datastar.NewSSE(c.Response().Writer, c.Request())

		var fragment templ.Component
		info, err := svc.GetInfo(c.Request().Context(), media.MediaQuery{URL: signals.URL})
		if err != nil {
			var me *media.Error
			msg := err.Error()
			if errors.As(err, &me) {
				msg = me.Message
			}
			slog.Info("info card lookup failed", "url", signals.URL, "kind", media.KindOf(err).String(), "error", err)
			fragment = templates.MediaError(msg)
		} else {
			fragment = templates.MediaCard(info)
		}

		if err := sse.PatchElementTempl(fragment,
			datastar.WithSelectorID(templates.MediaCardID),
			datastar.WithModeInner(),
		); err != nil {
			slog.Error("failed to send info card patch", "error", err)
			return err
		}
		return nil
	}
}
