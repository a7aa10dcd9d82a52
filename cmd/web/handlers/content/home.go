package content

import (
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mediagrab/cmd/web/templates"
)

func HandleHomePage() echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		// The card is filled in over datastar SSE from /api/info/card.
		return templates.Index().Render(c.Request().Context(), c.Response())
	}
}
