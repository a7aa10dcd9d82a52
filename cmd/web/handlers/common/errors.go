package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/mediagrab/internal/media"
)

// ErrBadRequest returns a 400 Bad Request error.
func ErrBadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// ErrNotFound returns a 404 Not Found error.
func ErrNotFound(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// ErrInternal returns a 500 Internal Server Error.
func ErrInternal(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, msg)
}

// MediaError maps a media service error to an HTTP error carrying the
// client-safe message. The original error is kept as the internal cause so
// the request logger records it.
func MediaError(err error) *echo.HTTPError {
	var me *media.Error
	if errors.As(err, &me) {
		return echo.NewHTTPError(me.Kind.HTTPStatus(), me.Message).SetInternal(err)
	}
	return ErrInternal(err.Error()).SetInternal(err)
}

// ErrorMessage renders an echo error's message as a plain string.
func ErrorMessage(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case error:
		return m.Error()
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}

// JSONErrorHandler writes every error as {"error": "<message>"}.
func JSONErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := &echo.HTTPError{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
	if !errors.As(err, &he) {
		he.Message = err.Error()
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(he.Code)
	} else {
		werr = c.JSON(he.Code, map[string]string{"error": ErrorMessage(he)})
	}
	if werr != nil {
		c.Logger().Error(werr)
	}
}
