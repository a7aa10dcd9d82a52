package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/mediagrab/internal/media"
)

func TestMediaError_StatusByKind(t *testing.T) {
	cases := map[media.Kind]int{
		media.KindInvalidInput:           http.StatusBadRequest,
		media.KindExtractionFailed:       http.StatusBadRequest,
		media.KindDownloadProducedNoFile: http.StatusInternalServerError,
		media.KindDownloadFailed:         http.StatusInternalServerError,
	}
	for kind, status := range cases {
		he := MediaError(&media.Error{Kind: kind, Message: "msg"})
		require.Equal(t, status, he.Code, kind.String())
		require.Equal(t, "msg", he.Message)
		require.Error(t, he.Internal)
	}

	he := MediaError(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, he.Code)
	require.Equal(t, "boom", he.Message)
}

func TestJSONErrorHandler(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"http error", ErrBadRequest("No URL provided"), 400, `{"error":"No URL provided"}`},
		{"media error", MediaError(&media.Error{Kind: media.KindDownloadProducedNoFile, Message: "Download failed - no file produced"}), 500, `{"error":"Download failed - no file produced"}`},
		{"plain error", errors.New("kaput"), 500, `{"error":"kaput"}`},
		{"not found", echo.ErrNotFound, 404, `{"error":"Not Found"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			JSONErrorHandler(tc.err, e.NewContext(req, rec))

			require.Equal(t, tc.code, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestJSONErrorHandler_Head(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodHead, "/", nil)
	rec := httptest.NewRecorder()
	JSONErrorHandler(ErrNotFound("gone"), e.NewContext(req, rec))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, rec.Body.String())
}
