// Package fileserver provides file serving utilities for API handlers.
package fileserver

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/mediagrab/cmd/web/handlers/common"
	"thirdcoast.systems/mediagrab/pkg/utils/filename"
)

// WeakETag derives a weak validator from file size and modtime.
func WeakETag(info os.FileInfo) string {
	return fmt.Sprintf(`W/"%x-%x"`, info.ModTime().Unix(), info.Size())
}

// ServeAttachment streams a file from disk as a download named name.
// Range and conditional requests are handled by http.ServeContent.
func ServeAttachment(c echo.Context, absPath, name, contentType string) error {
	f, err := os.Open(absPath)
	if err != nil {
		return common.ErrNotFound("downloaded file is no longer available").SetInternal(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return common.ErrNotFound("downloaded file is no longer available").SetInternal(err)
	}
	if info.IsDir() {
		return common.ErrNotFound("downloaded file is no longer available")
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentDisposition, filename.ContentDisposition(name))
	h.Set(echo.HeaderCacheControl, "private, no-store")
	h.Set("ETag", WeakETag(info))
	if strings.TrimSpace(contentType) == "" {
		contentType = "application/octet-stream"
	}
	h.Set(echo.HeaderContentType, contentType)

	http.ServeContent(c.Response(), c.Request(), name, info.ModTime().Truncate(time.Second), f)
	return nil
}
