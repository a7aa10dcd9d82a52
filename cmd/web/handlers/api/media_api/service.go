// Package media_api provides the metadata and download API handlers.
package media_api

import (
	"context"

	"thirdcoast.systems/mediagrab/internal/media"
)

// InfoService resolves metadata for a URL.
type InfoService interface {
	GetInfo(ctx context.Context, q media.MediaQuery) (*media.MediaInfo, error)
}

// DownloadService stages a download for streaming.
type DownloadService interface {
	Download(ctx context.Context, req media.DownloadRequest) (*media.StagedFile, error)
}

// Service is everything the media routes need.
type Service interface {
	InfoService
	DownloadService
}
