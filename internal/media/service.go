// Package media implements the two user-facing operations: looking up
// metadata for a URL and downloading it as video or audio.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"thirdcoast.systems/mediagrab/internal/sourceurl"
	"thirdcoast.systems/mediagrab/internal/staging"
	"thirdcoast.systems/mediagrab/pkg/ffmpeg"
	"thirdcoast.systems/mediagrab/pkg/utils/filename"
	"thirdcoast.systems/mediagrab/pkg/utils/format"
	"thirdcoast.systems/mediagrab/pkg/ytdlp"
)

const (
	fallbackFilename = "download"

	msgNoURL  = "No URL provided"
	msgNoFile = "Download failed - no file produced"
)

// Extractor is the external extraction capability (yt-dlp).
type Extractor interface {
	GetInfo(ctx context.Context, url string, extraArgs ...string) (*ytdlp.Info, error)
	Fetch(ctx context.Context, url string, opts ytdlp.FetchOptions, extraArgs ...string) (*ytdlp.Info, error)
}

// Prober inspects a staged file. Optional.
type Prober interface {
	Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error)
}

type Options struct {
	// FFmpegLocation is passed to yt-dlp when set.
	FFmpegLocation string

	// MaxFilesize in bytes; 0 disables the limit.
	MaxFilesize int64

	Prober Prober
}

type Service struct {
	extractor Extractor
	staging   *staging.Manager
	opts      Options
	redactor  *redactor
}

func NewService(extractor Extractor, stagingManager *staging.Manager, opts Options) *Service {
	return &Service{
		extractor: extractor,
		staging:   stagingManager,
		opts:      opts,
		redactor:  newRedactor(stagingManager.Root()),
	}
}

// MediaQuery is the input to GetInfo.
type MediaQuery struct {
	URL string `json:"url" form:"url" query:"url"`
}

// MediaInfo is the metadata projection returned to clients.
type MediaInfo struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration"`
	Uploader  string `json:"uploader"`
	ViewCount int64  `json:"view_count"`
	URL       string `json:"url"`
}

// DownloadRequest is the input to Download.
type DownloadRequest struct {
	URL  string
	Mode Mode
}

// GetInfo resolves metadata without downloading any media.
func (s *Service) GetInfo(ctx context.Context, q MediaQuery) (*MediaInfo, error) {
	url := strings.TrimSpace(q.URL)
	if url == "" {
		return nil, &Error{Kind: KindInvalidInput, Message: msgNoURL}
	}

	info, err := s.extractor.GetInfo(ctx, url)
	if err != nil {
		return nil, &Error{
			Kind:    KindExtractionFailed,
			Message: s.redactor.redact(ytdlp.Message(err)),
			Err:     err,
		}
	}

	return project(info, url), nil
}

func project(info *ytdlp.Info, url string) *MediaInfo {
	mi := &MediaInfo{
		Title:     orDefault(info.Title, format.Unknown),
		Thumbnail: info.Thumbnail,
		Duration:  format.Duration(info.Duration),
		Uploader:  orDefault(info.Uploader, format.Unknown),
		URL:       url,
	}
	if mi.Thumbnail == "" {
		mi.Thumbnail = sourceurl.ThumbnailFallback(url)
	}
	if info.ViewCount != nil {
		mi.ViewCount = *info.ViewCount
	}
	return mi
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// StagedFile is a finished download waiting to be streamed. The caller must
// call Release once the response has been written.
type StagedFile struct {
	Path        string
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string

	session *staging.Session
}

// Release returns the staging session. The file remains until the next
// download purges it.
func (f *StagedFile) Release() {
	if f.session != nil {
		f.session.Release()
	}
}

// FetchOptions builds the yt-dlp options for mode with output in dir.
func (s *Service) FetchOptions(dir string, mode Mode) ytdlp.FetchOptions {
	opts := ytdlp.FetchOptions{
		OutputTemplate: filepath.Join(dir, "%(title)s.%(ext)s"),
		FFmpegLocation: s.opts.FFmpegLocation,
		MaxFilesize:    s.opts.MaxFilesize,
	}
	if mode == ModeAudio {
		opts.Format = "bestaudio/best"
		opts.ExtractAudio = true
		opts.AudioFormat = "mp3"
		opts.AudioQuality = "0"
	} else {
		opts.Format = "bestvideo+bestaudio/best"
		opts.MergeOutputFormat = "mp4"
	}
	return opts
}

// Download fetches req.URL into a fresh staging session and returns the
// produced file.
func (s *Service) Download(ctx context.Context, req DownloadRequest) (*StagedFile, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, &Error{Kind: KindInvalidInput, Message: msgNoURL}
	}
	mode := req.Mode
	if mode != ModeAudio {
		mode = ModeVideo
	}

	session, err := s.staging.Begin(ctx)
	if err != nil {
		return nil, s.downloadFailed(fmt.Errorf("begin staging: %w", err))
	}

	file, err := s.fetch(ctx, session, url, mode)
	if err != nil {
		// leftovers of a failed run are never served
		session.Purge()
		session.Release()
		return nil, err
	}
	return file, nil
}

func (s *Service) fetch(ctx context.Context, session *staging.Session, url string, mode Mode) (*StagedFile, error) {
	start := time.Now()
	info, err := s.extractor.Fetch(ctx, url, s.FetchOptions(session.Dir(), mode))
	if err != nil {
		return nil, s.downloadFailed(err)
	}

	stem := filename.Sanitize(info.Title)
	if stem == "" {
		stem = fallbackFilename
	}

	path, err := session.Result()
	if errors.Is(err, staging.ErrNoFile) {
		return nil, &Error{Kind: KindDownloadProducedNoFile, Message: msgNoFile, Err: err}
	}
	if err != nil {
		return nil, s.downloadFailed(err)
	}

	if reported := reportedFile(info); reported != "" && filepath.Base(reported) != filepath.Base(path) {
		slog.Warn("staged file differs from the one yt-dlp reported",
			"session", session.ID(),
			"reported", filepath.Base(reported),
			"found", filepath.Base(path),
		)
	}

	st, err := os.Stat(path)
	if err != nil {
		return nil, s.downloadFailed(fmt.Errorf("stat staged file: %w", err))
	}

	ext := filepath.Ext(path)
	file := &StagedFile{
		Path:        path,
		Name:        stem + ext,
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: contentType(ext),
		session:     session,
	}

	slog.Info("download staged",
		"session", session.ID(),
		"url", url,
		"source", sourceurl.Domain(url),
		"mode", string(mode),
		"name", file.Name,
		"size", format.Bytes(file.Size),
		"took", time.Since(start).Round(time.Millisecond),
		"active", s.staging.ActiveSessions(),
	)
	s.probe(ctx, file)

	return file, nil
}

// reportedFile is the output path yt-dlp printed for the finished download.
func reportedFile(info *ytdlp.Info) string {
	if info == nil || len(info.RequestedDownloads) == 0 {
		return ""
	}
	return info.RequestedDownloads[0].Filepath
}

func (s *Service) probe(ctx context.Context, file *StagedFile) {
	if s.opts.Prober == nil {
		return
	}
	res, err := s.opts.Prober.Probe(ctx, file.Path)
	if err != nil {
		slog.Debug("probe staged file failed", "path", file.Path, "error", err)
		return
	}
	duration := res.Duration
	slog.Info("staged file probed",
		"name", file.Name,
		"format", res.FormatName,
		"duration", format.Duration(&duration),
		"video_codec", res.VideoCodec,
		"audio_codec", res.AudioCodec,
	)
}

func (s *Service) downloadFailed(err error) *Error {
	return &Error{
		Kind:    KindDownloadFailed,
		Message: s.redactor.redact(ytdlp.Message(err)),
		Err:     err,
	}
}

func contentType(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "video/webm"
	}
	return "application/octet-stream"
}
