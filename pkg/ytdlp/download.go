package ytdlp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// FetchOptions configures a combined extract + download + post-process run.
type FetchOptions struct {
	// OutputTemplate is passed to -o, e.g. "/staging/abc/%(title)s.%(ext)s".
	OutputTemplate string

	// Format is the format selection expression ("bestaudio/best").
	Format string

	// ExtractAudio converts the download to an audio-only file using
	// AudioFormat at AudioQuality (0 = best VBR).
	ExtractAudio bool
	AudioFormat  string
	AudioQuality string

	// MergeOutputFormat is the container used when separate video and audio
	// streams are merged.
	MergeOutputFormat string

	// FFmpegLocation is a directory (or binary path) holding ffmpeg. Empty
	// means yt-dlp resolves ffmpeg on its own.
	FFmpegLocation string

	// MaxFilesize aborts downloads larger than this many bytes. 0 = no limit.
	MaxFilesize int64
}

func (o FetchOptions) args() ([]string, error) {
	if strings.TrimSpace(o.OutputTemplate) == "" {
		return nil, fmt.Errorf("ytdlp: output template is required")
	}

	args := []string{
		"--no-simulate",
		"--dump-single-json",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--no-colors",
		"-o", o.OutputTemplate,
	}
	if o.Format != "" {
		args = append(args, "--format", o.Format)
	}
	if o.ExtractAudio {
		args = append(args, "--extract-audio")
		if o.AudioFormat != "" {
			args = append(args, "--audio-format", o.AudioFormat)
		}
		if o.AudioQuality != "" {
			args = append(args, "--audio-quality", o.AudioQuality)
		}
	}
	if o.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", o.MergeOutputFormat)
	}
	if o.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", o.FFmpegLocation)
	}
	if o.MaxFilesize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(o.MaxFilesize, 10))
	}
	return args, nil
}

// Fetch extracts metadata and downloads the media in a single yt-dlp run,
// applying the post-processing described by opts. The returned Info is the
// metadata yt-dlp printed after the download finished.
func (c *Client) Fetch(ctx context.Context, url string, opts FetchOptions, extraArgs ...string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("ytdlp: url is required")
	}

	args, err := opts.args()
	if err != nil {
		return nil, err
	}
	args = append(args, extraArgs...)
	args = append(args, "--", url)

	stdout, stderr, err := c.exec(ctx, args...)
	if err != nil {
		return nil, wrapExecError(c.PathOrDefault(), args, stdout, stderr, err)
	}

	return parseInfo(stdout)
}
