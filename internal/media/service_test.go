package media

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/mediagrab/internal/staging"
	"thirdcoast.systems/mediagrab/pkg/ffmpeg"
	"thirdcoast.systems/mediagrab/pkg/ytdlp"
)

type fakeExtractor struct {
	mu sync.Mutex

	info    *ytdlp.Info
	err     error
	produce []string // file names written into the output dir by Fetch

	infoCalls  int
	fetchCalls int
	lastOpts   ytdlp.FetchOptions
	lastURL    string
}

func (f *fakeExtractor) GetInfo(ctx context.Context, url string, extraArgs ...string) (*ytdlp.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func (f *fakeExtractor) Fetch(ctx context.Context, url string, opts ytdlp.FetchOptions, extraArgs ...string) (*ytdlp.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.lastURL = url
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	dir := filepath.Dir(opts.OutputTemplate)
	for _, name := range f.produce {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("media bytes"), 0o644); err != nil {
			return nil, err
		}
	}
	return f.info, nil
}

type fakeProber struct {
	res   *ffmpeg.ProbeResult
	err   error
	paths []string
}

func (p *fakeProber) Probe(ctx context.Context, path string) (*ffmpeg.ProbeResult, error) {
	p.paths = append(p.paths, path)
	return p.res, p.err
}

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T, ex Extractor, opts Options) (*Service, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "downloads")
	m := staging.NewManager(root)
	require.NoError(t, m.EnsureDirectory())
	return NewService(ex, m, opts), root
}

func stagedFiles(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	require.NoError(t, filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			out = append(out, path)
		}
		return nil
	}))
	return out
}

func TestGetInfo_BlankURL(t *testing.T) {
	for _, url := range []string{"", "   ", "\t\n"} {
		ex := &fakeExtractor{}
		svc, _ := newTestService(t, ex, Options{})

		_, err := svc.GetInfo(context.Background(), MediaQuery{URL: url})
		require.Equal(t, KindInvalidInput, KindOf(err))
		require.Zero(t, ex.infoCalls)

		var me *Error
		require.ErrorAs(t, err, &me)
		require.Equal(t, "No URL provided", me.Message)
	}
}

func TestGetInfo_Projection(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{
		Title:     "Never Gonna Give You Up",
		Thumbnail: "https://i.ytimg.com/vi/x/hq.jpg",
		Duration:  ptr(213.0),
		Uploader:  "Rick Astley",
		ViewCount: ptr(int64(1_500_000_000)),
	}}
	svc, _ := newTestService(t, ex, Options{})

	mi, err := svc.GetInfo(context.Background(), MediaQuery{URL: "  https://youtu.be/x  "})
	require.NoError(t, err)
	require.Equal(t, "https://youtu.be/x", ex.lastURL)
	require.Equal(t, &MediaInfo{
		Title:     "Never Gonna Give You Up",
		Thumbnail: "https://i.ytimg.com/vi/x/hq.jpg",
		Duration:  "3:33",
		Uploader:  "Rick Astley",
		ViewCount: 1_500_000_000,
		URL:       "https://youtu.be/x",
	}, mi)
}

func TestGetInfo_Defaults(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{}}
	svc, _ := newTestService(t, ex, Options{})

	mi, err := svc.GetInfo(context.Background(), MediaQuery{URL: "https://example.com/v"})
	require.NoError(t, err)
	require.Equal(t, "Unknown", mi.Title)
	require.Equal(t, "Unknown", mi.Uploader)
	require.Equal(t, "Unknown", mi.Duration)
	require.Empty(t, mi.Thumbnail)
	require.Zero(t, mi.ViewCount)
}

func TestGetInfo_BlankTitleAndUploaderAreUnknown(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{Title: "  ", Uploader: "\t"}}
	svc, _ := newTestService(t, ex, Options{})

	mi, err := svc.GetInfo(context.Background(), MediaQuery{URL: "https://example.com/v"})
	require.NoError(t, err)
	require.Equal(t, "Unknown", mi.Title)
	require.Equal(t, "Unknown", mi.Uploader)
}

func TestGetInfo_YouTubeThumbnailFallback(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{Title: "clip"}}
	svc, _ := newTestService(t, ex, Options{})

	mi, err := svc.GetInfo(context.Background(), MediaQuery{URL: "https://youtu.be/ggLajT7aMMk"})
	require.NoError(t, err)
	require.Equal(t, "https://i.ytimg.com/vi/ggLajT7aMMk/hqdefault.jpg", mi.Thumbnail)
	require.Equal(t, "https://youtu.be/ggLajT7aMMk", mi.URL)
}

func TestGetInfo_ExtractionFailed(t *testing.T) {
	ex := &fakeExtractor{err: &ytdlp.ExecError{
		Cmd:      "yt-dlp",
		ExitCode: 1,
		Stderr:   "WARNING: something\nERROR: Unsupported URL: https://example.com/nothing",
		Cause:    errors.New("exit status 1"),
	}}
	svc, root := newTestService(t, ex, Options{})

	_, err := svc.GetInfo(context.Background(), MediaQuery{URL: "https://example.com/nothing"})
	require.Equal(t, KindExtractionFailed, KindOf(err))
	require.Equal(t, 400, KindOf(err).HTTPStatus())

	var me *Error
	require.ErrorAs(t, err, &me)
	require.Equal(t, "ERROR: Unsupported URL: https://example.com/nothing", me.Message)
	require.Empty(t, stagedFiles(t, root))
	require.Zero(t, ex.fetchCalls)
}

func TestDownload_BlankURL(t *testing.T) {
	ex := &fakeExtractor{}
	svc, root := newTestService(t, ex, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.mp4"), []byte("x"), 0o644))

	_, err := svc.Download(context.Background(), DownloadRequest{URL: " "})
	require.Equal(t, KindInvalidInput, KindOf(err))
	require.Zero(t, ex.fetchCalls)
	require.FileExists(t, filepath.Join(root, "keep.mp4"))
}

func TestDownload_Audio(t *testing.T) {
	ex := &fakeExtractor{
		info:    &ytdlp.Info{Title: `AC/DC: "Thunderstruck"`},
		produce: []string{"AC_DC Thunderstruck.mp3"},
	}
	prober := &fakeProber{res: &ffmpeg.ProbeResult{FormatName: "mp3", Duration: 292, AudioCodec: "mp3"}}
	svc, root := newTestService(t, ex, Options{FFmpegLocation: "/opt/ffmpeg/bin", MaxFilesize: 1 << 30, Prober: prober})

	stale := filepath.Join(root, "previous.webm")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	f, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x", Mode: ModeAudio})
	require.NoError(t, err)
	defer f.Release()

	require.NoFileExists(t, stale)
	require.Equal(t, `AC_DC_ _Thunderstruck_.mp3`, f.Name)
	require.Equal(t, ".mp3", filepath.Ext(f.Name))
	require.Equal(t, int64(len("media bytes")), f.Size)
	require.Equal(t, "audio/mpeg", f.ContentType)
	require.Len(t, stagedFiles(t, root), 1)
	require.Equal(t, []string{f.Path}, prober.paths)

	opts := ex.lastOpts
	require.Equal(t, "bestaudio/best", opts.Format)
	require.True(t, opts.ExtractAudio)
	require.Equal(t, "mp3", opts.AudioFormat)
	require.Equal(t, "0", opts.AudioQuality)
	require.Empty(t, opts.MergeOutputFormat)
	require.Equal(t, "/opt/ffmpeg/bin", opts.FFmpegLocation)
	require.Equal(t, int64(1<<30), opts.MaxFilesize)
	require.True(t, strings.HasSuffix(opts.OutputTemplate, "%(title)s.%(ext)s"))
	require.Equal(t, root, filepath.Dir(filepath.Dir(opts.OutputTemplate)))

	b, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	require.Equal(t, "media bytes", string(b))
}

func TestDownload_DefaultsToVideo(t *testing.T) {
	for _, raw := range []string{"", "video", "bogus", "AUDIO"} {
		t.Run("mode="+raw, func(t *testing.T) {
			ex := &fakeExtractor{info: &ytdlp.Info{Title: "clip"}, produce: []string{"clip.mp4"}}
			svc, _ := newTestService(t, ex, Options{})

			f, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x", Mode: ParseMode(raw)})
			require.NoError(t, err)
			defer f.Release()

			require.Equal(t, "clip.mp4", f.Name)
			require.Equal(t, "video/mp4", f.ContentType)
			require.Equal(t, "bestvideo+bestaudio/best", ex.lastOpts.Format)
			require.Equal(t, "mp4", ex.lastOpts.MergeOutputFormat)
			require.False(t, ex.lastOpts.ExtractAudio)
			require.Empty(t, ex.lastOpts.FFmpegLocation)
		})
	}
}

func TestDownload_FallbackName(t *testing.T) {
	for _, title := range []string{"", "   "} {
		ex := &fakeExtractor{info: &ytdlp.Info{Title: title}, produce: []string{"NA.mp4"}}
		svc, _ := newTestService(t, ex, Options{})

		f, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x"})
		require.NoError(t, err)
		require.Equal(t, "download.mp4", f.Name)
		f.Release()
	}
}

func TestDownload_NoFileProduced(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{Title: "clip"}}
	svc, _ := newTestService(t, ex, Options{})

	_, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x", Mode: ModeAudio})
	require.Equal(t, KindDownloadProducedNoFile, KindOf(err))
	require.Equal(t, 500, KindOf(err).HTTPStatus())
	require.ErrorIs(t, err, staging.ErrNoFile)

	var me *Error
	require.ErrorAs(t, err, &me)
	require.Equal(t, "Download failed - no file produced", me.Message)
}

func TestDownload_MultipleFilesFailLoudly(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{Title: "clip"}, produce: []string{"clip.mp4", "clip.webm"}}
	svc, root := newTestService(t, ex, Options{})

	_, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x"})
	require.Equal(t, KindDownloadFailed, KindOf(err))
	require.ErrorIs(t, err, staging.ErrMultipleFiles)
	require.Empty(t, stagedFiles(t, root), "a failed download must not leave files behind")
	require.Zero(t, svc.staging.ActiveSessions())
}

func TestDownload_ReportedFileMismatchIsLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ex := &fakeExtractor{
		info: &ytdlp.Info{
			Title:              "clip",
			RequestedDownloads: []ytdlp.RequestedDownload{{Filepath: "/elsewhere/clip.webm", Ext: "webm"}},
		},
		produce: []string{"clip.mp4"},
	}
	svc, _ := newTestService(t, ex, Options{})

	f, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x"})
	require.NoError(t, err)
	defer f.Release()
	require.Equal(t, "clip.mp4", f.Name)
	require.Contains(t, logs.String(), "staged file differs from the one yt-dlp reported")
	require.Contains(t, logs.String(), "reported=clip.webm")
}

func TestReportedFile(t *testing.T) {
	require.Empty(t, reportedFile(nil))
	require.Empty(t, reportedFile(&ytdlp.Info{}))
	require.Equal(t, "/s/a.mp3", reportedFile(&ytdlp.Info{RequestedDownloads: []ytdlp.RequestedDownload{{Filepath: "/s/a.mp3"}}}))
}

func TestDownload_ExtractorFailureIsRedacted(t *testing.T) {
	ex := &fakeExtractor{}
	svc, root := newTestService(t, ex, Options{})
	abs, err := filepath.Abs(root)
	require.NoError(t, err)

	ex.err = &ytdlp.ExecError{
		Cmd:    "yt-dlp",
		Stderr: "ERROR: unable to write <b>" + filepath.Join(abs, "abc", "clip.mp4") + "</b>: disk full",
		Cause:  errors.New("exit status 1"),
	}

	_, err = svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x"})
	require.Equal(t, KindDownloadFailed, KindOf(err))

	var me *Error
	require.ErrorAs(t, err, &me)
	require.NotContains(t, me.Message, abs)
	require.NotContains(t, me.Message, "<b>")
	require.Equal(t, "ERROR: unable to write "+filepath.Join("<staging>", "abc", "clip.mp4")+": disk full", me.Message)
}

func TestDownload_SequentialLeaveOneFile(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{Title: "one"}, produce: []string{"one.mp3"}}
	svc, root := newTestService(t, ex, Options{})

	f1, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/1", Mode: ModeAudio})
	require.NoError(t, err)
	f1.Release()
	require.Len(t, stagedFiles(t, root), 1)

	ex.info = &ytdlp.Info{Title: "two"}
	ex.produce = []string{"two.mp3"}
	f2, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/2", Mode: ModeAudio})
	require.NoError(t, err)
	f2.Release()

	files := stagedFiles(t, root)
	require.Len(t, files, 1)
	require.Equal(t, "two.mp3", filepath.Base(files[0]))
}

func TestDownload_ProbeFailureDoesNotFail(t *testing.T) {
	ex := &fakeExtractor{info: &ytdlp.Info{Title: "clip"}, produce: []string{"clip.mp4"}}
	svc, _ := newTestService(t, ex, Options{Prober: &fakeProber{err: errors.New("ffprobe missing")}})

	f, err := svc.Download(context.Background(), DownloadRequest{URL: "https://youtu.be/x"})
	require.NoError(t, err)
	f.Release()
}

func TestParseMode(t *testing.T) {
	require.Equal(t, ModeAudio, ParseMode("audio"))
	require.Equal(t, ModeVideo, ParseMode("video"))
	require.Equal(t, ModeVideo, ParseMode(""))
	require.Equal(t, ModeVideo, ParseMode("bogus"))
}

func TestKind(t *testing.T) {
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	require.Equal(t, KindUnknown, KindOf(nil))
	require.Equal(t, 400, KindInvalidInput.HTTPStatus())
	require.Equal(t, 500, KindDownloadFailed.HTTPStatus())
	require.Equal(t, 500, KindUnknown.HTTPStatus())
	require.Equal(t, "download_produced_no_file", KindDownloadProducedNoFile.String())

	err := &Error{Kind: KindExtractionFailed, Message: "nope", Err: errors.New("exit 1")}
	require.Equal(t, "extraction_failed: nope: exit 1", err.Error())
}

func TestRedact_RelativeRoot(t *testing.T) {
	r := newRedactor("downloads")
	got := r.redact("ERROR: cannot open " + filepath.Join("downloads", "abc", "x.mp4") + " &amp; retry")
	require.Equal(t, "ERROR: cannot open "+filepath.Join("<staging>", "abc", "x.mp4")+" & retry", got)
}
