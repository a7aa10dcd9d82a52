// Package toolchain discovers where the ffmpeg binaries live when they are
// not on PATH. The result is an explicit value handed to whoever invokes
// yt-dlp or ffprobe; the process environment is left untouched.
package toolchain

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"

	"thirdcoast.systems/mediagrab/pkg/ffmpeg"
)

// Binary is the tool the locator looks for.
const Binary = "ffmpeg"

// Location is the outcome of a Locate run. Dir is empty when the binary is
// already resolvable through PATH or could not be found.
type Location struct {
	Dir    string
	Source string // "override", "path", "search" or "" when not found
}

// Found reports whether a usable ffmpeg was discovered by any means.
func (l Location) Found() bool {
	return l.Source != ""
}

// Options configures Locate.
type Options struct {
	// Override forces the location without any lookup.
	Override string

	// SearchRoot is walked recursively when the binary is not on PATH.
	// Empty means the WinGet package cache on Windows and nothing elsewhere.
	SearchRoot string

	lookPath func(file string) (string, error)
	goos     string
}

// defaultSearchRoot returns the per-user package cache consulted when ffmpeg
// is not on PATH. Only Windows (WinGet) has one.
func defaultSearchRoot(goos string) string {
	if goos != "windows" {
		return ""
	}
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		home, err := homedir.Dir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, "AppData", "Local")
	}
	return filepath.Join(base, "Microsoft", "WinGet", "Packages")
}

func executableName(goos string) string {
	if goos == "windows" {
		return Binary + ".exe"
	}
	return Binary
}

// Locate resolves the ffmpeg directory once at startup. Not finding it is
// logged and otherwise ignored; later yt-dlp invocations may still fail.
func Locate(ctx context.Context, opts Options) Location {
	goos := opts.goos
	if goos == "" {
		goos = runtime.GOOS
	}
	lookPath := opts.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if dir := strings.TrimSpace(opts.Override); dir != "" {
		if expanded, err := homedir.Expand(dir); err == nil {
			dir = expanded
		}
		slog.Info("ffmpeg location overridden", "dir", dir)
		return Location{Dir: dir, Source: "override"}
	}

	name := executableName(goos)
	if p, err := lookPath(name); err == nil {
		slog.Debug("ffmpeg found on PATH", "path", p)
		return Location{Source: "path"}
	}

	root := strings.TrimSpace(opts.SearchRoot)
	if root == "" {
		root = defaultSearchRoot(goos)
	}
	if root == "" {
		slog.Warn("ffmpeg not found on PATH and no search root configured")
		return Location{}
	}
	if expanded, err := homedir.Expand(root); err == nil {
		root = expanded
	}

	dir, err := search(ctx, root, name)
	if err != nil {
		slog.Warn("ffmpeg search failed", "root", root, "error", err)
		return Location{}
	}
	if dir == "" {
		slog.Warn("ffmpeg not found", "root", root)
		return Location{}
	}

	slog.Info("ffmpeg discovered", "dir", dir, "root", root)
	return Location{Dir: dir, Source: "search"}
}

var errFound = errors.New("found")

// search walks root and returns the directory holding the first regular file
// named name. Unreadable subtrees are skipped.
func search(ctx context.Context, root, name string) (string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(d.Name(), name) {
			return nil
		}
		found = filepath.Dir(path)
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", err
	}
	return found, nil
}

// Diagnose explains a failed ffmpeg version check for the startup log.
func (l Location) Diagnose(err error) (string, []any) {
	attrs := []any{"source", l.Source, "dir", l.Dir, "error", err}
	var fe *ffmpeg.Error
	if errors.As(err, &fe) {
		attrs = append(attrs, "cmd", fe.Command())
	}

	switch {
	case !l.Found():
		return "ffmpeg not found; merging and audio extraction will fail", attrs
	case ffmpeg.IsNotFound(err):
		return "ffmpeg location has no usable executable", attrs
	default:
		return "ffmpeg found but failed to run", attrs
	}
}

// Toolchain returns the ffmpeg adapter for this location.
func (l Location) Toolchain() *ffmpeg.Toolchain {
	return ffmpeg.New(l.Dir)
}
