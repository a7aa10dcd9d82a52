// Package ffmpeg wraps the ffmpeg and ffprobe executables that yt-dlp uses
// for merging and audio extraction.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Toolchain locates ffmpeg binaries. An empty Dir means PATH lookup.
type Toolchain struct {
	Dir string

	execFn func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// New returns a toolchain rooted at dir ("" for PATH).
func New(dir string) *Toolchain {
	return &Toolchain{Dir: dir}
}

// ExecutableName returns the platform file name for tool ("ffmpeg.exe" on
// Windows).
func ExecutableName(tool string) string {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(tool), ".exe") {
		return tool + ".exe"
	}
	return tool
}

// Binary returns the command used to invoke tool.
func (t *Toolchain) Binary(tool string) string {
	if t == nil || strings.TrimSpace(t.Dir) == "" {
		return tool
	}
	p := filepath.Join(t.Dir, ExecutableName(tool))
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p
	}
	return tool
}

func (t *Toolchain) run(ctx context.Context, tool string, args ...string) ([]byte, error) {
	name := t.Binary(tool)

	if t.execFn != nil {
		stdout, stderr, err := t.execFn(ctx, name, args...)
		if err != nil {
			return nil, &Error{Tool: tool, Args: args, Stderr: string(stderr), Err: err}
		}
		return stdout, nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &Error{Tool: tool, Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// Version returns the first line of `ffmpeg -version`.
func (t *Toolchain) Version(ctx context.Context) (string, error) {
	out, err := t.run(ctx, "ffmpeg", "-hide_banner", "-version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// Error represents an ffmpeg/ffprobe execution error with context.
type Error struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	// Extract just the last few lines of stderr for the error message
	lines := strings.Split(strings.TrimSpace(e.Stderr), "\n")
	var lastLines string
	if len(lines) > 3 {
		lastLines = strings.Join(lines[len(lines)-3:], "\n")
	} else {
		lastLines = strings.Join(lines, "\n")
	}

	if lastLines != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, lastLines)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Command returns the command that was executed.
func (e *Error) Command() string {
	return e.Tool + " " + strings.Join(e.Args, " ")
}

// IsNotFound reports whether err means the binary could not be executed at all.
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist)
}
