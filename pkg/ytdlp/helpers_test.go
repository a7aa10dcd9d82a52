package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamWriter_SplitsOnCRAndLF(t *testing.T) {
	var buf bytes.Buffer
	var lines []string
	w := &streamWriter{
		stream: "stdout",
		callback: func(stream string, line string) {
			lines = append(lines, stream+":"+line)
		},
		buffer: &buf,
	}

	_, err := w.Write([]byte("a\rb\nc\r\nd"))
	require.NoError(t, err)

	// No delimiter after trailing "d" yet.
	require.Equal(t, []string{"stdout:a", "stdout:b", "stdout:c"}, lines)

	_, err = w.Write([]byte("\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"stdout:a", "stdout:b", "stdout:c", "stdout:d"}, lines)

	require.Equal(t, "a\rb\nc\r\nd\n", buf.String())
}

func TestWrapExecError_TrimsOutput(t *testing.T) {
	err := wrapExecError("yt-dlp", []string{"--version"}, []byte(" out \n"), []byte(" err \n"), errors.New("boom"))
	var ee *ExecError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, "yt-dlp", ee.Cmd)
	require.Equal(t, []string{"--version"}, ee.Args)
	require.Equal(t, 0, ee.ExitCode)
	require.Equal(t, "out", ee.Stdout)
	require.Equal(t, "err", ee.Stderr)
	require.Equal(t, "boom", ee.Cause.Error())
	require.Contains(t, ee.Error(), "yt-dlp")
}

func TestExecError_Message(t *testing.T) {
	cases := map[string]struct {
		stderr string
		cause  error
		want   string
	}{
		"prefers last ERROR line": {
			stderr: "WARNING: slow\nERROR: first\nERROR: [generic] Unsupported URL: https://x\n",
			want:   "ERROR: [generic] Unsupported URL: https://x",
		},
		"falls back to last line": {
			stderr: "something odd\nreally odd\r\n",
			want:   "really odd",
		},
		"falls back to cause": {
			cause: errors.New(`exec: "yt-dlp": executable file not found in $PATH`),
			want:  `exec: "yt-dlp": executable file not found in $PATH`,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := &ExecError{Cmd: "yt-dlp", Stderr: tc.stderr, Cause: tc.cause}
			require.Equal(t, tc.want, e.Message())
		})
	}
}

func TestMessage(t *testing.T) {
	require.Equal(t, "", Message(nil))
	require.Equal(t, "plain", Message(errors.New("plain")))

	wrapped := wrapExecError("yt-dlp", nil, nil, []byte("ERROR: nope"), errors.New("exit status 1"))
	require.Equal(t, "ERROR: nope", Message(wrapped))
}

func TestClient_Update_UsesExec(t *testing.T) {
	c := New()
	c.Path = ""

	called := false
	c.execFn = func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		called = true
		require.Equal(t, "yt-dlp", name)
		require.True(t, len(args) >= 1)
		require.True(t, strings.Contains(strings.Join(args, " "), "-U"))
		return nil, nil, nil
	}

	err := c.Update(context.Background())
	require.NoError(t, err)
	require.True(t, called)
}

func TestClient_PathOrDefault(t *testing.T) {
	c := &Client{Path: "   "}
	require.Equal(t, "yt-dlp", c.PathOrDefault())

	c.Path = "/usr/local/bin/yt-dlp"
	require.Equal(t, "/usr/local/bin/yt-dlp", c.PathOrDefault())
}
