package media

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Kind classifies a failure so the HTTP layer can choose a status without
// inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindExtractionFailed
	KindDownloadProducedNoFile
	KindDownloadFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindExtractionFailed:
		return "extraction_failed"
	case KindDownloadProducedNoFile:
		return "download_produced_no_file"
	case KindDownloadFailed:
		return "download_failed"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to a response status. Input and extraction
// problems are the caller's; everything else is ours.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindExtractionFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the only error type returned by Service methods.
type Error struct {
	Kind    Kind
	Message string // safe to show to the client
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return KindUnknown
}

// redactor scrubs upstream messages before they reach a client: staging
// paths are replaced with a placeholder and markup is stripped.
type redactor struct {
	roots  []string
	policy *bluemonday.Policy
}

const stagingPlaceholder = "<staging>"

func newRedactor(stagingRoot string) *redactor {
	r := &redactor{policy: bluemonday.StrictPolicy()}
	if stagingRoot == "" {
		return r
	}
	if abs, err := filepath.Abs(stagingRoot); err == nil {
		r.roots = append(r.roots, abs)
	}
	// relative roots only match as a path prefix
	if !filepath.IsAbs(stagingRoot) {
		r.roots = append(r.roots, filepath.Clean(stagingRoot)+string(filepath.Separator))
	}
	return r
}

func (r *redactor) redact(msg string) string {
	msg = html.UnescapeString(r.policy.Sanitize(msg))
	for _, root := range r.roots {
		placeholder := stagingPlaceholder
		if strings.HasSuffix(root, string(filepath.Separator)) {
			placeholder += string(filepath.Separator)
		}
		msg = strings.ReplaceAll(msg, root, placeholder)
	}
	return strings.TrimSpace(msg)
}
