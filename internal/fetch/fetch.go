// Package fetch loads an egg document from a URL or a local file and decodes
// it as JSON. It does not interpret the document; that is the parser's job.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const requestTimeout = 20 * time.Second

// Error reports a failure to retrieve or decode a source. Callers use it to
// distinguish upstream failures from problems in their own input.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fetch retrieves source and decodes it as JSON. Source may be an http(s)
// URL or a local file path. GitHub web URLs pointing at a blob are rewritten
// to their raw content counterpart.
func Fetch(ctx context.Context, source string) (any, error) {
	var (
		data []byte
		err  error
	)
	if isURL(source) {
		data, err = fetchURL(ctx, githubBlobToRaw(source))
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, &Error{Source: source, Err: err}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Source: source, Err: fmt.Errorf("decoding JSON: %w", err)}
	}
	return doc, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// githubBlobToRaw rewrites a github.com file page URL to the raw content
// host, so users can paste the browser URL of an egg directly.
func githubBlobToRaw(source string) string {
	u, err := url.Parse(source)
	if err != nil || u.Host != "github.com" {
		return source
	}
	// Path shape: /<owner>/<repo>/blob/<ref>/<path...>
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 4)
	if len(parts) != 4 || parts[2] != "blob" {
		return source
	}
	u.Host = "raw.githubusercontent.com"
	u.Path = fmt.Sprintf("/%s/%s/%s", parts[0], parts[1], parts[3])
	return u.String()
}

func fetchURL(ctx context.Context, source string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
