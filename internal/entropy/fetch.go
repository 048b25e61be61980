package entropy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/http/httpguts"
)

const (
	defaultMaxManifestBytes int64 = 1 << 20
	defaultMaxSegmentBytes  int64 = 32 << 20
)

// Fetcher downloads the current segment of a live HLS stream.
type Fetcher struct {
	Client           *http.Client
	MaxManifestBytes int64
	MaxSegmentBytes  int64
}

// Fetch resolves the active segment from the source manifest and returns its raw bytes.
func (f *Fetcher) Fetch(ctx context.Context, source Source) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	headers, err := buildHeaders(source.Headers)
	if err != nil {
		return nil, err
	}

	manifest, err := f.get(ctx, source.URL, headers, f.manifestLimit())
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(manifest) {
		return nil, fmt.Errorf("%w: manifest is not valid UTF-8", ErrRequest)
	}

	segmentURL, err := ResolveSegment(source.URL, string(manifest))
	if err != nil {
		return nil, err
	}

	return f.get(ctx, segmentURL, headers, f.segmentLimit())
}

// ResolveSegment picks the first non-comment line of a manifest and makes it
// absolute relative to the manifest URL.
func ResolveSegment(sourceURL, manifest string) (string, error) {
	ref := ""
	for _, line := range strings.Split(manifest, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ref = line
		break
	}
	if ref == "" {
		return "", ErrInvalidResponse
	}

	if hasScheme(ref) {
		return ref, nil
	}

	parts := strings.Split(sourceURL, "/")
	parts[len(parts)-1] = ref
	return strings.Join(parts, "/"), nil
}

func hasScheme(ref string) bool {
	parsed, err := url.Parse(ref)
	return err == nil && parsed.Scheme != ""
}

func (f *Fetcher) get(ctx context.Context, target string, headers http.Header, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	for name, values := range headers {
		req.Header[name] = append([]string(nil), values...)
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrRequest, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequest, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s body exceeds %d bytes", ErrRequest, target, limit)
	}
	return body, nil
}

func (f *Fetcher) client() *http.Client {
	if f != nil && f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (f *Fetcher) manifestLimit() int64 {
	if f != nil && f.MaxManifestBytes > 0 {
		return f.MaxManifestBytes
	}
	return defaultMaxManifestBytes
}

func (f *Fetcher) segmentLimit() int64 {
	if f != nil && f.MaxSegmentBytes > 0 {
		return f.MaxSegmentBytes
	}
	return defaultMaxSegmentBytes
}

// buildHeaders validates every pair before any is used.
func buildHeaders(source map[string]string) (http.Header, error) {
	headers := make(http.Header, len(source))
	for name, value := range source {
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, fmt.Errorf("%w: name %q", ErrInvalidHeader, name)
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, fmt.Errorf("%w: value for %q", ErrInvalidHeader, name)
		}
		headers.Add(name, value)
	}
	return headers, nil
}
