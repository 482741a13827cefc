// Package remote reads archives served over HTTP.
//
// A Source satisfies the container's ByteSource (io.ReaderAt plus Size) with
// one range request per read, so listing an archive touches only its header,
// index and trailer, and extraction fetches only the entries it needs.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
)

var (
	// ErrRangeUnsupported is returned when the server answers a range
	// request with the whole body.
	ErrRangeUnsupported = errors.New("stow: range requests not supported")

	// ErrModified is returned when reads are pinned and the remote content
	// no longer matches the validators seen when the Source was created.
	ErrModified = errors.New("stow: remote archive modified")
)

// Source implements random access reads via HTTP range requests.
type Source struct {
	ctx    context.Context
	url    string
	client *nethttp.Client
	header nethttp.Header
	logger *slog.Logger
	pinned bool

	size         int64
	etag         string
	lastModified string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(header nethttp.Header) Option {
	return func(s *Source) {
		for key, values := range header {
			for _, v := range values {
				s.header.Add(key, v)
			}
		}
	}
}

// WithHeader sets a single header on every request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		s.header.Set(key, value)
	}
}

// WithConditionalHeaders pins every read to the ETag or Last-Modified value
// seen when the Source was created. A read that fails the precondition
// returns ErrModified.
func WithConditionalHeaders() Option {
	return func(s *Source) {
		s.pinned = true
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a Source for url and probes the server for the content
// size and range support.
//
// ctx bounds the probe and every later read.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		ctx:    ctx,
		url:    url,
		header: make(nethttp.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if err := s.probe(); err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	s.logger.Debug("remote archive", "url", url, "size", s.size, "etag", s.etag)
	return s, nil
}

// URL returns the remote location.
func (s *Source) URL() string {
	return s.url
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt fetches len(p) bytes at off. A read running past the end returns
// the available bytes and io.EOF.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case len(p) == 0:
		return 0, nil
	case off < 0:
		return 0, fmt.Errorf("read at %d: negative offset", off)
	case off >= s.size:
		return 0, io.EOF
	}

	want := min(int64(len(p)), s.size-off)
	resp, err := s.get(off, off+want-1, s.pinned)
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	if resp.StatusCode == nethttp.StatusRequestedRangeNotSatisfiable {
		return 0, io.EOF
	}
	if err := s.checkRange(resp); err != nil {
		return 0, err
	}

	n, err := io.ReadFull(resp.Body, p[:want])
	if err == nil && want < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// probe learns the size and validators. HEAD answers are advisory; the
// single-byte range probe decides.
func (s *Source) probe() error {
	headSize := int64(-1)
	if resp, err := s.do(nethttp.MethodHead, "", false); err == nil {
		if resp.StatusCode == nethttp.StatusOK {
			headSize = resp.ContentLength
			s.etag = resp.Header.Get("ETag")
			s.lastModified = resp.Header.Get("Last-Modified")
		}
		drain(resp)
	}

	resp, err := s.get(0, 0, false)
	if err != nil {
		return err
	}
	defer drain(resp)
	if err := s.checkRange(resp); err != nil {
		return err
	}

	crange := resp.Header.Get("Content-Range")
	if crange == "" {
		return errors.New("range probe missing Content-Range")
	}
	size, err := parseContentRange(crange)
	if err != nil {
		return err
	}
	if headSize > 0 && headSize != size {
		return fmt.Errorf("content size mismatch: head=%d range=%d", headSize, size)
	}
	s.size = size
	if s.etag == "" {
		s.etag = resp.Header.Get("ETag")
	}
	if s.lastModified == "" {
		s.lastModified = resp.Header.Get("Last-Modified")
	}
	return nil
}

// checkRange maps a range response status to an error.
func (s *Source) checkRange(resp *nethttp.Response) error {
	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		return nil
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	case nethttp.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s", ErrModified, s.url)
	default:
		return fmt.Errorf("range request failed: %s", resp.Status)
	}
}

func (s *Source) get(first, last int64, pinned bool) (*nethttp.Response, error) {
	s.logger.Debug("range read", "url", s.url, "first", first, "last", last)
	return s.do(nethttp.MethodGet, fmt.Sprintf("bytes=%d-%d", first, last), pinned)
}

func (s *Source) do(method, byteRange string, pinned bool) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(s.ctx, method, s.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header = s.header.Clone()
	// Stored bytes must arrive exactly as written.
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}
	if pinned {
		if s.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", s.etag)
		}
		if s.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}
	}
	return s.client.Do(req)
}

// drain discards the rest of the body so the connection can be reused.
func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain
	_ = resp.Body.Close()
}

// parseContentRange extracts the total size from "bytes first-last/size".
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}

// IsURL reports whether ref names an http or https location.
func IsURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
