package remote_test

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stowcore "github.com/meigma/stow/core"
	"github.com/meigma/stow/core/remote"
)

func serve(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("ETag", `"v1"`)
		nethttp.ServeContent(w, r, "archive.stow", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSourceReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	server := serve(t, data)

	src, err := remote.NewSource(context.Background(), server.URL, remote.WithConditionalHeaders())
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), src.Size())
	assert.Equal(t, server.URL, src.URL())

	tests := []struct {
		name    string
		bufSize int
		offset  int64
		wantN   int
		wantErr error
		want    string
	}{
		{name: "middle", bufSize: 5, offset: 6, wantN: 5, want: "world"},
		{name: "past end returns EOF", bufSize: 10, offset: int64(len(data) - 3), wantN: 3, wantErr: io.EOF, want: "rld"},
		{name: "at size", bufSize: 4, offset: int64(len(data)), wantErr: io.EOF},
		{name: "empty buffer", bufSize: 0, offset: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tt.bufSize)
			n, err := src.ReadAt(buf, tt.offset)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}

	_, err = src.ReadAt(make([]byte, 1), -1)
	assert.Error(t, err)
}

func TestNewSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	data := []byte("range unsupported")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == nethttp.MethodHead {
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	_, err := remote.NewSource(context.Background(), server.URL)
	require.ErrorIs(t, err, remote.ErrRangeUnsupported)
}

func TestNewSourceNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.NotFoundHandler())
	t.Cleanup(server.Close)

	_, err := remote.NewSource(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestSourceModified(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	var conditional atomic.Int32
	var version atomic.Value
	version.Store(`"v1"`)

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		etag, _ := version.Load().(string)
		if m := r.Header.Get("If-Match"); m != "" {
			conditional.Add(1)
			if m != etag {
				w.WriteHeader(nethttp.StatusPreconditionFailed)
				return
			}
		}
		w.Header().Set("ETag", etag)
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	src, err := remote.NewSource(context.Background(), server.URL, remote.WithConditionalHeaders())
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = src.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	version.Store(`"v2"`)
	_, err = src.ReadAt(buf, 6)
	require.ErrorIs(t, err, remote.ErrModified)
	assert.Equal(t, int32(2), conditional.Load())
}

func TestSourceHeaders(t *testing.T) {
	t.Parallel()

	data := []byte("secret")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		assert.Equal(t, "identity", r.Header.Get("Accept-Encoding"))
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	_, err := remote.NewSource(context.Background(), server.URL)
	require.Error(t, err)

	src, err := remote.NewSource(context.Background(), server.URL,
		remote.WithClient(server.Client()),
		remote.WithHeader("Authorization", "Bearer token"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), src.Size())
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref  string
		want bool
	}{
		{"https://example.com/app.stow", true},
		{"http://localhost:8080/a", true},
		{"app.stow", false},
		{"/srv/http/app.stow", false},
		{"ftp://example.com/app.stow", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, remote.IsURL(tt.ref), tt.ref)
	}
}

func buildArchive(t *testing.T) []byte {
	t.Helper()

	dest := filepath.Join(t.TempDir(), "app.stow")
	b, err := stowcore.Create(nil, stowcore.WithDestination(dest))
	require.NoError(t, err)
	defer b.Close()

	b.SetCompression(stowcore.CompressionZstd).
		AddBytes("src/main.go", []byte("package main\n"), 0o644).
		AddBytes("README.md", bytes.Repeat([]byte("stow "), 200), 0o644).
		SetEntryPoint("src/main.go")
	_, err = b.Commit(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	return data
}

func TestRemoteArchive(t *testing.T) {
	t.Parallel()

	data := buildArchive(t)
	server := serve(t, data)
	ctx := context.Background()

	cf, err := stowcore.OpenURL(ctx, server.URL+"/app.stow")
	require.NoError(t, err)
	defer cf.Close()

	assert.Equal(t, int64(len(data)), cf.Size())
	assert.Equal(t, []string{"src/main.go", "README.md", stowcore.PrimaryPath}, cf.Paths())
	primary, ok := cf.Primary()
	require.True(t, ok)
	assert.Equal(t, "src/main.go", primary)

	content, err := cf.Content("README.md")
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte("stow "), 200), content)

	got, err := stowcore.VerifyURL(ctx, server.URL+"/app.stow")
	require.NoError(t, err)
	assert.Equal(t, cf.Checksum(), got)
}

func TestRemoteArchiveCorrupt(t *testing.T) {
	t.Parallel()

	data := buildArchive(t)
	data[len(data)-60] ^= 0xff
	server := serve(t, data)

	_, err := stowcore.VerifyURL(context.Background(), server.URL)
	require.ErrorIs(t, err, stowcore.ErrIntegrityMismatch)
}
