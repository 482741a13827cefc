package file

import (
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/stow/core/internal/stowtype"
)

func TestChild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, prefix string
		name         string
		sub, ok      bool
	}{
		{"a.txt", "", "a.txt", false, true},
		{"src/a.txt", "", "src", true, true},
		{"src/a.txt", "src/", "a.txt", false, true},
		{"src/lib/a.txt", "src/", "lib", true, true},
		{"srcx/a.txt", "src/", "", false, false},
		{"src/", "src/", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path+"@"+tt.prefix, func(t *testing.T) {
			name, sub, ok := Child(tt.path, tt.prefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.sub, sub)
		})
	}
}

func TestBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".", Base(""))
	assert.Equal(t, ".", Base("."))
	assert.Equal(t, "c.txt", Base("a/b/c.txt"))
	assert.Equal(t, "b", Base("a/b/"))
	assert.Equal(t, "x", Base("x"))
}

func TestNewInfo(t *testing.T) {
	t.Parallel()

	f := NewInfo(&stowtype.Entry{Path: "bin/run", Mode: 0o755, OriginalSize: 12}, "run")
	assert.Equal(t, "run", f.Name())
	assert.Equal(t, int64(12), f.Size())
	assert.Equal(t, fs.FileMode(0o755), f.Mode())
	assert.False(t, f.IsDir())
	assert.True(t, f.ModTime().IsZero())

	d := NewInfo(&stowtype.Entry{Path: "empty", Kind: stowtype.KindDirectory}, "empty")
	assert.True(t, d.IsDir())
	assert.Equal(t, fs.ModeDir|0o755, d.Mode())
}

func TestFile(t *testing.T) {
	t.Parallel()

	f := NewFile(NewDirInfo("x"), []byte("hello world"))
	buf := make([]byte, 5)
	_, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf))

	all, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(all))

	require.NoError(t, f.Close())
	_, err = f.Read(buf)
	require.ErrorIs(t, err, fs.ErrClosed)
	require.ErrorIs(t, f.Close(), fs.ErrClosed)
}
