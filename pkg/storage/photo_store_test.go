package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestPrepare_CreatesNestedDirectory(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "uploads"), 0o755)
	dir := store.Dir("สมชาย")

	require.NoError(t, store.Prepare(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPrepare_ExistingDirectoryIsNotAnError(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)
	dir := store.Dir("somchai")

	require.NoError(t, store.Prepare(dir))
	require.NoError(t, store.Prepare(dir))
}

func TestPrepare_PathIsAFile(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, 0o755)
	dir := store.Dir("somchai")
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o644))

	err := store.Prepare(dir)
	assert.ErrorIs(t, err, ErrDirUnavailable)
}

func TestPrepare_ParentIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))
	store := NewLocalStore(root, 0o755)

	err := store.Prepare(store.Dir("somchai"))
	assert.ErrorIs(t, err, ErrDirUnavailable)
}

func TestPrepare_NotWritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	store := NewLocalStore(t.TempDir(), 0o755)
	dir := store.Dir("somchai")
	require.NoError(t, os.Mkdir(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err := store.Prepare(dir)
	assert.ErrorIs(t, err, ErrDirNotWritable)
	assert.False(t, errors.Is(err, ErrDirUnavailable))
}

func TestExtension(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		head     []byte
		want     string
	}{
		{"from file name", "capture.jpg", nil, "jpg"},
		{"keeps case", "IMG_0001.PNG", nil, "PNG"},
		{"sniffed when no extension", "blob", jpegHeader, "jpg"},
		{"sniffed text", "blob", []byte("plain text"), "txt"},
		{"default when empty", "", nil, "jpg"},
		{"rejects odd extension", "x.ph p", nil, "jpg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Extension(tc.filename, tc.head))
		})
	}
}

func TestNewName_UniqueWithPrefix(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)

	a := store.NewName("capture.jpg", nil)
	b := store.NewName("capture.jpg", nil)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "capture_"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
}

func TestSave_WritesContent(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)
	dir := store.Dir("somchai")
	require.NoError(t, store.Prepare(dir))

	path, err := store.Save(dir, "capture_1.jpg", bytes.NewReader(jpegHeader))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, jpegHeader, data)
	assert.Equal(t, filepath.Join(dir, "capture_1.jpg"), path)
}

func TestSave_NeverOverwrites(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)
	dir := store.Dir("somchai")
	require.NoError(t, store.Prepare(dir))
	_, err := store.Save(dir, "capture_1.jpg", strings.NewReader("first"))
	require.NoError(t, err)

	_, err = store.Save(dir, "capture_1.jpg", strings.NewReader("second"))
	assert.ErrorIs(t, err, ErrWriteFailed)

	data, _ := os.ReadFile(filepath.Join(dir, "capture_1.jpg"))
	assert.Equal(t, "first", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSave_CopyFailureLeavesNoFile(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)
	dir := store.Dir("somchai")
	require.NoError(t, store.Prepare(dir))

	_, err := store.Save(dir, "capture_1.jpg", failingReader{})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.False(t, store.Exists(filepath.Join(dir, "capture_1.jpg")))
}

func TestSave_MissingDirectory(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)

	_, err := store.Save(store.Dir("nobody"), "capture_1.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestRemove_ToleratesMissingFile(t *testing.T) {
	store := NewLocalStore(t.TempDir(), 0o755)
	dir := store.Dir("somchai")
	require.NoError(t, store.Prepare(dir))
	path, err := store.Save(dir, "capture_1.jpg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Remove(path))
	assert.False(t, store.Exists(path))
	assert.NoError(t, store.Remove(path))
}
