package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPut(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "storage"))
	require.NoError(t, err)

	data := []byte("deck bytes")
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	obj, err := s.Put(data, ".PPTX")
	require.NoError(t, err)
	assert.Equal(t, digest, obj.SHA256)
	assert.Equal(t, digest[:2]+"/"+digest+".pptx", obj.Path)
	assert.Equal(t, int64(len(data)), obj.Size)

	again, err := s.Put(data, "pptx")
	require.NoError(t, err)
	assert.Equal(t, obj, again)

	got, err := s.Read(obj.Path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	entries, err := os.ReadDir(filepath.Join(s.root, digest[:2]))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestRemove(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	obj, err := s.Put([]byte("x"), "pdf")
	require.NoError(t, err)
	require.NoError(t, s.Remove(obj.Path))
	require.NoError(t, s.Remove(obj.Path), "missing blob is ignored")

	p, err := s.Path(obj.Path)
	require.NoError(t, err)
	assert.NoFileExists(t, p)
}

func TestPath_RejectsEscapes(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, rel := range []string{"", "../secret", "a/../../b", "/etc/passwd"} {
		_, err := s.Path(rel)
		assert.ErrorIs(t, err, ErrInvalidPath, rel)
	}
	_, err = s.Path("ab/abc.pptx")
	assert.NoError(t, err)
}
