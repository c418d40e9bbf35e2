package storage

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSaveOpenRemove(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	n, err := disk.Save("a.jpg", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	rc, err := disk.Open("a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	files, err := disk.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.jpg", files[0].Name)

	require.NoError(t, disk.Remove("a.jpg"))
	_, err = os.Stat(disk.Path("a.jpg"))
	assert.True(t, os.IsNotExist(err))

	// removing again is a no-op
	assert.NoError(t, disk.Remove("a.jpg"))
}

func TestDiskRejectsEscapingNames(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "../x.jpg", "sub/x.jpg", `sub\x.jpg`} {
		_, err := disk.Save(name, bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.ErrorIs(t, disk.Remove(name), ErrInvalidName, name)
	}
}
