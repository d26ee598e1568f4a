package rclone_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/rclone/rclone/backend/local"
	"github.com/stretchr/testify/require"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/store/rclone"
	"github.com/nuln/vfc/vfctest"
)

func TestRcloneStore(t *testing.T) {
	vfctest.StoreTestSuite(t, func(t *testing.T) vfc.Store {
		s, err := rclone.Open(context.Background(), t.TempDir(), "container.vfc", vfc.ReadWrite)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestUploadOnFlush(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()
	local := filepath.Join(dir, "image.vfc")

	s, err := rclone.Open(ctx, dir, "image.vfc", vfc.ReadWrite)
	require.NoError(err)
	_, err = s.Write([]byte("remote bytes"))
	require.NoError(err)

	_, err = os.Stat(local)
	require.True(errors.Is(err, os.ErrNotExist), "object uploaded before Flush")

	require.NoError(s.Flush())
	data, err := os.ReadFile(local)
	require.NoError(err)
	require.Equal("remote bytes", string(data))

	// Truncation is uploaded on the next flush.
	require.NoError(s.SetPosition(6))
	require.NoError(s.Truncate())
	require.NoError(s.Close())
	data, err = os.ReadFile(local)
	require.NoError(err)
	require.Equal("remote", string(data))

	require.Equal(int64(-1), s.Size())
}

func TestOpenModes(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := rclone.Open(ctx, dir, "missing.vfc", vfc.ReadOnly)
	require.ErrorIs(err, vfc.ErrNotFound)

	require.NoError(os.WriteFile(filepath.Join(dir, "seed.vfc"), []byte("seed"), 0o644))

	ro, err := rclone.Open(ctx, dir, "seed.vfc", vfc.ReadOnly)
	require.NoError(err)
	require.True(vfc.IsReadOnly(ro))
	require.Equal(int64(4), ro.Size())
	pos, err := ro.Position()
	require.NoError(err)
	require.Equal(int64(0), pos)
	_, err = ro.Write([]byte("x"))
	require.ErrorIs(err, vfc.ErrReadOnly)
	require.NoError(ro.Close())

	ow, err := rclone.Open(ctx, dir, "seed.vfc", vfc.Overwrite)
	require.NoError(err)
	require.Equal(int64(0), ow.Size())
	require.Contains(vfc.StoreName(ow), "seed.vfc")
	require.NoError(ow.Close())
}

func TestRegisteredDriver(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	s, err := vfc.OpenStore(&vfc.Config{
		Type:    "rclone",
		Path:    "registered.vfc",
		Options: map[string]any{"remote": dir},
	})
	require.NoError(err)
	_, err = s.Write([]byte("x"))
	require.NoError(err)
	require.NoError(s.Flush())
	require.FileExists(filepath.Join(dir, "registered.vfc"))

	_, err = vfc.OpenStore(&vfc.Config{Type: "rclone", Path: "x"})
	require.Error(err)
	_, err = vfc.OpenStore(&vfc.Config{Type: "rclone", Options: map[string]any{"remote": dir}})
	require.Error(err)
}
