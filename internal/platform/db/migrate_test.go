package db

import (
	"errors"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/portal/migrations"
)

// upVersions walks fsys the way Migrate does and returns the up versions in
// apply order.
func upVersions(t *testing.T, fsys fs.FS) []uint {
	t.Helper()
	src, err := iofs.New(fsys, ".")
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	var versions []uint
	v, err := src.First()
	for err == nil {
		r, _, readErr := src.ReadUp(v)
		require.NoError(t, readErr)
		_, _ = io.Copy(io.Discard, r)
		_ = r.Close()
		versions = append(versions, v)
		v, err = src.Next(v)
	}
	require.True(t, errors.Is(err, fs.ErrNotExist), "unexpected error: %v", err)
	return versions
}

func TestMigrationsApplyInVersionOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_b.up.sql":   {Data: []byte("SELECT 1")},
		"002_a.up.sql":   {Data: []byte("SELECT 1")},
		"002_a.down.sql": {Data: []byte("SELECT 1")},
		"README.md":      {Data: []byte("x")},
	}
	require.Equal(t, []uint{2, 10}, upVersions(t, fsys))
}

func TestEmbeddedMigrations(t *testing.T) {
	require.Equal(t, []uint{1}, upVersions(t, migrations.FS))

	src, err := iofs.New(migrations.FS, ".")
	require.NoError(t, err)
	defer src.Close()
	down, _, err := src.ReadDown(1)
	require.NoError(t, err)
	_ = down.Close()
}
