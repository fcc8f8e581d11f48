package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteBootstrapsTables(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?;", "results").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "results", name)

	// Idempotent.
	require.NoError(t, Bootstrap(context.Background(), db))
}

func TestOpenSQLiteEmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	assert.Error(t, err)
}

func TestCheckLocal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "a", "b", "history.db")

	var inspected string
	err := checkLocal(path, func(p string) (string, error) {
		inspected = p
		return "ext4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, inspected, "nearest existing ancestor is inspected")

	err = checkLocal(path, func(string) (string, error) { return "NFS", nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network filesystem \"nfs\"")

	err = checkLocal(path, func(string) (string, error) { return "", errDetectUnsupported })
	assert.NoError(t, err)

	err = checkLocal(path, func(string) (string, error) { return "", errors.New("statfs failed") })
	assert.Error(t, err)
}
