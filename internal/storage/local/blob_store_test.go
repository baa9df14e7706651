// Package local_test tests the local filesystem blob store.
package local_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcoder2025/Konarae-FlowCoder-sub005/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := local.Config{BaseDir: tempDir}
		store, err := local.New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})
	t.Run("MissingBaseDir", func(t *testing.T) {
		cfg := local.Config{}
		_, err := local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		cfg := local.Config{BaseDir: tempFile.Name()}
		_, err = local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("MissingBaseDirGetsCreated", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "blobs")
		store, err := local.New(local.Config{BaseDir: base})
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		path := "attachments/ann-1/사업공고문.pdf"
		data := []byte("%PDF-1.4 sample")
		uri, err := store.PutObject(context.Background(), path, "application/pdf", data)
		require.NoError(t, err)

		expectedURI := "file://" + filepath.Join(tempDir, path)
		assert.Equal(t, expectedURI, uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "text/plain", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("PathTraversalRejected", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "../outside.txt", "text/plain", []byte("data"))
		assert.Error(t, err)
	})
}

func TestGetObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	data := []byte("stored bytes")
	_, err = store.PutObject(context.Background(), "a/b/object.bin", "application/octet-stream", data)
	require.NoError(t, err)

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := store.GetObject(context.Background(), "a/b/object.bin")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := store.GetObject(context.Background(), "a/b/missing.bin")
		assert.Error(t, err)
	})
}

func TestSignedURL(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "docs/form.hwp", "application/x-hwp", []byte("hwp"))
	require.NoError(t, err)

	t.Run("ExistingFile", func(t *testing.T) {
		uri, err := store.SignedURL(context.Background(), "docs/form.hwp", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "docs/form.hwp"), uri)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := store.SignedURL(context.Background(), "docs/missing.hwp", time.Minute)
		assert.Error(t, err)
	})
}
