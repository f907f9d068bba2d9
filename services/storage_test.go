package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"debt_flow_app_go/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArchive(t *testing.T) {
	dir := t.TempDir()
	archive := NewLocalArchive(dir)
	ctx := context.Background()
	content := "invoice_id,account_number\nINV-1,ACC-1\n"
	key := "imports/2025/03/u1/file.csv"

	t.Run("Put writes the file", func(t *testing.T) {
		file, err := archive.Put(ctx, key, strings.NewReader(content), "text/csv", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, key, file.Key)
		assert.Equal(t, int64(len(content)), file.Size)

		_, err = os.Stat(filepath.Join(dir, "imports", "2025", "03", "u1", "file.csv"))
		assert.NoError(t, err)
	})

	t.Run("Get returns content and type", func(t *testing.T) {
		reader, contentType, err := archive.Get(ctx, key)
		require.NoError(t, err)
		defer reader.Close()

		got, _ := io.ReadAll(reader)
		assert.Equal(t, content, string(got))
		assert.Equal(t, "text/csv", contentType)
	})

	t.Run("Delete removes the file and tolerates missing ones", func(t *testing.T) {
		require.NoError(t, archive.Delete(ctx, key))
		_, err := os.Stat(filepath.Join(dir, key))
		assert.True(t, os.IsNotExist(err))
		assert.NoError(t, archive.Delete(ctx, key))
	})

	t.Run("keys cannot escape the base directory", func(t *testing.T) {
		_, err := archive.Put(ctx, "../escape.csv", strings.NewReader("x"), "text/csv", 1)
		assert.Error(t, err)
	})
}

func TestNewArchiveStoreFallsBackToLocal(t *testing.T) {
	store := NewArchiveStore(&config.Config{UploadDir: t.TempDir()})
	assert.Equal(t, "local", store.Name())
}

func TestArchiveKeys(t *testing.T) {
	now := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)

	key := ImportArchiveKey("u1", "Cases.XLSX", now)
	assert.True(t, strings.HasPrefix(key, "imports/2025/03/u1/"))
	assert.True(t, strings.HasSuffix(key, ".xlsx"))
	assert.NotEqual(t, key, ImportArchiveKey("u1", "Cases.XLSX", now))

	assert.Equal(t, "reports/2025/03/recovery_1741514400.pdf", ReportArchiveKey("recovery", now))

	assert.Equal(t, "application/pdf", ContentTypeFor("a.PDF"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("a.txt"))
}
