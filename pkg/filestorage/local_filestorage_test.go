package filestorage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileStorage_SaveAndDelete(t *testing.T) {
	base := filepath.Join(t.TempDir(), "uploads")
	storage, err := NewLocalFileStorage(base)
	require.NoError(t, err)

	saved, err := storage.Save(strings.NewReader("фото до ремонта"), "before.JPG", "orders")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(saved, "orders/"+time.Now().Format("2006/")))
	assert.Equal(t, ".jpg", filepath.Ext(saved), "расширение приводится к нижнему регистру")

	content, err := os.ReadFile(filepath.Join(base, filepath.FromSlash(saved)))
	require.NoError(t, err)
	assert.Equal(t, "фото до ремонта", string(content))

	require.NoError(t, storage.Delete("/uploads/"+saved))
	_, err = os.Stat(filepath.Join(base, filepath.FromSlash(saved)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, storage.Delete("orders/missing.jpg"), "отсутствующий файл не ошибка")
	assert.ErrorIs(t, storage.Delete("/uploads/"), ErrOutsideStorage)
}

func TestLocalFileStorage_DeleteStaysInsideBase(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	storage, err := NewLocalFileStorage(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	require.NoError(t, storage.Delete("../secret.txt"))
	_, err = os.Stat(outside)
	assert.NoError(t, err, "файл вне хранилища не тронут")
}
