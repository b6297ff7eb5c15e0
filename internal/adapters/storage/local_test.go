package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-diary/internal/domain"
)

func testImage() domain.Image {
	return domain.Image{Data: []byte{0xff, 0xd8, 0xff, 0xd9}, Size: 4, Filename: "meal.jpg", ContentType: "image/jpeg"}
}

func TestLocalUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	require.NoError(t, err)
	ctx := context.Background()

	locator, err := store.Upload(ctx, testImage(), "")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(locator, "file://"))

	path := filepath.FromSlash(strings.TrimPrefix(locator, "file://"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testImage().Data, data)
	assert.Equal(t, ".jpg", filepath.Ext(path))

	require.NoError(t, store.Delete(ctx, locator))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, locator), "повторное удаление не ошибка")
}

func TestLocalUploadWithKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	require.NoError(t, err)

	locator, err := store.Upload(context.Background(), testImage(), "../nested/x.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(locator, "/nested/x.jpg"))
	_, err = os.Stat(filepath.Join(dir, "nested", "x.jpg"))
	assert.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), "nested/x.jpg"))
}

func TestLocalDeleteRejectsForeignPaths(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	err = store.Delete(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, domain.ErrClientInput)

	err = store.Delete(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrClientInput)
}
