// Package storage реализует хранилища изображений: S3 и локальный каталог.
package storage

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var now = time.Now

// generateKey строит имя вида <unixmilli>-<uuid>.<ext>.
func generateKey(filename string) string {
	return fmt.Sprintf("%d-%s%s", now().UnixMilli(), uuid.NewString(), extension(filename))
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	case "":
		return ".jpg"
	default:
		return ".bin"
	}
}

// cleanKey убирает ведущие слэши и переходы наверх, чтобы ключ не выходил
// за пределы префикса.
func cleanKey(key string) string {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	key = path.Clean("/" + key)
	key = strings.TrimPrefix(key, "/")
	if key == "." {
		return ""
	}
	return key
}
