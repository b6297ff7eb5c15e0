package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"food-diary/internal/domain"
	"food-diary/internal/infra/metrics"
)

const fileScheme = "file://"

// Local хранит изображения в каталоге на диске. Используется в тестовом
// окружении и локальной разработке.
type Local struct {
	dir string
}

var _ domain.StorageGateway = (*Local)(nil)

// NewLocal создаёт каталог dir, если его нет.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve uploads dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, domain.StorageFailed("init", err)
	}
	return &Local{dir: abs}, nil
}

// Upload записывает файл и возвращает file:// ссылку.
func (l *Local) Upload(_ context.Context, img domain.Image, key string) (string, error) {
	key = cleanKey(key)
	if key == "" {
		key = generateKey(img.Filename)
	}
	target := filepath.Join(l.dir, filepath.FromSlash(key))

	start := time.Now()
	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err == nil {
		err = os.WriteFile(target, img.Data, 0o644)
	}
	metrics.ObserveNetworkRequest("local_storage", "write", "uploads", start, err)
	if err != nil {
		return "", domain.StorageFailed("upload", err)
	}
	metrics.ObserveImageBytes("stored", int64(len(img.Data)))
	return fileScheme + filepath.ToSlash(target), nil
}

// Delete удаляет файл. Отсутствующий файл ошибкой не считается.
func (l *Local) Delete(_ context.Context, locator string) error {
	target, err := l.resolve(locator)
	if err != nil {
		return err
	}
	start := time.Now()
	err = os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	metrics.ObserveNetworkRequest("local_storage", "remove", "uploads", start, err)
	if err != nil {
		return domain.StorageFailed("delete", err)
	}
	return nil
}

func (l *Local) resolve(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if rest, ok := strings.CutPrefix(locator, fileScheme); ok {
		p := filepath.Clean(filepath.FromSlash(rest))
		rel, err := filepath.Rel(l.dir, p)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return "", domain.ClientInput(domain.CodeValidationFailed, "locator is outside uploads dir")
		}
		return p, nil
	}
	key := cleanKey(locator)
	if key == "" {
		return "", domain.ClientInput(domain.CodeValidationFailed, "empty storage locator")
	}
	return filepath.Join(l.dir, filepath.FromSlash(key)), nil
}
