package filestorage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FileStorageInterface - хранилище загруженных файлов (фото заказов).
type FileStorageInterface interface {
	Save(file io.Reader, originalFileName string, prefix string) (filePath string, err error)
	Delete(filePath string) error
}

var ErrOutsideStorage = errors.New("путь вне хранилища файлов")

// LocalFileStorage раскладывает файлы по <prefix>/<год>/<месяц>/<uuid>.<ext> внутри basePath.
type LocalFileStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalFileStorage(basePath string) (FileStorageInterface, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("хранилище %s: %w", basePath, err)
	}
	return &LocalFileStorage{basePath: basePath, now: time.Now}, nil
}

func (s *LocalFileStorage) Save(file io.Reader, originalFileName string, prefix string) (string, error) {
	rel := path.Join(prefix, s.now().Format("2006/01"), uuid.NewString()+strings.ToLower(filepath.Ext(originalFileName)))
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("каталог для %s: %w", rel, err)
	}

	dst, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		// недописанный файл не оставляем
		_ = os.Remove(full)
		return "", fmt.Errorf("запись %s: %w", rel, err)
	}
	return rel, nil
}

// Delete принимает и публичный URL "/uploads/...", и относительный путь из Save.
func (s *LocalFileStorage) Delete(fileURL string) error {
	full, err := s.resolve(strings.TrimPrefix(fileURL, "/uploads/"))
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalFileStorage) resolve(rel string) (string, error) {
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	if rel == "" || rel == "." {
		return "", ErrOutsideStorage
	}
	return filepath.Join(s.basePath, filepath.FromSlash(rel)), nil
}
