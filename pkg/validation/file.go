package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"slices"

	"field-service/config"
	apperrors "field-service/pkg/errors"
)

// ValidateFile проверяет размер и MIME-тип файла.
// contextName - ключ из config.UploadContexts (например, "order_photo").
func ValidateFile(fileHeader *multipart.FileHeader, file io.ReadSeeker, contextName string) error {
	rules, ok := config.UploadContexts[contextName]
	if !ok {
		return fmt.Errorf("внутренняя ошибка: неизвестный контекст загрузки '%s'", contextName)
	}

	if rules.MaxSizeMB > 0 {
		maxSizeBytes := rules.MaxSizeMB * 1024 * 1024
		if fileHeader.Size > maxSizeBytes {
			return apperrors.NewValidationError("file", "размер файла (%.2f MB) превышает лимит в %d MB",
				float64(fileHeader.Size)/1024/1024, rules.MaxSizeMB)
		}
	}

	// первые 512 байт, по ним net/http определяет тип
	buffer := make([]byte, 512)
	if _, err := file.Read(buffer); err != nil && err != io.EOF {
		return fmt.Errorf("ошибка чтения файла: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("ошибка обработки файла: %w", err)
	}

	mimeType := http.DetectContentType(buffer)
	if !slices.Contains(rules.AllowedMimeTypes, mimeType) {
		return apperrors.NewValidationError("file", "недопустимый формат файла: %s", mimeType)
	}
	return nil
}
