package validation

import (
	"bytes"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "field-service/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		content []byte
		context string
		wantErr bool
		appErr  bool
	}{
		{"png для фото заказа", int64(len(pngHeader)), pngHeader, "order_photo", false, false},
		{"текст вместо картинки", 10, []byte("просто текст"), "order_photo", true, true},
		{"слишком большой файл", 21 * 1024 * 1024, pngHeader, "order_photo", true, true},
		{"zip для импорта", 4, []byte("PK\x03\x04"), "equipment_import", false, false},
		{"неизвестный контекст", 1, pngHeader, "avatar", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := bytes.NewReader(tt.content)
			err := ValidateFile(&multipart.FileHeader{Filename: "f", Size: tt.size}, file, tt.context)
			if !tt.wantErr {
				require.NoError(t, err)
				pos, _ := file.Seek(0, io.SeekCurrent)
				assert.Zero(t, pos, "файл возвращается в начало")
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.appErr, apperrors.IsValidation(err))
		})
	}
}
