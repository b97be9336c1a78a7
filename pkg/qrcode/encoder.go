package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

// Encoder формирует PNG с QR-кодом.
type Encoder struct {
	size  int
	level goqrcode.RecoveryLevel
}

func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = defaultSize
	}
	return &Encoder{size: size, level: goqrcode.Medium}
}

func (e *Encoder) Encode(text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("пустой текст для QR-кода")
	}
	png, err := goqrcode.Encode(text, e.level, e.size)
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования QR: %w", err)
	}
	return png, nil
}
