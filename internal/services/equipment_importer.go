package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-service/internal/dto"
	apperrors "field-service/pkg/errors"
)

// importColumns - индексы колонок, найденные по шапке. -1 - колонки нет.
type importColumns struct {
	name, serial, brand, model, kind, warranty, location int
}

func (c importColumns) complete() bool {
	return c.name >= 0 && c.serial >= 0
}

// detectColumns ищет колонки по подстрокам заголовков, русским или английским.
func detectColumns(row []string) importColumns {
	cols := importColumns{-1, -1, -1, -1, -1, -1, -1}
	for i, raw := range row {
		h := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case strings.Contains(h, "серийн") || strings.Contains(h, "serial") || h == "s/n":
			cols.serial = i
		case strings.Contains(h, "наименование") || strings.Contains(h, "название") || h == "name":
			cols.name = i
		case strings.Contains(h, "бренд") || strings.Contains(h, "производитель") || h == "brand":
			cols.brand = i
		case strings.Contains(h, "модель") || h == "model":
			cols.model = i
		case strings.Contains(h, "тип") || h == "type":
			cols.kind = i
		case strings.Contains(h, "гарант") || strings.Contains(h, "warranty"):
			cols.warranty = i
		case strings.Contains(h, "адрес") || strings.Contains(h, "место") || strings.Contains(h, "location"):
			cols.location = i
		}
	}
	return cols
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

var warrantyLayouts = []string{"02.01.2006", time.DateOnly, "01/02/2006", "2006/01/02"}

func parseWarranty(raw string) (null.Time, error) {
	if raw == "" {
		return null.Time{}, nil
	}
	for _, layout := range warrantyLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return null.TimeFrom(t), nil
		}
	}
	return null.Time{}, fmt.Errorf("дата гарантии %q не распознана", raw)
}

// ImportFromXLSX загружает оборудование клиента из таблицы. Шапка ищется на любом
// листе по колонкам "Наименование" и "Серийный номер". Дубли серийных номеров
// пропускаются, ошибочные строки попадают в отчёт и не прерывают загрузку.
func (s *EquipmentService) ImportFromXLSX(ctx context.Context, customerID uint64, file io.Reader) (*dto.EquipmentImportResultDTO, error) {
	if _, err := s.customerRepo.FindByID(ctx, nil, customerID); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, apperrors.NewValidationError("file", "не удалось прочитать XLSX: %v", err)
	}
	defer f.Close()

	var rows [][]string
	headerRow := -1
	var cols importColumns
	for _, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for i, row := range sheetRows {
			if c := detectColumns(row); c.complete() {
				rows, headerRow, cols = sheetRows, i, c
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 {
		return nil, apperrors.NewValidationError("file", "не найдена шапка таблицы с колонками 'Наименование' и 'Серийный номер'")
	}

	result := &dto.EquipmentImportResultDTO{}
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		lineNum := i + 1
		name, serial := safeGet(row, cols.name), safeGet(row, cols.serial)
		if name == "" && serial == "" {
			continue
		}

		warranty, err := parseWarranty(safeGet(row, cols.warranty))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("строка %d: %v", lineNum, err))
			continue
		}
		d := dto.CreateEquipmentDTO{
			CustomerID:     customerID,
			Name:           name,
			EquipmentType:  safeGet(row, cols.kind),
			Brand:          safeGet(row, cols.brand),
			Model:          safeGet(row, cols.model),
			SerialNumber:   serial,
			WarrantyExpiry: warranty,
		}
		if loc := safeGet(row, cols.location); loc != "" {
			d.Location = null.StringFrom(loc)
		}

		_, err = s.Create(ctx, d)
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, apperrors.ErrConflict):
			result.Skipped++
		default:
			result.Errors = append(result.Errors, fmt.Sprintf("строка %d: %v", lineNum, err))
		}
	}

	s.logger.Info("импорт оборудования завершён",
		zap.Uint64("customerID", customerID),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}
