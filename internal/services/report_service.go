package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-service/internal/entities"
	"field-service/internal/repositories"
	"field-service/pkg/constants"
	"field-service/pkg/types"
)

const (
	ordersSheet   = "Заказы"
	workloadSheet = "Загрузка техников"
	dateTimeFmt   = "02.01.2006 15:04"
)

var orderReportHeaders = []interface{}{
	"Номер", "Статус", "Приоритет", "Клиент", "Оборудование", "Техник", "Дата выезда",
	"Начало", "Окончание", "Длительность (ч)", "Сумма", "Работа", "К оплате", "Просрочен",
}

type ReportServiceInterface interface {
	ExportOrders(ctx context.Context, filter types.Filter) ([]byte, error)
	ExportWorkload(ctx context.Context) ([]byte, error)
}

// ReportService выгружает заказы и загрузку техников в XLSX.
type ReportService struct {
	orderRepo      repositories.ServiceOrderRepositoryInterface
	technicianRepo repositories.TechnicianRepositoryInterface
	clock          Clock
	logger         *zap.Logger
}

func NewReportService(
	orderRepo repositories.ServiceOrderRepositoryInterface,
	technicianRepo repositories.TechnicianRepositoryInterface,
	clock Clock,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{orderRepo: orderRepo, technicianRepo: technicianRepo, clock: clock, logger: logger}
}

func formatCellTime(t time.Time, valid bool) string {
	if !valid {
		return ""
	}
	return t.Format(dateTimeFmt)
}

func orderRow(o *entities.ServiceOrder, techNames map[uint64]string, now time.Time) []interface{} {
	tech := ""
	if o.TechnicianID.Valid {
		tech = techNames[o.TechnicianID.Uint64]
	}
	overdue := "нет"
	if o.IsOverdue(now) {
		overdue = "да"
	}
	return []interface{}{
		o.Name, o.State.String(), string(o.Priority), o.CustomerID, o.EquipmentID, tech,
		formatCellTime(o.ScheduledAt.Time, o.ScheduledAt.Valid),
		formatCellTime(o.StartedAt.Time, o.StartedAt.Valid),
		formatCellTime(o.EndedAt.Time, o.EndedAt.Valid),
		fmt.Sprintf("%.2f", o.DurationHours()),
		o.TotalAmount.InexactFloat64(), o.LaborTotal().InexactFloat64(), o.InvoiceTotal().InexactFloat64(),
		overdue,
	}
}

func (s *ReportService) technicianNames(ctx context.Context) (map[uint64]string, []*entities.Technician, error) {
	techs, err := s.technicianRepo.GetAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[uint64]string, len(techs))
	for _, t := range techs {
		names[t.ID] = t.Name
	}
	return names, techs, nil
}

func writeWorkbook(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования XLSX: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// ExportOrders - все заказы по фильтру без пагинации.
func (s *ReportService) ExportOrders(ctx context.Context, filter types.Filter) ([]byte, error) {
	filter.WithPagination = false
	orders, _, err := s.orderRepo.GetAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	names, _, err := s.technicianNames(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &orderReportHeaders); err != nil {
		return nil, err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(ordersSheet, "A1", "N1", style)
	}

	now := s.clock()
	for i, o := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := orderRow(o, names, now)
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(ordersSheet, "A", "A", 12)
	_ = f.SetColWidth(ordersSheet, "F", "I", 20)

	s.logger.Info("выгрузка заказов сформирована", zap.Int("rows", len(orders)))
	return writeWorkbook(f)
}

// ExportWorkload - число заказов каждого техника по статусам.
func (s *ReportService) ExportWorkload(ctx context.Context) ([]byte, error) {
	_, techs, err := s.technicianNames(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", workloadSheet); err != nil {
		return nil, err
	}
	headers := []interface{}{"Техник", "Лимит в день", "Рабочие часы"}
	for _, st := range constants.AllStates {
		headers = append(headers, st.String())
	}
	headers = append(headers, "В работе", "Всего")
	if err := f.SetSheetRow(workloadSheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i, t := range techs {
		counts, err := s.orderRepo.CountByStateForTechnician(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		limit := "по умолчанию"
		if t.MaxDailyOrders.Valid {
			limit = fmt.Sprintf("%d", t.MaxDailyOrders.Int)
		}
		row := []interface{}{t.Name, limit, t.AvailableHours}
		active, total := 0, 0
		for _, st := range constants.AllStates {
			n := counts[st]
			row = append(row, n)
			total += n
			if !st.IsTerminal() {
				active += n
			}
		}
		row = append(row, active, total)

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(workloadSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(workloadSheet, "A", "A", 30)

	return writeWorkbook(f)
}
