package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aarondl/null/v8"
	"github.com/jackc/pgx/v5"

	"field-service/internal/dto"
	"field-service/internal/entities"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
)

// recalculate перечитывает строки и вид услуги и сохраняет итог заказа.
func (s *ServiceOrderService) recalculate(ctx context.Context, tx pgx.Tx, order *entities.ServiceOrder) error {
	serviceType, err := s.repos.ServiceTypes.FindByID(ctx, tx, order.ServiceTypeID)
	if err != nil {
		return err
	}
	lines, err := s.repos.Lines.ListByOrder(ctx, tx, order.ID)
	if err != nil {
		return err
	}
	RecomputeTotals(order, serviceType, lines)
	return nil
}

func (s *ServiceOrderService) ChangeServiceType(ctx context.Context, actor entities.Actor, id uint64, d dto.ChangeServiceTypeDTO) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "change_service_type", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireNonTerminal(order, "change_service_type"); err != nil {
			return err
		}
		serviceType, err := s.repos.ServiceTypes.FindByID(ctx, tx, d.ServiceTypeID)
		if err != nil {
			return err
		}
		old := fmt.Sprintf("%d", order.ServiceTypeID)
		order.ServiceTypeID = serviceType.ID
		if err := s.recalculate(ctx, tx, order); err != nil {
			return err
		}
		return s.record(ctx, tx, u, order.ID, constants.HistoryServiceType, old, fmt.Sprintf("%d", serviceType.ID), serviceType.Name)
	})
}

// validateLineItem проверяет строку до любых изменений. Цена по умолчанию берётся из карточки товара.
func validateLineItem(index int, item dto.LineItemDTO) error {
	field := "quantity"
	if index >= 0 {
		field = fmt.Sprintf("lines[%d].quantity", index)
	}
	if item.ProductID == 0 {
		return apperrors.NewValidationError(strings.Replace(field, "quantity", "product_id", 1), "не указан товар")
	}
	if !item.Quantity.IsPositive() {
		return apperrors.NewValidationError(field, "количество должно быть больше нуля, получено %s", item.Quantity.String())
	}
	if item.UnitPrice.Valid && item.UnitPrice.Decimal.IsNegative() {
		return apperrors.NewValidationError(strings.Replace(field, "quantity", "unit_price", 1),
			"цена не может быть отрицательной, получено %s", item.UnitPrice.Decimal.String())
	}
	return nil
}

func (s *ServiceOrderService) createLine(ctx context.Context, tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder, item dto.LineItemDTO) (*entities.RefactionLine, error) {
	product, err := s.repos.Products.FindByID(ctx, tx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, apperrors.NewPreconditionError("product", "товар %s снят с продажи", product.Name)
	}

	line := &entities.RefactionLine{
		OrderID:     order.ID,
		ProductID:   product.ID,
		Description: strings.TrimSpace(item.Description),
		Quantity:    item.Quantity,
		UnitPrice:   product.ListPrice,
		CreatedAt:   u.now,
	}
	if line.Description == "" {
		line.Description = product.Name
	}
	if item.UnitPrice.Valid {
		line.UnitPrice = item.UnitPrice.Decimal
	}
	line.ComputeSubtotal()

	if err := s.repos.Lines.Create(ctx, tx, line); err != nil {
		return nil, err
	}
	if err := s.record(ctx, tx, u, order.ID, constants.HistoryLineAdd, "",
		fmt.Sprintf("%s x %s", product.Name, line.Quantity.String()), ""); err != nil {
		return nil, err
	}
	return line, nil
}

func (s *ServiceOrderService) AddLine(ctx context.Context, actor entities.Actor, orderID uint64, d dto.LineItemDTO) (*entities.RefactionLine, error) {
	if err := validateLineItem(-1, d); err != nil {
		return nil, err
	}
	var created *entities.RefactionLine
	_, err := s.execute(ctx, actor, orderID, "add_line", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireNonTerminal(order, "add_line"); err != nil {
			return err
		}
		line, err := s.createLine(ctx, tx, u, order, d)
		if err != nil {
			return err
		}
		created = line
		return s.recalculate(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// lineForChange находит строку заказа, которую ещё можно менять.
func (s *ServiceOrderService) lineForChange(ctx context.Context, tx pgx.Tx, order *entities.ServiceOrder, lineID uint64, operation string) (*entities.RefactionLine, error) {
	if err := requireNonTerminal(order, operation); err != nil {
		return nil, err
	}
	line, err := s.repos.Lines.FindByID(ctx, tx, lineID)
	if err != nil {
		return nil, err
	}
	if line.OrderID != order.ID {
		return nil, apperrors.NewNotFoundError("строка заказа", lineID)
	}
	if line.IsReserved() || line.Consumed {
		return nil, apperrors.NewPreconditionError("line",
			"строка %d заказа %s уже зарезервирована на складе и не может быть изменена", lineID, order.Name)
	}
	return line, nil
}

func (s *ServiceOrderService) UpdateLine(ctx context.Context, actor entities.Actor, orderID, lineID uint64, d dto.UpdateLineDTO) (*entities.RefactionLine, error) {
	if d.Quantity.Valid && !d.Quantity.Decimal.IsPositive() {
		return nil, apperrors.NewValidationError("quantity", "количество должно быть больше нуля, получено %s", d.Quantity.Decimal.String())
	}
	if d.UnitPrice.Valid && d.UnitPrice.Decimal.IsNegative() {
		return nil, apperrors.NewValidationError("unit_price", "цена не может быть отрицательной, получено %s", d.UnitPrice.Decimal.String())
	}

	var updated *entities.RefactionLine
	_, err := s.execute(ctx, actor, orderID, "update_line", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		line, err := s.lineForChange(ctx, tx, order, lineID, "update_line")
		if err != nil {
			return err
		}
		old := lineSummary(line)
		if d.Quantity.Valid {
			line.Quantity = d.Quantity.Decimal
		}
		if d.UnitPrice.Valid {
			line.UnitPrice = d.UnitPrice.Decimal
		}
		if d.Description.Valid && strings.TrimSpace(d.Description.String) != "" {
			line.Description = strings.TrimSpace(d.Description.String)
		}
		line.ComputeSubtotal()

		if err := s.repos.Lines.Update(ctx, tx, line); err != nil {
			return err
		}
		if err := s.record(ctx, tx, u, order.ID, constants.HistoryLineUpdate, old, lineSummary(line), ""); err != nil {
			return err
		}
		updated = line
		return s.recalculate(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ServiceOrderService) RemoveLine(ctx context.Context, actor entities.Actor, orderID, lineID uint64) error {
	_, err := s.execute(ctx, actor, orderID, "remove_line", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		line, err := s.lineForChange(ctx, tx, order, lineID, "remove_line")
		if err != nil {
			return err
		}
		if err := s.repos.Lines.Delete(ctx, tx, line.ID); err != nil {
			return err
		}
		if err := s.record(ctx, tx, u, order.ID, constants.HistoryLineRemove, lineSummary(line), "", ""); err != nil {
			return err
		}
		return s.recalculate(ctx, tx, order)
	})
	return err
}

func lineSummary(line *entities.RefactionLine) string {
	return fmt.Sprintf("%s: %s x %s = %s", line.Description, line.Quantity.String(), line.UnitPrice.StringFixed(2), line.Subtotal.StringFixed(2))
}

func (s *ServiceOrderService) SetPhoto(ctx context.Context, actor entities.Actor, id uint64, kind constants.PhotoKind, path string) (*entities.ServiceOrder, error) {
	if !kind.IsValid() {
		return nil, apperrors.NewValidationError("kind", "неизвестный вид фото %q", kind)
	}
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.NewValidationError("path", "не указан путь к файлу")
	}
	return s.execute(ctx, actor, id, "set_photo", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireNonTerminal(order, "set_photo"); err != nil {
			return err
		}
		var old null.String
		if kind == constants.PhotoBefore {
			old = order.PhotoBefore
			order.PhotoBefore = null.StringFrom(path)
		} else {
			old = order.PhotoAfter
			order.PhotoAfter = null.StringFrom(path)
		}
		return s.record(ctx, tx, u, order.ID, constants.HistoryPhoto, old.String, path, string(kind))
	})
}

// PostJournalEntry: дебет дебиторской задолженности, кредит выручки на сумму счёта. Один раз на заказ.
func (s *ServiceOrderService) PostJournalEntry(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "post_journal_entry", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if err := requireState(order, "post_journal_entry", constants.StateDone); err != nil {
			return err
		}
		if !order.InvoiceID.Valid {
			return apperrors.NewPreconditionError("invoice", "у заказа %s нет счёта", order.Name)
		}
		if order.JournalEntryID.Valid {
			return apperrors.NewPreconditionError("journal_entry", "проводка по заказу %s уже создана", order.Name)
		}
		amount := order.InvoiceTotal()
		if !amount.IsPositive() {
			return apperrors.NewPreconditionError("amount", "сумма заказа %s равна нулю, проводка не нужна", order.Name)
		}

		entryID, err := s.invoices.PostJournalEntry(ctx, tx, &entities.JournalEntry{
			OrderID:       order.ID,
			DebitAccount:  s.policy.ReceivableAccount,
			CreditAccount: s.policy.IncomeAccount,
			Amount:        amount,
			CreatedAt:     u.now,
		})
		if err != nil {
			return fmt.Errorf("не удалось создать проводку по заказу %s: %w", order.Name, err)
		}
		order.JournalEntryID = null.Uint64From(entryID)
		return s.record(ctx, tx, u, order.ID, constants.HistoryJournal, "", formatID(order.JournalEntryID),
			fmt.Sprintf("Дт %s Кт %s %s", s.policy.ReceivableAccount, s.policy.IncomeAccount, amount.StringFixed(2)))
	})
}

func (s *ServiceOrderService) MarkInvoicePosted(ctx context.Context, actor entities.Actor, id uint64) (*entities.ServiceOrder, error) {
	return s.execute(ctx, actor, id, "mark_invoice_posted", func(tx pgx.Tx, u *unitOfWork, order *entities.ServiceOrder) error {
		if !order.InvoiceID.Valid {
			return apperrors.NewPreconditionError("invoice", "у заказа %s нет счёта", order.Name)
		}
		posted, err := s.invoices.IsPosted(ctx, tx, order.InvoiceID.Uint64)
		if err != nil {
			return err
		}
		if posted {
			return nil
		}
		if err := s.invoices.MarkPosted(ctx, tx, order.InvoiceID.Uint64); err != nil {
			return err
		}
		return s.record(ctx, tx, u, order.ID, constants.HistoryInvoice, "draft", "posted", "")
	})
}
