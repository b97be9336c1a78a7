// controllers/upload_controller.go

package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"field-service/config"
	"field-service/internal/services"
	"field-service/pkg/constants"
	apperrors "field-service/pkg/errors"
	"field-service/pkg/filestorage"
	"field-service/pkg/utils"
	"field-service/pkg/validation"
)

const orderPhotoContext = "order_photo"

// PhotoController принимает фото до/после ремонта и привязывает путь к заказу.
type PhotoController struct {
	orderService services.ServiceOrderServiceInterface
	fileStorage  filestorage.FileStorageInterface
	logger       *zap.Logger
}

func NewPhotoController(orderService services.ServiceOrderServiceInterface, fileStorage filestorage.FileStorageInterface, logger *zap.Logger) *PhotoController {
	return &PhotoController{orderService: orderService, fileStorage: fileStorage, logger: logger}
}

func (ctrl *PhotoController) Upload(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	kind := constants.PhotoKind(c.Param("kind"))
	if !kind.IsValid() {
		return utils.ErrorResponse(c, apperrors.NewValidationError("kind", "допустимо: before, after"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, apperrors.NewHttpError(
			http.StatusBadRequest,
			"Файл не был передан",
			apperrors.ErrBadRequest,
			nil,
		))
	}
	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, err)
	}
	defer src.Close()

	if err := validation.ValidateFile(fileHeader, src, orderPhotoContext); err != nil {
		return utils.ErrorResponse(c, err)
	}

	savedPath, err := ctrl.fileStorage.Save(src, fileHeader.Filename, config.UploadContexts[orderPhotoContext].PathPrefix)
	if err != nil {
		ctrl.logger.Error("не удалось сохранить фото", zap.Uint64("orderID", orderID), zap.Error(err))
		return utils.ErrorResponse(c, err)
	}

	order, err := ctrl.orderService.SetPhoto(c.Request().Context(), actor, orderID, kind, savedPath)
	if err != nil {
		// заказ файл не принял - убираем его
		if delErr := ctrl.fileStorage.Delete(savedPath); delErr != nil {
			ctrl.logger.Warn("не удалось удалить файл", zap.String("path", savedPath), zap.Error(delErr))
		}
		return utils.ErrorResponse(c, err)
	}
	return utils.SuccessResponse(c, order, "Фото загружено", http.StatusCreated)
}
