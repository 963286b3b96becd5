// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"

	"github.com/bigkaa/society-backend/internal/domain/validate"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт уникальности.
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	// Детали полей — в *validate.ValidationError, который разворачивается в эту ошибку.
	ErrValidation = validate.ErrValidation
	// ErrInvalidTransition — недопустимый переход статуса заявки или обращения.
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrStorageUnavailable — хранилище файлов не сконфигурировано или недоступно.
	ErrStorageUnavailable = errors.New("хранилище файлов недоступно")
	// ErrUploadFailed — не удалось сохранить файл в хранилище.
	ErrUploadFailed = errors.New("ошибка загрузки файла")
	// ErrDeleteFailed — не удалось удалить файл из хранилища.
	ErrDeleteFailed = errors.New("ошибка удаления файла")
	// ErrMetadataFailed — не удалось получить метаданные файла.
	ErrMetadataFailed = errors.New("ошибка получения метаданных файла")
	// ErrFileNotFound — файл с указанным идентификатором отсутствует в хранилище.
	ErrFileNotFound = errors.New("файл не найден")
)

// ErrUpstreamFailed — хранилище недоступно для прокси изображений.
var ErrUpstreamFailed = errors.New("ошибка обращения к хранилищу изображений")
