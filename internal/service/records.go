// records.go — общий CRUD-сервис записей хранилища.
//
// Создание: нормализация → валидация → запись; при ошибке валидации
// ничего не пишется. Обновление: текущая запись → применение частичного
// изменения → восстановление служебных полей → нормализация → валидация → запись.
// Записи с файлом загружают вложение только после успешной валидации;
// если запись не сохранилась, загруженный файл удаляется (best-effort).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/repository"
)

// pendingFileID — временный идентификатор файла на время валидации записи.
const pendingFileID = "pending-upload"

// Page — страница списка.
type Page[T any] struct {
	Items   []*T `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// entityPtr — указатель на запись, реализующий model.Entity.
type entityPtr[T any] interface {
	*T
	model.Entity
}

// recordHooks — особенности конкретного типа записи.
type recordHooks[T any] struct {
	// category — категория загрузки вложения; пусто — записи без файла
	category string
	// setFile записывает идентификатор и имя загруженного файла в запись.
	// prev — запись до изменения; nil при создании.
	setFile func(rec, prev *T, id, name string)
	// prepare заполняет хранимые производные поля перед валидацией
	prepare func(rec *T, files *FileService)
	// decorate заполняет производные поля при чтении
	decorate func(rec *T, files *FileService)
}

// RecordService — CRUD для одного типа записей.
type RecordService[T any, P entityPtr[T]] struct {
	name   string
	repo   repository.Store[T]
	files  *FileService
	hooks  recordHooks[T]
	logger *slog.Logger
	now    func() time.Time
}

func newRecordService[T any, P entityPtr[T]](
	name string,
	repo repository.Store[T],
	files *FileService,
	hooks recordHooks[T],
	logger *slog.Logger,
) *RecordService[T, P] {
	return &RecordService[T, P]{
		name:   name,
		repo:   repo,
		files:  files,
		hooks:  hooks,
		logger: logger.With(slog.String("component", name)),
		now:    time.Now,
	}
}

// AcceptsFile сообщает, принимает ли тип записи вложение.
func (s *RecordService[T, P]) AcceptsFile() bool {
	return s.hooks.setFile != nil
}

// Create создаёт запись. att — необязательное вложение.
func (s *RecordService[T, P]) Create(ctx context.Context, rec *T, att *model.Attachment) (*T, error) {
	P(rec).Normalize(s.now().UTC())
	*P(rec).Meta() = model.Base{ID: uuid.New().String()}

	uploaded, err := s.validateAndUpload(ctx, rec, nil, att)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.discard(uploaded)
		return nil, mapRepoError(err)
	}

	s.logger.Info("Запись создана", slog.String("id", P(rec).Meta().ID))
	s.decorate(rec)
	return rec, nil
}

// Get возвращает запись по id.
func (s *RecordService[T, P]) Get(ctx context.Context, id string) (*T, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.decorate(rec)
	return rec, nil
}

// List возвращает страницу записей.
func (s *RecordService[T, P]) List(ctx context.Context, q repository.ListQuery) (*Page[T], error) {
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, rec := range items {
		s.decorate(rec)
	}
	return newPage(items, total, q), nil
}

// Update применяет частичное изменение к текущей записи.
// apply получает копию текущей записи; id и createdAt после apply восстанавливаются.
func (s *RecordService[T, P]) Update(ctx context.Context, id string, apply func(rec *T) error, att *model.Attachment) (*T, error) {
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	next := *cur
	if err := apply(&next); err != nil {
		return nil, err
	}
	*P(&next).Meta() = *P(cur).Meta()
	P(&next).Normalize(s.now().UTC())

	uploaded, err := s.validateAndUpload(ctx, &next, cur, att)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		s.discard(uploaded)
		return nil, mapRepoError(err)
	}

	s.logger.Info("Запись обновлена", slog.String("id", id))
	s.decorate(&next)
	return &next, nil
}

// Delete удаляет запись. Файлы, на которые она ссылалась, не удаляются:
// ссылки слабые, осиротевшие объекты убирает OrphanSweeper.
func (s *RecordService[T, P]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("Запись удалена", slog.String("id", id))
	return nil
}

// validateAndUpload валидирует запись и загружает вложение.
// Возвращает идентификатор загруженного файла (пусто, если вложения нет).
func (s *RecordService[T, P]) validateAndUpload(ctx context.Context, rec, prev *T, att *model.Attachment) (string, error) {
	if att != nil && s.hooks.setFile == nil {
		return "", validate.Field("file", "unsupported", "запись этого типа не принимает файл")
	}
	if att != nil {
		s.hooks.setFile(rec, prev, pendingFileID, att.FileName)
	}
	s.prepare(rec)
	if err := validate.Struct(rec); err != nil {
		return "", err
	}
	if att == nil {
		return "", nil
	}

	res, err := s.files.Upload(ctx, UploadInput{Attachment: *att, Category: s.hooks.category})
	if err != nil {
		return "", err
	}
	s.hooks.setFile(rec, prev, res.ID, att.FileName)
	s.prepare(rec)
	return res.ID, nil
}

// discard удаляет загруженный файл, если запись не сохранилась.
func (s *RecordService[T, P]) discard(fileID string) {
	if fileID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.files.Delete(ctx, fileID); err != nil {
		s.logger.Warn("Не удалось удалить файл несохранённой записи",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RecordService[T, P]) prepare(rec *T) {
	if s.hooks.prepare != nil && s.files != nil {
		s.hooks.prepare(rec, s.files)
	}
}

func (s *RecordService[T, P]) decorate(rec *T) {
	if s.hooks.decorate != nil && s.files != nil {
		s.hooks.decorate(rec, s.files)
	}
}

// newPage собирает страницу списка с нормализованными limit/offset.
func newPage[T any](items []*T, total int, q repository.ListQuery) *Page[T] {
	limit, offset := q.Page()
	if items == nil {
		items = []*T{}
	}
	return &Page[T]{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(items) < total,
	}
}

// mapRepoError приводит ошибки репозитория к ошибкам сервисного слоя.
// Ошибки валидации (нарушение CHECK) передаются без изменений.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
