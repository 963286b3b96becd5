// files.go — сервис ссылок на файлы во внешнем хранилище.
//
// Хранилище инициализируется один раз (Initialize при старте); каждая
// операция повторно проходит через ту же защищённую мьютексом проверку,
// поэтому неудачный старт не требует перезапуска процесса.
// Выдача публичного доступа — отдельный шаг: его ошибка не отменяет загрузку.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/society-backend/internal/config"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/storage"
)

// Prometheus-метрики файловых операций.
var (
	fileUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_file_uploads_total",
		Help: "Количество загрузок файлов по результату.",
	}, []string{"result"})

	filePermissionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_file_permission_failures_total",
		Help: "Количество неудачных попыток выдать публичный доступ к файлу.",
	})

	fileDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_file_deletes_total",
		Help: "Количество удалений файлов по результату.",
	}, []string{"result"})
)

// ProviderFactory создаёт провайдер хранилища.
// Возвращает storage.ErrCredentialsMissing, если учётные данные не заданы.
type ProviderFactory func() (storage.Provider, error)

// UploadInput — параметры загрузки файла.
type UploadInput struct {
	model.Attachment
	Category string
}

// FileService — загрузка, удаление и метаданные файлов.
type FileService struct {
	factory ProviderFactory
	urls    *storage.URLBuilder
	folders config.FolderConfig
	cache   *FileInfoCache
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	provider storage.Provider
}

// NewFileService создаёт сервис файлов. Провайдер создаётся при Initialize.
func NewFileService(
	factory ProviderFactory,
	urls *storage.URLBuilder,
	folders config.FolderConfig,
	cache *FileInfoCache,
	logger *slog.Logger,
) *FileService {
	return &FileService{
		factory: factory,
		urls:    urls,
		folders: folders,
		cache:   cache,
		logger:  logger.With(slog.String("component", "files")),
		now:     time.Now,
	}
}

// Initialize создаёт провайдер и проверяет доступность хранилища.
// После успешной инициализации повторные вызовы ничего не делают.
func (s *FileService) Initialize(ctx context.Context) error {
	_, err := s.ready(ctx)
	return err
}

// Available сообщает, инициализировано ли хранилище.
func (s *FileService) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider != nil
}

// ready возвращает инициализированный провайдер, при необходимости создавая его.
func (s *FileService) ready(ctx context.Context) (storage.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.provider != nil {
		return s.provider, nil
	}

	p, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if err := p.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	s.provider = p
	s.logger.Info("Хранилище файлов инициализировано")
	return p, nil
}

// FolderFor возвращает папку для категории загрузки.
// Неизвестная категория или категория без папки — корневая папка.
func (s *FileService) FolderFor(category string) string {
	var folder string
	switch category {
	case model.CategoryOfficeBearer:
		folder = s.folders.OfficeBearer
	case model.CategoryNewsletter:
		folder = s.folders.Newsletter
	case model.CategoryApplication:
		folder = s.folders.Application
	case model.CategoryPaymentScreenshot:
		folder = s.folders.PaymentScreenshot
	case model.CategoryGallery:
		folder = s.folders.Gallery
	}
	if folder == "" {
		return s.folders.Root
	}
	return folder
}

// Folders возвращает все различные сконфигурированные папки.
func (s *FileService) Folders() []string {
	all := []string{
		s.folders.Root, s.folders.OfficeBearer, s.folders.Newsletter,
		s.folders.Application, s.folders.PaymentScreenshot, s.folders.Gallery,
	}
	var result []string
	for _, f := range all {
		if f != "" && !slices.Contains(result, f) {
			result = append(result, f)
		}
	}
	return result
}

// Upload сохраняет файл в папку категории и пытается открыть публичный доступ.
// ErrUploadFailed — только при ошибке сохранения; ошибка выдачи доступа
// отражается в UploadResult.PubliclyAccessible и PermissionError.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*model.UploadResult, error) {
	if in.Reader == nil {
		return nil, validate.Field("file", "required", "файл обязателен")
	}
	p, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	folder := s.FolderFor(in.Category)
	key := storage.ObjectKey(folder, in.FileName, s.now())

	if err := p.Put(ctx, key, in.Reader, in.Size, in.MimeType, in.FileName); err != nil {
		fileUploadsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка загрузки файла",
			slog.String("key", key),
			slog.String("category", in.Category),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	fileUploadsTotal.WithLabelValues("ok").Inc()

	result := &model.UploadResult{
		ID:                 key,
		Name:               in.FileName,
		ViewLink:           s.urls.View(key),
		Folder:             folder,
		Stored:             true,
		PubliclyAccessible: true,
	}

	if err := p.SetPublicRead(ctx, key); err != nil {
		filePermissionFailuresTotal.Inc()
		s.logger.Warn("Не удалось открыть публичный доступ к файлу",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		result.PubliclyAccessible = false
		result.PermissionError = err.Error()
	}

	s.logger.Info("Файл загружен",
		slog.String("key", key),
		slog.String("category", in.Category),
		slog.Int64("size", in.Size),
		slog.Bool("public", result.PubliclyAccessible),
	)
	return result, nil
}

// RetryPublicAccess повторяет выдачу публичного доступа к файлу.
func (s *FileService) RetryPublicAccess(ctx context.Context, id string) error {
	if !model.ValidFileID(id) {
		return ErrFileNotFound
	}
	p, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if err := p.SetPublicRead(ctx, id); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrFileNotFound
		}
		filePermissionFailuresTotal.Inc()
		return fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	return nil
}

// Delete удаляет файл. Неизвестный идентификатор — ErrFileNotFound.
func (s *FileService) Delete(ctx context.Context, id string) error {
	if !model.ValidFileID(id) {
		return ErrFileNotFound
	}
	p, err := s.ready(ctx)
	if err != nil {
		return err
	}

	err = p.Delete(ctx, id)
	s.cache.Delete(id)
	switch {
	case err == nil:
		fileDeletesTotal.WithLabelValues("ok").Inc()
		s.logger.Info("Файл удалён", slog.String("key", id))
		return nil
	case errors.Is(err, storage.ErrObjectNotFound):
		fileDeletesTotal.WithLabelValues("not_found").Inc()
		return ErrFileNotFound
	default:
		fileDeletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}
}

// GetMetadata возвращает метаданные файла (с кэшированием).
func (s *FileService) GetMetadata(ctx context.Context, id string) (*model.FileInfo, error) {
	if !model.ValidFileID(id) {
		return nil, ErrFileNotFound
	}
	if info, ok := s.cache.Get(id); ok {
		return info, nil
	}
	p, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	obj, err := p.Stat(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrMetadataFailed, err)
	}

	info := &model.FileInfo{
		ID:           id,
		Name:         obj.Name,
		MimeType:     obj.ContentType,
		Size:         obj.Size,
		ViewLink:     s.urls.View(id),
		DownloadLink: s.urls.Download(id),
		CreatedTime:  obj.LastModified,
	}
	s.cache.Set(id, info)
	return info, nil
}

// ListObjects перечисляет объекты под префиксом (для очистки сирот).
func (s *FileService) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	p, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	objs, err := p.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataFailed, err)
	}
	return objs, nil
}

// DirectViewURL возвращает ссылку просмотра; не обращается к хранилищу.
func (s *FileService) DirectViewURL(id string) string {
	return s.urls.View(id)
}

// DirectDownloadURL возвращает ссылку скачивания; не обращается к хранилищу.
func (s *FileService) DirectDownloadURL(id string) string {
	return s.urls.Download(id)
}

// Links возвращает обе производные ссылки файла.
func (s *FileService) Links(id string) model.FileLinks {
	return model.FileLinks{ID: id, ViewLink: s.DirectViewURL(id), DownloadLink: s.DirectDownloadURL(id)}
}

// CheckReady проверяет готовность хранилища для /health/ready.
// Неинициализированное хранилище пробует инициализироваться повторно.
func (s *FileService) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := s.ready(ctx); err != nil {
		return "fail", err.Error()
	}
	return "ok", "хранилище доступно"
}
