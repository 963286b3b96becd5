// handler.go — основной обработчик API: маршруты и общие функции
// (JSON-ответы, отображение ошибок сервисного слоя, параметры списков).
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/society-backend/internal/api/errors"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/repository"
	"github.com/bigkaa/society-backend/internal/service"
)

// Services — сервисы, к которым обращаются обработчики.
type Services struct {
	Members       *service.MemberService
	Committees    *service.CommitteeService
	Events        *service.EventService
	Gallery       *service.GalleryService
	Newsletters   *service.NewsletterService
	Notices       *service.NoticeService
	OfficeBearers *service.OfficeBearerService
	OfflineForms  *service.OfflineFormService
	Applications  *service.ApplicationService
	Inquiries     *service.InquiryService
	Files         *service.FileService
	ImageProxy    *service.ImageProxyService
	Sweeper       *service.OrphanSweeper
}

// APIHandler — основной обработчик API Society Backend.
type APIHandler struct {
	health        *HealthHandler
	svc           Services
	maxUploadSize int64
	// localStorage — раздача объектов local-провайдера; nil для OSS
	localStorage http.Handler
	logger       *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	svc Services,
	maxUploadSize int64,
	localStorage http.Handler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		svc:           svc,
		maxUploadSize: maxUploadSize,
		localStorage:  localStorage,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует все маршруты API.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		mountRecords[model.Member](r, "/members", h, h.svc.Members)
		mountRecords[model.Committee](r, "/committees", h, h.svc.Committees)
		mountRecords[model.Event](r, "/events", h, h.svc.Events)
		mountRecords[model.GalleryItem](r, "/gallery", h, h.svc.Gallery)
		mountRecords[model.Newsletter](r, "/newsletters", h, h.svc.Newsletters)
		mountRecords[model.Notice](r, "/notices", h, h.svc.Notices)
		mountRecords[model.OfficeBearer](r, "/office-bearers", h, h.svc.OfficeBearers)
		mountRecords[model.OfflineForm](r, "/offline-forms", h, h.svc.OfflineForms)

		r.Route("/applications", func(r chi.Router) {
			r.Post("/", h.SubmitApplication)
			r.Get("/", h.ListApplications)
			r.Get("/{id}", h.GetApplication)
			r.Delete("/{id}", h.DeleteApplication)
			r.Post("/{id}/approve", h.ApproveApplication)
			r.Post("/{id}/reject", h.RejectApplication)
		})

		r.Route("/inquiries", func(r chi.Router) {
			r.Post("/", h.SubmitInquiry)
			r.Get("/", h.ListInquiries)
			r.Get("/{id}", h.GetInquiry)
			r.Delete("/{id}", h.DeleteInquiry)
			r.Post("/{id}/respond", h.RespondInquiry)
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/", h.UploadFile)
			r.Post("/public-access", h.RetryPublicAccess)
			r.Get("/urls/*", h.GetFileURLs)
			r.Get("/*", h.GetFileMetadata)
			r.Delete("/*", h.DeleteFile)
		})

		r.Post("/sweeps/orphans", h.RunOrphanSweep)
	})

	r.Get("/api/image-proxy", h.ImageProxy)

	if h.localStorage != nil {
		r.Get("/storage/*", h.localStorage.ServeHTTP)
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &ve):
		apierrors.WriteErrorDetails(w, http.StatusBadRequest, apierrors.CodeValidationError,
			"Некорректные входные данные", ve.Fields)
	case errors.As(err, &tooLarge):
		apierrors.PayloadTooLarge(w, "Превышен максимальный размер запроса")
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись не найдена")
	case errors.Is(err, service.ErrFileNotFound):
		apierrors.NotFound(w, "Файл не найден")
	case errors.Is(err, service.ErrInvalidTransition):
		apierrors.InvalidTransition(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrStorageUnavailable):
		apierrors.StorageUnavailable(w, "Хранилище файлов недоступно")
	case errors.Is(err, service.ErrUploadFailed),
		errors.Is(err, service.ErrDeleteFailed),
		errors.Is(err, service.ErrMetadataFailed),
		errors.Is(err, service.ErrUpstreamFailed):
		h.logger.Warn("Ошибка хранилища",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.StorageError(w, "Ошибка операции во внешнем хранилище")
	default:
		h.logger.Error("Внутренняя ошибка",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// reservedListParams — параметры списка, не являющиеся фильтрами.
var reservedListParams = map[string]bool{
	"q": true, "sort": true, "order": true, "limit": true, "offset": true,
}

// parseListQuery разбирает параметры списка: q, sort, order, limit, offset;
// остальные параметры считаются фильтрами (неизвестные отклоняет репозиторий).
func parseListQuery(r *http.Request) (repository.ListQuery, error) {
	query := r.URL.Query()
	var (
		limit, offset *int
		order         *string
	)
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		return repository.ListQuery{}, validate.Field("limit", "int", "limit должен быть целым числом")
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &offset); err != nil {
		return repository.ListQuery{}, validate.Field("offset", "int", "offset должен быть целым числом")
	}
	if err := runtime.BindQueryParameter("form", true, false, "order", query, &order); err != nil {
		return repository.ListQuery{}, validate.Field("order", "oneof", "order: asc или desc")
	}

	q := repository.ListQuery{
		Search: strings.TrimSpace(query.Get("q")),
		SortBy: strings.TrimSpace(query.Get("sort")),
	}
	if limit != nil {
		q.Limit = *limit
	}
	if offset != nil {
		q.Offset = *offset
	}
	if order != nil {
		switch strings.ToLower(*order) {
		case "asc":
		case "desc":
			q.Desc = true
		default:
			return repository.ListQuery{}, validate.Field("order", "oneof", "order: asc или desc")
		}
	}

	for key, values := range query {
		if reservedListParams[key] || len(values) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[key] = values[0]
	}
	return q, nil
}
