// records.go — обобщённые CRUD-обработчики записей хранилища.
// Запись принимается как JSON или multipart/form-data (data + file).
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/repository"
	"github.com/bigkaa/society-backend/internal/service"
)

// recordService — операции сервиса записей, нужные обработчикам.
type recordService[T any] interface {
	Create(ctx context.Context, rec *T, att *model.Attachment) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, q repository.ListQuery) (*service.Page[T], error)
	Update(ctx context.Context, id string, apply func(rec *T) error, att *model.Attachment) (*T, error)
	Delete(ctx context.Context, id string) error
}

type recordHandler[T any] struct {
	api *APIHandler
	svc recordService[T]
}

// mountRecords регистрирует пять маршрутов записи под path.
func mountRecords[T any](r chi.Router, path string, api *APIHandler, svc recordService[T]) {
	h := &recordHandler[T]{api: api, svc: svc}
	r.Route(path, func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

func (h *recordHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	p, err := h.api.readPayload(w, r)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	defer p.close()

	rec := new(T)
	if err := p.decode(rec); err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	att, err := p.attachment("file")
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), rec, att)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *recordHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	page, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *recordHandler[T]) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// update применяет переданные поля поверх текущей записи.
func (h *recordHandler[T]) update(w http.ResponseWriter, r *http.Request) {
	p, err := h.api.readPayload(w, r)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	defer p.close()

	att, err := p.attachment("file")
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), func(rec *T) error {
		return p.decode(rec)
	}, att)
	if err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *recordHandler[T]) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.api.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
