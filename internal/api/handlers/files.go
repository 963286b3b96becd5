// files.go — обработчики сервиса ссылок на файлы и прокси изображений.
// Идентификатор файла может содержать '/', поэтому передаётся wildcard-сегментом.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/society-backend/internal/api/errors"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/service"
)

// UploadFile — POST /api/v1/files. Multipart: file (обязательно), category.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	p, err := h.readPayload(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer p.close()

	att, err := p.attachment("file")
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if att == nil {
		h.writeServiceError(w, r, validate.Field("file", "required", "поле file обязательно"))
		return
	}

	var category string
	if p.form != nil && len(p.form.Value["category"]) > 0 {
		category = p.form.Value["category"][0]
	}

	res, err := h.svc.Files.Upload(r.Context(), service.UploadInput{Attachment: *att, Category: category})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetFileMetadata — GET /api/v1/files/{fileId...}.
func (h *APIHandler) GetFileMetadata(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Files.GetMetadata(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// DeleteFile — DELETE /api/v1/files/{fileId...}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Files.Delete(r.Context(), chi.URLParam(r, "*")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFileURLs — GET /api/v1/files/urls/{fileId...}. Не обращается к хранилищу.
func (h *APIHandler) GetFileURLs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "*")
	if !model.ValidFileID(id) {
		h.writeServiceError(w, r, validate.Field("id", "fileid", "недопустимый идентификатор файла"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Files.Links(id))
}

// RetryPublicAccess — POST /api/v1/files/public-access {"id": "..."}.
func (h *APIHandler) RetryPublicAccess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		h.writeServiceError(w, r, validate.Field("body", "json", "ожидается JSON с полем id"))
		return
	}
	if err := h.svc.Files.RetryPublicAccess(r.Context(), req.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Files.Links(req.ID))
}

// RunOrphanSweep — POST /api/v1/sweeps/orphans {"dryRun": bool}.
// Без тела используется режим из конфигурации.
func (h *APIHandler) RunOrphanSweep(w http.ResponseWriter, r *http.Request) {
	if h.svc.Sweeper == nil {
		apierrors.StorageUnavailable(w, "Очистка осиротевших файлов не настроена")
		return
	}
	var req struct {
		DryRun *bool `json:"dryRun"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			h.writeServiceError(w, r, validate.Field("body", "json", "ожидается JSON с полем dryRun"))
			return
		}
	}
	dryRun := h.svc.Sweeper.DryRun()
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	result, err := h.svc.Sweeper.RunOnce(r.Context(), dryRun)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ImageProxy — GET /api/image-proxy?id=&w=&h=&variant=.
func (h *APIHandler) ImageProxy(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := service.ImageRequest{
		ID:      query.Get("id"),
		Variant: query.Get("variant"),
	}

	var width, height *int
	if err := runtime.BindQueryParameter("form", true, false, "w", query, &width); err != nil {
		h.writeServiceError(w, r, validate.Field("w", "int", "ширина должна быть целым числом"))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "h", query, &height); err != nil {
		h.writeServiceError(w, r, validate.Field("h", "int", "высота должна быть целым числом"))
		return
	}
	if width != nil {
		if *width < 1 {
			h.writeServiceError(w, r, validate.Field("w", "range", "ширина должна быть от 1 до 4000"))
			return
		}
		req.Width = *width
	}
	if height != nil {
		if *height < 1 {
			h.writeServiceError(w, r, validate.Field("h", "range", "высота должна быть от 1 до 4000"))
			return
		}
		req.Height = *height
	}

	if err := h.svc.ImageProxy.Serve(r.Context(), w, req); err != nil {
		h.writeServiceError(w, r, err)
	}
}
