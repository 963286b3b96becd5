package handlers

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/society-backend/internal/api/errors"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/storage"
)

// PublicObjectSource — хранилище, умеющее сообщать о публичности объекта.
// Реализуется localprovider.Provider.
type PublicObjectSource interface {
	IsPublic(key string) bool
	Open(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error)
}

// LocalStorageHandler раздаёт публичные объекты local-провайдера по /storage/*.
// Непубличные и отсутствующие объекты неотличимы (404).
// ?download=1 отдаёт объект с Content-Disposition: attachment.
type LocalStorageHandler struct {
	src    PublicObjectSource
	logger *slog.Logger
}

// NewLocalStorageHandler создаёт обработчик раздачи.
func NewLocalStorageHandler(src PublicObjectSource, logger *slog.Logger) *LocalStorageHandler {
	return &LocalStorageHandler{src: src, logger: logger.With(slog.String("component", "local_storage"))}
}

func (h *LocalStorageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !model.ValidFileID(key) || !h.src.IsPublic(key) {
		apierrors.NotFound(w, "Файл не найден")
		return
	}

	rc, info, err := h.src.Open(r.Context(), key)
	if err != nil {
		apierrors.NotFound(w, "Файл не найден")
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if r.URL.Query().Get("download") == "1" {
		name := info.Name
		if name == "" {
			name = path.Base(key)
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), info.LastModified, rs)
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Debug("Ошибка передачи файла", slog.String("key", key), slog.String("error", err.Error()))
	}
}
