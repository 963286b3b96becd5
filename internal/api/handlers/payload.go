package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
)

// multipartMemory — объём multipart-формы, удерживаемый в памяти; остальное — во временных файлах.
const multipartMemory = 8 << 20

// payload — тело запроса записи: JSON напрямую или multipart с частью
// data (JSON) и файловыми частями.
type payload struct {
	data    []byte
	form    *multipart.Form
	maxFile int64
	opened  []multipart.File
}

// readPayload читает тело запроса с ограничением размера.
func (h *APIHandler) readPayload(w http.ResponseWriter, r *http.Request) (*payload, error) {
	limit := h.maxUploadSize + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	p := &payload{maxFile: h.maxUploadSize}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			if isTooLarge(err) {
				return nil, err
			}
			return nil, validate.Field("body", "multipart", "некорректная multipart-форма")
		}
		p.form = r.MultipartForm
		if values := p.form.Value["data"]; len(values) > 0 {
			p.data = []byte(values[0])
		}
		return p, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, fmt.Errorf("чтение тела запроса: %w", err)
	}
	p.data = data
	return p, nil
}

// decode разбирает JSON-часть в dst. Пустое тело — пустой объект.
func (p *payload) decode(dst any) error {
	if len(bytes.TrimSpace(p.data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.data, dst); err != nil {
		return validate.Field("body", "json", "некорректный JSON: "+err.Error())
	}
	return nil
}

// attachment возвращает файл из части field; nil — часть отсутствует.
func (p *payload) attachment(field string) (*model.Attachment, error) {
	if p.form == nil || len(p.form.File[field]) == 0 {
		return nil, nil
	}
	fh := p.form.File[field][0]
	if fh.Size > p.maxFile {
		return nil, validate.Field(field, "max", fmt.Sprintf("файл больше %d байт", p.maxFile))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("открытие части %s: %w", field, err)
	}
	p.opened = append(p.opened, f)

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &model.Attachment{
		Reader:   f,
		Size:     fh.Size,
		FileName: fh.Filename,
		MimeType: contentType,
	}, nil
}

// close закрывает открытые части и удаляет временные файлы формы.
func (p *payload) close() {
	for _, f := range p.opened {
		_ = f.Close()
	}
	if p.form != nil {
		_ = p.form.RemoveAll()
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
