// imageproxy.go — прокси изображений из внешнего хранилища.
// Pipeline: проверка id/размеров → URL просмотра (URLBuilder) → запрос к
// хранилищу → (OSS: ресайз на стороне OSS, local: ресайз imaging) → ответ клиенту.
// Идентификатор проверяется до любого обращения к хранилищу.
package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/society-backend/internal/config"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/storage"
)

// Границы размеров и пресеты вариантов.
const (
	MaxImageDimension = 4000

	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
	VariantOriginal  = "original"

	// maxProxyImageSize — предел размера исходного изображения для локального ресайза.
	maxProxyImageSize = 32 << 20
)

var variantWidths = map[string]int{
	"":               0,
	VariantThumbnail: 320,
	VariantMedium:    800,
	VariantOriginal:  0,
}

var (
	imageProxyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_image_proxy_requests_total",
		Help: "Запросы к прокси изображений (по результату).",
	}, []string{"result"})

	imageProxyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sb_image_proxy_duration_seconds",
		Help:    "Длительность запроса к прокси изображений.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
)

// ImageRequest — параметры запроса изображения. Нулевые Width/Height — без ограничения.
type ImageRequest struct {
	ID      string
	Width   int
	Height  int
	Variant string
}

// Validate проверяет идентификатор, размеры и вариант.
func (r *ImageRequest) Validate() error {
	var fields []validate.FieldError
	if !model.ValidFileID(r.ID) {
		fields = append(fields, validate.FieldError{Field: "id", Rule: "fileid", Message: "недопустимый идентификатор файла"})
	}
	if r.Width < 0 || r.Width > MaxImageDimension {
		fields = append(fields, validate.FieldError{Field: "w", Rule: "range", Message: "ширина должна быть от 1 до 4000"})
	}
	if r.Height < 0 || r.Height > MaxImageDimension {
		fields = append(fields, validate.FieldError{Field: "h", Rule: "range", Message: "высота должна быть от 1 до 4000"})
	}
	if _, ok := variantWidths[r.Variant]; !ok {
		fields = append(fields, validate.FieldError{Field: "variant", Rule: "oneof", Message: "допустимые варианты: thumbnail, medium, original"})
	}
	if len(fields) > 0 {
		return &validate.ValidationError{Fields: fields}
	}
	return nil
}

// size возвращает итоговые ширину и высоту с учётом варианта.
// Явные w/h имеют приоритет; original отключает ресайз.
func (r *ImageRequest) size() (int, int) {
	if r.Variant == VariantOriginal {
		return 0, 0
	}
	w, h := r.Width, r.Height
	if w == 0 && h == 0 {
		w = variantWidths[r.Variant]
	}
	return w, h
}

// ImageProxyService — прокси изображений.
type ImageProxyService struct {
	client     *http.Client
	urls       *storage.URLBuilder
	ossResize  bool
	cacheValue string
	logger     *slog.Logger
}

// NewImageProxyService создаёт прокси. provider определяет способ ресайза:
// OSS — параметр x-oss-process, local — обработка в процессе.
func NewImageProxyService(urls *storage.URLBuilder, provider string, timeout, maxAge time.Duration, logger *slog.Logger) *ImageProxyService {
	return &ImageProxyService{
		client:     &http.Client{Timeout: timeout},
		urls:       urls,
		ossResize:  provider == config.ProviderOSS,
		cacheValue: fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())),
		logger:     logger.With(slog.String("component", "image_proxy")),
	}
}

// Serve загружает изображение и пишет его в w.
// Ошибка валидации возвращается до обращения к хранилищу;
// не-200 ответы хранилища передаются клиенту как есть.
func (s *ImageProxyService) Serve(ctx context.Context, w http.ResponseWriter, req ImageRequest) error {
	if err := req.Validate(); err != nil {
		imageProxyTotal.WithLabelValues("invalid").Inc()
		return err
	}
	start := time.Now()
	defer func() { imageProxyDuration.Observe(time.Since(start).Seconds()) }()

	width, height := req.size()
	upstream := s.upstreamURL(req.ID, width, height)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream, nil)
	if err != nil {
		imageProxyTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrUpstreamFailed, err)
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		imageProxyTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: запрос %s: %w", ErrUpstreamFailed, req.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		imageProxyTotal.WithLabelValues("upstream_status").Inc()
		s.logger.Debug("Хранилище вернуло не-200",
			slog.String("id", req.ID),
			slog.Int("status", resp.StatusCode),
		)
		copyHeader(w, resp, "Content-Type")
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		return nil
	}

	if s.ossResize || (width == 0 && height == 0) {
		copyHeader(w, resp, "Content-Type")
		copyHeader(w, resp, "Content-Length")
		w.Header().Set("Cache-Control", s.cacheValue)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, resp.Body); err != nil {
			s.logger.Warn("Ошибка передачи изображения",
				slog.String("id", req.ID),
				slog.String("error", err.Error()),
			)
		}
		imageProxyTotal.WithLabelValues("success").Inc()
		return nil
	}

	data, contentType, err := s.resizeLocal(resp, req.ID, width, height)
	if err != nil {
		imageProxyTotal.WithLabelValues("error").Inc()
		return err
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", s.cacheValue)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	imageProxyTotal.WithLabelValues("success").Inc()
	return nil
}

// upstreamURL строит URL просмотра; для OSS добавляет параметры ресайза.
func (s *ImageProxyService) upstreamURL(id string, width, height int) string {
	u := s.urls.View(id)
	if !s.ossResize || (width == 0 && height == 0) {
		return u
	}
	process := "image/resize"
	if width > 0 && height > 0 {
		process += ",m_lfit"
	}
	if width > 0 {
		process += ",w_" + strconv.Itoa(width)
	}
	if height > 0 {
		process += ",h_" + strconv.Itoa(height)
	}
	return u + "?x-oss-process=" + process
}

// resizeLocal уменьшает изображение до заданных границ с сохранением пропорций.
// Нераспознанный формат отдаётся без изменений.
func (s *ImageProxyService) resizeLocal(resp *http.Response, id string, width, height int) ([]byte, string, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProxyImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: чтение %s: %w", ErrUpstreamFailed, id, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if len(raw) > maxProxyImageSize {
		return nil, "", fmt.Errorf("%w: изображение %s превышает %d байт", ErrUpstreamFailed, id, maxProxyImageSize)
	}

	format, err := imaging.FormatFromFilename(path.Base(id))
	if err != nil {
		format = imaging.JPEG
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		s.logger.Debug("Изображение не распознано, отдаётся без ресайза",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return raw, contentType, nil
	}

	var resized image.Image
	switch {
	case width > 0 && height > 0:
		resized = imaging.Fit(img, width, height, imaging.Lanczos)
	case img.Bounds().Dx() > width && width > 0:
		resized = imaging.Resize(img, width, 0, imaging.Lanczos)
	case img.Bounds().Dy() > height && height > 0:
		resized = imaging.Resize(img, 0, height, imaging.Lanczos)
	default:
		resized = img
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return nil, "", fmt.Errorf("%w: кодирование %s: %w", ErrUpstreamFailed, id, err)
	}
	return buf.Bytes(), formatContentType(format, contentType), nil
}

func formatContentType(f imaging.Format, fallback string) string {
	switch f {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.BMP:
		return "image/bmp"
	case imaging.TIFF:
		return "image/tiff"
	}
	if strings.HasPrefix(fallback, "image/") {
		return fallback
	}
	return "application/octet-stream"
}

func copyHeader(w http.ResponseWriter, resp *http.Response, name string) {
	if v := resp.Header.Get(name); v != "" {
		w.Header().Set(name, v)
	}
}
