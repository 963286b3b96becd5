// Пакет ossprovider — реализация storage.Provider поверх Aliyun OSS.
package ossprovider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/bigkaa/society-backend/internal/storage"
)

// metaOriginalName — пользовательские метаданные с исходным именем файла.
const metaOriginalName = "original-name"

// listPageSize — размер страницы ListObjects.
const listPageSize = 1000

// bucketAPI — подмножество методов *oss.Bucket, используемых провайдером.
type bucketAPI interface {
	PutObject(objectKey string, reader io.Reader, options ...oss.Option) error
	SetObjectACL(objectKey string, objectACL oss.ACLType, options ...oss.Option) error
	GetObjectDetailedMeta(objectKey string, options ...oss.Option) (http.Header, error)
	IsObjectExist(objectKey string, options ...oss.Option) (bool, error)
	DeleteObject(objectKey string, options ...oss.Option) error
	ListObjects(options ...oss.Option) (oss.ListObjectsResult, error)
	GetObject(objectKey string, options ...oss.Option) (io.ReadCloser, error)
}

// Config — параметры подключения к OSS.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// Timeout — таймаут соединения и чтения/записи клиента OSS
	Timeout time.Duration
}

// Provider — хранилище в бакете Aliyun OSS.
type Provider struct {
	bucket bucketAPI
}

// New создаёт клиента OSS. Пустые учётные данные — storage.ErrCredentialsMissing.
func New(cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.AccessKeySecret == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: SB_OSS_ENDPOINT/SB_OSS_ACCESS_KEY_ID/SB_OSS_ACCESS_KEY_SECRET/SB_OSS_BUCKET",
			storage.ErrCredentialsMissing)
	}

	var opts []oss.ClientOption
	if cfg.Timeout > 0 {
		sec := int64(cfg.Timeout / time.Second)
		if sec < 1 {
			sec = 1
		}
		opts = append(opts, oss.Timeout(sec, sec*4))
	}

	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret, opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания клиента OSS: %w", err)
	}
	bkt, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения бакета %s: %w", cfg.Bucket, err)
	}
	return &Provider{bucket: bkt}, nil
}

// newWithBucket используется в тестах с поддельным бакетом.
func newWithBucket(b bucketAPI) *Provider {
	return &Provider{bucket: b}
}

// Ping выполняет минимальный листинг бакета.
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.bucket.ListObjects(oss.MaxKeys(1), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("OSS недоступен: %w", err)
	}
	return nil
}

func (p *Provider) Put(ctx context.Context, key string, r io.Reader, size int64, contentType, originalName string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		// Значения заголовков — только ASCII, имя кодируется
		oss.Meta(metaOriginalName, url.QueryEscape(originalName)),
	}
	if size > 0 {
		opts = append(opts, oss.ContentLength(size))
	}
	if err := p.bucket.PutObject(key, r, opts...); err != nil {
		return fmt.Errorf("ошибка записи объекта %s: %w", key, err)
	}
	return nil
}

func (p *Provider) SetPublicRead(ctx context.Context, key string) error {
	if err := p.bucket.SetObjectACL(key, oss.ACLPublicRead, oss.WithContext(ctx)); err != nil {
		if isNotFound(err) {
			return storage.ErrObjectNotFound
		}
		return fmt.Errorf("ошибка установки ACL %s: %w", key, err)
	}
	return nil
}

func (p *Provider) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	hdr, err := p.bucket.GetObjectDetailedMeta(key, oss.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("ошибка получения метаданных %s: %w", key, err)
	}
	return infoFromHeader(key, hdr), nil
}

// Delete проверяет существование объекта: DeleteObject в OSS не сообщает
// об отсутствии ключа.
func (p *Provider) Delete(ctx context.Context, key string) error {
	exists, err := p.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ошибка проверки объекта %s: %w", key, err)
	}
	if !exists {
		return storage.ErrObjectNotFound
	}
	if err := p.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", key, err)
	}
	return nil
}

func (p *Provider) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var result []storage.ObjectInfo
	marker := oss.Marker("")
	for {
		lor, err := p.bucket.ListObjects(oss.Prefix(prefix), marker, oss.MaxKeys(listPageSize), oss.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("ошибка листинга %q: %w", prefix, err)
		}
		for _, obj := range lor.Objects {
			if obj.Key == "" {
				continue
			}
			result = append(result, storage.ObjectInfo{
				Key:          obj.Key,
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		if !lor.IsTruncated {
			return result, nil
		}
		marker = oss.Marker(lor.NextMarker)
	}
}

func (p *Provider) Open(ctx context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	info, err := p.Stat(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	body, err := p.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, nil, storage.ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("ошибка чтения объекта %s: %w", key, err)
	}
	return body, info, nil
}

// infoFromHeader собирает ObjectInfo из заголовков HEAD-ответа.
func infoFromHeader(key string, hdr http.Header) *storage.ObjectInfo {
	info := &storage.ObjectInfo{
		Key:         key,
		ContentType: hdr.Get(oss.HTTPHeaderContentType),
	}
	if n, err := strconv.ParseInt(hdr.Get(oss.HTTPHeaderContentLength), 10, 64); err == nil {
		info.Size = n
	}
	if t, err := http.ParseTime(hdr.Get(oss.HTTPHeaderLastModified)); err == nil {
		info.LastModified = t
	}
	if raw := hdr.Get(oss.HTTPHeaderOssMetaPrefix + metaOriginalName); raw != "" {
		if name, err := url.QueryUnescape(raw); err == nil {
			info.Name = name
		} else {
			info.Name = raw
		}
	}
	return info
}

func isNotFound(err error) bool {
	var se oss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	return false
}
