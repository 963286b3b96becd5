package ossprovider

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/bigkaa/society-backend/internal/storage"
)

// fakeObject — объект в памяти поддельного бакета.
type fakeObject struct {
	data        []byte
	contentType string
	name        string
	acl         oss.ACLType
	modified    time.Time
}

// fakeBucket — реализация bucketAPI в памяти.
type fakeBucket struct {
	objects    map[string]*fakeObject
	aclErr     error
	deleteCall int
	listPages  int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string]*fakeObject)}
}

var errNoSuchKey = oss.ServiceError{StatusCode: http.StatusNotFound, Code: "NoSuchKey"}

func (b *fakeBucket) PutObject(key string, r io.Reader, options ...oss.Option) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = &fakeObject{data: data, contentType: "application/octet-stream", modified: time.Now()}
	return nil
}

func (b *fakeBucket) SetObjectACL(key string, acl oss.ACLType, options ...oss.Option) error {
	if b.aclErr != nil {
		return b.aclErr
	}
	obj, ok := b.objects[key]
	if !ok {
		return errNoSuchKey
	}
	obj.acl = acl
	return nil
}

func (b *fakeBucket) GetObjectDetailedMeta(key string, options ...oss.Option) (http.Header, error) {
	obj, ok := b.objects[key]
	if !ok {
		return nil, errNoSuchKey
	}
	hdr := http.Header{}
	hdr.Set(oss.HTTPHeaderContentType, obj.contentType)
	hdr.Set(oss.HTTPHeaderContentLength, strconv.Itoa(len(obj.data)))
	hdr.Set(oss.HTTPHeaderLastModified, obj.modified.UTC().Format(http.TimeFormat))
	if obj.name != "" {
		hdr.Set(oss.HTTPHeaderOssMetaPrefix+metaOriginalName, url.QueryEscape(obj.name))
	}
	return hdr, nil
}

func (b *fakeBucket) IsObjectExist(key string, options ...oss.Option) (bool, error) {
	_, ok := b.objects[key]
	return ok, nil
}

func (b *fakeBucket) DeleteObject(key string, options ...oss.Option) error {
	b.deleteCall++
	delete(b.objects, key)
	return nil
}

// ListObjects отдаёт по одному объекту на страницу, чтобы проверить маркеры.
func (b *fakeBucket) ListObjects(options ...oss.Option) (oss.ListObjectsResult, error) {
	b.listPages++
	var keys []string
	for k := range b.objects {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	page := b.listPages - 1
	if page >= len(keys) {
		return oss.ListObjectsResult{}, nil
	}
	obj := b.objects[keys[page]]
	return oss.ListObjectsResult{
		Objects:     []oss.ObjectProperties{{Key: keys[page], Size: int64(len(obj.data)), LastModified: obj.modified}},
		IsTruncated: page < len(keys)-1,
		NextMarker:  keys[page],
	}, nil
}

func (b *fakeBucket) GetObject(key string, options ...oss.Option) (io.ReadCloser, error) {
	obj, ok := b.objects[key]
	if !ok {
		return nil, errNoSuchKey
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// TestNew_MissingCredentials проверяет ErrCredentialsMissing.
func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(Config{Endpoint: "oss-cn-hangzhou.aliyuncs.com", Bucket: "b"})
	if !errors.Is(err, storage.ErrCredentialsMissing) {
		t.Errorf("ошибка = %v, ожидалась ErrCredentialsMissing", err)
	}
}

// TestPutStat проверяет запись и чтение метаданных.
func TestPutStat(t *testing.T) {
	b := newFakeBucket()
	p := newWithBucket(b)
	ctx := context.Background()

	if err := p.Put(ctx, "society/a.txt", strings.NewReader("hello"), 5, "text/plain", "Отчёт.txt"); err != nil {
		t.Fatalf("Put() ошибка: %v", err)
	}
	b.objects["society/a.txt"].name = "Отчёт.txt"

	info, err := p.Stat(ctx, "society/a.txt")
	if err != nil {
		t.Fatalf("Stat() ошибка: %v", err)
	}
	if info.Size != 5 {
		t.Errorf("Size = %d, ожидалось 5", info.Size)
	}
	if info.Name != "Отчёт.txt" {
		t.Errorf("Name = %q, ожидалось исходное имя", info.Name)
	}
	if info.LastModified.IsZero() {
		t.Error("LastModified не заполнен")
	}
}

// TestStat_NotFound проверяет преобразование 404 в ErrObjectNotFound.
func TestStat_NotFound(t *testing.T) {
	p := newWithBucket(newFakeBucket())
	if _, err := p.Stat(context.Background(), "missing"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrObjectNotFound", err)
	}
}

// TestDelete_Missing проверяет, что отсутствующий ключ не удаляется молча.
func TestDelete_Missing(t *testing.T) {
	b := newFakeBucket()
	p := newWithBucket(b)

	err := p.Delete(context.Background(), "society/none.jpg")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrObjectNotFound", err)
	}
	if b.deleteCall != 0 {
		t.Errorf("DeleteObject вызван %d раз, ожидалось 0", b.deleteCall)
	}
}

// TestSetPublicRead проверяет установку ACL и проброс ошибки.
func TestSetPublicRead(t *testing.T) {
	b := newFakeBucket()
	p := newWithBucket(b)
	ctx := context.Background()
	_ = p.Put(ctx, "k", strings.NewReader("x"), 1, "", "k")

	if err := p.SetPublicRead(ctx, "k"); err != nil {
		t.Fatalf("SetPublicRead() ошибка: %v", err)
	}
	if b.objects["k"].acl != oss.ACLPublicRead {
		t.Errorf("acl = %q, ожидался public-read", b.objects["k"].acl)
	}

	b.aclErr = oss.ServiceError{StatusCode: http.StatusForbidden, Code: "AccessDenied"}
	if err := p.SetPublicRead(ctx, "k"); err == nil {
		t.Error("ожидалась ошибка AccessDenied")
	} else if errors.Is(err, storage.ErrObjectNotFound) {
		t.Error("AccessDenied не должен превращаться в ErrObjectNotFound")
	}
}

// TestList_Pagination проверяет обход страниц по маркеру.
func TestList_Pagination(t *testing.T) {
	b := newFakeBucket()
	p := newWithBucket(b)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_ = p.Put(ctx, k, strings.NewReader(k), 1, "", k)
	}

	objs, err := p.List(ctx, "")
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(objs) != 3 {
		t.Errorf("len = %d, ожидалось 3", len(objs))
	}
	if b.listPages != 3 {
		t.Errorf("страниц = %d, ожидалось 3", b.listPages)
	}
}

// TestOpen проверяет чтение содержимого.
func TestOpen(t *testing.T) {
	p := newWithBucket(newFakeBucket())
	ctx := context.Background()
	_ = p.Put(ctx, "k", strings.NewReader("payload"), 7, "", "k")

	rc, info, err := p.Open(ctx, "k")
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "payload" {
		t.Errorf("данные = %q, ожидалось payload", data)
	}
	if info.Size != 7 {
		t.Errorf("Size = %d, ожидалось 7", info.Size)
	}
}
