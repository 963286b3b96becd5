package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bigkaa/society-backend/internal/config"
	"github.com/bigkaa/society-backend/internal/storage"
)

// memProvider — storage.Provider в памяти для тестов сервисов.
type memProvider struct {
	mu      sync.Mutex
	objects map[string]*memObject

	putErr  error
	aclErr  error
	pingErr error

	putKeys    []string
	deleteKeys []string
	statCalls  int
}

type memObject struct {
	data     []byte
	mime     string
	name     string
	public   bool
	modified time.Time
}

func newMemProvider() *memProvider {
	return &memProvider{objects: make(map[string]*memObject)}
}

func (p *memProvider) Ping(context.Context) error { return p.pingErr }

func (p *memProvider) Put(_ context.Context, key string, r io.Reader, _ int64, contentType, originalName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.putKeys = append(p.putKeys, key)
	if p.putErr != nil {
		return p.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.objects[key] = &memObject{data: data, mime: contentType, name: originalName, modified: time.Now()}
	return nil
}

func (p *memProvider) SetPublicRead(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.aclErr != nil {
		return p.aclErr
	}
	obj, ok := p.objects[key]
	if !ok {
		return storage.ErrObjectNotFound
	}
	obj.public = true
	return nil
}

func (p *memProvider) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statCalls++
	obj, ok := p.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.ObjectInfo{Key: key, Name: obj.name, ContentType: obj.mime,
		Size: int64(len(obj.data)), LastModified: obj.modified}, nil
}

func (p *memProvider) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteKeys = append(p.deleteKeys, key)
	if _, ok := p.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(p.objects, key)
	return nil
}

func (p *memProvider) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []storage.ObjectInfo
	for key, obj := range p.objects {
		if strings.HasPrefix(key, prefix) {
			result = append(result, storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	return result, nil
}

func (p *memProvider) Open(_ context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	p.mu.Lock()
	obj, ok := p.objects[key]
	p.mu.Unlock()
	if !ok {
		return nil, nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), &storage.ObjectInfo{Key: key, ContentType: obj.mime}, nil
}

// put кладёт объект напрямую, минуя сервис.
func (p *memProvider) put(key string, modified time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = &memObject{data: []byte("x"), modified: modified}
}

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.objects[key]
	return ok
}

var errBoom = errors.New("boom")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFolders() config.FolderConfig {
	return config.FolderConfig{
		Root:              "society",
		Gallery:           "society/gallery",
		PaymentScreenshot: "society/payments",
		Application:       "society/applications",
	}
}

// newTestFileService создаёт FileService поверх провайдера в памяти.
func newTestFileService(p *memProvider, folders config.FolderConfig) *FileService {
	factory := func() (storage.Provider, error) { return p, nil }
	return NewFileService(factory, storage.NewURLBuilder("https://cdn.example.com", config.ProviderOSS),
		folders, NewFileInfoCache(100, time.Minute), testLogger())
}
