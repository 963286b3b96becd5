package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/society-backend/internal/config"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
	"github.com/bigkaa/society-backend/internal/repository"
	"github.com/bigkaa/society-backend/internal/service"
	"github.com/bigkaa/society-backend/internal/storage"
	"github.com/bigkaa/society-backend/internal/storage/localprovider"
)

type entityPtr[T any] interface {
	*T
	model.Entity
}

// memStore — repository.Store в памяти.
type memStore[T any, P entityPtr[T]] struct {
	mu   sync.Mutex
	rows map[string]T
}

func newMemStore[T any, P entityPtr[T]]() *memStore[T, P] {
	return &memStore[T, P]{rows: make(map[string]T)}
}

func (m *memStore[T, P]) Create(_ context.Context, rec *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta := P(rec).Meta()
	now := time.Now().UTC()
	meta.CreatedAt, meta.UpdatedAt = now, now
	m.rows[meta.ID] = *rec
	return nil
}

func (m *memStore[T, P]) GetByID(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (m *memStore[T, P]) List(context.Context, repository.ListQuery) ([]*T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*T, 0, len(m.rows))
	for _, rec := range m.rows {
		items = append(items, &rec)
	}
	return items, len(items), nil
}

func (m *memStore[T, P]) Update(_ context.Context, rec *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta := P(rec).Meta()
	if _, ok := m.rows[meta.ID]; !ok {
		return repository.ErrNotFound
	}
	meta.UpdatedAt = time.Now().UTC()
	m.rows[meta.ID] = *rec
	return nil
}

func (m *memStore[T, P]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memApplications struct {
	*memStore[model.MembershipApplication, *model.MembershipApplication]
}

func (m *memApplications) Decide(_ context.Context, id string, from workflow.ApplicationStatus, d model.Decision) (*model.MembershipApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != from {
		return nil, repository.ErrConflict
	}
	processedAt, processedBy := d.ProcessedAt, d.ProcessedBy
	a.Status = d.Status
	a.ProcessedAt = &processedAt
	a.ProcessedBy = &processedBy
	a.RejectionReason = d.RejectionReason
	m.rows[id] = a
	return &a, nil
}

type memInquiries struct {
	*memStore[model.ContactInquiry, *model.ContactInquiry]
}

func (m *memInquiries) SetStatus(_ context.Context, id string, from, to workflow.InquiryStatus) (*model.ContactInquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Status != string(from) {
		return nil, repository.ErrConflict
	}
	c.Status = string(to)
	m.rows[id] = c
	return &c, nil
}

// testAPI — роутер поверх репозиториев в памяти и local-хранилища во временной директории.
type testAPI struct {
	router       http.Handler
	applications *memApplications
	provider     *localprovider.Provider
}

const testMaxUpload = 1 << 20

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := testLogger()

	provider, err := localprovider.New(t.TempDir())
	if err != nil {
		t.Fatalf("localprovider.New() ошибка: %v", err)
	}
	urls := storage.NewURLBuilder("http://localhost:8080/storage", config.ProviderLocal)
	folders := config.FolderConfig{
		Root:              "society",
		Gallery:           "society/gallery",
		PaymentScreenshot: "society/payments",
		Application:       "society/applications",
	}
	files := service.NewFileService(
		func() (storage.Provider, error) { return provider, nil },
		urls, folders, service.NewFileInfoCache(100, time.Minute), logger,
	)

	apps := &memApplications{newMemStore[model.MembershipApplication, *model.MembershipApplication]()}
	inquiries := &memInquiries{newMemStore[model.ContactInquiry, *model.ContactInquiry]()}
	refs := refsFunc(func(context.Context) (map[string]struct{}, error) { return map[string]struct{}{}, nil })

	svc := Services{
		Members:       service.NewMemberService(newMemStore[model.Member, *model.Member](), logger),
		Committees:    service.NewCommitteeService(newMemStore[model.Committee, *model.Committee](), logger),
		Events:        service.NewEventService(newMemStore[model.Event, *model.Event](), logger),
		Gallery:       service.NewGalleryService(newMemStore[model.GalleryItem, *model.GalleryItem](), files, logger),
		Newsletters:   service.NewNewsletterService(newMemStore[model.Newsletter, *model.Newsletter](), files, logger),
		Notices:       service.NewNoticeService(newMemStore[model.Notice, *model.Notice](), files, logger),
		OfficeBearers: service.NewOfficeBearerService(newMemStore[model.OfficeBearer, *model.OfficeBearer](), files, logger),
		OfflineForms:  service.NewOfflineFormService(newMemStore[model.OfflineForm, *model.OfflineForm](), files, logger),
		Applications:  service.NewApplicationService(apps, files, logger),
		Inquiries:     service.NewInquiryService(inquiries, logger),
		Files:         files,
		ImageProxy:    service.NewImageProxyService(urls, config.ProviderLocal, 5*time.Second, time.Hour, logger),
		Sweeper:       service.NewOrphanSweeper(refs, files, time.Hour, true, logger),
	}

	health := NewHealthHandler(readyStub{status: "ok"}, files)
	api := NewAPIHandler(health, svc, testMaxUpload, NewLocalStorageHandler(provider, logger), logger)

	r := chi.NewRouter()
	api.Routes(r)
	return &testAPI{router: r, applications: apps, provider: provider}
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// refsFunc — repository.FileReferenceRepository из функции.
type refsFunc func(ctx context.Context) (map[string]struct{}, error)

func (f refsFunc) ListReferencedFileIDs(ctx context.Context) (map[string]struct{}, error) {
	return f(ctx)
}

type readyStub struct {
	status, message string
}

func (s readyStub) CheckReady() (string, string) { return s.status, s.message }
