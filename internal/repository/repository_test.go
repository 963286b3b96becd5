package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/society-backend/internal/config"
	"github.com/bigkaa/society-backend/internal/database"
	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
)

// setupTestDB запускает PostgreSQL контейнер и применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("society_test"),
		postgres.WithUsername("society"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}
	portNum, _ := strconv.Atoi(port.Port())

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     portNum,
		DBName:     "society_test",
		DBUser:     "society",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// --- Тесты MemberRepository ---

func TestMemberCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewMemberRepository(pool)

	m := &model.Member{
		Base:           model.Base{ID: uuid.New().String()},
		Name:           "Anita Rao",
		Address:        "12 Lake Road, Pune",
		MembershipType: model.MembershipLife,
		DateJoined:     time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:         model.MemberActive,
	}

	// Create
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if m.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}
	if !m.CreatedAt.Equal(m.UpdatedAt) {
		t.Errorf("после вставки CreatedAt = %v, UpdatedAt = %v, ожидалось равенство", m.CreatedAt, m.UpdatedAt)
	}

	// GetByID
	got, err := repo.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Name != "Anita Rao" {
		t.Errorf("Name = %q, хотели %q", got.Name, "Anita Rao")
	}

	// Search по частичному совпадению без учёта регистра
	list, total, err := repo.List(ctx, ListQuery{Search: "lake"})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("List(search) вернул total=%d len=%d, хотели 1", total, len(list))
	}

	// Update
	got.Status = model.MemberInactive
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("UpdatedAt %v раньше CreatedAt %v", got.UpdatedAt, got.CreatedAt)
	}

	// Delete
	if err := repo.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() после удаления: ошибка = %v, ожидалась ErrNotFound", err)
	}
	if err := repo.Delete(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete(): ошибка = %v, ожидалась ErrNotFound", err)
	}
}

// TestGetByID_MalformedID проверяет, что id не в формате UUID даёт ErrNotFound.
func TestGetByID_MalformedID(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewEventRepository(pool)

	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ошибка = %v, ожидалась ErrNotFound", err)
	}
}

// TestCommittee_CheckViolation проверяет, что CHECK на sort_order даёт ошибку валидации.
func TestCommittee_CheckViolation(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewCommitteeRepository(pool)

	c := &model.Committee{
		Base:          model.Base{ID: uuid.New().String()},
		Name:          "Cultural",
		Advisor:       "A",
		Chairperson:   "B",
		CoChairperson: "C",
		IsActive:      model.Bool(true),
		Order:         model.MaxOrder + 1,
	}
	err := repo.Create(context.Background(), c)
	if !errors.Is(err, validate.ErrValidation) {
		t.Errorf("ошибка = %v, ожидалась ошибка валидации", err)
	}
}

// TestGallery_ListOrder проверяет сортировку ленты по upload_date DESC.
func TestGallery_ListOrder(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewGalleryRepository(pool)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"old", "new", "hidden"} {
		g := &model.GalleryItem{
			Base:       model.Base{ID: uuid.New().String()},
			Title:      title,
			ImageURL:   "society/gallery/" + title + ".jpg",
			UploadDate: base.Add(time.Duration(i) * time.Hour),
			Category:   model.DefaultGalleryCategory,
			IsActive:   model.Bool(title != "hidden"),
		}
		if err := repo.Create(ctx, g); err != nil {
			t.Fatalf("Create(%s) ошибка: %v", title, err)
		}
	}

	list, total, err := repo.List(ctx, ListQuery{Filters: map[string]string{"isActive": "true"}})
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, хотели 2", total)
	}
	if list[0].Title != "new" || list[1].Title != "old" {
		t.Errorf("порядок = [%s %s], хотели [new old]", list[0].Title, list[1].Title)
	}
}

// --- Тесты ApplicationRepository ---

func newTestApplication() *model.MembershipApplication {
	return &model.MembershipApplication{
		Base:              model.Base{ID: uuid.New().String()},
		Name:              "Ravi Kumar",
		Address:           "4 Hill Street",
		District:          "Nagpur",
		PinCode:           "440001",
		State:             "Maharashtra",
		Mobile:            "9876543210",
		Email:             "ravi@example.com",
		MembershipType:    model.MembershipAnnual,
		Qualification:     "B.Sc",
		DateOfBirth:       time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		PaymentScreenshot: "society/payments/receipt_20240101120000_abcd1234.png",
		Status:            workflow.ApplicationPending,
		SubmittedAt:       time.Now().UTC(),
	}
}

func TestApplicationDecide(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewApplicationRepository(pool)

	a := newTestApplication()
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	reason := "Incomplete documents"
	d := model.Decision{
		Status:          workflow.ApplicationRejected,
		ProcessedAt:     time.Now().UTC(),
		ProcessedBy:     "secretary",
		RejectionReason: &reason,
	}
	got, err := repo.Decide(ctx, a.ID, workflow.ApplicationPending, d)
	if err != nil {
		t.Fatalf("Decide() ошибка: %v", err)
	}
	if got.Status != workflow.ApplicationRejected {
		t.Errorf("Status = %q, хотели Rejected", got.Status)
	}
	if got.ProcessedAt == nil {
		t.Error("ProcessedAt не установлен")
	}
	if got.RejectionReason == nil || *got.RejectionReason != reason {
		t.Errorf("RejectionReason = %v, хотели %q", got.RejectionReason, reason)
	}

	// Повторное решение по уже рассмотренной заявке
	if _, err := repo.Decide(ctx, a.ID, workflow.ApplicationPending, d); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный Decide(): ошибка = %v, ожидалась ErrConflict", err)
	}
	// Несуществующая заявка
	if _, err := repo.Decide(ctx, uuid.New().String(), workflow.ApplicationPending, d); !errors.Is(err, ErrNotFound) {
		t.Errorf("Decide(unknown): ошибка = %v, ожидалась ErrNotFound", err)
	}
}

// --- Тесты InquiryRepository ---

func TestInquirySetStatus(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewInquiryRepository(pool)

	c := &model.ContactInquiry{
		Base:    model.Base{ID: uuid.New().String()},
		Name:    "Meera",
		Email:   "meera@example.com",
		Message: "When is the next meeting?",
		Status:  string(workflow.InquiryNew),
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	got, err := repo.SetStatus(ctx, c.ID, workflow.InquiryNew, workflow.InquiryResponded)
	if err != nil {
		t.Fatalf("SetStatus() ошибка: %v", err)
	}
	if got.Status != string(workflow.InquiryResponded) {
		t.Errorf("Status = %q, хотели Responded", got.Status)
	}
	if _, err := repo.SetStatus(ctx, c.ID, workflow.InquiryNew, workflow.InquiryResponded); !errors.Is(err, ErrConflict) {
		t.Errorf("повторный SetStatus(): ошибка = %v, ожидалась ErrConflict", err)
	}
}

// --- Тесты FileReferenceRepository ---

func TestListReferencedFileIDs(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	a := newTestApplication()
	pdf := "society/applications/form_20240101120000_ffff0000.pdf"
	a.ApplicationPDF = &pdf
	if err := NewApplicationRepository(pool).Create(ctx, a); err != nil {
		t.Fatalf("Create(application) ошибка: %v", err)
	}
	n := &model.Newsletter{
		Base:        model.Base{ID: uuid.New().String()},
		Title:       "Spring issue",
		PdfURL:      "society/newsletters/spring.pdf",
		PublishDate: time.Now().UTC(),
	}
	if err := NewNewsletterRepository(pool).Create(ctx, n); err != nil {
		t.Fatalf("Create(newsletter) ошибка: %v", err)
	}

	ids, err := NewFileReferenceRepository(pool).ListReferencedFileIDs(ctx)
	if err != nil {
		t.Fatalf("ListReferencedFileIDs() ошибка: %v", err)
	}
	for _, want := range []string{a.PaymentScreenshot, pdf, n.PdfURL} {
		if _, ok := ids[want]; !ok {
			t.Errorf("идентификатор %q не найден среди ссылок", want)
		}
	}
	if len(ids) != 3 {
		t.Errorf("len(ids) = %d, хотели 3", len(ids))
	}
}
