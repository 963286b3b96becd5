package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
)

// ApplicationRepository — хранилище заявок на вступление.
// Заявка не редактируется: меняется только результат рассмотрения (Decide).
type ApplicationRepository interface {
	Create(ctx context.Context, a *model.MembershipApplication) error
	GetByID(ctx context.Context, id string) (*model.MembershipApplication, error)
	List(ctx context.Context, q ListQuery) ([]*model.MembershipApplication, int, error)
	Delete(ctx context.Context, id string) error
	// Decide атомарно переводит заявку из статуса from в d.Status.
	// ErrNotFound — заявки нет; ErrConflict — текущий статус отличается от from.
	Decide(ctx context.Context, id string, from workflow.ApplicationStatus, d model.Decision) (*model.MembershipApplication, error)
}

const applicationColumns = `id, name, address, district, pin_code, state, mobile, email,
	membership_type, qualification, date_of_birth, payment_screenshot, application_pdf,
	status, submitted_at, processed_at, processed_by, rejection_reason, created_at, updated_at`

var applicationSpec = listSpec{
	table:   "membership_applications",
	columns: applicationColumns,
	search:  []string{"name", "email", "mobile"},
	filters: map[string]filterField{
		"status":         {column: "status", kind: filterText},
		"membershipType": {column: "membership_type", kind: filterText},
	},
	sorts: map[string]string{
		"submittedAt": "submitted_at",
		"processedAt": "processed_at",
		"name":        "name",
	},
	defaultSort: "submitted_at DESC",
}

type applicationRepo struct {
	db DBTX
}

// NewApplicationRepository создаёт репозиторий заявок.
func NewApplicationRepository(db DBTX) ApplicationRepository {
	return &applicationRepo{db: db}
}

func scanApplication(row pgx.Row) (*model.MembershipApplication, error) {
	a := &model.MembershipApplication{}
	err := row.Scan(
		&a.ID, &a.Name, &a.Address, &a.District, &a.PinCode, &a.State, &a.Mobile, &a.Email,
		&a.MembershipType, &a.Qualification, &a.DateOfBirth, &a.PaymentScreenshot, &a.ApplicationPDF,
		&a.Status, &a.SubmittedAt, &a.ProcessedAt, &a.ProcessedBy, &a.RejectionReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *applicationRepo) Create(ctx context.Context, a *model.MembershipApplication) error {
	query := `
		INSERT INTO membership_applications (id, name, address, district, pin_code, state, mobile,
			email, membership_type, qualification, date_of_birth, payment_screenshot,
			application_pdf, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.Name, a.Address, a.District, a.PinCode, a.State, a.Mobile,
		a.Email, a.MembershipType, a.Qualification, a.DateOfBirth, a.PaymentScreenshot,
		a.ApplicationPDF, string(a.Status), a.SubmittedAt,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания заявки")
	}
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (*model.MembershipApplication, error) {
	a, err := scanApplication(r.db.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM membership_applications WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "заявки")
	}
	return a, nil
}

func (r *applicationRepo) List(ctx context.Context, q ListQuery) ([]*model.MembershipApplication, int, error) {
	return listRows(ctx, r.db, applicationSpec, q, scanApplication)
}

func (r *applicationRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "membership_applications", id)
}

func (r *applicationRepo) Decide(ctx context.Context, id string, from workflow.ApplicationStatus, d model.Decision) (*model.MembershipApplication, error) {
	query := `
		UPDATE membership_applications
		SET status = $3, processed_at = $4, processed_by = $5, rejection_reason = $6,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + applicationColumns

	a, err := scanApplication(r.db.QueryRow(ctx, query,
		id, string(from), string(d.Status), d.ProcessedAt, d.ProcessedBy, d.RejectionReason))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapWriteError(err, "рассмотрения заявки")
	}

	// Ни одной строки: заявки нет либо её статус уже изменился.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}
