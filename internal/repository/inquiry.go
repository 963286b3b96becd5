package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
)

// InquiryRepository — хранилище обращений обратной связи.
type InquiryRepository interface {
	Create(ctx context.Context, c *model.ContactInquiry) error
	GetByID(ctx context.Context, id string) (*model.ContactInquiry, error)
	List(ctx context.Context, q ListQuery) ([]*model.ContactInquiry, int, error)
	Delete(ctx context.Context, id string) error
	// SetStatus атомарно переводит обращение из from в to.
	// ErrNotFound — обращения нет; ErrConflict — текущий статус отличается от from.
	SetStatus(ctx context.Context, id string, from, to workflow.InquiryStatus) (*model.ContactInquiry, error)
}

const inquiryColumns = `id, name, email, phone, message, status, created_at, updated_at`

var inquirySpec = listSpec{
	table:   "contact_inquiries",
	columns: inquiryColumns,
	search:  []string{"name", "email"},
	filters: map[string]filterField{
		"status": {column: "status", kind: filterText},
	},
	sorts: map[string]string{
		"createdAt": "created_at",
		"name":      "name",
	},
	defaultSort: "created_at DESC",
}

type inquiryRepo struct {
	db DBTX
}

// NewInquiryRepository создаёт репозиторий обращений.
func NewInquiryRepository(db DBTX) InquiryRepository {
	return &inquiryRepo{db: db}
}

func scanInquiry(row pgx.Row) (*model.ContactInquiry, error) {
	c := &model.ContactInquiry{}
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Message, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *inquiryRepo) Create(ctx context.Context, c *model.ContactInquiry) error {
	query := `
		INSERT INTO contact_inquiries (id, name, email, phone, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, c.ID, c.Name, c.Email, c.Phone, c.Message, c.Status).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания обращения")
	}
	return nil
}

func (r *inquiryRepo) GetByID(ctx context.Context, id string) (*model.ContactInquiry, error) {
	c, err := scanInquiry(r.db.QueryRow(ctx, `SELECT `+inquiryColumns+` FROM contact_inquiries WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "обращения")
	}
	return c, nil
}

func (r *inquiryRepo) List(ctx context.Context, q ListQuery) ([]*model.ContactInquiry, int, error) {
	return listRows(ctx, r.db, inquirySpec, q, scanInquiry)
}

func (r *inquiryRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "contact_inquiries", id)
}

func (r *inquiryRepo) SetStatus(ctx context.Context, id string, from, to workflow.InquiryStatus) (*model.ContactInquiry, error) {
	query := `
		UPDATE contact_inquiries
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + inquiryColumns

	c, err := scanInquiry(r.db.QueryRow(ctx, query, id, string(from), string(to)))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, wrapWriteError(err, "смены статуса обращения")
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}
