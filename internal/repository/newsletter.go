package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// NewsletterRepository — CRUD для таблицы newsletters.
type NewsletterRepository interface {
	Store[model.Newsletter]
}

const newsletterColumns = `id, title, pdf_url, publish_date, created_at, updated_at`

var newsletterSpec = listSpec{
	table:   "newsletters",
	columns: newsletterColumns,
	sorts: map[string]string{
		"publishDate": "publish_date",
		"title":       "title",
	},
	defaultSort: "publish_date DESC",
}

type newsletterRepo struct {
	db DBTX
}

// NewNewsletterRepository создаёт репозиторий рассылок.
func NewNewsletterRepository(db DBTX) NewsletterRepository {
	return &newsletterRepo{db: db}
}

func scanNewsletter(row pgx.Row) (*model.Newsletter, error) {
	n := &model.Newsletter{}
	if err := row.Scan(&n.ID, &n.Title, &n.PdfURL, &n.PublishDate, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *newsletterRepo) Create(ctx context.Context, n *model.Newsletter) error {
	query := `
		INSERT INTO newsletters (id, title, pdf_url, publish_date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, n.ID, n.Title, n.PdfURL, n.PublishDate).
		Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания рассылки")
	}
	return nil
}

func (r *newsletterRepo) GetByID(ctx context.Context, id string) (*model.Newsletter, error) {
	n, err := scanNewsletter(r.db.QueryRow(ctx, `SELECT `+newsletterColumns+` FROM newsletters WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "рассылки")
	}
	return n, nil
}

func (r *newsletterRepo) List(ctx context.Context, q ListQuery) ([]*model.Newsletter, int, error) {
	return listRows(ctx, r.db, newsletterSpec, q, scanNewsletter)
}

func (r *newsletterRepo) Update(ctx context.Context, n *model.Newsletter) error {
	query := `
		UPDATE newsletters
		SET title = $2, pdf_url = $3, publish_date = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, n.ID, n.Title, n.PdfURL, n.PublishDate).
		Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления рассылки")
	}
	return nil
}

func (r *newsletterRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "newsletters", id)
}
