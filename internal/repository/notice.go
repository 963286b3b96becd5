package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// NoticeRepository — CRUD для таблицы notices.
// Истёкшие объявления не удаляются; фильтр active=true отбирает неистёкшие.
type NoticeRepository interface {
	Store[model.Notice]
}

const noticeColumns = `id, title, content, expiry_date, pdf_file_id, pdf_file_name, pdf_view_url,
	pdf_download_url, created_at, updated_at`

var noticeSpec = listSpec{
	table:   "notices",
	columns: noticeColumns,
	search:  []string{"title", "content"},
	filters: map[string]filterField{
		"active": {column: "expiry_date", kind: filterNotExpired},
	},
	sorts: map[string]string{
		"expiryDate": "expiry_date",
		"createdAt":  "created_at",
		"title":      "title",
	},
	defaultSort: "created_at DESC",
}

type noticeRepo struct {
	db DBTX
}

// NewNoticeRepository создаёт репозиторий объявлений.
func NewNoticeRepository(db DBTX) NoticeRepository {
	return &noticeRepo{db: db}
}

func scanNotice(row pgx.Row) (*model.Notice, error) {
	n := &model.Notice{}
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.ExpiryDate, &n.PdfFileID, &n.PdfFileName,
		&n.PdfViewURL, &n.PdfDownloadURL, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *noticeRepo) Create(ctx context.Context, n *model.Notice) error {
	query := `
		INSERT INTO notices (id, title, content, expiry_date, pdf_file_id, pdf_file_name,
			pdf_view_url, pdf_download_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		n.ID, n.Title, n.Content, n.ExpiryDate, n.PdfFileID, n.PdfFileName,
		n.PdfViewURL, n.PdfDownloadURL,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания объявления")
	}
	return nil
}

func (r *noticeRepo) GetByID(ctx context.Context, id string) (*model.Notice, error) {
	n, err := scanNotice(r.db.QueryRow(ctx, `SELECT `+noticeColumns+` FROM notices WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "объявления")
	}
	return n, nil
}

func (r *noticeRepo) List(ctx context.Context, q ListQuery) ([]*model.Notice, int, error) {
	return listRows(ctx, r.db, noticeSpec, q, scanNotice)
}

func (r *noticeRepo) Update(ctx context.Context, n *model.Notice) error {
	query := `
		UPDATE notices
		SET title = $2, content = $3, expiry_date = $4, pdf_file_id = $5, pdf_file_name = $6,
			pdf_view_url = $7, pdf_download_url = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		n.ID, n.Title, n.Content, n.ExpiryDate, n.PdfFileID, n.PdfFileName,
		n.PdfViewURL, n.PdfDownloadURL,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления объявления")
	}
	return nil
}

func (r *noticeRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "notices", id)
}
