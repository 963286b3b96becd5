package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// OfflineFormRepository — CRUD для таблицы offline_forms.
type OfflineFormRepository interface {
	Store[model.OfflineForm]
}

const offlineFormColumns = `id, file_id, file_name, upload_date, is_active, created_at, updated_at`

var offlineFormSpec = listSpec{
	table:   "offline_forms",
	columns: offlineFormColumns,
	filters: map[string]filterField{
		"isActive": {column: "is_active", kind: filterBool},
	},
	sorts: map[string]string{
		"uploadDate": "upload_date",
		"fileName":   "file_name",
	},
	defaultSort: "upload_date DESC",
}

type offlineFormRepo struct {
	db DBTX
}

// NewOfflineFormRepository создаёт репозиторий бланков.
func NewOfflineFormRepository(db DBTX) OfflineFormRepository {
	return &offlineFormRepo{db: db}
}

func scanOfflineForm(row pgx.Row) (*model.OfflineForm, error) {
	f := &model.OfflineForm{}
	err := row.Scan(&f.ID, &f.FileID, &f.FileName, &f.UploadDate, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *offlineFormRepo) Create(ctx context.Context, f *model.OfflineForm) error {
	query := `
		INSERT INTO offline_forms (id, file_id, file_name, upload_date, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, f.ID, f.FileID, f.FileName, f.UploadDate, f.IsActive).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания бланка")
	}
	return nil
}

func (r *offlineFormRepo) GetByID(ctx context.Context, id string) (*model.OfflineForm, error) {
	f, err := scanOfflineForm(r.db.QueryRow(ctx, `SELECT `+offlineFormColumns+` FROM offline_forms WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "бланка")
	}
	return f, nil
}

func (r *offlineFormRepo) List(ctx context.Context, q ListQuery) ([]*model.OfflineForm, int, error) {
	return listRows(ctx, r.db, offlineFormSpec, q, scanOfflineForm)
}

func (r *offlineFormRepo) Update(ctx context.Context, f *model.OfflineForm) error {
	query := `
		UPDATE offline_forms
		SET file_id = $2, file_name = $3, upload_date = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, f.ID, f.FileID, f.FileName, f.UploadDate, f.IsActive).
		Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления бланка")
	}
	return nil
}

func (r *offlineFormRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "offline_forms", id)
}
