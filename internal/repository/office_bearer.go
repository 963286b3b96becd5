package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// OfficeBearerRepository — CRUD для таблицы office_bearers.
type OfficeBearerRepository interface {
	Store[model.OfficeBearer]
}

const officeBearerColumns = `id, name, designation, mobile, email, photo_url, year, is_current,
	sort_order, created_at, updated_at`

var officeBearerSpec = listSpec{
	table:   "office_bearers",
	columns: officeBearerColumns,
	search:  []string{"name", "designation"},
	filters: map[string]filterField{
		"isCurrent": {column: "is_current", kind: filterBool},
		"year":      {column: "year", kind: filterInt},
	},
	sorts: map[string]string{
		"order": "sort_order",
		"year":  "year",
		"name":  "name",
	},
	defaultSort: "sort_order ASC, name ASC",
}

type officeBearerRepo struct {
	db DBTX
}

// NewOfficeBearerRepository создаёт репозиторий должностных лиц.
func NewOfficeBearerRepository(db DBTX) OfficeBearerRepository {
	return &officeBearerRepo{db: db}
}

func scanOfficeBearer(row pgx.Row) (*model.OfficeBearer, error) {
	o := &model.OfficeBearer{}
	err := row.Scan(&o.ID, &o.Name, &o.Designation, &o.Mobile, &o.Email, &o.PhotoURL,
		&o.Year, &o.IsCurrent, &o.Order, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *officeBearerRepo) Create(ctx context.Context, o *model.OfficeBearer) error {
	query := `
		INSERT INTO office_bearers (id, name, designation, mobile, email, photo_url, year,
			is_current, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		o.ID, o.Name, o.Designation, o.Mobile, o.Email, o.PhotoURL, o.Year, o.IsCurrent, o.Order,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания должностного лица")
	}
	return nil
}

func (r *officeBearerRepo) GetByID(ctx context.Context, id string) (*model.OfficeBearer, error) {
	o, err := scanOfficeBearer(r.db.QueryRow(ctx, `SELECT `+officeBearerColumns+` FROM office_bearers WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "должностного лица")
	}
	return o, nil
}

func (r *officeBearerRepo) List(ctx context.Context, q ListQuery) ([]*model.OfficeBearer, int, error) {
	return listRows(ctx, r.db, officeBearerSpec, q, scanOfficeBearer)
}

func (r *officeBearerRepo) Update(ctx context.Context, o *model.OfficeBearer) error {
	query := `
		UPDATE office_bearers
		SET name = $2, designation = $3, mobile = $4, email = $5, photo_url = $6, year = $7,
			is_current = $8, sort_order = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		o.ID, o.Name, o.Designation, o.Mobile, o.Email, o.PhotoURL, o.Year, o.IsCurrent, o.Order,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления должностного лица")
	}
	return nil
}

func (r *officeBearerRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "office_bearers", id)
}
