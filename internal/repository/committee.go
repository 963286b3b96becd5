package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// CommitteeRepository — CRUD для таблицы committees.
type CommitteeRepository interface {
	Store[model.Committee]
}

const committeeColumns = `id, name, advisor, chairperson, co_chairperson, description,
	is_active, sort_order, created_at, updated_at`

var committeeSpec = listSpec{
	table:        "committees",
	columns:      committeeColumns,
	search:       []string{"name", "advisor", "chairperson", "co_chairperson"},
	searchVector: "to_tsvector('simple', name || ' ' || advisor || ' ' || chairperson || ' ' || co_chairperson)",
	filters: map[string]filterField{
		"isActive": {column: "is_active", kind: filterBool},
	},
	sorts: map[string]string{
		"name":      "name",
		"order":     "sort_order",
		"createdAt": "created_at",
	},
	defaultSort: "sort_order ASC, name ASC",
}

type committeeRepo struct {
	db DBTX
}

// NewCommitteeRepository создаёт репозиторий комитетов.
func NewCommitteeRepository(db DBTX) CommitteeRepository {
	return &committeeRepo{db: db}
}

func scanCommittee(row pgx.Row) (*model.Committee, error) {
	c := &model.Committee{}
	err := row.Scan(&c.ID, &c.Name, &c.Advisor, &c.Chairperson, &c.CoChairperson,
		&c.Description, &c.IsActive, &c.Order, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *committeeRepo) Create(ctx context.Context, c *model.Committee) error {
	query := `
		INSERT INTO committees (id, name, advisor, chairperson, co_chairperson, description,
			is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Name, c.Advisor, c.Chairperson, c.CoChairperson, c.Description,
		c.IsActive, c.Order,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания комитета")
	}
	return nil
}

func (r *committeeRepo) GetByID(ctx context.Context, id string) (*model.Committee, error) {
	c, err := scanCommittee(r.db.QueryRow(ctx, `SELECT `+committeeColumns+` FROM committees WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "комитета")
	}
	return c, nil
}

func (r *committeeRepo) List(ctx context.Context, q ListQuery) ([]*model.Committee, int, error) {
	return listRows(ctx, r.db, committeeSpec, q, scanCommittee)
}

func (r *committeeRepo) Update(ctx context.Context, c *model.Committee) error {
	query := `
		UPDATE committees
		SET name = $2, advisor = $3, chairperson = $4, co_chairperson = $5, description = $6,
			is_active = $7, sort_order = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Name, c.Advisor, c.Chairperson, c.CoChairperson, c.Description,
		c.IsActive, c.Order,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления комитета")
	}
	return nil
}

func (r *committeeRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "committees", id)
}
