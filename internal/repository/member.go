package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// MemberRepository — CRUD для таблицы members.
type MemberRepository interface {
	Store[model.Member]
}

const memberColumns = `id, name, address, membership_type, date_joined, status, created_at, updated_at`

var memberSpec = listSpec{
	table:        "members",
	columns:      memberColumns,
	search:       []string{"name", "address"},
	searchVector: "to_tsvector('simple', name || ' ' || address)",
	filters: map[string]filterField{
		"status":         {column: "status", kind: filterText},
		"membershipType": {column: "membership_type", kind: filterText},
	},
	sorts: map[string]string{
		"name":       "name",
		"dateJoined": "date_joined",
		"createdAt":  "created_at",
	},
	defaultSort: "created_at DESC",
}

type memberRepo struct {
	db DBTX
}

// NewMemberRepository создаёт репозиторий членов общества.
func NewMemberRepository(db DBTX) MemberRepository {
	return &memberRepo{db: db}
}

func scanMember(row pgx.Row) (*model.Member, error) {
	m := &model.Member{}
	err := row.Scan(&m.ID, &m.Name, &m.Address, &m.MembershipType, &m.DateJoined,
		&m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *memberRepo) Create(ctx context.Context, m *model.Member) error {
	query := `
		INSERT INTO members (id, name, address, membership_type, date_joined, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.Name, m.Address, m.MembershipType, m.DateJoined, m.Status,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания члена общества")
	}
	return nil
}

func (r *memberRepo) GetByID(ctx context.Context, id string) (*model.Member, error) {
	m, err := scanMember(r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "члена общества")
	}
	return m, nil
}

func (r *memberRepo) List(ctx context.Context, q ListQuery) ([]*model.Member, int, error) {
	return listRows(ctx, r.db, memberSpec, q, scanMember)
}

func (r *memberRepo) Update(ctx context.Context, m *model.Member) error {
	query := `
		UPDATE members
		SET name = $2, address = $3, membership_type = $4, date_joined = $5, status = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.Name, m.Address, m.MembershipType, m.DateJoined, m.Status,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления члена общества")
	}
	return nil
}

func (r *memberRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "members", id)
}
