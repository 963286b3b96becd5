package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// EventRepository — CRUD для таблицы events.
type EventRepository interface {
	Store[model.Event]
}

const eventColumns = `id, name, short_description, description, event_date, location, status,
	created_at, updated_at`

var eventSpec = listSpec{
	table:   "events",
	columns: eventColumns,
	filters: map[string]filterField{
		"status": {column: "status", kind: filterText},
	},
	sorts: map[string]string{
		"date":      "event_date",
		"name":      "name",
		"createdAt": "created_at",
	},
	defaultSort: "event_date DESC",
}

type eventRepo struct {
	db DBTX
}

// NewEventRepository создаёт репозиторий мероприятий.
func NewEventRepository(db DBTX) EventRepository {
	return &eventRepo{db: db}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	e := &model.Event{}
	err := row.Scan(&e.ID, &e.Name, &e.ShortDescription, &e.Description, &e.Date,
		&e.Location, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepo) Create(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO events (id, name, short_description, description, event_date, location, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.Name, e.ShortDescription, e.Description, e.Date, e.Location, e.Status,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания мероприятия")
	}
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "мероприятия")
	}
	return e, nil
}

func (r *eventRepo) List(ctx context.Context, q ListQuery) ([]*model.Event, int, error) {
	return listRows(ctx, r.db, eventSpec, q, scanEvent)
}

func (r *eventRepo) Update(ctx context.Context, e *model.Event) error {
	query := `
		UPDATE events
		SET name = $2, short_description = $3, description = $4, event_date = $5,
			location = $6, status = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.Name, e.ShortDescription, e.Description, e.Date, e.Location, e.Status,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления мероприятия")
	}
	return nil
}

func (r *eventRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "events", id)
}
