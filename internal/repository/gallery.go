package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// GalleryRepository — CRUD для таблицы gallery_items.
// Лента сортируется по upload_date DESC (индексы idx_gallery_*).
type GalleryRepository interface {
	Store[model.GalleryItem]
}

const galleryColumns = `id, title, description, image_url, upload_date, category, is_active,
	sort_order, created_at, updated_at`

var gallerySpec = listSpec{
	table:   "gallery_items",
	columns: galleryColumns,
	filters: map[string]filterField{
		"isActive": {column: "is_active", kind: filterBool},
		"category": {column: "category", kind: filterText},
	},
	sorts: map[string]string{
		"uploadDate": "upload_date",
		"order":      "sort_order",
		"title":      "title",
	},
	defaultSort: "upload_date DESC",
}

type galleryRepo struct {
	db DBTX
}

// NewGalleryRepository создаёт репозиторий галереи.
func NewGalleryRepository(db DBTX) GalleryRepository {
	return &galleryRepo{db: db}
}

func scanGalleryItem(row pgx.Row) (*model.GalleryItem, error) {
	g := &model.GalleryItem{}
	err := row.Scan(&g.ID, &g.Title, &g.Description, &g.ImageURL, &g.UploadDate,
		&g.Category, &g.IsActive, &g.Order, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *galleryRepo) Create(ctx context.Context, g *model.GalleryItem) error {
	query := `
		INSERT INTO gallery_items (id, title, description, image_url, upload_date, category,
			is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		g.ID, g.Title, g.Description, g.ImageURL, g.UploadDate, g.Category, g.IsActive, g.Order,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "создания элемента галереи")
	}
	return nil
}

func (r *galleryRepo) GetByID(ctx context.Context, id string) (*model.GalleryItem, error) {
	g, err := scanGalleryItem(r.db.QueryRow(ctx, `SELECT `+galleryColumns+` FROM gallery_items WHERE id = $1`, id))
	if err != nil {
		return nil, wrapReadError(err, "элемента галереи")
	}
	return g, nil
}

func (r *galleryRepo) List(ctx context.Context, q ListQuery) ([]*model.GalleryItem, int, error) {
	return listRows(ctx, r.db, gallerySpec, q, scanGalleryItem)
}

func (r *galleryRepo) Update(ctx context.Context, g *model.GalleryItem) error {
	query := `
		UPDATE gallery_items
		SET title = $2, description = $3, image_url = $4, upload_date = $5, category = $6,
			is_active = $7, sort_order = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		g.ID, g.Title, g.Description, g.ImageURL, g.UploadDate, g.Category, g.IsActive, g.Order,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return wrapWriteError(err, "обновления элемента галереи")
	}
	return nil
}

func (r *galleryRepo) Delete(ctx context.Context, id string) error {
	return execDelete(ctx, r.db, "gallery_items", id)
}
