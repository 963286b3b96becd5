package repository

import (
	"context"
	"fmt"
)

// FileReferenceRepository собирает идентификаторы файлов, на которые
// ссылаются записи. Используется при очистке осиротевших объектов.
type FileReferenceRepository interface {
	ListReferencedFileIDs(ctx context.Context) (map[string]struct{}, error)
}

// referencedFileIDsQuery объединяет все колонки-ссылки на файлы.
const referencedFileIDsQuery = `
	SELECT image_url FROM gallery_items
	UNION SELECT pdf_url FROM newsletters
	UNION SELECT pdf_file_id FROM notices WHERE pdf_file_id IS NOT NULL
	UNION SELECT photo_url FROM office_bearers WHERE photo_url IS NOT NULL
	UNION SELECT file_id FROM offline_forms
	UNION SELECT payment_screenshot FROM membership_applications
	UNION SELECT application_pdf FROM membership_applications WHERE application_pdf IS NOT NULL`

type fileReferenceRepo struct {
	db DBTX
}

// NewFileReferenceRepository создаёт репозиторий ссылок на файлы.
func NewFileReferenceRepository(db DBTX) FileReferenceRepository {
	return &fileReferenceRepo{db: db}
}

func (r *fileReferenceRepo) ListReferencedFileIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, referencedFileIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ссылок на файлы: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка чтения ссылки на файл: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации ссылок на файлы: %w", err)
	}
	return ids, nil
}
