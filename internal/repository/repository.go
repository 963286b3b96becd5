// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/society-backend/internal/domain/validate"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности или состояния записи.
	ErrConflict = errors.New("конфликт — запись уже существует или изменена")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store — общий CRUD-контракт репозиториев записей.
type Store[T any] interface {
	// Create вставляет запись; created_at и updated_at заполняются из БД.
	Create(ctx context.Context, rec *T) error
	// GetByID возвращает запись по UUID.
	GetByID(ctx context.Context, id string) (*T, error)
	// List возвращает страницу записей и общее количество по фильтрам.
	List(ctx context.Context, q ListQuery) ([]*T, int, error)
	// Update перезаписывает изменяемые поля; updated_at обновляется из БД.
	Update(ctx context.Context, rec *T) error
	// Delete удаляет запись.
	Delete(ctx context.Context, id string) error
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == "23505" // unique_violation
}

// isCheckViolation — нарушение CHECK-ограничения (enum, границы order).
func isCheckViolation(err error) bool {
	return pgErrorCode(err) == "23514" // check_violation
}

// isInvalidText — некорректный литерал (например, id не UUID).
func isInvalidText(err error) bool {
	return pgErrorCode(err) == "22P02" // invalid_text_representation
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrapWriteError приводит ошибку записи к ошибкам слоя.
// what — описание операции для сообщения ("создания члена", ...).
func wrapWriteError(err error, what string) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows), isInvalidText(err):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %s", ErrConflict, what)
	case isCheckViolation(err):
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return validate.Field(pgErr.ConstraintName, "check", "нарушено ограничение БД")
	default:
		return fmt.Errorf("ошибка %s: %w", what, err)
	}
}

// wrapReadError приводит ошибку чтения одной записи к ошибкам слоя.
func wrapReadError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
		return ErrNotFound
	}
	return fmt.Errorf("ошибка получения %s: %w", what, err)
}

// execDelete выполняет DELETE по id и возвращает ErrNotFound, если строк не затронуто.
func execDelete(ctx context.Context, db DBTX, table, id string) error {
	tag, err := db.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		if isInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка удаления из %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
