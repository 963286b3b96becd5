// list.go — общая машинерия списков: фильтры, поиск, сортировка, пагинация.
// Имена параметров (JSON-имена полей) отображаются в колонки через
// белые списки, поэтому в SQL попадают только известные идентификаторы.
package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/society-backend/internal/domain/validate"
)

// Границы пагинации.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListQuery — параметры запроса списка.
type ListQuery struct {
	// Search — свободный текст (только для сущностей с полями поиска)
	Search string
	// Filters — фильтры по параметрам (JSON-имя поля → значение)
	Filters map[string]string
	// SortBy — JSON-имя поля сортировки; пусто — сортировка по умолчанию
	SortBy string
	// Desc — сортировка по убыванию (учитывается только вместе с SortBy)
	Desc   bool
	Limit  int
	Offset int
}

// filterKind — тип значения фильтра.
type filterKind int

const (
	filterText filterKind = iota
	filterBool
	filterInt
	// filterNotExpired — булев фильтр по колонке-дате: true отбирает
	// записи с датой не раньше текущего момента, false — остальные.
	filterNotExpired
)

type filterField struct {
	column string
	kind   filterKind
}

// listSpec — описание таблицы для построения запросов списка.
type listSpec struct {
	table   string
	columns string
	// search — колонки для ILIKE-поиска
	search []string
	// searchVector — выражение to_tsvector, совпадающее с GIN-индексом
	searchVector string
	filters      map[string]filterField
	sorts        map[string]string
	defaultSort  string
}

// normalizePage приводит limit/offset к допустимым границам.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page возвращает limit и offset, приведённые к допустимым границам.
func (q ListQuery) Page() (limit, offset int) {
	return normalizePage(q.Limit, q.Offset)
}

// buildListWhere строит WHERE-условие и аргументы для фильтрации и поиска.
// Неизвестный фильтр или некорректное значение — ошибка валидации.
func buildListWhere(spec listSpec, q ListQuery, startArg int) (string, []any, error) {
	var conditions []string
	var args []any
	argNum := startArg

	// Стабильный порядок условий упрощает тесты и план запроса
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var verr validate.ValidationError
	for _, key := range keys {
		raw := strings.TrimSpace(q.Filters[key])
		field, ok := spec.filters[key]
		if !ok {
			verr.Fields = append(verr.Fields, validate.FieldError{
				Field: key, Rule: "filter", Message: "фильтрация по полю не поддерживается",
			})
			continue
		}

		var value any
		switch field.kind {
		case filterNotExpired:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				verr.Fields = append(verr.Fields, validate.FieldError{
					Field: key, Rule: "bool", Message: "ожидается true или false",
				})
				continue
			}
			op := "<"
			if b {
				op = ">="
			}
			conditions = append(conditions, fmt.Sprintf("%s %s NOW()", field.column, op))
			continue
		case filterBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				verr.Fields = append(verr.Fields, validate.FieldError{
					Field: key, Rule: "bool", Message: "ожидается true или false",
				})
				continue
			}
			value = b
		case filterInt:
			n, err := strconv.Atoi(raw)
			if err != nil {
				verr.Fields = append(verr.Fields, validate.FieldError{
					Field: key, Rule: "int", Message: "ожидается целое число",
				})
				continue
			}
			value = n
		default:
			value = raw
		}

		conditions = append(conditions, fmt.Sprintf("%s = $%d", field.column, argNum))
		args = append(args, value)
		argNum++
	}
	if len(verr.Fields) > 0 {
		return "", nil, &verr
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		if len(spec.search) == 0 {
			return "", nil, validate.Field("q", "search", "поиск для этого типа записей не поддерживается")
		}
		parts := make([]string, 0, len(spec.search)+1)
		if spec.searchVector != "" {
			parts = append(parts, fmt.Sprintf("%s @@ plainto_tsquery('simple', $%d)", spec.searchVector, argNum))
			args = append(args, search)
			argNum++
		}
		for _, col := range spec.search {
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", col, argNum))
		}
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, "("+strings.Join(parts, " OR ")+")")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args, nil
}

// buildOrderBy возвращает ORDER BY по белому списку; id добавляется для стабильности.
func buildOrderBy(spec listSpec, q ListQuery) (string, error) {
	if q.SortBy == "" {
		return "ORDER BY " + spec.defaultSort + ", id", nil
	}
	col, ok := spec.sorts[q.SortBy]
	if !ok {
		return "", validate.Field("sort", "sort", fmt.Sprintf("сортировка по полю %q не поддерживается", q.SortBy))
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id", col, dir), nil
}

// listRows выполняет запрос списка: COUNT по фильтрам и страницу записей.
func listRows[T any](ctx context.Context, db DBTX, spec listSpec, q ListQuery, scan func(pgx.Row) (*T, error)) ([]*T, int, error) {
	where, args, err := buildListWhere(spec, q, 1)
	if err != nil {
		return nil, 0, err
	}
	orderBy, err := buildOrderBy(spec, q)
	if err != nil {
		return nil, 0, err
	}
	limit, offset := normalizePage(q.Limit, q.Offset)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", spec.table, where)
	if err := db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта записей %s: %w", spec.table, err)
	}

	argNum := len(args) + 1
	query := fmt.Sprintf("SELECT %s FROM %s %s %s LIMIT $%d OFFSET $%d",
		spec.columns, spec.table, where, orderBy, argNum, argNum+1)
	rows, err := db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка %s: %w", spec.table, err)
	}
	defer rows.Close()

	items := make([]*T, 0, limit)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка чтения строки %s: %w", spec.table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации %s: %w", spec.table, err)
	}

	return items, total, nil
}

// escapeLike экранирует спецсимволы шаблона LIKE.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
