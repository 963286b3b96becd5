// Пакет validate — проверка записей по struct-тегам go-playground/validator.
// Возвращает все нарушения сразу (не только первое), поля называются
// по их JSON-именам.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// ErrValidation — базовая ошибка валидации, на неё указывает ValidationError.
var ErrValidation = errors.New("ошибка валидации")

// FieldError — нарушение ограничения одного поля.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError — полный список нарушений записи.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Field создаёт ValidationError с одним нарушением.
func Field(field, rule, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Rule: rule, Message: message}}}
}

var (
	once     sync.Once
	instance *validator.Validate
)

// engine возвращает единственный экземпляр validator (кэширует разбор тегов).
func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("fileid", func(fl validator.FieldLevel) bool {
			return model.ValidFileID(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct проверяет запись и возвращает *ValidationError со всеми нарушениями
// или nil. Ошибки самого валидатора (неверный аргумент) возвращаются как есть.
func Struct(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("ошибка проверки записи: %w", err)
	}

	result := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		result.Fields = append(result.Fields, FieldError{
			Field:   fieldName(fe),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}
	sort.SliceStable(result.Fields, func(i, j int) bool {
		return result.Fields[i].Field < result.Fields[j].Field
	})
	return result
}

// fieldName возвращает путь поля без имени корневой структуры.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("длина не должна превышать %s символов", fe.Param())
		}
		return fmt.Sprintf("значение не должно превышать %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("длина должна быть не меньше %s символов", fe.Param())
		}
		return fmt.Sprintf("значение должно быть не меньше %s", fe.Param())
	case "len":
		return fmt.Sprintf("длина должна быть ровно %s символов", fe.Param())
	case "oneof":
		return "допустимые значения: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "некорректный email"
	case "number":
		return "допускаются только цифры"
	case "fileid":
		return "некорректный идентификатор файла"
	default:
		return "нарушено ограничение " + fe.Tag()
	}
}
