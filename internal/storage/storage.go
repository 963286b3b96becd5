// Пакет storage — абстракция объектного хранилища файлов.
// Реализации: ossprovider (Aliyun OSS) и localprovider (локальный каталог).
// Идентификатор файла — ключ объекта вида "{folder}/{name}_{ts}_{uuid8}.{ext}".
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Ошибки хранилища.
var (
	// ErrObjectNotFound — объект с указанным ключом отсутствует.
	ErrObjectNotFound = errors.New("объект не найден")
	// ErrCredentialsMissing — провайдер не сконфигурирован (нет учётных данных).
	ErrCredentialsMissing = errors.New("учётные данные хранилища не заданы")
)

// ObjectInfo — метаданные объекта.
type ObjectInfo struct {
	Key          string
	Name         string // исходное имя файла
	ContentType  string
	Size         int64
	LastModified time.Time
}

// Provider — операции объектного хранилища.
// Все методы принимают контекст запроса; повторов нет.
type Provider interface {
	// Ping проверяет доступность хранилища и корректность учётных данных.
	Ping(ctx context.Context) error
	// Put записывает объект. originalName сохраняется в метаданных объекта.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType, originalName string) error
	// SetPublicRead открывает объект на публичное чтение.
	SetPublicRead(ctx context.Context, key string) error
	// Stat возвращает метаданные объекта или ErrObjectNotFound.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)
	// Delete удаляет объект; ErrObjectNotFound, если его нет.
	Delete(ctx context.Context, key string) error
	// List перечисляет объекты с указанным префиксом.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Open открывает объект на чтение. Вызывающий закрывает ReadCloser.
	Open(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
}
