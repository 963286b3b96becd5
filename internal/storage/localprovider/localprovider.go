// Пакет localprovider — реализация storage.Provider в локальном каталоге.
// Каждый объект сопровождается файлом метаданных {key}.attr.json
// (исходное имя, MIME-тип, признак публичного доступа).
// Запись выполняется атомарно: temp → fsync → rename.
package localprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/storage"
)

// AttrSuffix — суффикс файла метаданных.
const AttrSuffix = ".attr.json"

const tmpSuffix = ".tmp"

// attrs — содержимое .attr.json.
type attrs struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}

// Provider — хранилище в каталоге dataDir.
type Provider struct {
	dataDir string
}

// New создаёт провайдер и каталог данных, если его нет.
func New(dataDir string) (*Provider, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("%w: SB_LOCAL_DATA_DIR", storage.ErrCredentialsMissing)
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Provider{dataDir: dataDir}, nil
}

// path возвращает путь к объекту. Ключи вне формата идентификатора
// (в том числе с "..") считаются несуществующими.
func (p *Provider) path(key string) (string, error) {
	if !model.ValidFileID(key) {
		return "", storage.ErrObjectNotFound
	}
	return filepath.Join(p.dataDir, filepath.FromSlash(key)), nil
}

// Ping проверяет, что каталог данных существует и является директорией.
func (p *Provider) Ping(context.Context) error {
	info, err := os.Stat(p.dataDir)
	if err != nil {
		return fmt.Errorf("каталог данных недоступен: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s не является директорией", p.dataDir)
	}
	return nil
}

func (p *Provider) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType, originalName string) error {
	fullPath, err := p.path(key)
	if err != nil {
		return fmt.Errorf("недопустимый ключ объекта %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию: %w", err)
	}

	if err := writeAtomic(fullPath, func(f *os.File) error {
		_, err := io.Copy(f, readerWithContext(ctx, r))
		return err
	}); err != nil {
		return err
	}

	a := &attrs{Name: originalName, ContentType: contentType, CreatedAt: time.Now().UTC()}
	if err := writeAttrs(fullPath, a); err != nil {
		os.Remove(fullPath)
		return err
	}
	return nil
}

func (p *Provider) SetPublicRead(_ context.Context, key string) error {
	fullPath, err := p.path(key)
	if err != nil {
		return err
	}
	a, err := readAttrs(fullPath)
	if err != nil {
		return err
	}
	a.Public = true
	return writeAttrs(fullPath, a)
}

func (p *Provider) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	fullPath, err := p.path(key)
	if err != nil {
		return nil, err
	}
	return p.stat(key, fullPath)
}

func (p *Provider) stat(key, fullPath string) (*storage.ObjectInfo, error) {
	fi, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", key, err)
	}
	info := &storage.ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		LastModified: fi.ModTime(),
	}
	if a, err := readAttrs(fullPath); err == nil {
		info.Name = a.Name
		info.ContentType = a.ContentType
	}
	return info, nil
}

// IsPublic сообщает, открыт ли объект на публичное чтение.
func (p *Provider) IsPublic(key string) bool {
	fullPath, err := p.path(key)
	if err != nil {
		return false
	}
	a, err := readAttrs(fullPath)
	return err == nil && a.Public
}

func (p *Provider) Delete(_ context.Context, key string) error {
	fullPath, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storage.ErrObjectNotFound
		}
		return fmt.Errorf("ошибка удаления файла %s: %w", key, err)
	}
	if err := os.Remove(fullPath + AttrSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ошибка удаления attr.json %s: %w", key, err)
	}
	return nil
}

// List обходит каталог рекурсивно и возвращает объекты, ключ которых
// начинается с prefix. Файлы метаданных и временные файлы пропускаются.
func (p *Provider) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var result []storage.ObjectInfo
	err := filepath.WalkDir(p.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasSuffix(path, AttrSuffix) || strings.HasSuffix(path, tmpSuffix) {
			return nil
		}
		rel, err := filepath.Rel(p.dataDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := p.stat(key, path)
		if err != nil {
			return err
		}
		result = append(result, *info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования %s: %w", p.dataDir, err)
	}
	return result, nil
}

func (p *Provider) Open(_ context.Context, key string) (io.ReadCloser, *storage.ObjectInfo, error) {
	fullPath, err := p.path(key)
	if err != nil {
		return nil, nil, err
	}
	info, err := p.stat(key, fullPath)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, storage.ErrObjectNotFound
		}
		return nil, nil, fmt.Errorf("ошибка открытия файла %s: %w", key, err)
	}
	return f, info, nil
}

// --- файлы на диске ---

// writeAtomic записывает файл через temp → fsync → atomic rename.
// При ошибке temp файл удаляется.
func writeAtomic(path string, write func(f *os.File) error) error {
	tmpPath := path + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

func writeAttrs(dataPath string, a *attrs) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}
	return writeAtomic(dataPath+AttrSuffix, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func readAttrs(dataPath string) (*attrs, error) {
	data, err := os.ReadFile(dataPath + AttrSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, fmt.Errorf("ошибка чтения attr.json: %w", err)
	}
	var a attrs
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("ошибка десериализации attr.json: %w", err)
	}
	return &a, nil
}

// ctxReader прерывает копирование при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
