package storage

import "strings"

// URLBuilder строит прямые ссылки на объекты из публичного базового URL.
// Не обращается к хранилищу: одинаковый ключ всегда даёт одинаковые ссылки.
type URLBuilder struct {
	base          string
	downloadQuery string
}

// Суффиксы ссылок на скачивание по провайдерам.
const (
	ossDownloadQuery   = "response-content-disposition=attachment"
	localDownloadQuery = "download=1"
)

// NewURLBuilder создаёт построитель ссылок. provider — "oss" или "local".
func NewURLBuilder(publicBase, provider string) *URLBuilder {
	q := ossDownloadQuery
	if provider == "local" {
		q = localDownloadQuery
	}
	return &URLBuilder{
		base:          strings.TrimRight(publicBase, "/"),
		downloadQuery: q,
	}
}

// View возвращает ссылку просмотра: {base}/{key}.
func (b *URLBuilder) View(key string) string {
	if key == "" {
		return ""
	}
	return b.base + "/" + strings.TrimLeft(key, "/")
}

// Download возвращает ссылку скачивания (с принудительным attachment).
func (b *URLBuilder) Download(key string) string {
	if key == "" {
		return ""
	}
	return b.View(key) + "?" + b.downloadQuery
}

// Base возвращает публичный базовый URL без завершающего слэша.
func (b *URLBuilder) Base() string {
	return b.base
}
