// cache.go — LRU-кэш метаданных файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/society-backend/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_file_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш метаданных файлов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_file_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша метаданных файлов.",
	})
)

// FileInfoCache — LRU-кэш метаданных файлов с автоматическим TTL.
// Кэш локален для экземпляра сервиса.
type FileInfoCache struct {
	cache *expirable.LRU[string, *model.FileInfo]
}

// NewFileInfoCache создаёт кэш на maxSize записей с временем жизни ttl.
func NewFileInfoCache(maxSize int, ttl time.Duration) *FileInfoCache {
	return &FileInfoCache{cache: expirable.NewLRU[string, *model.FileInfo](maxSize, nil, ttl)}
}

// Get возвращает метаданные по идентификатору файла.
func (c *FileInfoCache) Get(fileID string) (*model.FileInfo, bool) {
	val, ok := c.cache.Get(fileID)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись.
func (c *FileInfoCache) Set(fileID string, info *model.FileInfo) {
	c.cache.Add(fileID, info)
}

// Delete инвалидирует запись (после удаления файла).
func (c *FileInfoCache) Delete(fileID string) {
	c.cache.Remove(fileID)
}

// Len возвращает количество записей.
func (c *FileInfoCache) Len() int {
	return c.cache.Len()
}
