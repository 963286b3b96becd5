package storage

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxNameLength — ограничение длины имени в ключе объекта.
const maxNameLength = 50

// ObjectKey генерирует ключ объекта для загружаемого файла.
// Формат: {folder}/{name}_{timestamp}_{uuid8}{.ext}
// Пример: society/gallery/annual_day_20260221150405_a1b2c3d4.jpg
func ObjectKey(folder, originalName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	ext := path.Ext(base)
	name := sanitize(strings.TrimSuffix(base, ext))
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	ts := now.UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	key := fmt.Sprintf("%s_%s_%s", name, ts, uid)
	if e := sanitizeExt(ext); e != "" {
		key += "." + e
	}
	if folder = strings.Trim(folder, "/"); folder != "" {
		key = folder + "/" + key
	}
	return key
}

// sanitize оставляет только ASCII-буквы, цифры, дефис и подчёркивание;
// пробелы заменяются подчёркиванием.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_':
			result.WriteRune(r)
		case r == ' ':
			result.WriteRune('_')
		}
	}
	if strings.Trim(result.String(), "_") == "" {
		return "file"
	}
	return result.String()
}

// sanitizeExt приводит расширение к нижнему регистру и оставляет буквы и цифры.
func sanitizeExt(ext string) string {
	var result strings.Builder
	for _, r := range strings.ToLower(strings.TrimPrefix(ext, ".")) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		}
	}
	s := result.String()
	if len(s) > 10 {
		s = s[:10]
	}
	return s
}
