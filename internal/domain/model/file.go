package model

import (
	"io"
	"regexp"
	"time"
)

// Категории загрузки файлов. Каждая категория отображается в папку хранилища;
// неизвестная категория или категория без папки — корневая папка.
const (
	CategoryOfficeBearer      = "office-bearer"
	CategoryNewsletter        = "newsletter"
	CategoryApplication       = "application"
	CategoryPaymentScreenshot = "payment-screenshot"
	CategoryGallery           = "gallery"
)

// Attachment — файл, приложенный к запросу создания записи.
type Attachment struct {
	Reader   io.Reader
	Size     int64
	FileName string
	MimeType string
}

// UploadResult — результат загрузки файла во внешнее хранилище.
// Stored и PubliclyAccessible разделены: ошибка выдачи публичного доступа
// не отменяет загрузку и может быть повторена отдельно.
type UploadResult struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ViewLink           string `json:"viewLink"`
	Folder             string `json:"folder"`
	Stored             bool   `json:"stored"`
	PubliclyAccessible bool   `json:"publiclyAccessible"`
	PermissionError    string `json:"permissionError,omitempty"`
}

// FileInfo — метаданные файла, сообщаемые хранилищем.
type FileInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	ViewLink     string    `json:"viewLink"`
	DownloadLink string    `json:"downloadLink"`
	CreatedTime  time.Time `json:"createdTime"`
}

// FileLinks — производные URL файла.
type FileLinks struct {
	ID           string `json:"id"`
	ViewLink     string `json:"viewLink"`
	DownloadLink string `json:"downloadLink"`
}

// fileIDPattern — допустимый формат идентификатора файла:
// сегменты из [A-Za-z0-9_-], разделённые '/', с необязательным расширением.
// Исключает обход каталогов ("..") и абсолютные пути.
var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+(/[A-Za-z0-9_-]+)*(\.[A-Za-z0-9]+)?$`)

// MaxFileIDLength — максимальная длина идентификатора файла.
const MaxFileIDLength = 512

// ValidFileID проверяет идентификатор файла по allow-list шаблону.
func ValidFileID(id string) bool {
	return len(id) <= MaxFileIDLength && fileIDPattern.MatchString(id)
}
