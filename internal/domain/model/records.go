// Пакет model — доменные модели Society Backend.
// Записи хранятся в PostgreSQL, ссылки на файлы — идентификаторы
// объектов во внешнем хранилище (слабые ссылки, без владения).
package model

import (
	"strings"
	"time"
)

// Границы поля order (порядок отображения). Значения вне границ отклоняются.
const (
	MinOrder = 0
	MaxOrder = 9999
)

// DefaultGalleryCategory — категория элемента галереи по умолчанию.
const DefaultGalleryCategory = "General"

// Entity — общий контракт всех записей хранилища.
type Entity interface {
	// Meta возвращает служебные поля записи (id, createdAt, updatedAt).
	Meta() *Base
	// Normalize обрезает пробелы в текстовых полях и подставляет значения по умолчанию.
	Normalize(now time.Time)
}

// Base — служебные поля, общие для всех записей.
// CreatedAt и UpdatedAt выставляются хранилищем при записи.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Meta возвращает служебные поля.
func (b *Base) Meta() *Base { return b }

// --- Member ---

// Тип членства.
const (
	MembershipLife   = "Life"
	MembershipAnnual = "Annual"
)

// Статус члена общества.
const (
	MemberActive   = "Active"
	MemberInactive = "Inactive"
)

// Member — член общества.
type Member struct {
	Base
	Name           string    `json:"name" validate:"required,max=100"`
	Address        string    `json:"address" validate:"required,max=300"`
	MembershipType string    `json:"membershipType" validate:"required,oneof=Life Annual"`
	DateJoined     time.Time `json:"dateJoined" validate:"required"`
	Status         string    `json:"status" validate:"required,oneof=Active Inactive"`
}

func (m *Member) Normalize(now time.Time) {
	m.Name = strings.TrimSpace(m.Name)
	m.Address = strings.TrimSpace(m.Address)
	m.MembershipType = strings.TrimSpace(m.MembershipType)
	m.Status = strings.TrimSpace(m.Status)
	if m.Status == "" {
		m.Status = MemberActive
	}
	if m.DateJoined.IsZero() {
		m.DateJoined = now
	}
}

// --- Committee ---

// Committee — комитет общества.
type Committee struct {
	Base
	Name          string `json:"name" validate:"required,max=100"`
	Advisor       string `json:"advisor" validate:"required,max=100"`
	Chairperson   string `json:"chairperson" validate:"required,max=100"`
	CoChairperson string `json:"coChairperson" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=1000"`
	IsActive      *bool  `json:"isActive" validate:"required"`
	Order         int    `json:"order" validate:"min=0,max=9999"`
}

func (c *Committee) Normalize(time.Time) {
	c.Name = strings.TrimSpace(c.Name)
	c.Advisor = strings.TrimSpace(c.Advisor)
	c.Chairperson = strings.TrimSpace(c.Chairperson)
	c.CoChairperson = strings.TrimSpace(c.CoChairperson)
	c.Description = strings.TrimSpace(c.Description)
	c.IsActive = defaultTrue(c.IsActive)
}

// --- Event ---

// Статус мероприятия — метка, не вычисляется из даты.
const (
	EventUpcoming = "Upcoming"
	EventOngoing  = "Ongoing"
	EventPast     = "Past"
)

// Event — мероприятие.
type Event struct {
	Base
	Name             string    `json:"name" validate:"required,max=200"`
	ShortDescription string    `json:"shortDescription" validate:"required,max=300"`
	Description      string    `json:"description" validate:"required,max=5000"`
	Date             time.Time `json:"date" validate:"required"`
	Location         string    `json:"location" validate:"required,max=200"`
	Status           string    `json:"status" validate:"required,oneof=Upcoming Ongoing Past"`
}

func (e *Event) Normalize(time.Time) {
	e.Name = strings.TrimSpace(e.Name)
	e.ShortDescription = strings.TrimSpace(e.ShortDescription)
	e.Description = strings.TrimSpace(e.Description)
	e.Location = strings.TrimSpace(e.Location)
	e.Status = strings.TrimSpace(e.Status)
	if e.Status == "" {
		e.Status = EventUpcoming
	}
}

// --- GalleryItem ---

// GalleryItem — элемент фотогалереи.
// ImageURL содержит идентификатор файла, а не URL.
type GalleryItem struct {
	Base
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=1000"`
	ImageURL    string    `json:"imageUrl" validate:"required,fileid"`
	UploadDate  time.Time `json:"uploadDate" validate:"required"`
	Category    string    `json:"category" validate:"required,max=100"`
	IsActive    *bool     `json:"isActive" validate:"required"`
	Order       int       `json:"order" validate:"min=0,max=9999"`

	// ImageViewURL — производный URL просмотра, в БД не хранится.
	ImageViewURL string `json:"imageViewUrl,omitempty"`
}

func (g *GalleryItem) Normalize(now time.Time) {
	g.Title = strings.TrimSpace(g.Title)
	g.Description = strings.TrimSpace(g.Description)
	g.ImageURL = strings.TrimSpace(g.ImageURL)
	g.Category = strings.TrimSpace(g.Category)
	if g.Category == "" {
		g.Category = DefaultGalleryCategory
	}
	if g.UploadDate.IsZero() {
		g.UploadDate = now
	}
	g.IsActive = defaultTrue(g.IsActive)
}

// --- Newsletter ---

// Newsletter — выпуск рассылки (PDF).
type Newsletter struct {
	Base
	Title       string    `json:"title" validate:"required,max=200"`
	PdfURL      string    `json:"pdfUrl" validate:"required,fileid"`
	PublishDate time.Time `json:"publishDate" validate:"required"`

	PdfViewURL     string `json:"pdfViewUrl,omitempty"`
	PdfDownloadURL string `json:"pdfDownloadUrl,omitempty"`
}

func (n *Newsletter) Normalize(now time.Time) {
	n.Title = strings.TrimSpace(n.Title)
	n.PdfURL = strings.TrimSpace(n.PdfURL)
	if n.PublishDate.IsZero() {
		n.PublishDate = now
	}
}

// --- Notice ---

// Notice — объявление. ExpiryDate информационный: запись не удаляется по истечении.
// Производные URL PDF денормализованы и хранятся в записи.
type Notice struct {
	Base
	Title          string    `json:"title" validate:"required,max=200"`
	Content        string    `json:"content" validate:"required,max=10000"`
	ExpiryDate     time.Time `json:"expiryDate" validate:"required"`
	PdfFileID      *string   `json:"pdfFileId,omitempty" validate:"omitempty,fileid"`
	PdfFileName    *string   `json:"pdfFileName,omitempty" validate:"omitempty,max=255"`
	PdfViewURL     *string   `json:"pdfViewUrl,omitempty"`
	PdfDownloadURL *string   `json:"pdfDownloadUrl,omitempty"`
}

func (n *Notice) Normalize(time.Time) {
	n.Title = strings.TrimSpace(n.Title)
	n.Content = strings.TrimSpace(n.Content)
	n.PdfFileID = trimOptional(n.PdfFileID)
	n.PdfFileName = trimOptional(n.PdfFileName)
	if n.PdfFileID == nil {
		n.PdfFileName = nil
		n.PdfViewURL = nil
		n.PdfDownloadURL = nil
	}
}

// IsExpired сообщает, истёк ли срок объявления на момент now.
func (n *Notice) IsExpired(now time.Time) bool {
	return now.After(n.ExpiryDate)
}

// --- OfficeBearer ---

// OfficeBearer — должностное лицо общества.
type OfficeBearer struct {
	Base
	Name        string  `json:"name" validate:"required,max=100"`
	Designation string  `json:"designation" validate:"required,max=100"`
	Mobile      string  `json:"mobile" validate:"max=20"`
	Email       string  `json:"email" validate:"omitempty,email,max=254"`
	PhotoURL    *string `json:"photoUrl,omitempty" validate:"omitempty,fileid"`
	Year        int     `json:"year" validate:"required,min=1900,max=2100"`
	IsCurrent   *bool   `json:"isCurrent" validate:"required"`
	Order       int     `json:"order" validate:"min=0,max=9999"`

	PhotoViewURL string `json:"photoViewUrl,omitempty"`
}

func (o *OfficeBearer) Normalize(time.Time) {
	o.Name = strings.TrimSpace(o.Name)
	o.Designation = strings.TrimSpace(o.Designation)
	o.Mobile = strings.TrimSpace(o.Mobile)
	o.Email = strings.ToLower(strings.TrimSpace(o.Email))
	o.PhotoURL = trimOptional(o.PhotoURL)
	o.IsCurrent = defaultTrue(o.IsCurrent)
}

// --- OfflineForm ---

// OfflineForm — бланк для скачивания. Несколько записей с isActive
// позволяют сменить «текущий» бланк без удаления старых.
type OfflineForm struct {
	Base
	FileID     string    `json:"fileId" validate:"required,fileid"`
	FileName   string    `json:"fileName" validate:"required,max=255"`
	UploadDate time.Time `json:"uploadDate" validate:"required"`
	IsActive   *bool     `json:"isActive" validate:"required"`

	DownloadURL string `json:"downloadUrl,omitempty"`
}

func (f *OfflineForm) Normalize(now time.Time) {
	f.FileID = strings.TrimSpace(f.FileID)
	f.FileName = strings.TrimSpace(f.FileName)
	if f.UploadDate.IsZero() {
		f.UploadDate = now
	}
	f.IsActive = defaultTrue(f.IsActive)
}

// --- ContactInquiry ---

// ContactInquiry — обращение через форму обратной связи.
// Status меняется только через переход New → Responded.
type ContactInquiry struct {
	Base
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=20"`
	Message string `json:"message" validate:"required,max=5000"`
	Status  string `json:"status" validate:"required,oneof=New Responded"`
}

func (c *ContactInquiry) Normalize(time.Time) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Message = strings.TrimSpace(c.Message)
}

// --- helpers ---

func defaultTrue(b *bool) *bool {
	if b != nil {
		return b
	}
	v := true
	return &v
}

// trimOptional обрезает пробелы; пустая строка превращается в nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Bool возвращает указатель на значение (удобно для опциональных флагов).
func Bool(v bool) *bool { return &v }

// String возвращает указатель на строку.
func String(v string) *string { return &v }
