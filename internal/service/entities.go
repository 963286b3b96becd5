package service

import (
	"log/slog"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/repository"
)

// Сервисы записей по типам.
type (
	MemberService       = RecordService[model.Member, *model.Member]
	CommitteeService    = RecordService[model.Committee, *model.Committee]
	EventService        = RecordService[model.Event, *model.Event]
	GalleryService      = RecordService[model.GalleryItem, *model.GalleryItem]
	NewsletterService   = RecordService[model.Newsletter, *model.Newsletter]
	NoticeService       = RecordService[model.Notice, *model.Notice]
	OfficeBearerService = RecordService[model.OfficeBearer, *model.OfficeBearer]
	OfflineFormService  = RecordService[model.OfflineForm, *model.OfflineForm]
)

func NewMemberService(repo repository.MemberRepository, logger *slog.Logger) *MemberService {
	return newRecordService[model.Member, *model.Member]("members", repo, nil, recordHooks[model.Member]{}, logger)
}

func NewCommitteeService(repo repository.CommitteeRepository, logger *slog.Logger) *CommitteeService {
	return newRecordService[model.Committee, *model.Committee]("committees", repo, nil, recordHooks[model.Committee]{}, logger)
}

func NewEventService(repo repository.EventRepository, logger *slog.Logger) *EventService {
	return newRecordService[model.Event, *model.Event]("events", repo, nil, recordHooks[model.Event]{}, logger)
}

// NewGalleryService — изображения загружаются в папку галереи.
func NewGalleryService(repo repository.GalleryRepository, files *FileService, logger *slog.Logger) *GalleryService {
	hooks := recordHooks[model.GalleryItem]{
		category: model.CategoryGallery,
		setFile: func(g, _ *model.GalleryItem, id, _ string) {
			g.ImageURL = id
		},
		decorate: func(g *model.GalleryItem, files *FileService) {
			g.ImageViewURL = files.DirectViewURL(g.ImageURL)
		},
	}
	return newRecordService[model.GalleryItem, *model.GalleryItem]("gallery", repo, files, hooks, logger)
}

func NewNewsletterService(repo repository.NewsletterRepository, files *FileService, logger *slog.Logger) *NewsletterService {
	hooks := recordHooks[model.Newsletter]{
		category: model.CategoryNewsletter,
		setFile: func(n, _ *model.Newsletter, id, _ string) {
			n.PdfURL = id
		},
		decorate: func(n *model.Newsletter, files *FileService) {
			n.PdfViewURL = files.DirectViewURL(n.PdfURL)
			n.PdfDownloadURL = files.DirectDownloadURL(n.PdfURL)
		},
	}
	return newRecordService[model.Newsletter, *model.Newsletter]("newsletters", repo, files, hooks, logger)
}

// NewNoticeService — ссылки на PDF объявления хранятся в записи,
// поэтому заполняются перед записью, а не при чтении.
func NewNoticeService(repo repository.NoticeRepository, files *FileService, logger *slog.Logger) *NoticeService {
	hooks := recordHooks[model.Notice]{
		category: "notice",
		setFile: func(n, _ *model.Notice, id, name string) {
			n.PdfFileID = model.String(id)
			n.PdfFileName = model.String(name)
		},
		prepare: func(n *model.Notice, files *FileService) {
			if n.PdfFileID == nil {
				return
			}
			if n.PdfFileName == nil {
				n.PdfFileName = model.String(*n.PdfFileID)
			}
			links := files.Links(*n.PdfFileID)
			n.PdfViewURL = model.String(links.ViewLink)
			n.PdfDownloadURL = model.String(links.DownloadLink)
		},
	}
	return newRecordService[model.Notice, *model.Notice]("notices", repo, files, hooks, logger)
}

func NewOfficeBearerService(repo repository.OfficeBearerRepository, files *FileService, logger *slog.Logger) *OfficeBearerService {
	hooks := recordHooks[model.OfficeBearer]{
		category: model.CategoryOfficeBearer,
		setFile: func(o, _ *model.OfficeBearer, id, _ string) {
			o.PhotoURL = model.String(id)
		},
		decorate: func(o *model.OfficeBearer, files *FileService) {
			if o.PhotoURL != nil {
				o.PhotoViewURL = files.DirectViewURL(*o.PhotoURL)
			}
		},
	}
	return newRecordService[model.OfficeBearer, *model.OfficeBearer]("office-bearers", repo, files, hooks, logger)
}

// NewOfflineFormService — бланки хранятся в папке заявок.
func NewOfflineFormService(repo repository.OfflineFormRepository, files *FileService, logger *slog.Logger) *OfflineFormService {
	hooks := recordHooks[model.OfflineForm]{
		category: model.CategoryApplication,
		setFile: func(f, prev *model.OfflineForm, id, name string) {
			f.FileID = id
			// Имя из тела запроса сохраняется, иначе берётся имя нового файла.
			if f.FileName == "" || (prev != nil && f.FileName == prev.FileName) {
				f.FileName = name
			}
		},
		decorate: func(f *model.OfflineForm, files *FileService) {
			f.DownloadURL = files.DirectDownloadURL(f.FileID)
		},
	}
	return newRecordService[model.OfflineForm, *model.OfflineForm]("offline-forms", repo, files, hooks, logger)
}
