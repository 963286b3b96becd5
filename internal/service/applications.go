// applications.go — рассмотрение заявок на вступление.
// Заявка создаётся в статусе Pending; решение (approve/reject) принимается
// один раз через compare-and-set на текущем статусе.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
	"github.com/bigkaa/society-backend/internal/repository"
)

// Ограничения полей решения по заявке.
const (
	maxReviewerLength = 100
	maxReasonLength   = 1000
)

// ApplicationService — приём и рассмотрение заявок.
type ApplicationService struct {
	repo   repository.ApplicationRepository
	files  *FileService
	logger *slog.Logger
	now    func() time.Time
}

// NewApplicationService создаёт сервис заявок.
func NewApplicationService(repo repository.ApplicationRepository, files *FileService, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{
		repo:   repo,
		files:  files,
		logger: logger.With(slog.String("component", "applications")),
		now:    time.Now,
	}
}

// Submit принимает заявку. screenshot и pdf необязательны: если вложение
// не передано, используется идентификатор из самой заявки.
func (s *ApplicationService) Submit(ctx context.Context, a *model.MembershipApplication, screenshot, pdf *model.Attachment) (*model.MembershipApplication, error) {
	now := s.now().UTC()
	a.Normalize(now)
	a.Base = model.Base{ID: uuid.New().String()}
	a.Status = workflow.ApplicationPending
	a.SubmittedAt = now
	a.ProcessedAt = nil
	a.ProcessedBy = nil
	a.RejectionReason = nil

	if screenshot != nil {
		a.PaymentScreenshot = pendingFileID
	}
	if pdf != nil {
		a.ApplicationPDF = model.String(pendingFileID)
	}
	if err := validate.Struct(a); err != nil {
		return nil, err
	}

	var uploaded []string
	if screenshot != nil {
		res, err := s.files.Upload(ctx, UploadInput{Attachment: *screenshot, Category: model.CategoryPaymentScreenshot})
		if err != nil {
			return nil, err
		}
		a.PaymentScreenshot = res.ID
		uploaded = append(uploaded, res.ID)
	}
	if pdf != nil {
		res, err := s.files.Upload(ctx, UploadInput{Attachment: *pdf, Category: model.CategoryApplication})
		if err != nil {
			s.discard(uploaded)
			return nil, err
		}
		a.ApplicationPDF = model.String(res.ID)
		uploaded = append(uploaded, res.ID)
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.discard(uploaded)
		return nil, mapRepoError(err)
	}

	s.logger.Info("Заявка принята",
		slog.String("id", a.ID),
		slog.String("membership_type", a.MembershipType),
	)
	s.decorate(a)
	return a, nil
}

// Get возвращает заявку по id.
func (s *ApplicationService) Get(ctx context.Context, id string) (*model.MembershipApplication, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	s.decorate(a)
	return a, nil
}

// List возвращает страницу заявок (фильтры status, membershipType).
func (s *ApplicationService) List(ctx context.Context, q repository.ListQuery) (*Page[model.MembershipApplication], error) {
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, mapRepoError(err)
	}
	for _, a := range items {
		s.decorate(a)
	}
	return newPage(items, total, q), nil
}

// Delete удаляет заявку. Файлы заявки остаются до очистки OrphanSweeper.
func (s *ApplicationService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("Заявка удалена", slog.String("id", id))
	return nil
}

// Approve одобряет заявку в статусе Pending.
func (s *ApplicationService) Approve(ctx context.Context, id, processedBy string) (*model.MembershipApplication, error) {
	return s.decide(ctx, id, processedBy, nil, workflow.Approve)
}

// Reject отклоняет заявку в статусе Pending; причина обязательна.
func (s *ApplicationService) Reject(ctx context.Context, id, processedBy, reason string) (*model.MembershipApplication, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, validate.Field("reason", "max", "причина отклонения длиннее 1000 символов")
	}
	return s.decide(ctx, id, processedBy, &reason, func(from workflow.ApplicationStatus) (workflow.ApplicationStatus, error) {
		return workflow.Reject(from, reason)
	})
}

func (s *ApplicationService) decide(
	ctx context.Context,
	id, processedBy string,
	reason *string,
	transition func(workflow.ApplicationStatus) (workflow.ApplicationStatus, error),
) (*model.MembershipApplication, error) {
	processedBy = strings.TrimSpace(processedBy)
	if processedBy == "" {
		return nil, validate.Field("processedBy", "required", "не указан рецензент")
	}
	if utf8.RuneCountInString(processedBy) > maxReviewerLength {
		return nil, validate.Field("processedBy", "max", "идентификатор рецензента слишком длинный")
	}

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	to, err := transition(cur.Status)
	if err != nil {
		return nil, transitionError(err)
	}

	decision := model.Decision{
		Status:          to,
		ProcessedAt:     s.now().UTC(),
		ProcessedBy:     processedBy,
		RejectionReason: reason,
	}
	updated, err := s.repo.Decide(ctx, id, cur.Status, decision)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: заявка %s уже рассмотрена", ErrInvalidTransition, id)
		}
		return nil, mapRepoError(err)
	}

	s.logger.Info("Заявка рассмотрена",
		slog.String("id", id),
		slog.String("status", string(to)),
		slog.String("processed_by", processedBy),
	)
	s.decorate(updated)
	return updated, nil
}

func (s *ApplicationService) decorate(a *model.MembershipApplication) {
	if s.files == nil {
		return
	}
	a.PaymentScreenshotURL = s.files.DirectViewURL(a.PaymentScreenshot)
	if a.ApplicationPDF != nil {
		a.ApplicationPDFURL = s.files.DirectDownloadURL(*a.ApplicationPDF)
	}
}

func (s *ApplicationService) discard(ids []string) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, id := range ids {
		if err := s.files.Delete(ctx, id); err != nil {
			s.logger.Warn("Не удалось удалить файл несохранённой заявки",
				slog.String("file_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// transitionError приводит ошибку автомата к ошибкам сервисного слоя:
// отсутствующая причина — ошибка валидации, остальное — ErrInvalidTransition.
func transitionError(err error) error {
	var te *workflow.TransitionError
	if !errors.As(err, &te) {
		return err
	}
	if te.Code == workflow.CodeReasonRequired {
		return validate.Field("reason", "required", te.Message)
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, te.Message)
}
