package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/validate"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
	"github.com/bigkaa/society-backend/internal/repository"
)

// InquiryService — обращения через форму обратной связи.
type InquiryService struct {
	repo   repository.InquiryRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewInquiryService создаёт сервис обращений.
func NewInquiryService(repo repository.InquiryRepository, logger *slog.Logger) *InquiryService {
	return &InquiryService{
		repo:   repo,
		logger: logger.With(slog.String("component", "inquiries")),
		now:    time.Now,
	}
}

// Submit сохраняет обращение в статусе New.
func (s *InquiryService) Submit(ctx context.Context, c *model.ContactInquiry) (*model.ContactInquiry, error) {
	c.Normalize(s.now().UTC())
	c.Base = model.Base{ID: uuid.New().String()}
	c.Status = string(workflow.InquiryNew)
	if err := validate.Struct(c); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, mapRepoError(err)
	}
	s.logger.Info("Обращение принято", slog.String("id", c.ID))
	return c, nil
}

// Respond отмечает обращение как отвеченное.
func (s *InquiryService) Respond(ctx context.Context, id string) (*model.ContactInquiry, error) {
	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	from := workflow.InquiryStatus(cur.Status)
	to, err := workflow.Respond(from)
	if err != nil {
		return nil, transitionError(err)
	}
	updated, err := s.repo.SetStatus(ctx, id, from, to)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: обращение %s уже отвечено", ErrInvalidTransition, id)
		}
		return nil, mapRepoError(err)
	}
	s.logger.Info("Обращение отвечено", slog.String("id", id))
	return updated, nil
}

// Get возвращает обращение по id.
func (s *InquiryService) Get(ctx context.Context, id string) (*model.ContactInquiry, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return c, nil
}

// List возвращает страницу обращений (фильтр status).
func (s *InquiryService) List(ctx context.Context, q repository.ListQuery) (*Page[model.ContactInquiry], error) {
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return newPage(items, total, q), nil
}

// Delete удаляет обращение.
func (s *InquiryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	s.logger.Info("Обращение удалено", slog.String("id", id))
	return nil
}
