package service

import (
	"context"
	"sync"
	"time"

	"github.com/bigkaa/society-backend/internal/domain/model"
	"github.com/bigkaa/society-backend/internal/domain/workflow"
	"github.com/bigkaa/society-backend/internal/repository"
)

// memStore — repository.Store в памяти.
type memStore[T any, P entityPtr[T]] struct {
	mu        sync.Mutex
	rows      map[string]T
	createErr error
	writes    int
}

func newMemStore[T any, P entityPtr[T]]() *memStore[T, P] {
	return &memStore[T, P]{rows: make(map[string]T)}
}

func (m *memStore[T, P]) Create(_ context.Context, rec *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	meta := P(rec).Meta()
	now := time.Now().UTC()
	meta.CreatedAt, meta.UpdatedAt = now, now
	m.rows[meta.ID] = *rec
	m.writes++
	return nil
}

func (m *memStore[T, P]) GetByID(_ context.Context, id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (m *memStore[T, P]) List(context.Context, repository.ListQuery) ([]*T, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*T, 0, len(m.rows))
	for _, rec := range m.rows {
		items = append(items, &rec)
	}
	return items, len(items), nil
}

func (m *memStore[T, P]) Update(_ context.Context, rec *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta := P(rec).Meta()
	if _, ok := m.rows[meta.ID]; !ok {
		return repository.ErrNotFound
	}
	meta.UpdatedAt = time.Now().UTC()
	m.rows[meta.ID] = *rec
	m.writes++
	return nil
}

func (m *memStore[T, P]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

// memApplications — ApplicationRepository в памяти с CAS по статусу.
type memApplications struct {
	*memStore[model.MembershipApplication, *model.MembershipApplication]
}

func newMemApplications() *memApplications {
	return &memApplications{newMemStore[model.MembershipApplication, *model.MembershipApplication]()}
}

func (m *memApplications) Decide(_ context.Context, id string, from workflow.ApplicationStatus, d model.Decision) (*model.MembershipApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != from {
		return nil, repository.ErrConflict
	}
	processedAt := d.ProcessedAt
	processedBy := d.ProcessedBy
	a.Status = d.Status
	a.ProcessedAt = &processedAt
	a.ProcessedBy = &processedBy
	a.RejectionReason = d.RejectionReason
	m.rows[id] = a
	return &a, nil
}

// memInquiries — InquiryRepository в памяти с CAS по статусу.
type memInquiries struct {
	*memStore[model.ContactInquiry, *model.ContactInquiry]
}

func newMemInquiries() *memInquiries {
	return &memInquiries{newMemStore[model.ContactInquiry, *model.ContactInquiry]()}
}

func (m *memInquiries) SetStatus(_ context.Context, id string, from, to workflow.InquiryStatus) (*model.ContactInquiry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Status != string(from) {
		return nil, repository.ErrConflict
	}
	c.Status = string(to)
	m.rows[id] = c
	return &c, nil
}

func fixedTime() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func listQuery(limit, offset int) repository.ListQuery {
	return repository.ListQuery{Limit: limit, Offset: offset}
}
