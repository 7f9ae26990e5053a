package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"custodyapi/internal/model"
	"custodyapi/internal/repository"
)

// DocumentStore indexes documents by id and by verification code.
type DocumentStore struct {
	mu     sync.RWMutex
	byID   map[string]*model.Document
	byCode map[string]string
}

// NewDocumentStore returns an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		byID:   make(map[string]*model.Document),
		byCode: make(map[string]string),
	}
}

var _ repository.DocumentRepository = (*DocumentStore)(nil)

func (s *DocumentStore) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byCode[doc.VerificationCode]; taken {
		return nil, fmt.Errorf("insert document: code %s: %w", doc.VerificationCode, repository.ErrConflict)
	}
	if _, taken := s.byID[doc.ID]; taken {
		return nil, fmt.Errorf("insert document: id %s: %w", doc.ID, repository.ErrConflict)
	}
	stored := cloneDocument(doc)
	s.byID[doc.ID] = stored
	s.byCode[doc.VerificationCode] = doc.ID
	return cloneDocument(stored), nil
}

func (s *DocumentStore) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("find document by id: %w", repository.ErrNotFound)
	}
	return cloneDocument(d), nil
}

func (s *DocumentStore) FindByCode(ctx context.Context, code string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, fmt.Errorf("find document by code: %w", repository.ErrNotFound)
	}
	return cloneDocument(s.byID[id]), nil
}

// List orders documents like the postgres implementation: newest first, then id descending.
func (s *DocumentStore) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]model.Document, 0, len(s.byID))
	for _, d := range s.byID {
		all = append(all, *cloneDocument(d))
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	start := min(max(pq.Offset, 0), len(all))
	end := len(all)
	if pq.Limit > 0 {
		end = min(start+pq.Limit, len(all))
	}
	return &repository.PageResult[model.Document]{Items: all[start:end], Total: len(all)}, nil
}

func (s *DocumentStore) Revoke(ctx context.Context, id string, at time.Time) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("revoke document: %w", repository.ErrNotFound)
	}
	d.IsVerified = false
	if d.RevokedAt == nil {
		revokedAt := at
		d.RevokedAt = &revokedAt
	}
	return cloneDocument(d), nil
}

func cloneDocument(d *model.Document) *model.Document {
	out := *d
	if d.IncidentID != nil {
		v := *d.IncidentID
		out.IncidentID = &v
	}
	if d.RevokedAt != nil {
		v := *d.RevokedAt
		out.RevokedAt = &v
	}
	return &out
}
