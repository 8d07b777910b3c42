package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"arcop/internal/domain"
	"arcop/pkg/platform/sentinel"
)

// InMemory keeps requests in indexed maps. It favors clarity over performance
// and backs unit tests and single-node deployments.
type InMemory struct {
	mu       sync.RWMutex
	requests map[string]domain.Request // by ID
	byToken  map[string]string         // token -> ID
	byNumber map[string]string         // number -> ID
	byEmail  map[string][]string       // normalized email -> IDs in creation order
	seq      map[int]int               // year -> last allocated suffix
}

func NewInMemory() *InMemory {
	return &InMemory{
		requests: make(map[string]domain.Request),
		byToken:  make(map[string]string),
		byNumber: make(map[string]string),
		byEmail:  make(map[string][]string),
		seq:      make(map[int]int),
	}
}

func (s *InMemory) Append(_ context.Context, req domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byToken[req.ValidationToken]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byNumber[req.Number]; exists {
		return sentinel.ErrConflict
	}

	s.requests[req.ID] = req
	s.byToken[req.ValidationToken] = req.ID
	s.byNumber[req.Number] = req.ID
	email := strings.ToLower(req.Email)
	s.byEmail[email] = append(s.byEmail[email], req.ID)
	return nil
}

func (s *InMemory) FindByToken(_ context.Context, token string) (domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byToken[token]; ok {
		return s.requests[id], nil
	}
	return domain.Request{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByNumber(_ context.Context, number string) (domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byNumber[number]; ok {
		return s.requests[id], nil
	}
	return domain.Request{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(_ context.Context, email string) ([]domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byEmail[strings.ToLower(email)]
	out := make([]domain.Request, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.requests[id])
	}
	return out, nil
}

func (s *InMemory) Update(_ context.Context, id string, expectedVersion int64, patch domain.Patch, now time.Time) (domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return domain.Request{}, sentinel.ErrNotFound
	}
	if req.Version != expectedVersion {
		return domain.Request{}, sentinel.ErrConflict
	}

	updated := patch.Apply(req, now)
	s.requests[id] = updated
	return updated, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Request, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) ListOverdue(_ context.Context, now time.Time) ([]domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Request
	for _, req := range s.requests {
		if req.Overdue(now) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) AggregateCounts(_ context.Context) (domain.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := domain.Counts{
		ByStatus: make(map[domain.Status]int),
		ByKind:   make(map[domain.Kind]int),
		ByFormat: make(map[domain.Format]int),
	}
	for _, req := range s.requests {
		counts.Total++
		counts.ByStatus[req.Status]++
		counts.ByKind[req.Kind]++
		counts.ByFormat[req.Format]++
	}
	return counts, nil
}

func (s *InMemory) NextSequence(_ context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[year]++
	return s.seq[year], nil
}
