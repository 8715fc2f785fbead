package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cadastro/internal/user/models"
	"cadastro/pkg/platform/sentinel"
)

// InMemory keeps users in insertion order. Lookups are linear scans over the
// slice; the registry is sized for a single operator session.
//
// Every read returns a copy so callers can never alias the stored slice.
type InMemory struct {
	mu    sync.RWMutex
	users []models.User
}

// NewInMemory returns an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// List returns every user in insertion order.
func (s *InMemory) List(_ context.Context) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User{}, s.users...)
}

// Count returns the number of stored users.
func (s *InMemory) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Insert appends the user described by r. It fails with
// sentinel.ErrDuplicateKey when a stored user has the exact same CPF string,
// leaving the registry untouched.
func (s *InMemory) Insert(_ context.Context, r models.Registration) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(r.CPF) >= 0 {
		return models.User{}, fmt.Errorf("cpf %q: %w", r.CPF, sentinel.ErrDuplicateKey)
	}
	u := r.User()
	s.users = append(s.users, u)
	return u, nil
}

// Find returns the first user registered under cpf.
func (s *InMemory) Find(_ context.Context, cpf string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(cpf); i >= 0 {
		return s.users[i], nil
	}
	return models.User{}, fmt.Errorf("cpf %q: %w", cpf, sentinel.ErrNotFound)
}

// Update applies p to the first user registered under cpf and reports whether
// one was found. A missing cpf is a no-op.
func (s *InMemory) Update(_ context.Context, cpf string, p models.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(cpf)
	if i < 0 {
		return false
	}
	s.users[i] = p.Apply(s.users[i])
	return true
}

// Delete removes every user registered under cpf and returns how many were
// removed.
func (s *InMemory) Delete(_ context.Context, cpf string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.users)
	s.users = slices.DeleteFunc(s.users, func(u models.User) bool {
		return u.CPF == cpf
	})
	return before - len(s.users)
}

// SortedByName returns every user ordered by name. Users with equal names
// keep their insertion order.
func (s *InMemory) SortedByName(ctx context.Context) []models.User {
	users := s.List(ctx)
	slices.SortStableFunc(users, func(a, b models.User) int {
		return strings.Compare(a.Name, b.Name)
	})
	return users
}

// Paginate returns page number page of the name-sorted users. A pageSize of
// zero or less selects models.DefaultPageSize. The page number is clamped to
// [1, TotalPages] and TotalPages is at least 1, even when the registry is
// empty.
func (s *InMemory) Paginate(ctx context.Context, page, pageSize int) models.Page {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	sorted := s.SortedByName(ctx)
	total := len(sorted)

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page = min(max(page, 1), totalPages)

	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	return models.Page{
		Items:      sorted[start:end],
		Number:     page,
		Size:       pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}
}

// indexOf returns the position of the first user registered under cpf, or -1.
// Callers must hold s.mu.
func (s *InMemory) indexOf(cpf string) int {
	return slices.IndexFunc(s.users, func(u models.User) bool {
		return u.CPF == cpf
	})
}
