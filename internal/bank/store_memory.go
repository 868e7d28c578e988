package bank

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hemobank/pkg/domain"
	"hemobank/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of Store.
type InMemory struct {
	mu    sync.RWMutex
	banks map[domain.BankID]*Bank
}

func NewInMemory() *InMemory {
	return &InMemory{banks: make(map[domain.BankID]*Bank)}
}

func (s *InMemory) Create(_ context.Context, bank *Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.banks[bank.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.banks {
		if strings.EqualFold(existing.Name, bank.Name) {
			return sentinel.ErrConflict
		}
	}
	cp := *bank
	s.banks[bank.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.BankID) (*Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bank, ok := s.banks[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *bank
	return &cp, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, bank := range s.banks {
		if strings.EqualFold(bank.Name, name) {
			cp := *bank
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Bank, 0, len(s.banks))
	for _, bank := range s.banks {
		cp := *bank
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, bank *Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[bank.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *bank
	cp.UpdatedAt = time.Now()
	s.banks[bank.ID] = &cp
	return nil
}
