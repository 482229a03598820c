package expense

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sitetrack/sitetrack/internal/utils"
)

// RepositoryStub is an in-memory Repository for service and handler tests.
type RepositoryStub struct {
	expenses map[string]Expense
	clock    utils.Clock
	// FailWith, when set, is returned by every call.
	FailWith error
}

func NewRepositoryStub(clock utils.Clock) *RepositoryStub {
	return &RepositoryStub{expenses: map[string]Expense{}, clock: clock}
}

func (s *RepositoryStub) Create(ctx context.Context, expense Expense) (Expense, error) {
	if s.FailWith != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, s.FailWith)
	}
	expense.Id = uuid.NewString()
	expense.CreatedAt = s.clock.Now()
	expense.UpdatedAt = expense.CreatedAt
	s.expenses[expense.Id] = expense
	return expense, nil
}

func (s *RepositoryStub) FindAll(ctx context.Context, filter Filter) ([]Expense, error) {
	if s.FailWith != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, s.FailWith)
	}
	result := make([]Expense, 0, len(s.expenses))
	for _, e := range s.expenses {
		if filter.ProjectId != "" && e.ProjectId != filter.ProjectId {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.From != nil && e.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Date.After(*filter.To) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *RepositoryStub) FindById(ctx context.Context, id string) (Expense, error) {
	if s.FailWith != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, s.FailWith)
	}
	e, ok := s.expenses[id]
	if !ok {
		return Expense{}, ErrExpenseNotFound
	}
	return e, nil
}

func (s *RepositoryStub) UpdateById(ctx context.Context, id string, expense Expense) (Expense, error) {
	if s.FailWith != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, s.FailWith)
	}
	existing, ok := s.expenses[id]
	if !ok {
		return Expense{}, ErrExpenseNotFound
	}
	expense.Id = existing.Id
	expense.CreatedAt = existing.CreatedAt
	expense.UpdatedAt = s.clock.Now()
	s.expenses[id] = expense
	return expense, nil
}

func (s *RepositoryStub) DeleteById(ctx context.Context, id string) error {
	if s.FailWith != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, s.FailWith)
	}
	if _, ok := s.expenses[id]; !ok {
		return ErrExpenseNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *RepositoryStub) Count() int {
	return len(s.expenses)
}

func (s *RepositoryStub) Cleanup() {
	s.expenses = map[string]Expense{}
	s.FailWith = nil
}
