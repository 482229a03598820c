package report

import (
	"context"
	"fmt"

	"github.com/sitetrack/sitetrack/pkg/budget"
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
)

type Service interface {
	Build(ctx context.Context, filter expense.Filter) (Report, error)
}

type ServiceImpl struct {
	expenses   budget.ExpenseLister
	projects   budget.ProjectReader
	aggregator *budget.Aggregator
}

func NewService(expenses budget.ExpenseLister, projects budget.ProjectReader, aggregator *budget.Aggregator) *ServiceImpl {
	return &ServiceImpl{expenses: expenses, projects: projects, aggregator: aggregator}
}

func (s *ServiceImpl) Build(ctx context.Context, filter expense.Filter) (Report, error) {
	expenses, err := s.expenses.List(ctx, filter)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list expenses for report: %w", err)
	}
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list projects for report: %w", err)
	}

	names := make(map[string]string, len(projects))
	budgets := make(map[string]money.Money, len(projects))
	var allocated money.Money
	for _, p := range projects {
		names[p.Id] = p.Name
		budgets[p.Id] = p.AllocatedBudget
		allocated += p.AllocatedBudget
	}

	r := Report{
		Filter:     filter,
		Lines:      make([]Line, 0, len(expenses)),
		Categories: budget.SummarizeByCategory(expenses),
	}
	if filter.ProjectId != "" {
		r.Summary = budget.SummarizeProject(filter.ProjectId, expenses, budgets[filter.ProjectId])
	} else {
		r.Summary = budget.SummarizePortfolioWithin(expenses, allocated)
	}

	for _, e := range expenses {
		line := Line{
			Expense:     e,
			ProjectName: names[e.ProjectId],
			NeedsReview: s.aggregator.NeedsReview(e),
		}
		if line.NeedsReview {
			r.ReviewCount++
		}
		r.Lines = append(r.Lines, line)
	}
	return r, nil
}
