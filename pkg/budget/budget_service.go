package budget

import (
	"context"
	"fmt"

	"github.com/sitetrack/sitetrack/internal/event_bus"
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
	"github.com/sitetrack/sitetrack/pkg/project"
	log "github.com/sirupsen/logrus"
)

type ExpenseLister interface {
	List(ctx context.Context, filter expense.Filter) ([]expense.Expense, error)
}

type ProjectReader interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (project.Project, error)
}

type Service interface {
	ProjectSummary(ctx context.Context, projectId string) (Summary, error)
	Portfolio(ctx context.Context) (Portfolio, error)
}

type ServiceImpl struct {
	expenses   ExpenseLister
	projects   ProjectReader
	aggregator *Aggregator
}

// NewService builds the budget service. With a non-nil bus it also logs a
// warning for every recorded expense above the review threshold and notes
// projects whose expenses became unassigned.
func NewService(expenses ExpenseLister, projects ProjectReader, aggregator *Aggregator, bus *event_bus.EventBus) *ServiceImpl {
	s := &ServiceImpl{expenses: expenses, projects: projects, aggregator: aggregator}
	if bus != nil {
		event_bus.SubscribeTyped(bus, event_bus.ExpenseRecordedType, s.onExpenseRecorded)
		event_bus.SubscribeTyped(bus, event_bus.ProjectDeletedType, s.onProjectDeleted)
	}
	return s
}

func (s *ServiceImpl) ProjectSummary(ctx context.Context, projectId string) (Summary, error) {
	p, err := s.projects.GetProject(ctx, projectId)
	if err != nil {
		return Summary{}, err
	}
	expenses, err := s.expenses.List(ctx, expense.Filter{ProjectId: p.Id})
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list expenses of project %s: %w", p.Id, err)
	}
	return SummarizeProject(p.Id, expenses, p.AllocatedBudget), nil
}

// Portfolio summarizes every project. Expenses without a project, or whose
// project no longer exists, count as unassigned.
func (s *ServiceImpl) Portfolio(ctx context.Context) (Portfolio, error) {
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return Portfolio{}, fmt.Errorf("failed to list projects: %w", err)
	}
	expenses, err := s.expenses.List(ctx, expense.Filter{})
	if err != nil {
		return Portfolio{}, fmt.Errorf("failed to list expenses: %w", err)
	}

	known := make(map[string]bool, len(projects))
	allocated := make([]money.Money, 0, len(projects))
	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		known[p.Id] = true
		allocated = append(allocated, p.AllocatedBudget)
		summaries = append(summaries, ProjectSummary{
			Summary: SummarizeProject(p.Id, expenses, p.AllocatedBudget),
			Name:    p.Name,
		})
	}

	var unassigned money.Money
	for _, e := range expenses {
		if !known[e.ProjectId] {
			unassigned += e.Amount
		}
	}

	return Portfolio{
		Total:      SummarizePortfolioWithin(expenses, money.Sum(allocated...)),
		Projects:   summaries,
		Unassigned: unassigned,
		Categories: SummarizeByCategory(expenses),
	}, nil
}

func (s *ServiceImpl) onExpenseRecorded(e event_bus.EventT[event_bus.ExpenseRecorded]) error {
	amount := money.FromCents(e.Data.AmountCents)
	if amount > s.aggregator.Threshold() {
		log.WithFields(log.Fields{
			"expense":   e.Data.Id,
			"title":     e.Data.Title,
			"amount":    amount.String(),
			"project":   e.Data.ProjectId,
			"threshold": s.aggregator.Threshold().String(),
		}).Warn("Expense needs manual review")
	}
	return nil
}

func (s *ServiceImpl) onProjectDeleted(e event_bus.EventT[event_bus.ProjectDeleted]) error {
	expenses, err := s.expenses.List(e.Context(), expense.Filter{ProjectId: e.Data.Id})
	if err != nil {
		return fmt.Errorf("failed to list expenses of deleted project %s: %w", e.Data.Id, err)
	}
	if len(expenses) > 0 {
		log.Infof("Project %q deleted, %d expense(s) now count as unassigned", e.Data.Name, len(expenses))
	}
	return nil
}
