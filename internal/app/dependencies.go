package app

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitetrack/sitetrack/internal/config"
	"github.com/sitetrack/sitetrack/internal/event_bus"
	"github.com/sitetrack/sitetrack/internal/utils"
	"github.com/sitetrack/sitetrack/pkg/budget"
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
	"github.com/sitetrack/sitetrack/pkg/project"
	"github.com/sitetrack/sitetrack/pkg/receipt"
	"github.com/sitetrack/sitetrack/pkg/report"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	EventBus *event_bus.EventBus
	Clock    utils.Clock

	ProjectRepo    project.Repository
	ProjectService *project.ServiceImpl
	ProjectHandler *project.Handler

	ReceiptStorage *receipt.FileStorage
	ReceiptHandler *receipt.Handler

	Aggregator       *budget.Aggregator
	ExpenseRepo      expense.Repository
	ExpenseValidator *expense.Validator
	ExpenseService   *expense.ServiceImpl
	ExpenseHandler   *expense.Handler

	BudgetService *budget.ServiceImpl
	BudgetHandler *budget.Handler

	ReportService *report.ServiceImpl
	CsvRenderer   *report.CsvRendererImpl
	ReportHandler *report.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.EventBus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	threshold, err := money.Parse(cfg.Budget.ReviewThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid budget.reviewthreshold %q: %w", cfg.Budget.ReviewThreshold, err)
	}
	deps.Aggregator = budget.NewAggregator(threshold)

	deps.ProjectRepo = project.NewRepository(db)
	deps.ProjectService = project.NewService(deps.ProjectRepo, deps.EventBus)
	deps.ProjectHandler = project.NewHandler(deps.ProjectService)

	deps.ReceiptStorage, err = receipt.NewFileStorage(cfg.Receipts.Dir, cfg.Receipts.MaxBytes())
	if err != nil {
		return nil, err
	}
	deps.ReceiptHandler = receipt.NewHandler(deps.ReceiptStorage)

	deps.ExpenseRepo = expense.NewRepository(db)
	deps.ExpenseValidator = expense.NewValidator(deps.ProjectService)
	deps.ExpenseService = expense.NewService(deps.ExpenseRepo, deps.ExpenseValidator, deps.ReceiptStorage, deps.EventBus)
	deps.ExpenseHandler = expense.NewHandler(deps.ExpenseService, deps.ReceiptStorage, deps.Aggregator, cfg.Receipts.MaxBytes())

	deps.BudgetService = budget.NewService(deps.ExpenseService, deps.ProjectService, deps.Aggregator, deps.EventBus)
	deps.BudgetHandler = budget.NewHandler(deps.BudgetService)

	deps.ReportService = report.NewService(deps.ExpenseService, deps.ProjectService, deps.Aggregator)
	deps.CsvRenderer = report.NewCsvRenderer()
	deps.ReportHandler = report.NewHandler(deps.ReportService, deps.CsvRenderer, deps.Clock)

	return deps, nil
}
