package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sitetrack/sitetrack/internal/utils"
	"github.com/sitetrack/sitetrack/pkg/budget"
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
	"github.com/sitetrack/sitetrack/pkg/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func setup(t *testing.T) (project.Service, expense.Service, *ServiceImpl) {
	clock := &utils.MockClock{FixedNow: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)}
	projects := project.NewService(project.NewRepositoryStub(clock), nil)
	expenses := expense.NewService(expense.NewRepositoryStub(clock), expense.NewValidator(projects), nil, nil)
	return projects, expenses, NewService(expenses, projects, budget.NewAggregator(budget.DefaultReviewThreshold))
}

func record(t *testing.T, expenses expense.Service, title, amount, projectId string) {
	t.Helper()
	_, err := expenses.Create(ctx, expense.Input{
		Title:     title,
		Amount:    amount,
		Category:  "labor",
		Date:      "2024-05-01",
		ProjectId: projectId,
	})
	require.NoError(t, err)
}

func TestServiceImpl_Build(t *testing.T) {
	projects, expenses, service := setup(t)
	tower, err := projects.CreateProject(ctx, project.Project{Name: "Tower", AllocatedBudget: money.FromCents(400000)})
	require.NoError(t, err)
	_, err = projects.CreateProject(ctx, project.Project{Name: "Bridge", AllocatedBudget: money.FromCents(100000)})
	require.NoError(t, err)
	record(t, expenses, "Crew", "1200", tower.Id)
	record(t, expenses, "Cleanup", "300", "")

	t.Run("portfolio report", func(t *testing.T) {
		r, err := service.Build(ctx, expense.Filter{})

		require.NoError(t, err)
		assert.Len(t, r.Lines, 2)
		assert.Equal(t, money.FromCents(500000), r.Summary.Allocated)
		assert.Equal(t, money.FromCents(150000), r.Summary.Spent)
		assert.Equal(t, 30.0, r.Summary.PercentUsed)
		assert.Equal(t, 1, r.ReviewCount)
	})

	t.Run("project report", func(t *testing.T) {
		r, err := service.Build(ctx, expense.Filter{ProjectId: tower.Id})

		require.NoError(t, err)
		require.Len(t, r.Lines, 1)
		assert.Equal(t, "Tower", r.Lines[0].ProjectName)
		assert.True(t, r.Lines[0].NeedsReview)
		assert.Equal(t, tower.Id, r.Summary.ProjectId)
		assert.Equal(t, money.FromCents(280000), r.Summary.Remaining)
	})
}

func TestHandler_ExportCsv(t *testing.T) {
	_, expenses, service := setup(t)
	record(t, expenses, "Crew", "120", "")
	clock := &utils.MockClock{}
	clock.SetNow(time.Date(2024, 5, 2, 17, 30, 0, 0, time.UTC))
	handler := NewHandler(service, NewCsvRenderer(), clock)

	t.Run("should return csv", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ExportCsv(rr, httptest.NewRequest("GET", "/api/expenses/report.csv?category=labor", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="expenses-2024-05-02.csv"`, rr.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(rr.Body.String(), "Date,Title,Category"))
		assert.Contains(t, rr.Body.String(), "2024-05-01,Crew,labor,cash,,120.00,no\n")
	})

	t.Run("should reject bad filter", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ExportCsv(rr, httptest.NewRequest("GET", "/api/expenses/report.csv?to=tomorrow", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should reject malformed project id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ExportCsv(rr, httptest.NewRequest("GET", "/api/expenses/report.csv?projectId=abc", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
