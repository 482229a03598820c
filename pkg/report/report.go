package report

import (
	"github.com/sitetrack/sitetrack/pkg/budget"
	"github.com/sitetrack/sitetrack/pkg/expense"
)

// Line is one expense as it appears in a report.
type Line struct {
	Expense     expense.Expense
	ProjectName string
	NeedsReview bool
}

// Report is an expense listing with its budget figures. Summary covers the
// filtered project when Filter.ProjectId is set, otherwise the portfolio.
type Report struct {
	Filter      expense.Filter
	Lines       []Line
	Summary     budget.Summary
	Categories  []budget.CategoryTotal
	ReviewCount int
}
