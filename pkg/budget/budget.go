package budget

import (
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
)

// Summary is spend against allocation, derived on demand and never stored.
type Summary struct {
	// ProjectId is empty for a portfolio summary.
	ProjectId string
	Allocated money.Money
	Spent     money.Money
	Remaining money.Money
	// PercentUsed is Spent/Allocated*100 rounded to two decimals, 0 when
	// nothing is allocated. It may exceed 100.
	PercentUsed float64
}

type CategoryTotal struct {
	Category expense.Category
	Total    money.Money
	Count    int
}

// Portfolio is the budget view across every project.
type Portfolio struct {
	Total      Summary
	Projects   []ProjectSummary
	Unassigned money.Money
	Categories []CategoryTotal
}

type ProjectSummary struct {
	Summary
	Name string
}

func newSummary(projectId string, allocated, spent money.Money) Summary {
	return Summary{
		ProjectId:   projectId,
		Allocated:   allocated,
		Spent:       spent,
		Remaining:   allocated - spent,
		PercentUsed: money.Percent(spent, allocated),
	}
}
