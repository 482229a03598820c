package budget

import (
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
)

// DefaultReviewThreshold flags expenses above 1000.00 for manual review.
var DefaultReviewThreshold = money.FromCents(100000)

// Aggregator computes budget figures from an in-memory snapshot of expenses.
// It never modifies its inputs.
type Aggregator struct {
	reviewThreshold money.Money
}

func NewAggregator(reviewThreshold money.Money) *Aggregator {
	return &Aggregator{reviewThreshold: reviewThreshold}
}

func (a *Aggregator) Threshold() money.Money {
	return a.reviewThreshold
}

func (a *Aggregator) NeedsReview(e expense.Expense) bool {
	return FlagHighValue(e, a.reviewThreshold)
}

// SummarizeProject totals the expenses allocated to projectId; others are ignored.
func SummarizeProject(projectId string, expenses []expense.Expense, allocated money.Money) Summary {
	var spent money.Money
	for _, e := range expenses {
		if e.ProjectId == projectId {
			spent += e.Amount
		}
	}
	return newSummary(projectId, allocated, spent)
}

// SummarizePortfolio totals every expense. Allocated stays zero; callers that
// know the project budgets use SummarizePortfolioWithin.
func SummarizePortfolio(expenses []expense.Expense) Summary {
	return SummarizePortfolioWithin(expenses, 0)
}

func SummarizePortfolioWithin(expenses []expense.Expense, allocated money.Money) Summary {
	var spent money.Money
	for _, e := range expenses {
		spent += e.Amount
	}
	return newSummary("", allocated, spent)
}

// FlagHighValue reports whether the amount is strictly above threshold.
func FlagHighValue(e expense.Expense, threshold money.Money) bool {
	return e.Amount > threshold
}

// SummarizeByCategory returns one total per known category, in enumeration
// order, including categories without expenses.
func SummarizeByCategory(expenses []expense.Expense) []CategoryTotal {
	index := make(map[expense.Category]int, len(expense.Categories))
	totals := make([]CategoryTotal, len(expense.Categories))
	for i, c := range expense.Categories {
		index[c] = i
		totals[i] = CategoryTotal{Category: c}
	}
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			continue
		}
		totals[i].Total += e.Amount
		totals[i].Count++
	}
	return totals
}
