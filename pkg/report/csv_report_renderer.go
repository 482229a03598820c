package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const csvDateLayout = "2006-01-02"

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

func (c *CsvRendererImpl) Render(r Report) (string, error) {
	data := make([][]string, 0, len(r.Lines)+len(r.Categories)+8)
	data = append(data, []string{"Date", "Title", "Category", "Payment method", "Project", "Amount", "Needs review"})
	for _, line := range r.Lines {
		e := line.Expense
		data = append(data, []string{
			e.Date.Format(csvDateLayout),
			textCell(e.Title),
			string(e.Category),
			string(e.PaymentMethod),
			textCell(line.ProjectName),
			e.Amount.String(),
			yesNo(line.NeedsReview),
		})
	}

	data = append(data, []string{"Category", "Count", "Total"})
	for _, total := range r.Categories {
		data = append(data, []string{string(total.Category), strconv.Itoa(total.Count), total.Total.String()})
	}

	data = append(data,
		[]string{"Allocated", r.Summary.Allocated.String()},
		[]string{"Spent", r.Summary.Spent.String()},
		[]string{"Remaining", r.Summary.Remaining.String()},
		[]string{"Percent used", strconv.FormatFloat(r.Summary.PercentUsed, 'f', 2, 64)},
		[]string{"Needs review", strconv.Itoa(r.ReviewCount)},
	)

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.WriteAll(data); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

// textCell stops spreadsheets from evaluating user text as a formula.
func textCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
