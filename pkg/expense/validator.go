package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sitetrack/sitetrack/pkg/money"
)

var ErrValidationFailed = errors.New("validation failed")
var ErrProjectNotFound = errors.New("project not found")

const dateLayout = "2006-01-02"

// Input is the raw field set of a create or update request. Amount is kept as
// text so that JSON numbers, JSON strings and form values are parsed the same way.
type Input struct {
	Title         string
	Amount        string
	Category      string
	Date          string
	PaymentMethod string
	ProjectId     string
	Description   string
	Receipt       string
}

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries every rule violation found in one Input.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func (e *ValidationError) add(field, rule, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule, Message: message})
}

// ProjectLookup answers whether a project reference resolves.
type ProjectLookup interface {
	Exists(ctx context.Context, projectId string) (bool, error)
}

type Validator struct {
	projects ProjectLookup
}

func NewValidator(projects ProjectLookup) *Validator {
	return &Validator{projects: projects}
}

// Validate checks every rule independently and returns either a normalized
// Expense or an error. Syntax errors are reported together as a
// *ValidationError; only a syntactically clean input is checked against the
// project lookup, which yields ErrProjectNotFound.
func (v *Validator) Validate(ctx context.Context, in Input) (Expense, error) {
	verr := &ValidationError{}
	var e Expense

	e.Title = strings.TrimSpace(in.Title)
	if e.Title == "" {
		verr.add("title", "required", "title must not be empty")
	}

	amount, err := money.Parse(in.Amount)
	switch {
	case err != nil:
		verr.add("amount", "number", "amount must be a finite number")
	case !amount.IsPositive():
		verr.add("amount", "positive", "amount must be greater than 0")
	default:
		e.Amount = amount
	}

	category := Category(strings.TrimSpace(in.Category))
	if !category.Valid() {
		verr.add("category", "enum", fmt.Sprintf("category %q is not one of %v", in.Category, Categories))
	} else {
		e.Category = category
	}

	date, err := parseDate(in.Date)
	if err != nil {
		verr.add("date", "date", "date must be a valid calendar date (YYYY-MM-DD)")
	} else {
		e.Date = date
	}

	method := PaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		e.PaymentMethod = DefaultPaymentMethod
	} else if !method.Valid() {
		verr.add("paymentMethod", "enum", fmt.Sprintf("payment method %q is not one of %v", in.PaymentMethod, PaymentMethods))
	} else {
		e.PaymentMethod = method
	}

	projectId := strings.TrimSpace(in.ProjectId)
	if projectId != "" {
		parsed, err := uuid.Parse(projectId)
		if err != nil {
			verr.add("projectId", "reference", "projectId is not a valid project reference")
		} else {
			e.ProjectId = parsed.String()
		}
	}

	e.Description = strings.TrimSpace(in.Description)
	e.Receipt = strings.TrimSpace(in.Receipt)

	if len(verr.Fields) > 0 {
		return Expense{}, verr
	}

	if e.ProjectId != "" && v.projects != nil {
		exists, err := v.projects.Exists(ctx, e.ProjectId)
		if err != nil {
			return Expense{}, fmt.Errorf("%w: could not look up project %s: %v", ErrPersistenceUnavailable, e.ProjectId, err)
		}
		if !exists {
			return Expense{}, fmt.Errorf("%w: %s", ErrProjectNotFound, e.ProjectId)
		}
	}

	return e, nil
}

// InputFromExpense turns a stored expense back into raw input, e.g. to
// re-validate it or to apply a partial change on top of it.
func InputFromExpense(e Expense) Input {
	return Input{
		Title:         e.Title,
		Amount:        e.Amount.Decimal().String(),
		Category:      string(e.Category),
		Date:          e.Date.Format(dateLayout),
		PaymentMethod: string(e.PaymentMethod),
		ProjectId:     e.ProjectId,
		Description:   e.Description,
		Receipt:       e.Receipt,
	}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
