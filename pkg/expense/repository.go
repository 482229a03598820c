package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitetrack/sitetrack/pkg/money"
	log "github.com/sirupsen/logrus"
)

var ErrExpenseNotFound = errors.New("expense not found")

// ErrPersistenceUnavailable wraps every failure of the underlying store.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

type Repository interface {
	Create(ctx context.Context, expense Expense) (Expense, error)
	FindAll(ctx context.Context, filter Filter) ([]Expense, error)
	FindById(ctx context.Context, id string) (Expense, error)
	UpdateById(ctx context.Context, id string, expense Expense) (Expense, error)
	DeleteById(ctx context.Context, id string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const expenseColumns = `id, title, amount_cents, category, expense_date, payment_method,
	project_id, receipt, description, created_at, updated_at`

func (r *RepositoryImpl) Create(ctx context.Context, expense Expense) (Expense, error) {
	query := `INSERT INTO expense (
					id,
					title,
					amount_cents,
					category,
					expense_date,
					payment_method,
					project_id,
					receipt,
					description
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING ` + expenseColumns

	row := r.db.QueryRow(ctx, query,
		uuid.NewString(),
		expense.Title,
		expense.Amount.Cents(),
		string(expense.Category),
		expense.Date,
		string(expense.PaymentMethod),
		nullable(expense.ProjectId),
		nullable(expense.Receipt),
		nullable(expense.Description),
	)
	created, err := scanExpense(row)
	if err != nil {
		return Expense{}, storageError("could not insert expense", err)
	}
	return created, nil
}

func (r *RepositoryImpl) FindAll(ctx context.Context, filter Filter) ([]Expense, error) {
	var conditions []string
	var args []any
	if filter.ProjectId != "" {
		args = append(args, filter.ProjectId)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", len(args)))
	}

	query := `SELECT ` + expenseColumns + ` FROM expense`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY expense_date DESC, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storageError("could not query expenses", err)
	}
	defer rows.Close()

	expenses := make([]Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, storageError("error scanning row", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("error iterating over rows", err)
	}
	return expenses, nil
}

func (r *RepositoryImpl) FindById(ctx context.Context, id string) (Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Expense{}, ErrExpenseNotFound
	}
	query := `SELECT ` + expenseColumns + ` FROM expense WHERE id = $1`
	e, err := scanExpense(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrExpenseNotFound
		}
		return Expense{}, storageError("could not get expense", err)
	}
	return e, nil
}

// UpdateById replaces all user-settable fields. Concurrent updates are last-write-wins.
func (r *RepositoryImpl) UpdateById(ctx context.Context, id string, expense Expense) (Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Expense{}, ErrExpenseNotFound
	}
	query := `UPDATE expense SET
					title = $1,
					amount_cents = $2,
					category = $3,
					expense_date = $4,
					payment_method = $5,
					project_id = $6,
					receipt = $7,
					description = $8,
					updated_at = now()
				WHERE id = $9
				RETURNING ` + expenseColumns

	row := r.db.QueryRow(ctx, query,
		expense.Title,
		expense.Amount.Cents(),
		string(expense.Category),
		expense.Date,
		string(expense.PaymentMethod),
		nullable(expense.ProjectId),
		nullable(expense.Receipt),
		nullable(expense.Description),
		id,
	)
	updated, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrExpenseNotFound
		}
		return Expense{}, storageError("could not update expense", err)
	}
	return updated, nil
}

func (r *RepositoryImpl) DeleteById(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrExpenseNotFound
	}
	result, err := r.db.Exec(ctx, "DELETE FROM expense WHERE id = $1", id)
	if err != nil {
		return storageError("could not delete expense", err)
	}
	if result.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e           Expense
		amountCents int64
		category    string
		method      string
		projectId   *string
		receipt     *string
		description *string
		date        time.Time
	)
	err := row.Scan(
		&e.Id,
		&e.Title,
		&amountCents,
		&category,
		&date,
		&method,
		&projectId,
		&receipt,
		&description,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return Expense{}, err
	}
	e.Amount = money.FromCents(amountCents)
	e.Category = Category(category)
	e.PaymentMethod = PaymentMethod(method)
	e.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if projectId != nil {
		e.ProjectId = *projectId
	}
	if receipt != nil {
		e.Receipt = *receipt
	}
	if description != nil {
		e.Description = *description
	}
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func storageError(msg string, err error) error {
	err = fmt.Errorf("%w: %s: %v", ErrPersistenceUnavailable, msg, err)
	log.Error(err)
	return err
}
