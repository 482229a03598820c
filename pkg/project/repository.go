package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitetrack/sitetrack/pkg/money"
	log "github.com/sirupsen/logrus"
)

var ErrProjectNotFound = errors.New("project not found")

type Repository interface {
	Create(ctx context.Context, project Project) (Project, error)
	List(ctx context.Context) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Update(ctx context.Context, project Project) (Project, error)
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const projectColumns = `id, name, description, location, status, allocated_budget_cents, created_at, updated_at`

func (r *RepositoryImpl) Create(ctx context.Context, project Project) (Project, error) {
	query := `INSERT INTO project (
					id,
					name,
					description,
					location,
					status,
					allocated_budget_cents
				) VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING ` + projectColumns

	created, err := scanProject(r.db.QueryRow(ctx, query,
		uuid.NewString(),
		project.Name,
		project.Description,
		project.Location,
		string(project.Status),
		project.AllocatedBudget.Cents(),
	))
	if err != nil {
		err := fmt.Errorf("could not insert project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return created, nil
}

func (r *RepositoryImpl) List(ctx context.Context) ([]Project, error) {
	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM project ORDER BY created_at`)
	if err != nil {
		err := fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			err := fmt.Errorf("error scanning row: %w", err)
			log.Error(err)
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return projects, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id string) (Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Project{}, ErrProjectNotFound
	}
	p, err := scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM project WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		err := fmt.Errorf("could not get project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return p, nil
}

func (r *RepositoryImpl) Update(ctx context.Context, project Project) (Project, error) {
	if _, err := uuid.Parse(project.Id); err != nil {
		return Project{}, ErrProjectNotFound
	}
	query := `UPDATE project SET
					name = $1,
					description = $2,
					location = $3,
					status = $4,
					allocated_budget_cents = $5,
					updated_at = now()
				WHERE id = $6
				RETURNING ` + projectColumns

	updated, err := scanProject(r.db.QueryRow(ctx, query,
		project.Name,
		project.Description,
		project.Location,
		string(project.Status),
		project.AllocatedBudget.Cents(),
		project.Id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		err := fmt.Errorf("could not update project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return updated, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	result, err := r.db.Exec(ctx, "DELETE FROM project WHERE id = $1", id)
	if err != nil {
		err := fmt.Errorf("could not delete project: %w", err)
		log.Error(err)
		return false, err
	}
	return result.RowsAffected() == 1, nil
}

func (r *RepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM project WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		err := fmt.Errorf("could not check project existence: %w", err)
		log.Error(err)
		return false, err
	}
	return exists, nil
}

func scanProject(row pgx.Row) (Project, error) {
	var (
		p           Project
		status      string
		budgetCents int64
	)
	err := row.Scan(
		&p.Id,
		&p.Name,
		&p.Description,
		&p.Location,
		&status,
		&budgetCents,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return Project{}, err
	}
	p.Status = Status(status)
	p.AllocatedBudget = money.FromCents(budgetCents)
	return p, nil
}
