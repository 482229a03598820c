package project

import (
	"context"
	"fmt"

	"github.com/sitetrack/sitetrack/internal/event_bus"
	"github.com/sitetrack/sitetrack/pkg/money"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	CreateProject(ctx context.Context, project Project) (Project, error)
	UpdateProject(ctx context.Context, project Project) (Project, error)
	DeleteProject(ctx context.Context, id string) (bool, error)
	// Exists and GetAllocatedBudget form the lookup capability used by the expense core.
	Exists(ctx context.Context, id string) (bool, error)
	GetAllocatedBudget(ctx context.Context, id string) (money.Money, error)
}

type ServiceImpl struct {
	repo     Repository
	eventBus *event_bus.EventBus
}

func NewService(repo Repository, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, eventBus: eventBus}
}

func (s *ServiceImpl) ListProjects(ctx context.Context) ([]Project, error) {
	return s.repo.List(ctx)
}

func (s *ServiceImpl) GetProject(ctx context.Context, id string) (Project, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) CreateProject(ctx context.Context, project Project) (Project, error) {
	normalized, err := Normalize(project)
	if err != nil {
		return Project{}, err
	}
	return s.repo.Create(ctx, normalized)
}

func (s *ServiceImpl) UpdateProject(ctx context.Context, project Project) (Project, error) {
	normalized, err := Normalize(project)
	if err != nil {
		return Project{}, err
	}
	return s.repo.Update(ctx, normalized)
}

// DeleteProject removes the project. Its expenses stay in place and are
// reported as unassigned spend afterwards.
func (s *ServiceImpl) DeleteProject(ctx context.Context, id string) (bool, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return false, err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if s.eventBus != nil {
		err = s.eventBus.Publish(event_bus.NewEvent(ctx, event_bus.ProjectDeletedType, event_bus.ProjectDeleted{
			Id:   existing.Id,
			Name: existing.Name,
		}))
		if err != nil {
			log.Errorf("failed to publish project deleted event: %v", err)
		}
	}
	return true, nil
}

func (s *ServiceImpl) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

func (s *ServiceImpl) GetAllocatedBudget(ctx context.Context, id string) (money.Money, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("could not get allocated budget of %s: %w", id, err)
	}
	return p.AllocatedBudget, nil
}
