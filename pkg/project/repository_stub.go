package project

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sitetrack/sitetrack/internal/utils"
)

type RepositoryStub struct {
	projects map[string]Project
	clock    utils.Clock
}

func NewRepositoryStub(clock utils.Clock) *RepositoryStub {
	return &RepositoryStub{projects: map[string]Project{}, clock: clock}
}

func (s *RepositoryStub) Create(ctx context.Context, project Project) (Project, error) {
	project.Id = uuid.NewString()
	project.CreatedAt = s.clock.Now()
	project.UpdatedAt = project.CreatedAt
	s.projects[project.Id] = project
	return project, nil
}

func (s *RepositoryStub) List(ctx context.Context) ([]Project, error) {
	projects := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, p)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.Before(projects[j].CreatedAt)
	})
	return projects, nil
}

func (s *RepositoryStub) Get(ctx context.Context, id string) (Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return p, nil
}

func (s *RepositoryStub) Update(ctx context.Context, project Project) (Project, error) {
	existing, ok := s.projects[project.Id]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = s.clock.Now()
	s.projects[project.Id] = project
	return project, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := s.projects[id]; !ok {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}

func (s *RepositoryStub) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := s.projects[id]
	return ok, nil
}

func (s *RepositoryStub) Cleanup() {
	s.projects = map[string]Project{}
}
