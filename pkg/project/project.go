package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sitetrack/sitetrack/pkg/money"
)

type Status string

const (
	StatusPlanned   Status = "planned"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
)

var Statuses = []Status{StatusPlanned, StatusActive, StatusCompleted, StatusOnHold}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

type Project struct {
	Id          string
	Name        string
	Description string
	Location    string
	Status      Status
	// AllocatedBudget is never negative.
	AllocatedBudget money.Money
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var ErrInvalidProject = errors.New("invalid project")

// Normalize trims text fields, defaults the status and checks the project
// invariants. Every violation is listed in the returned error.
func Normalize(p Project) (Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Location = strings.TrimSpace(p.Location)
	if p.Status == "" {
		p.Status = StatusPlanned
	}

	var problems []string
	if p.Name == "" {
		problems = append(problems, "name must not be empty")
	}
	if p.AllocatedBudget.IsNegative() {
		problems = append(problems, "allocatedBudget must not be negative")
	}
	if !p.Status.Valid() {
		problems = append(problems, fmt.Sprintf("status %q is not one of %v", p.Status, Statuses))
	}
	if len(problems) > 0 {
		return Project{}, fmt.Errorf("%w: %s", ErrInvalidProject, strings.Join(problems, "; "))
	}
	return p, nil
}
