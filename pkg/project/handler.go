package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sitetrack/sitetrack/internal/rest"
	"github.com/sitetrack/sitetrack/pkg/money"
	log "github.com/sirupsen/logrus"
)

type ProjectDTO struct {
	Id              string      `json:"_id"`
	Name            string      `json:"name"`
	Description     string      `json:"description,omitempty"`
	Location        string      `json:"location,omitempty"`
	Status          string      `json:"status"`
	AllocatedBudget money.Money `json:"allocatedBudget"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// List godoc
// @Summary List projects
// @Tags Project
// @Produce json
// @Success 200 {array} ProjectDTO
// @Router /api/projects [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing projects")
	projects, err := h.service.ListProjects(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, ToDTO(p))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Get godoc
// @Summary Get a project
// @Tags Project
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} ProjectDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/projects/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(p))
}

// Create godoc
// @Summary Create a project
// @Tags Project
// @Accept json
// @Produce json
// @Param project body ProjectDTO true "Project"
// @Success 201 {object} ProjectDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/projects [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new project")
	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.service.CreateProject(r.Context(), FromDTO(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, ToDTO(created))
}

// Update godoc
// @Summary Update a project
// @Tags Project
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param project body ProjectDTO true "Project"
// @Success 200 {object} ProjectDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/projects/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Updating project %s", id)
	var dto ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := FromDTO(dto)
	p.Id = id
	updated, err := h.service.UpdateProject(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, ToDTO(updated))
}

// Delete godoc
// @Summary Delete a project
// @Description Expenses of the project are kept and count as unassigned
// @Tags Project
// @Param id path string true "Project ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/projects/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Deleting project %s", id)
	deleted, err := h.service.DeleteProject(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !deleted {
		rest.WriteError(w, http.StatusNotFound, ErrProjectNotFound.Error())
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.MessageResponse{Message: "Project deleted successfully"})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidProject):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProjectNotFound):
		rest.WriteError(w, http.StatusNotFound, err.Error())
	default:
		rest.WriteInternalError(w, "project request failed", err)
	}
}

func ToDTO(p Project) ProjectDTO {
	return ProjectDTO{
		Id:              p.Id,
		Name:            p.Name,
		Description:     p.Description,
		Location:        p.Location,
		Status:          string(p.Status),
		AllocatedBudget: p.AllocatedBudget,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func FromDTO(dto ProjectDTO) Project {
	return Project{
		Id:              dto.Id,
		Name:            dto.Name,
		Description:     dto.Description,
		Location:        dto.Location,
		Status:          Status(dto.Status),
		AllocatedBudget: dto.AllocatedBudget,
	}
}
