package budget

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sitetrack/sitetrack/internal/rest"
	"github.com/sitetrack/sitetrack/pkg/expense"
	"github.com/sitetrack/sitetrack/pkg/money"
	"github.com/sitetrack/sitetrack/pkg/project"
	log "github.com/sirupsen/logrus"
)

type SummaryDTO struct {
	ProjectId   string      `json:"projectId,omitempty"`
	Name        string      `json:"name,omitempty"`
	Allocated   money.Money `json:"allocated"`
	Spent       money.Money `json:"spent"`
	Remaining   money.Money `json:"remaining"`
	PercentUsed float64     `json:"percentUsed"`
}

type CategoryTotalDTO struct {
	Category expense.Category `json:"category"`
	Total    money.Money      `json:"total"`
	Count    int              `json:"count"`
}

type PortfolioDTO struct {
	Total      SummaryDTO         `json:"total"`
	Projects   []SummaryDTO       `json:"projects"`
	Unassigned money.Money        `json:"unassigned"`
	Categories []CategoryTotalDTO `json:"categories"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

// ProjectSummary godoc
// @Summary Budget of a project
// @Description Allocated budget, spend, remaining balance and percentage used
// @Tags Budget
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} SummaryDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/projects/{id}/budget [get]
func (h *Handler) ProjectSummary(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Summarizing budget of project %s", id)
	summary, err := h.service.ProjectSummary(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrProjectNotFound) {
			rest.WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		rest.WriteInternalError(w, "failed to summarize project "+id, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, SummaryToDTO(summary, ""))
}

// Portfolio godoc
// @Summary Portfolio budget
// @Description Totals across all projects, per-project summaries, unassigned spend and category breakdown
// @Tags Budget
// @Produce json
// @Success 200 {object} PortfolioDTO
// @Router /api/budget [get]
func (h *Handler) Portfolio(w http.ResponseWriter, r *http.Request) {
	log.Debug("Summarizing portfolio budget")
	portfolio, err := h.service.Portfolio(r.Context())
	if err != nil {
		rest.WriteInternalError(w, "failed to summarize portfolio", err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, PortfolioToDTO(portfolio))
}

func SummaryToDTO(s Summary, name string) SummaryDTO {
	return SummaryDTO{
		ProjectId:   s.ProjectId,
		Name:        name,
		Allocated:   s.Allocated,
		Spent:       s.Spent,
		Remaining:   s.Remaining,
		PercentUsed: s.PercentUsed,
	}
}

func PortfolioToDTO(p Portfolio) PortfolioDTO {
	dto := PortfolioDTO{
		Total:      SummaryToDTO(p.Total, ""),
		Projects:   make([]SummaryDTO, 0, len(p.Projects)),
		Unassigned: p.Unassigned,
		Categories: make([]CategoryTotalDTO, 0, len(p.Categories)),
	}
	for _, ps := range p.Projects {
		dto.Projects = append(dto.Projects, SummaryToDTO(ps.Summary, ps.Name))
	}
	for _, c := range p.Categories {
		dto.Categories = append(dto.Categories, CategoryTotalDTO{Category: c.Category, Total: c.Total, Count: c.Count})
	}
	return dto
}
