package report

import (
	"fmt"
	"net/http"

	"github.com/sitetrack/sitetrack/internal/rest"
	"github.com/sitetrack/sitetrack/internal/utils"
	"github.com/sitetrack/sitetrack/pkg/expense"
	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	Render(r Report) (string, error)
}

type Handler struct {
	service  Service
	renderer Renderer
	clock    utils.Clock
}

func NewHandler(service Service, renderer Renderer, clock utils.Clock) *Handler {
	return &Handler{service, renderer, clock}
}

// ExportCsv godoc
// @Summary Export expenses as CSV
// @Description Expense lines, category totals and the budget summary for the same filters as the listing
// @Tags Expense
// @Produce text/csv
// @Param projectId query string false "Project ID"
// @Param category query string false "Category"
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {string} string "CSV"
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/expenses/report.csv [get]
func (h *Handler) ExportCsv(w http.ResponseWriter, r *http.Request) {
	log.Debug("Exporting expense report")
	filter, err := expense.FilterFromQuery(r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Build(r.Context(), filter)
	if err != nil {
		rest.WriteInternalError(w, "failed to build expense report", err)
		return
	}
	csv, err := h.renderer.Render(report)
	if err != nil {
		rest.WriteInternalError(w, "failed to render expense report", err)
		return
	}

	filename := fmt.Sprintf("expenses-%s.csv", utils.Today(h.clock).Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		log.Errorf("failed to write csv report: %v", err)
	}
}
