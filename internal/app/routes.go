package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sitetrack/sitetrack/internal/rest"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Expenses; the report route comes before {id}
	r.HandleFunc("/api/expenses/report.csv", deps.ReportHandler.ExportCsv).Methods("GET")
	r.HandleFunc("/api/expenses", deps.ExpenseHandler.List).Methods("GET")
	r.HandleFunc("/api/expenses", deps.ExpenseHandler.Create).Methods("POST")
	r.HandleFunc("/api/expenses/{id}", deps.ExpenseHandler.Get).Methods("GET")
	r.HandleFunc("/api/expenses/{id}", deps.ExpenseHandler.Update).Methods("PUT")
	r.HandleFunc("/api/expenses/{id}", deps.ExpenseHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/meta/expense-options", deps.ExpenseHandler.Options).Methods("GET")

	// Receipts
	r.HandleFunc("/api/receipts/{ref}", deps.ReceiptHandler.Get).Methods("GET")

	// Projects
	r.HandleFunc("/api/projects", deps.ProjectHandler.List).Methods("GET")
	r.HandleFunc("/api/projects", deps.ProjectHandler.Create).Methods("POST")
	r.HandleFunc("/api/projects/{id}", deps.ProjectHandler.Get).Methods("GET")
	r.HandleFunc("/api/projects/{id}", deps.ProjectHandler.Update).Methods("PUT")
	r.HandleFunc("/api/projects/{id}", deps.ProjectHandler.Delete).Methods("DELETE")

	// Budget
	r.HandleFunc("/api/projects/{id}/budget", deps.BudgetHandler.ProjectSummary).Methods("GET")
	r.HandleFunc("/api/budget", deps.BudgetHandler.Portfolio).Methods("GET")

	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		rest.WriteJSON(w, http.StatusOK, rest.MessageResponse{Message: "ok"})
	}).Methods("GET")
}
