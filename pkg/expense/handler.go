package expense

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sitetrack/sitetrack/internal/rest"
	"github.com/sitetrack/sitetrack/pkg/money"
	log "github.com/sirupsen/logrus"
)

type ExpenseDTO struct {
	Id            string      `json:"_id"`
	Title         string      `json:"title"`
	Amount        money.Money `json:"amount"`
	Category      string      `json:"category"`
	Date          time.Time   `json:"date"`
	Description   string      `json:"description,omitempty"`
	PaymentMethod string      `json:"paymentMethod"`
	ProjectId     string      `json:"projectId,omitempty"`
	Receipt       string      `json:"receipt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	NeedsReview   bool        `json:"needsReview"`
}

// ExpenseRequest is the JSON body of create and update calls. Amount may be
// a number or a numeric string. Receipts are only attached by uploading a file.
type ExpenseRequest struct {
	Title         string          `json:"title"`
	Amount        json.RawMessage `json:"amount"`
	Category      string          `json:"category"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"paymentMethod"`
	ProjectId     string          `json:"projectId"`
	Description   string          `json:"description"`
}

type OptionsDTO struct {
	Categories      []Category      `json:"categories"`
	PaymentMethods  []PaymentMethod `json:"paymentMethods"`
	DefaultPayment  PaymentMethod   `json:"defaultPaymentMethod"`
	ReviewThreshold money.Money     `json:"reviewThreshold"`
}

// ReceiptStore keeps uploaded receipt files and hands out opaque references.
type ReceiptStore interface {
	Store(ctx context.Context, originalName string, content io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Reviewer tells whether an expense needs manual review.
type Reviewer interface {
	NeedsReview(e Expense) bool
	Threshold() money.Money
}

type Handler struct {
	service        Service
	receipts       ReceiptStore
	reviewer       Reviewer
	maxUploadBytes int64
}

func NewHandler(service Service, receipts ReceiptStore, reviewer Reviewer, maxUploadBytes int64) *Handler {
	return &Handler{service: service, receipts: receipts, reviewer: reviewer, maxUploadBytes: maxUploadBytes}
}

// List godoc
// @Summary List expenses
// @Description Expenses ordered by date, newest first
// @Tags Expense
// @Produce json
// @Param projectId query string false "Project ID"
// @Param category query string false "Category"
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Success 200 {array} ExpenseDTO
// @Failure 400 {object} rest.ErrorResponse
// @Router /api/expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing expenses")
	filter, err := FilterFromQuery(r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]ExpenseDTO, 0, len(expenses))
	for _, e := range expenses {
		dtos = append(dtos, h.toDTO(e))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// Get godoc
// @Summary Get an expense
// @Tags Expense
// @Produce json
// @Param id path string true "Expense ID"
// @Success 200 {object} ExpenseDTO
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/expenses/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.toDTO(e))
}

// Create godoc
// @Summary Record an expense
// @Description Accepts JSON or multipart/form-data with an optional "receipt" file
// @Tags Expense
// @Accept json,mpfd
// @Produce json
// @Param expense body ExpenseRequest true "Expense"
// @Success 201 {object} ExpenseDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 500 {object} rest.ErrorResponse
// @Router /api/expenses [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Recording new expense")
	in, uploaded, err := h.readInput(w, r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.discardUpload(r.Context(), uploaded)
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, h.toDTO(created))
}

// Update godoc
// @Summary Update an expense
// @Description Replaces every user-settable field. Without a new file the stored receipt is kept; a new file replaces it.
// @Tags Expense
// @Accept json,mpfd
// @Produce json
// @Param id path string true "Expense ID"
// @Param expense body ExpenseRequest true "Expense"
// @Success 200 {object} ExpenseDTO
// @Failure 400 {object} rest.ErrorResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/expenses/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Updating expense %s", id)
	in, uploaded, err := h.readInput(w, r)
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if uploaded == "" {
		existing, err := h.service.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		in.Receipt = existing.Receipt
	}

	updated, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.discardUpload(r.Context(), uploaded)
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, h.toDTO(updated))
}

// Delete godoc
// @Summary Delete an expense
// @Tags Expense
// @Param id path string true "Expense ID"
// @Success 200 {object} rest.MessageResponse
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/expenses/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log.Debugf("Deleting expense %s", id)
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.MessageResponse{Message: "Expense deleted successfully"})
}

// Options godoc
// @Summary Expense form options
// @Description Categories, payment methods and the review threshold
// @Tags Expense
// @Produce json
// @Success 200 {object} OptionsDTO
// @Router /api/meta/expense-options [get]
func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	dto := OptionsDTO{
		Categories:     Categories,
		PaymentMethods: PaymentMethods,
		DefaultPayment: DefaultPaymentMethod,
	}
	if h.reviewer != nil {
		dto.ReviewThreshold = h.reviewer.Threshold()
	}
	rest.WriteJSON(w, http.StatusOK, dto)
}

func (h *Handler) toDTO(e Expense) ExpenseDTO {
	dto := ToDTO(e)
	if h.reviewer != nil {
		dto.NeedsReview = h.reviewer.NeedsReview(e)
	}
	return dto
}

// readInput decodes a JSON or multipart body. For multipart requests an
// uploaded "receipt" file is stored first and its reference returned, so the
// caller can discard it if the expense is rejected.
func (h *Handler) readInput(w http.ResponseWriter, r *http.Request) (Input, string, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var req ExpenseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return Input{}, "", err
		}
		amount, err := rawAmount(req.Amount)
		if err != nil {
			return Input{}, "", err
		}
		return Input{
			Title:         req.Title,
			Amount:        amount,
			Category:      req.Category,
			Date:          req.Date,
			PaymentMethod: req.PaymentMethod,
			ProjectId:     req.ProjectId,
			Description:   req.Description,
		}, "", nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return Input{}, "", err
	}
	in := Input{
		Title:         r.FormValue("title"),
		Amount:        r.FormValue("amount"),
		Category:      r.FormValue("category"),
		Date:          r.FormValue("date"),
		PaymentMethod: r.FormValue("paymentMethod"),
		ProjectId:     r.FormValue("projectId"),
		Description:   r.FormValue("description"),
	}

	file, header, err := r.FormFile("receipt")
	if errors.Is(err, http.ErrMissingFile) {
		return in, "", nil
	}
	if err != nil {
		return Input{}, "", err
	}
	defer file.Close()

	ref, err := h.receipts.Store(r.Context(), header.Filename, file)
	if err != nil {
		return Input{}, "", err
	}
	in.Receipt = ref
	return in, ref, nil
}

func (h *Handler) discardUpload(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := h.receipts.Delete(ctx, ref); err != nil {
		log.Warnf("could not discard receipt %s of rejected expense: %v", ref, err)
	}
}

// rawAmount returns the text of a JSON number or string; null and absent become "".
func rawAmount(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

// FilterFromQuery reads projectId, category, from and to query parameters.
func FilterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{}

	if p := strings.TrimSpace(q.Get("projectId")); p != "" {
		parsed, err := uuid.Parse(p)
		if err != nil {
			return Filter{}, errors.New("invalid projectId: " + p)
		}
		filter.ProjectId = parsed.String()
	}

	if c := strings.TrimSpace(q.Get("category")); c != "" {
		if !Category(c).Valid() {
			return Filter{}, errors.New("invalid category: " + c)
		}
		filter.Category = Category(c)
	}
	if s := q.Get("from"); s != "" {
		from, err := time.Parse(dateLayout, s)
		if err != nil {
			return Filter{}, errors.New("'from' must be a date in YYYY-MM-DD format")
		}
		filter.From = &from
	}
	if s := q.Get("to"); s != "" {
		to, err := time.Parse(dateLayout, s)
		if err != nil {
			return Filter{}, errors.New("'to' must be a date in YYYY-MM-DD format")
		}
		filter.To = &to
	}
	return filter, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		rest.WriteErrorDetails(w, http.StatusBadRequest, ErrValidationFailed.Error(), verr.Fields)
	case errors.Is(err, ErrProjectNotFound):
		rest.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrExpenseNotFound):
		rest.WriteError(w, http.StatusNotFound, err.Error())
	default:
		rest.WriteInternalError(w, "expense request failed", err)
	}
}

func ToDTO(e Expense) ExpenseDTO {
	return ExpenseDTO{
		Id:            e.Id,
		Title:         e.Title,
		Amount:        e.Amount,
		Category:      string(e.Category),
		Date:          e.Date,
		Description:   e.Description,
		PaymentMethod: string(e.PaymentMethod),
		ProjectId:     e.ProjectId,
		Receipt:       e.Receipt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
