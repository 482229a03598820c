package expense

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sitetrack/sitetrack/internal/rest"
	"github.com/sitetrack/sitetrack/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type receiptStoreStub struct {
	stored  map[string][]byte
	deleted []string
}

func (s *receiptStoreStub) Store(ctx context.Context, originalName string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	ref := "receipt-test-" + originalName
	s.stored[ref] = data
	return ref, nil
}

func (s *receiptStoreStub) Delete(ctx context.Context, ref string) error {
	s.deleted = append(s.deleted, ref)
	delete(s.stored, ref)
	return nil
}

type thresholdReviewer struct {
	threshold money.Money
}

func (r thresholdReviewer) NeedsReview(e Expense) bool {
	return e.Amount > r.threshold
}

func (r thresholdReviewer) Threshold() money.Money {
	return r.threshold
}

var uploads *receiptStoreStub

func setupRouter(t *testing.T) (*mux.Router, func()) {
	teardown := setup(t)
	uploads = &receiptStoreStub{stored: map[string][]byte{}}
	handler := NewHandler(service, uploads, thresholdReviewer{threshold: money.FromCents(100000)}, 1<<20)

	router := mux.NewRouter()
	router.HandleFunc("/api/expenses", handler.List).Methods("GET")
	router.HandleFunc("/api/expenses", handler.Create).Methods("POST")
	router.HandleFunc("/api/expenses/{id}", handler.Get).Methods("GET")
	router.HandleFunc("/api/expenses/{id}", handler.Update).Methods("PUT")
	router.HandleFunc("/api/expenses/{id}", handler.Delete).Methods("DELETE")
	router.HandleFunc("/api/meta/expense-options", handler.Options).Methods("GET")
	return router, teardown
}

func postJSON(router http.Handler, method, url, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Create(t *testing.T) {
	t.Run("should create from JSON with numeric amount", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		// when
		rr := postJSON(router, "POST", "/api/expenses",
			`{"title":"Cement","amount":500,"category":"material","date":"2024-05-01","paymentMethod":"cash"}`)

		// then
		require.Equal(t, http.StatusCreated, rr.Code)
		var dto ExpenseDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
		assert.NotEmpty(t, dto.Id)
		assert.Equal(t, money.FromCents(50000), dto.Amount)
		assert.Equal(t, "material", dto.Category)
		assert.False(t, dto.NeedsReview)
	})

	t.Run("should accept amount as string and flag review", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		rr := postJSON(router, "POST", "/api/expenses",
			`{"title":"Excavator","amount":"1000.01","category":"equipment","date":"2024-05-01"}`)

		require.Equal(t, http.StatusCreated, rr.Code)
		var dto ExpenseDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
		assert.True(t, dto.NeedsReview)
		assert.Equal(t, "cash", dto.PaymentMethod)
	})

	t.Run("should return field errors", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		// when
		rr := postJSON(router, "POST", "/api/expenses",
			`{"title":"Fuel","amount":-10,"category":"fuel","date":"2024-05-01"}`)

		// then
		require.Equal(t, http.StatusBadRequest, rr.Code)
		var resp struct {
			Message string       `json:"message"`
			Errors  []FieldError `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "validation failed", resp.Message)
		fields := map[string]string{}
		for _, f := range resp.Errors {
			fields[f.Field] = f.Rule
		}
		assert.Equal(t, "positive", fields["amount"])
		assert.Equal(t, "enum", fields["category"])
		assert.Equal(t, 0, repoStub.Count())
	})

	t.Run("should reject unknown project", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		rr := postJSON(router, "POST", "/api/expenses",
			`{"title":"Sand","amount":5,"category":"material","date":"2024-05-01","projectId":"00000000-0000-4000-8000-000000000000"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		rr := postJSON(router, "POST", "/api/expenses", `{"title":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("should store an uploaded receipt", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		// given
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("title", "Lumber"))
		require.NoError(t, writer.WriteField("amount", "89.90"))
		require.NoError(t, writer.WriteField("category", "material"))
		require.NoError(t, writer.WriteField("date", "2024-05-01"))
		part, err := writer.CreateFormFile("receipt", "lumber.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg bytes"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest("POST", "/api/expenses", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rr := httptest.NewRecorder()

		// when
		router.ServeHTTP(rr, req)

		// then
		require.Equal(t, http.StatusCreated, rr.Code)
		var dto ExpenseDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
		assert.Equal(t, "receipt-test-lumber.jpg", dto.Receipt)
		assert.Equal(t, []byte("jpeg bytes"), uploads.stored["receipt-test-lumber.jpg"])
	})

	t.Run("should discard the upload when the expense is rejected", func(t *testing.T) {
		router, teardown := setupRouter(t)
		defer teardown()

		// given
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		require.NoError(t, writer.WriteField("title", "Lumber"))
		require.NoError(t, writer.WriteField("amount", "0"))
		require.NoError(t, writer.WriteField("category", "material"))
		require.NoError(t, writer.WriteField("date", "2024-05-01"))
		part, err := writer.CreateFormFile("receipt", "lumber.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg bytes"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		req := httptest.NewRequest("POST", "/api/expenses", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		rr := httptest.NewRecorder()

		// when
		router.ServeHTTP(rr, req)

		// then
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, []string{"receipt-test-lumber.jpg"}, uploads.deleted)
		assert.Empty(t, uploads.stored)
	})
}

func TestHandler_GetUpdateDelete(t *testing.T) {
	router, teardown := setupRouter(t)
	defer teardown()

	// given
	created, err := service.Create(ctx, validInput())
	require.NoError(t, err)

	// when
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses/"+created.Id, nil))

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var dto ExpenseDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
	assert.Equal(t, created.Id, dto.Id)

	// when
	rr = postJSON(router, "PUT", "/api/expenses/"+created.Id,
		`{"title":"Cement","amount":"450.00","category":"material","date":"2024-05-01","paymentMethod":"debit"}`)

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
	assert.Equal(t, money.FromCents(45000), dto.Amount)
	assert.Equal(t, "debit", dto.PaymentMethod)

	// when
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/expenses/"+created.Id, nil))

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var msg rest.MessageResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&msg))
	assert.Equal(t, "Expense deleted successfully", msg.Message)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses/"+created.Id, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/expenses/"+created.Id, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_ReceiptReferencesComeFromUploadsOnly(t *testing.T) {
	router, teardown := setupRouter(t)
	defer teardown()

	t.Run("should ignore a receipt reference in a json create", func(t *testing.T) {
		rr := postJSON(router, "POST", "/api/expenses",
			`{"title":"Gravel","amount":80,"category":"material","date":"2024-05-01","receipt":"receipt-someone-else.jpg"}`)

		require.Equal(t, http.StatusCreated, rr.Code)
		var dto ExpenseDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
		assert.Empty(t, dto.Receipt)
	})

	t.Run("should keep the stored receipt on a json update", func(t *testing.T) {
		// given
		in := validInput()
		in.Receipt = "receipt-own.jpg"
		created, err := service.Create(ctx, in)
		require.NoError(t, err)

		// when
		rr := postJSON(router, "PUT", "/api/expenses/"+created.Id,
			`{"title":"Cement","amount":"450.00","category":"material","date":"2024-05-01","receipt":"receipt-someone-else.jpg"}`)

		// then
		require.Equal(t, http.StatusOK, rr.Code)
		var dto ExpenseDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
		assert.Equal(t, "receipt-own.jpg", dto.Receipt)
		assert.Empty(t, receipts.removed)
	})
}

func TestHandler_List(t *testing.T) {
	router, teardown := setupRouter(t)
	defer teardown()

	// given
	_, err := service.Create(ctx, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Category = "labor"
	_, err = service.Create(ctx, in)
	require.NoError(t, err)

	// when
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses?category=labor", nil))

	// then
	require.Equal(t, http.StatusOK, rr.Code)
	var dtos []ExpenseDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "labor", dtos[0].Category)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses?from=May-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses?category=fuel", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestFilterFromQuery_ProjectId(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{"absent", "", "", false},
		{"canonical", "projectId=" + knownProject, knownProject, false},
		{"upper case is normalised", "projectId=7F0C8F0E-5A8B-4C1E-9D3A-2B6F1E4C9A10", knownProject, false},
		{"not a uuid", "projectId=abc", "", true},
		{"sql fragment", "projectId=1%27%20OR%20%271%27%3D%271", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := FilterFromQuery(httptest.NewRequest("GET", "/api/expenses?"+tt.query, nil))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, filter.ProjectId)
		})
	}
}

func TestHandler_ListRejectsMalformedProjectId(t *testing.T) {
	router, teardown := setupRouter(t)
	defer teardown()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses?projectId=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var resp rest.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp.Message, "invalid projectId")
}

func TestHandler_HidesStorageErrors(t *testing.T) {
	router, teardown := setupRouter(t)
	defer teardown()

	// given
	repoStub.FailWith = errors.New(`pq: relation "expense" does not exist`)

	// when
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/expenses", nil))

	// then
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var resp rest.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "internal server error", resp.Message)
	assert.NotContains(t, rr.Body.String(), "relation")
}

func TestHandler_Options(t *testing.T) {
	router, teardown := setupRouter(t)
	defer teardown()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/meta/expense-options", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var dto OptionsDTO
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&dto))
	assert.Equal(t, Categories, dto.Categories)
	assert.Equal(t, PaymentMethods, dto.PaymentMethods)
	assert.Equal(t, PaymentCash, dto.DefaultPayment)
	assert.Equal(t, money.FromCents(100000), dto.ReviewThreshold)
}
