package receipt

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sitetrack/sitetrack/internal/rest"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	storage Storage
}

func NewHandler(storage Storage) *Handler {
	return &Handler{storage}
}

// Get godoc
// @Summary Download a receipt
// @Tags Receipt
// @Produce octet-stream
// @Param ref path string true "Receipt reference"
// @Success 200 {file} file
// @Failure 404 {object} rest.ErrorResponse
// @Router /api/receipts/{ref} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["ref"]
	log.Debugf("Serving receipt %s", ref)

	content, err := h.storage.Open(r.Context(), ref)
	if err != nil {
		if errors.Is(err, ErrReceiptNotFound) || errors.Is(err, ErrInvalidRef) {
			rest.WriteError(w, http.StatusNotFound, ErrReceiptNotFound.Error())
			return
		}
		rest.WriteInternalError(w, "failed to open receipt "+ref, err)
		return
	}
	defer content.Close()

	contentType, inline := ContentType(ref)
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition+`; filename="`+ref+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content); err != nil {
		log.Errorf("failed to write receipt %s: %v", ref, err)
	}
}
