package receipt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newStorage(t *testing.T, maxBytes int64) (*FileStorage, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "receipts")
	storage, err := NewFileStorage(dir, maxBytes)
	require.NoError(t, err)
	return storage, dir
}

func TestFileStorage_StoreOpenDelete(t *testing.T) {
	// given
	storage, dir := newStorage(t, 1024)

	// when
	ref, err := storage.Store(ctx, "Invoice 12.PDF", strings.NewReader("%PDF-1.7"))

	// then
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "receipt-"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))
	assert.FileExists(t, filepath.Join(dir, ref))

	content, err := storage.Open(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(content)
	require.NoError(t, err)
	require.NoError(t, content.Close())
	assert.Equal(t, "%PDF-1.7", string(data))

	require.NoError(t, storage.Delete(ctx, ref))
	assert.NoFileExists(t, filepath.Join(dir, ref))
	assert.ErrorIs(t, storage.Delete(ctx, ref), ErrReceiptNotFound)
}

func TestFileStorage_RejectsOversizedUpload(t *testing.T) {
	storage, dir := newStorage(t, 4)

	_, err := storage.Store(ctx, "big.jpg", strings.NewReader("12345"))

	assert.ErrorIs(t, err, ErrTooLarge)
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestFileStorage_RejectsTraversal(t *testing.T) {
	storage, _ := newStorage(t, 0)
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))

	for _, ref := range []string{
		"../secret.txt",
		"receipt-../../secret.txt",
		"receipt-x/../../secret.txt",
		`receipt-..\secret.txt`,
		"secret.txt",
		"",
	} {
		_, err := storage.Open(ctx, ref)
		assert.ErrorIs(t, err, ErrInvalidRef, ref)
		assert.ErrorIs(t, storage.Delete(ctx, ref), ErrInvalidRef, ref)
	}
	assert.FileExists(t, outside)
}

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"photo.JPG", ".jpg"},
		{"invoice.pdf", ".pdf"},
		{"scan.webp", ".webp"},
		{"scan.tar.gz", ""},
		{"page.html", ""},
		{"drawing.svg", ""},
		{"noext", ""},
		{"weird.p$f", ""},
		{"../../etc/passwd", ""},
		{"long.extension123", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extension(tt.name))
		})
	}
}

func TestHandler_Get(t *testing.T) {
	storage, _ := newStorage(t, 0)
	ref, err := storage.Store(ctx, "r.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	router := mux.NewRouter()
	router.HandleFunc("/api/receipts/{ref}", NewHandler(storage).Get).Methods("GET")

	t.Run("should serve a stored receipt", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/receipts/"+ref, nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "inline;"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "png-bytes", rr.Body.String())
	})

	t.Run("should serve markup uploads as opaque downloads", func(t *testing.T) {
		// given
		htmlRef, err := storage.Store(ctx, "invoice.html", strings.NewReader("<script>alert(1)</script>"))
		require.NoError(t, err)
		assert.Empty(t, filepath.Ext(htmlRef))

		// when
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/receipts/"+htmlRef, nil))

		// then
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/octet-stream", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Disposition"), "attachment;"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	})

	t.Run("should return 404 for unknown receipt", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/receipts/receipt-missing.png", nil))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
