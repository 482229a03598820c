package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrInvalidRef      = errors.New("invalid receipt reference")
	ErrTooLarge        = errors.New("receipt is too large")
)

const refPrefix = "receipt-"

// contentTypes lists the receipt formats kept with their extension. Any other
// upload is stored without one and served as a download.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// ContentType is the type a receipt is served with, and whether it is safe to
// display inline.
func ContentType(ref string) (string, bool) {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(ref))]; ok {
		return ct, true
	}
	return "application/octet-stream", false
}

// Storage keeps receipt files and hands out opaque references to them.
type Storage interface {
	Store(ctx context.Context, originalName string, content io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref string) error
}

// FileStorage stores receipts as flat files in one directory. A reference is
// the bare file name, "receipt-<uuid><ext>".
type FileStorage struct {
	dir      string
	maxBytes int64
}

func NewFileStorage(dir string, maxBytes int64) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory %s: %w", dir, err)
	}
	return &FileStorage{dir: dir, maxBytes: maxBytes}, nil
}

func (s *FileStorage) Store(ctx context.Context, originalName string, content io.Reader) (string, error) {
	ref := refPrefix + uuid.NewString() + extension(originalName)
	path := filepath.Join(s.dir, ref)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("failed to create receipt file: %w", err)
	}

	reader := content
	if s.maxBytes > 0 {
		reader = io.LimitReader(content, s.maxBytes+1)
	}
	written, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil && s.maxBytes > 0 && written > s.maxBytes {
		err = fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warnf("failed to clean up partial receipt %s: %v", ref, rmErr)
		}
		return "", err
	}

	log.Debugf("Stored receipt %s (%d bytes) for upload %q", ref, written, originalName)
	return ref, nil
}

func (s *FileStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrReceiptNotFound
	}
	return f, err
}

func (s *FileStorage) Delete(ctx context.Context, ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrReceiptNotFound
	}
	return err
}

// resolve maps a reference to a path inside the storage directory. Anything
// that is not a plain receipt file name is rejected.
func (s *FileStorage) resolve(ref string) (string, error) {
	if !strings.HasPrefix(ref, refPrefix) || ref != filepath.Base(ref) || strings.ContainsAny(ref, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(s.dir, ref), nil
}

// extension returns the lower-cased extension of the upload when it is a known
// receipt format.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if _, ok := contentTypes[ext]; !ok {
		return ""
	}
	return ext
}
