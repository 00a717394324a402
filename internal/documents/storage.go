package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/webp":      ".webp",
}

type objectUploader interface {
	Upload(ctx context.Context, bucket, object, contentType string, body io.Reader) error
}

// Storage writes identity documents into the documents bucket.
type Storage struct {
	uploader objectUploader
	bucket   string
	maxBytes int64
}

// NewStorage builds a document store. maxBytes <= 0 disables the size check.
func NewStorage(uploader objectUploader, bucket string, maxBytes int64) (*Storage, error) {
	if uploader == nil {
		return nil, fmt.Errorf("object uploader required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("document bucket required")
	}
	return &Storage{uploader: uploader, bucket: bucket, maxBytes: maxBytes}, nil
}

// Put stores body under "<sellerID>/<random><ext>" and returns that path,
// which is what verification requests persist as their document reference.
func (s *Storage) Put(ctx context.Context, sellerID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	if sellerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if body == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "document body is required")
	}
	mediaType, err := normalizeContentType(contentType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
	}
	ext, ok := allowedContentTypes[mediaType]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "document must be one of: "+allowedList())
	}
	if mediaType == "image/jpeg" && strings.EqualFold(filepath.Ext(filename), ".jpeg") {
		ext = ".jpeg"
	}

	var buf bytes.Buffer
	reader := body
	if s.maxBytes > 0 {
		reader = io.LimitReader(body, s.maxBytes+1)
	}
	n, err := io.Copy(&buf, reader)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read document")
	}
	if n == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "document is empty")
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("document exceeds %d bytes", s.maxBytes))
	}

	path := fmt.Sprintf("%s/%s%s", sellerID, uuid.NewString(), ext)
	if err := s.uploader.Upload(ctx, s.bucket, path, mediaType, &buf); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload document")
	}
	return path, nil
}

func normalizeContentType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("content type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", err
	}
	return strings.ToLower(mediaType), nil
}

func allowedList() string {
	list := make([]string, 0, len(allowedContentTypes))
	for ct := range allowedContentTypes {
		list = append(list, ct)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}
