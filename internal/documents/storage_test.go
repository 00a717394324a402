package documents

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type recordingUploader struct {
	bucket      string
	object      string
	contentType string
	body        []byte
	err         error
}

func (r *recordingUploader) Upload(_ context.Context, bucket, object, contentType string, body io.Reader) error {
	r.bucket, r.object, r.contentType = bucket, object, contentType
	data, _ := io.ReadAll(body)
	r.body = data
	return r.err
}

func TestStoragePutStoresUnderSellerPrefix(t *testing.T) {
	up := &recordingUploader{}
	store, err := NewStorage(up, "docs", 1024)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	seller := uuid.New()

	path, err := store.Put(context.Background(), seller, "license.PNG", "image/png", bytes.NewBufferString("png-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(path, seller.String()+"/") || !strings.HasSuffix(path, ".png") {
		t.Fatalf("unexpected path %q", path)
	}
	if up.bucket != "docs" || up.object != path || up.contentType != "image/png" || string(up.body) != "png-bytes" {
		t.Fatalf("unexpected upload %+v", up)
	}
	if ParseRef(path).Kind != KindStoragePath {
		t.Fatal("stored path should parse as a storage path")
	}
}

func TestStoragePutRejectsBadInput(t *testing.T) {
	store, _ := NewStorage(&recordingUploader{}, "docs", 4)
	ctx := context.Background()
	seller := uuid.New()

	cases := map[string]error{}
	_, cases["type"] = store.Put(ctx, seller, "a.exe", "application/octet-stream", bytes.NewBufferString("x"))
	_, cases["size"] = store.Put(ctx, seller, "a.pdf", "application/pdf", bytes.NewBufferString("too large"))
	_, cases["empty"] = store.Put(ctx, seller, "a.pdf", "application/pdf", bytes.NewBuffer(nil))
	_, cases["seller"] = store.Put(ctx, uuid.Nil, "a.pdf", "application/pdf", bytes.NewBufferString("x"))

	for name, err := range cases {
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestStoragePutUploadFailure(t *testing.T) {
	store, _ := NewStorage(&recordingUploader{err: errors.New("503")}, "docs", 0)
	_, err := store.Put(context.Background(), uuid.New(), "a.pdf", "application/pdf; charset=binary", bytes.NewBufferString("%PDF"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
