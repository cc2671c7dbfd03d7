package memory

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"reactivegraph/internal/infra/blob"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != blob.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "missing"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	md := map[string]string{"a": "1"}
	info, err := s.Put(ctx, "exports/x/manifest.json", strings.NewReader("{}"), blob.PutOptions{ContentType: "application/json", Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["a"] = "2"
	if info.Size != 2 || info.ETag == "" || info.Metadata["a"] != "1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "exports/x/manifest.json", strings.NewReader("{}"), blob.PutOptions{}); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, " ", strings.NewReader(""), blob.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := s.Put(ctx, "exports/y", strings.NewReader("yy"), blob.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	got, rc, err := s.Get(ctx, "exports/x/manifest.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "{}" || got.ContentType != "application/json" {
		t.Fatalf("unexpected get %q %+v", body, got)
	}
	list, err := s.List(ctx, "exports/")
	if err != nil || len(list) != 2 || list[0].Key != "exports/x/manifest.json" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if _, err := s.PresignURL(ctx, "exports/y", blob.SignedURLOptions{}); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if ok, _ := s.Delete(ctx, "exports/y"); !ok {
		t.Fatalf("expected delete to report existing blob")
	}
	if ok, _ := s.Delete(ctx, "exports/y"); ok {
		t.Fatalf("expected second delete to report missing blob")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read fail") }

func TestStorePutReadError(t *testing.T) {
	if _, err := New().Put(context.Background(), "k", failingReader{}, blob.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
