package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reactivegraph/internal/infra/blob"
)

func TestStore_PutGetHeadListDelete(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Driver() != blob.DriverFilesystem {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	info, err := s.Put(ctx, "exports/a/manifest.json", strings.NewReader(`{"ok":true}`), blob.PutOptions{ContentType: "application/json", Metadata: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 11 || len(info.ETag) != 64 || info.URL != "http://local.blob/exports/a/manifest.json" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.Put(ctx, "exports/a/manifest.json", strings.NewReader("x"), blob.PutOptions{}); !errors.Is(err, blob.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.Put(ctx, "exports/b/entities/1.json", strings.NewReader("1"), blob.PutOptions{}); err != nil {
		t.Fatalf("put nested: %v", err)
	}

	head, err := s.Head(ctx, "exports/a/manifest.json")
	if err != nil || head.Metadata["k"] != "v" || head.ContentType != "application/json" {
		t.Fatalf("unexpected head %+v %v", head, err)
	}
	_, rc, err := s.Get(ctx, "exports/a/manifest.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %s", body)
	}

	list, err := s.List(ctx, "exports/")
	if err != nil || len(list) != 2 || list[0].Key != "exports/a/manifest.json" || list[1].Key != "exports/b/entities/1.json" {
		t.Fatalf("unexpected list %+v %v", list, err)
	}
	if only, _ := s.List(ctx, "exports/b"); len(only) != 1 {
		t.Fatalf("expected prefix filter, got %+v", only)
	}

	ok, err := s.Delete(ctx, "exports/a/manifest.json")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "exports/a/manifest.json"); ok {
		t.Fatalf("expected missing delete to report false")
	}
	if _, _, err := s.Get(ctx, "exports/a/manifest.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(ctx, "exports/a/manifest.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
}

func TestStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../escape", "/abs", "x.meta"} {
		if _, err := s.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
	if _, err := s.PresignURL(ctx, "k", blob.SignedURLOptions{Method: "PUT"}); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	url, err := s.PresignURL(ctx, "k", blob.SignedURLOptions{})
	if err != nil || url != "http://local.blob/k" {
		t.Fatalf("unexpected presign %q %v", url, err)
	}
}

func TestStore_CorruptMeta(t *testing.T) {
	root := t.TempDir()
	s, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Put(context.Background(), "k", strings.NewReader("x"), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "k.meta"), []byte("{"), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, err := s.List(context.Background(), ""); err == nil {
		t.Fatalf("expected decode error from list")
	}
	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected decode error from get")
	}
}

func TestNewRejectsFileRoot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(file); err == nil {
		t.Fatalf("expected error when root is a file")
	}
}
