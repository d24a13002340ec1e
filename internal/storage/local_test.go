package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalBackend_StoreAndDelete(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	ctx := context.Background()
	obj, err := backend.Store(ctx, "resumes/abc.pdf", strings.NewReader("pdf-bytes"), 9, "application/pdf")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if obj.Ref != "resumes/abc.pdf" || obj.DeleteKey != "resumes/abc.pdf" {
		t.Errorf("stored object = %+v", obj)
	}

	data, err := os.ReadFile(filepath.Join(dir, "resumes", "abc.pdf"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "pdf-bytes" {
		t.Errorf("content = %q", data)
	}

	if err := backend.Delete(ctx, obj.DeleteKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "resumes", "abc.pdf")); !os.IsNotExist(err) {
		t.Errorf("file should be gone, stat err = %v", err)
	}

	// 重复删除视为成功
	if err := backend.Delete(ctx, obj.DeleteKey); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestLocalBackend_RejectsEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"../outside.txt", "a/../../outside.txt"} {
		if _, err := backend.Store(ctx, key, strings.NewReader("x"), 1, ""); err == nil {
			t.Errorf("store %q should be rejected", key)
		}
		if err := backend.Delete(ctx, key); err == nil {
			t.Errorf("delete %q should be rejected", key)
		}
	}
}

func TestNewLocalBackend_CreatesDirAndValidates(t *testing.T) {
	if _, err := NewLocalBackend("  "); err == nil {
		t.Errorf("empty dir should be rejected")
	}

	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	if _, err := NewLocalBackend(dir); err != nil {
		t.Fatalf("new backend: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("base dir not created: %v", err)
	}
}
