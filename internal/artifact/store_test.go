package artifact

import (
	"context"
	"testing"
)

func TestLocalStorePutGet(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	if err := store.EnsureBucket(ctx, "downloads"); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}
	if err := store.Put(ctx, "downloads", "2016/pm25.zip", []byte("archive-bytes")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := store.Get(ctx, "downloads", "2016/pm25.zip")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != "archive-bytes" {
		t.Fatalf("unexpected payload: %s", data)
	}
}

func TestLocalStoreGetMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Get(context.Background(), "downloads", "nope.zip")
	if err != ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStoreList(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx := context.Background()

	keys := []string{"runs/a.jsonl", "runs/b.jsonl", "other/c.jsonl"}
	for _, k := range keys {
		if err := store.Put(ctx, "logs", k, []byte("{}")); err != nil {
			t.Fatalf("Put %s failed: %v", k, err)
		}
	}

	got, err := store.List(ctx, "logs", "runs")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 keys under runs/, got %v", got)
	}
	if got[0] != "runs/a.jsonl" || got[1] != "runs/b.jsonl" {
		t.Fatalf("unexpected keys: %v", got)
	}

	// listing an absent prefix is empty, not an error
	empty, err := store.List(ctx, "logs", "missing")
	if err != nil {
		t.Fatalf("List missing prefix failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no keys, got %v", empty)
	}
}

func TestNewStoreFallsBackToLocal(t *testing.T) {
	store, err := NewStore(Config{LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if _, ok := store.(*LocalStore); !ok {
		t.Fatalf("expected LocalStore without S3 config, got %T", store)
	}
}

func TestNewS3StoreValidation(t *testing.T) {
	if _, err := NewS3Store(Config{}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
	if _, err := NewS3Store(Config{EndpointURL: "http://minio:9000"}); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
