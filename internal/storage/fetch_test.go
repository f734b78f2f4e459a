package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tags.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"label":"go","weight":3}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	got, err := Fetch(ctx, srv.URL+"/tags.json")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != `[{"label":"go","weight":3}]` {
		t.Errorf("Fetch = %q", got)
	}

	if _, err := Fetch(ctx, srv.URL+"/missing.json"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetchLocal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tags.yaml")
	if err := os.WriteFile(path, []byte("- label: go\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx := context.Background()
	for _, loc := range []string{path, "file://" + path} {
		got, err := Fetch(ctx, loc)
		if err != nil {
			t.Fatalf("Fetch(%q): %v", loc, err)
		}
		if string(got) != "- label: go\n" {
			t.Errorf("Fetch(%q) = %q", loc, got)
		}
	}
}

func TestFetchBadLocation(t *testing.T) {
	ctx := context.Background()
	for _, loc := range []string{"s3://bucket-only", "gs:///key", "ftp://host/file"} {
		if _, err := Fetch(ctx, loc); err == nil {
			t.Errorf("Fetch(%q): expected error", loc)
		}
	}
}
