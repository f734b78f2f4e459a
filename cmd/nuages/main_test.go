package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nuages/nuages/internal/api"
	"github.com/nuages/nuages/internal/storage"
	"github.com/nuages/nuages/pkg/cloud"
	"github.com/nuages/nuages/pkg/dataset"
)

const languagesJSON = `[
  {"label": "python", "weight": 30},
  {"label": "django", "weight": 70},
  {"label": "php", "weight": 6}
]`

// workspace creates a temp dir with a dataset and a config pointing local
// storage inside it, and makes it the working directory.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "languages.json"), []byte(languagesJSON), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, ".nuages"), 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	cfg := "storage:\n  backend: local\n  base_dir: " + filepath.Join(dir, "blobs") + "\n"
	if err := os.WriteFile(filepath.Join(dir, ".nuages", "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
	return dir
}

func TestSizeCmdFlags(t *testing.T) {
	cmd := newSizeCmd()
	f := cmd.Flags()

	// Test default values
	outputFmt, _ := f.GetString("output")
	if outputFmt != "text" {
		t.Errorf("default output = %q, want text", outputFmt)
	}
	order, _ := f.GetString("order")
	if order != "rank" {
		t.Errorf("default order = %q, want rank", order)
	}
	key, _ := f.GetString("key")
	if key != dataset.DefaultKey {
		t.Errorf("default key = %q, want %q", key, dataset.DefaultKey)
	}

	for _, flag := range []string{"key", "label", "weight", "min", "max", "mode", "format", "order", "output", "limit", "title", "unit", "link-prefix"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestOtherCmdFlags(t *testing.T) {
	apply := newApplyCmd().Flags()
	for _, flag := range []string{"data", "format", "out", "output"} {
		if apply.Lookup(flag) == nil {
			t.Errorf("apply: missing flag: %s", flag)
		}
	}
	render := newRenderCmd().Flags()
	for _, flag := range []string{"data", "format", "out", "html"} {
		if render.Lookup(flag) == nil {
			t.Errorf("render: missing flag: %s", flag)
		}
	}
	push := newPushCmd().Flags()
	for _, flag := range []string{"collection", "server", "api-key", "replace", "min", "max", "mode"} {
		if push.Lookup(flag) == nil {
			t.Errorf("push: missing flag: %s", flag)
		}
	}
	serve := newServeCmd().Flags()
	for _, flag := range []string{"collection", "port", "log-level", "weight"} {
		if serve.Lookup(flag) == nil {
			t.Errorf("serve: missing flag: %s", flag)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"a", "b", "c"}, "a"},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"", "", "c"}, "c"},
		{[]string{"", "", ""}, ""},
	}

	for _, tt := range tests {
		got := firstNonEmpty(tt.args...)
		if got != tt.want {
			t.Errorf("firstNonEmpty(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"languages.json", "languages"},
		{"/data/tags.yaml", "tags"},
		{"https://example.com/clouds/beetles.json?x=1", "beetles"},
		{"s3://bucket/a/b/words.tar.json", "words"},
	}

	for _, tt := range tests {
		if got := collectionName(tt.in); got != tt.want {
			t.Errorf("collectionName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSizingOptions(t *testing.T) {
	workspace(t)
	cfg := loadConfig()

	opts, err := sizingFlags{}.options(cfg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts != cloud.DefaultOptions() {
		t.Errorf("options = %+v, want defaults", opts)
	}

	opts, err = sizingFlags{minSize: 1, minSet: true, mode: "log"}.options(cfg)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.MinSize != 1 || opts.MaxSize != 100 || opts.Mode != cloud.ModeLog {
		t.Errorf("unexpected options %+v", opts)
	}

	if _, err := (sizingFlags{mode: "cubic"}).options(cfg); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := (sizingFlags{maxSize: 1, maxSet: true}).options(cfg); err == nil {
		t.Error("expected error for max below min")
	}
}

func TestRunSize(t *testing.T) {
	workspace(t)

	var buf bytes.Buffer
	err := runSize(context.Background(), &buf, sizeOpts{
		location:  "languages.json",
		sizing:    sizingFlags{key: dataset.DefaultKey},
		order:     "label",
		outputFmt: "json",
	})
	if err != nil {
		t.Fatalf("runSize: %v", err)
	}

	var out struct {
		Tags cloud.Cloud `json:"tags"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode output: %v\n%s", err, buf.String())
	}
	want := []struct {
		label string
		size  float64
	}{{"django", 100}, {"php", 10}, {"python", 43.75}}
	if len(out.Tags) != len(want) {
		t.Fatalf("got %d tags, want %d", len(out.Tags), len(want))
	}
	for i, w := range want {
		if out.Tags[i].Label != w.label || out.Tags[i].Size != w.size {
			t.Errorf("tag %d = %+v, want %s=%g", i, out.Tags[i], w.label, w.size)
		}
	}
}

func TestRunSizeLimit(t *testing.T) {
	workspace(t)
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	err := runSize(context.Background(), &buf, sizeOpts{
		location:  "languages.json",
		sizing:    sizingFlags{key: dataset.DefaultKey},
		order:     "rank",
		outputFmt: "text",
		limit:     2,
	})
	if err != nil {
		t.Fatalf("runSize: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2 tags") || strings.Contains(out, "php") {
		t.Errorf("expected the two heaviest tags only:\n%s", out)
	}
}

func TestRunSizeErrors(t *testing.T) {
	workspace(t)

	tests := []struct {
		name string
		opts sizeOpts
	}{
		{"missing file", sizeOpts{location: "nope.json", sizing: sizingFlags{key: "items"}}},
		{"unknown key", sizeOpts{location: "languages.json", sizing: sizingFlags{key: "tags"}}},
		{"bad order", sizeOpts{location: "languages.json", sizing: sizingFlags{key: "items"}, order: "size"}},
		{"bad output", sizeOpts{location: "languages.json", sizing: sizingFlags{key: "items"}, outputFmt: "pdf"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := runSize(context.Background(), io.Discard, tc.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRunApply(t *testing.T) {
	dir := workspace(t)

	var buf bytes.Buffer
	err := runApply(context.Background(), &buf, applyOpts{
		directive: "compute_tag_cloud items weight font_size 10 100 log",
		dataPath:  "languages.json",
		outputFmt: "json",
	})
	if err != nil {
		t.Fatalf("runApply: %v", err)
	}
	if !strings.Contains(buf.String(), `"font_size": 100`) {
		t.Errorf("expected annotated items:\n%s", buf.String())
	}

	out := filepath.Join(dir, "out", "annotated.yaml")
	err = runApply(context.Background(), io.Discard, applyOpts{
		directive: "items weight size 1 2 lin",
		dataPath:  "languages.json",
		outPath:   out,
	})
	if err != nil {
		t.Fatalf("runApply to file: %v", err)
	}
	saved, err := dataset.Load(out)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	items := saved["items"].([]any)
	if got := fmt.Sprint(items[1].(map[string]any)["size"]); got != "2" {
		t.Errorf("django size = %s, want 2", got)
	}

	if err := runApply(context.Background(), io.Discard, applyOpts{directive: "items weight", dataPath: "languages.json"}); err == nil {
		t.Error("expected syntax error")
	}
}

func TestRunRender(t *testing.T) {
	dir := workspace(t)

	tmpl := filepath.Join(dir, "cloud.tmpl")
	src := `{{ computeTagCloud .items "weight" "size" 10 100 "lin" }}{{ range .items }}{{ .label }}:{{ printf "%.0f" .size }} {{ end }}`
	if err := os.WriteFile(tmpl, []byte(src), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	var buf bytes.Buffer
	if err := runRender(context.Background(), &buf, renderOpts{templatePath: tmpl, dataPath: "languages.json"}); err != nil {
		t.Fatalf("runRender: %v", err)
	}
	if got := buf.String(); got != "python:44 django:100 php:10 " {
		t.Errorf("render = %q", got)
	}

	page := filepath.Join(dir, "cloud.html")
	src = `{{ range tagCloud .items "label" "weight" 10 100 "lin" }}<b>{{ .Label }}</b>{{ end }}`
	if err := os.WriteFile(page, []byte(src), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	buf.Reset()
	if err := runRender(context.Background(), &buf, renderOpts{templatePath: page, dataPath: "languages.json"}); err != nil {
		t.Fatalf("runRender html: %v", err)
	}
	if got := buf.String(); got != "<b>python</b><b>django</b><b>php</b>" {
		t.Errorf("render html = %q", got)
	}
}

func TestRunPushToStorage(t *testing.T) {
	dir := workspace(t)

	err := runPush(context.Background(), pushOpts{
		location: "languages.json",
		sizing:   sizingFlags{key: dataset.DefaultKey},
	})
	if err != nil {
		t.Fatalf("runPush: %v", err)
	}

	clouds, err := filepath.Glob(filepath.Join(dir, "blobs", "languages", "clouds", "*.json"))
	if err != nil || len(clouds) != 1 {
		t.Fatalf("expected one stored cloud, got %v (%v)", clouds, err)
	}
	id := strings.TrimSuffix(filepath.Base(clouds[0]), ".json")

	s := storage.NewLocalStorage(filepath.Join(dir, "blobs"))
	raw, err := s.GetDataset(context.Background(), "languages", id)
	if err != nil {
		t.Fatalf("GetDataset: %v", err)
	}
	if string(raw) != languagesJSON {
		t.Errorf("stored dataset differs from source")
	}

	body, err := s.GetCloud(context.Background(), "languages", id)
	if err != nil {
		t.Fatalf("GetCloud: %v", err)
	}
	var c cloud.Cloud
	if err := json.Unmarshal(body, &c); err != nil {
		t.Fatalf("decode cloud: %v", err)
	}
	if len(c) != 3 || c[1].Label != "django" || c[1].Size != 100 {
		t.Errorf("unexpected stored cloud %+v", c)
	}
}

func TestRunPushToServer(t *testing.T) {
	workspace(t)

	store := api.NewMemoryStore()
	h := api.NewHandler(store, api.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	srv := httptest.NewServer(h.Routes("k", nil))
	defer srv.Close()

	push := func(key string, replace bool) error {
		return runPush(context.Background(), pushOpts{
			location:   "languages.json",
			sizing:     sizingFlags{key: dataset.DefaultKey},
			collection: "langs",
			server:     srv.URL,
			apiKey:     key,
			replace:    replace,
		})
	}

	if err := push("wrong", false); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("expected 401 error, got %v", err)
	}
	if err := push("k", false); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := push("k", false); err != nil {
		t.Fatalf("second push: %v", err)
	}

	tags, err := store.ListTags(context.Background(), "langs")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if len(tags) != 3 || tags[0].Label != "django" || tags[0].Weight != 140 {
		t.Errorf("expected summed weights, got %+v", tags[0])
	}

	if err := push("k", true); err != nil {
		t.Fatalf("replace push: %v", err)
	}
	tags, _ = store.ListTags(context.Background(), "langs")
	if tags[0].Weight != 70 {
		t.Errorf("expected replaced weight 70, got %v", tags[0].Weight)
	}
}

func TestPreviewHandler(t *testing.T) {
	workspace(t)
	cfg := loadConfig()

	h, name, err := previewHandler(context.Background(), cfg, serveOpts{
		location: "languages.json",
		sizing:   sizingFlags{key: dataset.DefaultKey, minSize: 1, minSet: true, maxSize: 5, maxSet: true},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("previewHandler: %v", err)
	}
	if name != "languages" {
		t.Errorf("collection = %q, want languages", name)
	}

	srv := httptest.NewServer(h.Routes("", nil))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/api/collections/languages/cloud")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		Options cloud.Options `json:"options"`
		Tags    cloud.Cloud   `json:"tags"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Options.MinSize != 1 || out.Options.MaxSize != 5 {
		t.Errorf("preview should default to the command's sizes, got %+v", out.Options)
	}
	if len(out.Tags) != 3 || out.Tags[0].Size != 5 {
		t.Errorf("unexpected tags %+v", out.Tags)
	}
}
