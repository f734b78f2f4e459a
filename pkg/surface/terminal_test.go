package surface_test

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/nuages/nuages/pkg/cloud"
	"github.com/nuages/nuages/pkg/surface"
)

func sampleCloud() cloud.Cloud {
	return cloud.Cloud{
		{Label: "Python", Weight: 30, Size: 43.75},
		{Label: "Django", Weight: 70, Size: 100},
		{Label: "PHP", Weight: 6, Size: 10},
	}
}

func TestTerminalRenderer_BasicOutput(t *testing.T) {
	// Set NO_COLOR to avoid ANSI codes in test comparison
	t.Setenv("NO_COLOR", "1")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	err := r.Render(&buf, sampleCloud())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	output := buf.String()

	if !strings.Contains(output, "Tag cloud: 3 tags, total weight 106") {
		t.Errorf("expected header in output, got:\n%s", output)
	}
	// go-pretty upper-cases headers and footers.
	for _, want := range []string{"LABEL", "Python", "Django", "PHP", "43.75", "100.00", "10.00", "SIZES 10.00 TO 100.00"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output", want)
		}
	}
	if strings.Contains(output, "\033[") {
		t.Error("expected no ANSI escape codes when NO_COLOR is set")
	}

	// Django carries the full bar, PHP a tenth of it.
	if !strings.Contains(output, strings.Repeat("█", 30)) {
		t.Error("expected full width bar for the largest tag")
	}
	if strings.Contains(output, strings.Repeat("█", 31)) {
		t.Error("bar exceeds configured width")
	}
}

func TestTerminalRenderer_NoTags(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	if err := r.Render(&buf, nil); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if !strings.Contains(buf.String(), "No tags") {
		t.Error("expected 'No tags' message")
	}
}

func TestTerminalRenderer_ColorRespected(t *testing.T) {
	// Without NO_COLOR, output should have ANSI codes
	t.Setenv("NO_COLOR", "")
	os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{BarWidth: 10}
	var buf bytes.Buffer

	err := r.Render(&buf, sampleCloud())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	if !strings.Contains(buf.String(), "\033[") {
		t.Error("expected ANSI escape codes when NO_COLOR is not set")
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	if err := (&surface.JSONRenderer{}).Render(&buf, sampleCloud()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	var got struct {
		Tags []struct {
			Label  string  `json:"label"`
			Weight float64 `json:"weight"`
			Size   float64 `json:"size"`
		} `json:"tags"`
		TotalWeight float64 `json:"total_weight"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Tags) != 3 || got.Tags[1].Label != "Django" || got.Tags[1].Size != 100 {
		t.Errorf("unexpected tags %+v", got.Tags)
	}
	if got.TotalWeight != 106 {
		t.Errorf("total_weight = %g, want 106", got.TotalWeight)
	}

	buf.Reset()
	if err := (&surface.JSONRenderer{}).Render(&buf, nil); err != nil {
		t.Fatalf("Render(nil) error: %v", err)
	}
	if !strings.Contains(buf.String(), `"tags": []`) {
		t.Errorf("expected empty tag list, got %s", buf.String())
	}
}

func TestHTMLRenderer(t *testing.T) {
	tests := []struct {
		name     string
		renderer *surface.HTMLRenderer
		want     []string
		notWant  []string
	}{
		{
			name:     "defaults",
			renderer: &surface.HTMLRenderer{},
			want: []string{
				`<span style="font-size: 43.75px" title="30">Python</span>`,
				`font-size: 100.00px`,
			},
			notWant: []string{"<h2>", "<a "},
		},
		{
			name:     "title unit and links",
			renderer: &surface.HTMLRenderer{Title: "Languages", Unit: "pt", LinkPrefix: "/tags/"},
			want: []string{
				"<h2>Languages</h2>",
				`font-size: 10.00pt`,
				`<a href="/tags/PHP">PHP</a>`,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tc.renderer.Render(&buf, sampleCloud()); err != nil {
				t.Fatalf("Render() error: %v", err)
			}
			out := buf.String()
			for _, w := range tc.want {
				if !strings.Contains(out, w) {
					t.Errorf("expected %q in:\n%s", w, out)
				}
			}
			for _, w := range tc.notWant {
				if strings.Contains(out, w) {
					t.Errorf("did not expect %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestHTMLRenderer_EscapesLabels(t *testing.T) {
	var buf bytes.Buffer
	c := cloud.Cloud{{Label: "<script>", Weight: 1, Size: 10}}
	if err := (&surface.HTMLRenderer{}).Render(&buf, c); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(buf.String(), "<script>") {
		t.Errorf("label was not escaped: %s", buf.String())
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"", "text", "json", "html"} {
		if _, err := surface.New(format); err != nil {
			t.Errorf("New(%q): %v", format, err)
		}
	}
	if _, err := surface.New("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}
