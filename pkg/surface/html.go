package surface

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"

	"github.com/nuages/nuages/pkg/cloud"
)

//go:embed templates/cloud.html.tmpl
var templateFS embed.FS

var cloudTemplate = template.Must(template.New("cloud.html.tmpl").Funcs(template.FuncMap{
	"size": func(f float64) string { return fmt.Sprintf("%.2f", f) },
	"link": func(prefix, label string) string { return prefix + url.PathEscape(label) },
}).ParseFS(templateFS, "templates/cloud.html.tmpl"))

// HTMLRenderer renders a Cloud as an HTML fragment of sized spans.
type HTMLRenderer struct {
	Title      string // optional heading
	Unit       string // CSS unit for font-size, defaults to px
	LinkPrefix string // when set, every tag links to LinkPrefix + label
}

type htmlView struct {
	Title      string
	Unit       string
	LinkPrefix string
	Tags       cloud.Cloud
}

func (r *HTMLRenderer) Render(w io.Writer, c cloud.Cloud) error {
	unit := r.Unit
	if unit == "" {
		unit = "px"
	}
	return cloudTemplate.Execute(w, htmlView{
		Title:      r.Title,
		Unit:       unit,
		LinkPrefix: r.LinkPrefix,
		Tags:       c,
	})
}
