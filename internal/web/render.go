package web

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/careview/careview/internal/patient"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed assets/app.js
var appJS []byte

// Renderer executes the embedded page templates for echo.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates. Formatting helpers from the
// patient package are exposed so display rules live in one place.
func NewRenderer() (*Renderer, error) {
	t := template.New("").Funcs(template.FuncMap{
		"sectionLabel":  patient.SectionLabel,
		"riskTier":      patient.RiskTier,
		"formatConcern": patient.FormatConcern,
		"timeAgo": func(ts *string) string {
			return patient.TimeAgo(ts, time.Now())
		},
	})
	t, err := t.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
