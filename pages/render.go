package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"

	"donations-service/models"
)

//go:embed templates/*.html
var templateFS embed.FS

type landingView struct {
	Donations []models.DonationRecord
	Form      DonationForm
	Presets   []int
	Total     string
}

type thankYouView struct {
	Seconds   int
	Target    string
	StreamURL string
}

// Renderer executes the page templates
type Renderer struct {
	tpl *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() *Renderer {
	funcs := template.FuncMap{
		"formatAmount": formatAmount,
	}
	return &Renderer{
		tpl: template.Must(template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

func (r *Renderer) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// formatAmount prints currency units without a trailing .00 for whole amounts.
func formatAmount(amount float64) string {
	if amount == math.Trunc(amount) {
		return fmt.Sprintf("%.0f", amount)
	}
	return fmt.Sprintf("%.2f", amount)
}

func formatCents(cents int64) string {
	return formatAmount(float64(cents) / 100)
}
