// Package export provides downloadable renderings of reports, bibliographies
// and insight collections.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/impactguard/impactguard/pkg/models"
	"github.com/impactguard/impactguard/pkg/report"
)

// Exporter renders a combined report in a specific format.
type Exporter interface {
	// Format returns the format name (e.g. "json", "csv", "text").
	Format() string

	// ContentType returns the MIME type of the generated output.
	ContentType() string

	// Generate writes the formatted report to w.
	Generate(ctx context.Context, r *report.Report, w io.Writer) error
}

// New creates an exporter by format name. The name is case-insensitive.
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONExporter{}, nil
	case "csv":
		return &CSVExporter{}, nil
	case "text", "txt":
		return &TextExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// JSONExporter writes the report as indented JSON.
type JSONExporter struct{}

func (e *JSONExporter) Format() string      { return "json" }
func (e *JSONExporter) ContentType() string { return "application/json" }

func (e *JSONExporter) Generate(_ context.Context, r *report.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// CSVExporter writes the report's findings and recommendations as CSV rows.
type CSVExporter struct{}

func (e *CSVExporter) Format() string      { return "csv" }
func (e *CSVExporter) ContentType() string { return "text/csv" }

func (e *CSVExporter) Generate(_ context.Context, r *report.Report, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"section", "id", "severity", "name", "details"}); err != nil {
		return err
	}

	if r.Security != nil {
		for _, v := range r.Security.Vulnerabilities {
			row := []string{"security", v.ID, string(v.Severity), v.TestName, v.Details}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	for _, rec := range r.Recommendations {
		row := []string{"recommendation", rec.Area, rec.Severity, rec.Recommendation, rec.Details}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// TextExporter writes a human-readable plain-text report.
type TextExporter struct{}

func (e *TextExporter) Format() string      { return "text" }
func (e *TextExporter) ContentType() string { return "text/plain" }

func (e *TextExporter) Generate(_ context.Context, r *report.Report, w io.Writer) error {
	var b strings.Builder

	b.WriteString(r.Title + "\n")
	b.WriteString(strings.Repeat("=", len(r.Title)) + "\n")
	fmt.Fprintf(&b, "Report ID: %s\nDate: %s\n\n", r.ID, r.Date.Format("2006-01-02 15:04:05"))

	if r.Security != nil {
		b.WriteString("Security Assessment\n-------------------\n")
		fmt.Fprintf(&b, "Target: %s\n", r.Security.TargetName)
		fmt.Fprintf(&b, "Status: %s\n", r.Security.Status)
		fmt.Fprintf(&b, "Tests run: %d\n", r.Security.Summary.TotalTests)
		fmt.Fprintf(&b, "Vulnerabilities: %d\n", r.Security.Summary.VulnerabilitiesFound)
		fmt.Fprintf(&b, "Risk score: %d\n\n", r.Security.Summary.RiskScore)

		for _, v := range r.Security.Vulnerabilities {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", strings.ToUpper(string(v.Severity)), v.ID, v.TestName)
		}
		if len(r.Security.Vulnerabilities) > 0 {
			b.WriteString("\n")
		}
	}

	if r.Bias != nil {
		b.WriteString("Bias Analysis\n-------------\n")
		fmt.Fprintf(&b, "Dataset: %s\n", r.Bias.Dataset)
		fmt.Fprintf(&b, "Max disparity: %.3f\n\n", r.Bias.MaxDisparity())
	}

	if r.Sustainability != nil {
		b.WriteString("Sustainability\n--------------\n")
		fmt.Fprintf(&b, "Total emissions: %.4f kg CO2eq\n", r.Sustainability.TotalEmissionsKg)
		fmt.Fprintf(&b, "Energy consumption: %.4f kWh\n\n", r.Sustainability.EnergyConsumptionKWh)
	}

	if len(r.Recommendations) > 0 {
		b.WriteString("Recommendations\n---------------\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  [%s/%s] %s\n", rec.Area, rec.Severity, rec.Recommendation)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// BibliographyCSV writes formatted citations as a single-column CSV.
func BibliographyCSV(citations []string, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"citation"}); err != nil {
		return err
	}
	for _, c := range citations {
		if err := cw.Write([]string{c}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BibliographyText writes formatted citations one per line.
func BibliographyText(citations []string, w io.Writer) error {
	for _, c := range citations {
		if _, err := fmt.Fprintln(w, c); err != nil {
			return err
		}
	}
	return nil
}

// InsightsJSON writes imported insights as indented JSON.
func InsightsJSON(insights []models.Insight, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(insights)
}

// InsightsCSV writes imported insights as CSV with the import column layout.
func InsightsCSV(insights []models.Insight, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"User", "Category", "Prompt", "Response"}); err != nil {
		return err
	}
	for _, in := range insights {
		if err := cw.Write([]string{in.User, in.Category, in.Prompt, in.Response}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
