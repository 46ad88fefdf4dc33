package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/impactguard/impactguard/pkg/bias"
	"github.com/impactguard/impactguard/pkg/carbon"
	"github.com/impactguard/impactguard/pkg/models"
)

// Thresholds for recommendation generation.
const (
	disparityNoteworthy = 0.1
	disparitySevere     = 0.2
	emissionsNoteworthy = 1.0
)

// Recommendation is one suggested follow-up action in a report.
type Recommendation struct {
	Area           string `json:"area"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
	Details        string `json:"details"`
}

// Report combines the security, bias and sustainability results of a session.
type Report struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Date            time.Time         `json:"date"`
	Security        *models.RunResult `json:"security,omitempty"`
	Bias            *bias.Result      `json:"bias,omitempty"`
	Sustainability  *carbon.Report    `json:"sustainability,omitempty"`
	Recommendations []Recommendation  `json:"recommendations"`
}

// Generate assembles a combined report. Sections without data are omitted;
// recommendations are derived from whatever sections are present.
func Generate(title string, security *models.RunResult, biasResult *bias.Result, sustainability *carbon.Report, includeRecommendations bool) *Report {
	now := time.Now()
	r := &Report{
		ID:              fmt.Sprintf("REP-%d", now.Unix()),
		Title:           title,
		Date:            now,
		Security:        security,
		Bias:            biasResult,
		Sustainability:  sustainability,
		Recommendations: []Recommendation{},
	}

	if !includeRecommendations {
		return r
	}

	if security != nil {
		top := security.Vulnerabilities
		if len(top) > 3 {
			top = top[:3]
		}
		for _, vuln := range top {
			r.Recommendations = append(r.Recommendations, Recommendation{
				Area:           "security",
				Severity:       string(vuln.Severity),
				Recommendation: fmt.Sprintf("Address %s issue.", vuln.TestName),
				Details:        vuln.Details,
			})
		}
	}

	if biasResult != nil {
		features := make([]string, 0, len(biasResult.Metrics))
		for feature := range biasResult.Metrics {
			features = append(features, feature)
		}
		sort.Strings(features)

		for _, feature := range features {
			metrics := biasResult.Metrics[feature]
			if metrics.MaxDisparity <= disparityNoteworthy {
				continue
			}
			severity := "medium"
			if metrics.MaxDisparity > disparitySevere {
				severity = "high"
			}
			r.Recommendations = append(r.Recommendations, Recommendation{
				Area:           "bias",
				Severity:       severity,
				Recommendation: fmt.Sprintf("Address bias in %s attribute.", feature),
				Details:        fmt.Sprintf("Disparity of %.2f detected in %s.", metrics.MaxDisparity, feature),
			})
		}
	}

	if sustainability != nil && sustainability.TotalEmissionsKg > emissionsNoteworthy {
		r.Recommendations = append(r.Recommendations, Recommendation{
			Area:           "sustainability",
			Severity:       "medium",
			Recommendation: "Optimize model size and deployment to reduce carbon footprint.",
			Details:        fmt.Sprintf("Current emissions of %.2f kg CO2e could be reduced with efficiency improvements.", sustainability.TotalEmissionsKg),
		})
	}

	return r
}
