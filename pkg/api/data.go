package api

import (
	"github.com/impactguard/impactguard/pkg/citation"
	"github.com/impactguard/impactguard/pkg/models"
)

// response defines the basic error envelope returned by the server.
type response struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// AddTargetRequest defines the JSON structure for target creation.
type AddTargetRequest struct {
	Name        string            `json:"name"`
	Endpoint    string            `json:"endpoint"`
	Type        models.TargetType `json:"type"`
	APIKey      string            `json:"api_key"`
	Description string            `json:"description"`
}

func (r *AddTargetRequest) Validate() bool {
	return r.Name != "" && r.Endpoint != "" && r.Type.Valid()
}

// StartAssessmentRequest defines the JSON structure for starting a run.
type StartAssessmentRequest struct {
	Target          string  `json:"target"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (r *StartAssessmentRequest) Validate() bool {
	return r.Target != "" && r.DurationSeconds > 0
}

// BiasAnalyzeRequest defines the JSON structure for a bias analysis request.
type BiasAnalyzeRequest struct {
	Dataset           string   `json:"dataset"`
	ProtectedFeatures []string `json:"protected_features"`
	TargetColumn      string   `json:"target_column"`
}

func (r *BiasAnalyzeRequest) Validate() bool {
	return r.Dataset != "" && len(r.ProtectedFeatures) > 0 && r.TargetColumn != ""
}

// CarbonStartRequest defines the JSON structure for starting carbon tracking.
type CarbonStartRequest struct {
	Project string `json:"project"`
}

// CitationValidateRequest asks for a DOI or URL resolvability check.
type CitationValidateRequest struct {
	DOI string `json:"doi"`
	URL string `json:"url"`
}

func (r *CitationValidateRequest) Validate() bool {
	return (r.DOI != "") != (r.URL != "")
}

// AddCitationRequest appends an article to the session bibliography.
type AddCitationRequest struct {
	Article citation.Article `json:"article"`
}

// GenerateReportRequest defines the JSON structure for report generation.
type GenerateReportRequest struct {
	Title                  string `json:"title"`
	IncludeRecommendations *bool  `json:"include_recommendations"`
}

func (r *GenerateReportRequest) Validate() bool {
	return r.Title != ""
}
