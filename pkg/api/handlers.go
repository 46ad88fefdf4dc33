package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/impactguard/impactguard/pkg/bias"
	"github.com/impactguard/impactguard/pkg/carbon"
	"github.com/impactguard/impactguard/pkg/citation"
	"github.com/impactguard/impactguard/pkg/export"
	"github.com/impactguard/impactguard/pkg/imports"
	"github.com/impactguard/impactguard/pkg/models"
	"github.com/impactguard/impactguard/pkg/report"
	"github.com/impactguard/impactguard/pkg/session"
)

// Target management

func (s *Server) handleListTargets(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).Targets())
}

func (s *Server) handleAddTarget(c *gin.Context) {
	sess := s.session(c)

	var req AddTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Validate() {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Invalid data provided."})
		return
	}

	target, err := sess.AddTarget(models.Target{
		Name:        req.Name,
		Endpoint:    req.Endpoint,
		Type:        req.Type,
		APIKey:      req.APIKey,
		Description: req.Description,
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, session.ErrDuplicateTarget) {
			status = http.StatusConflict
		}
		c.JSON(status, response{Error: true, Message: err.Error()})
		return
	}

	s.logger.Infof("Added new target: %s", target.Name)
	c.JSON(http.StatusCreated, target)
}

func (s *Server) handleDeleteTarget(c *gin.Context) {
	sess := s.session(c)
	name := c.Param("name")

	if !sess.RemoveTarget(name) {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "Target not found."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "name": name})
}

// File import

func (s *Server) handleImportFile(c *gin.Context) {
	sess := s.session(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "No file provided."})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: true, Message: "Failed to read upload."})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: true, Message: "Failed to read upload."})
		return
	}

	doc := imports.Parse(fileHeader.Filename, data)
	if doc.Error == "" && doc.Table != nil {
		sess.SetDataset(fileHeader.Filename, doc.Table)
	}

	// Import failures are reported inline, never as a request failure.
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleImportInsights(c *gin.Context) {
	sess := s.session(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "No file provided."})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: true, Message: "Failed to read upload."})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Error: true, Message: "Failed to read upload."})
		return
	}

	insights, err := imports.ParseInsightCSV(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: err.Error()})
		return
	}

	sess.SetInsights(insights)
	c.JSON(http.StatusOK, gin.H{"imported": len(insights)})
}

func (s *Server) handleListInsights(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).Insights())
}

// Bias analysis

func (s *Server) handleAnalyzeBias(c *gin.Context) {
	sess := s.session(c)

	var req BiasAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Validate() {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Invalid data provided."})
		return
	}

	table, ok := sess.Dataset(req.Dataset)
	if !ok {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "Dataset not found. Import it first."})
		return
	}

	analyzer := bias.NewAnalyzer(s.logger)
	result, err := analyzer.Analyze(table, req.ProtectedFeatures, req.TargetColumn, req.Dataset)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: err.Error()})
		return
	}

	sess.SetBiasResult(result)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetBias(c *gin.Context) {
	result, ok := s.session(c).BiasResult(c.Param("dataset"))
	if !ok {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "No bias results for that dataset."})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Carbon tracking

func (s *Server) handleCarbonStart(c *gin.Context) {
	sess := s.session(c)

	var req CarbonStartRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Project == "" {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Invalid data provided."})
		return
	}

	tracker := sess.InitCarbon(req.Project, s.logger)
	if err := tracker.Start(); err != nil {
		c.JSON(http.StatusConflict, response{Error: true, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "tracking", "project": req.Project})
}

func (s *Server) handleCarbonStop(c *gin.Context) {
	tracker := s.session(c).CarbonTracker()
	if tracker == nil {
		c.JSON(http.StatusConflict, response{Error: true, Message: "Carbon tracking was never started."})
		return
	}

	emissions, err := tracker.Stop()
	if err != nil {
		c.JSON(http.StatusConflict, response{Error: true, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"emissions_kg": emissions, "total_kg": tracker.TotalEmissions()})
}

func (s *Server) handleCarbonReport(c *gin.Context) {
	tracker := s.session(c).CarbonTracker()
	if tracker == nil {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "No carbon measurements available."})
		return
	}
	c.JSON(http.StatusOK, tracker.Report())
}

// Citations

func (s *Server) handleCitationSearch(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Query is required."})
		return
	}

	articles, err := s.citations.Search(c.Request.Context(), query)
	if err != nil {
		s.logger.Errorf("Error fetching articles: %v", err)
		// Treated as "nothing found" so the page stays usable.
		c.JSON(http.StatusOK, []citation.Article{})
		return
	}

	// Results too sparse to cite are dropped before they reach the page.
	complete := make([]citation.Article, 0, len(articles))
	for _, a := range articles {
		if citation.IsMetadataComplete(a, s.config.CitationStrictness) {
			complete = append(complete, a)
		}
	}
	c.JSON(http.StatusOK, complete)
}

func (s *Server) handleCitationValidate(c *gin.Context) {
	var req CitationValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Validate() {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Provide exactly one of doi or url."})
		return
	}

	valid := false
	if req.DOI != "" {
		valid = s.citations.ValidateDOI(c.Request.Context(), req.DOI)
	} else {
		valid = s.citations.ValidateURL(c.Request.Context(), req.URL)
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (s *Server) handleAddCitation(c *gin.Context) {
	sess := s.session(c)

	var req AddCitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Invalid data provided."})
		return
	}

	formatted := citation.FormatCitation(req.Article)
	sess.AddCitation(formatted)
	c.JSON(http.StatusCreated, gin.H{"citation": formatted})
}

func (s *Server) handleBibliography(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).Bibliography())
}

// Reports

func (s *Server) handleGenerateReport(c *gin.Context) {
	sess := s.session(c)

	var req GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Validate() {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Invalid data provided."})
		return
	}

	includeRecs := true
	if req.IncludeRecommendations != nil {
		includeRecs = *req.IncludeRecommendations
	}

	var sustainability *carbon.Report
	if t := sess.CarbonTracker(); t != nil {
		sustainability = t.Report()
	}

	rep := report.Generate(req.Title, sess.Result(), sess.LatestBiasResult(), sustainability, includeRecs)
	sess.AddReport(rep)
	c.JSON(http.StatusCreated, rep)
}

func (s *Server) handleListReports(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).Reports())
}

func (s *Server) handleGetReport(c *gin.Context) {
	rep, ok := s.session(c).Report(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "Report not found."})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Error slot

func (s *Server) handleGetError(c *gin.Context) {
	runErr := s.session(c).Error()
	if runErr == nil {
		c.JSON(http.StatusNoContent, nil)
		return
	}
	c.JSON(http.StatusOK, runErr)
}

func (s *Server) handleDismissError(c *gin.Context) {
	s.session(c).ClearError()
	c.JSON(http.StatusOK, gin.H{"status": "dismissed"})
}

// Exports

func (s *Server) handleExportReport(c *gin.Context) {
	sess := s.session(c)

	rep, ok := sess.Report(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "Report not found."})
		return
	}

	format := c.DefaultQuery("format", "json")
	exporter, err := export.New(format)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", rep.ID, exporter.Format()))
	c.Header("Content-Type", exporter.ContentType())
	if err := exporter.Generate(c.Request.Context(), rep, c.Writer); err != nil {
		s.logger.Errorf("Failed to export report %s: %v", rep.ID, err)
	}
}

func (s *Server) handleExportBibliography(c *gin.Context) {
	citations := s.session(c).Bibliography()

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Header("Content-Disposition", "attachment; filename=bibliography.csv")
		c.Header("Content-Type", "text/csv")
		if err := export.BibliographyCSV(citations, c.Writer); err != nil {
			s.logger.Errorf("Failed to export bibliography: %v", err)
		}
	case "text", "txt":
		c.Header("Content-Disposition", "attachment; filename=bibliography.txt")
		c.Header("Content-Type", "text/plain")
		if err := export.BibliographyText(citations, c.Writer); err != nil {
			s.logger.Errorf("Failed to export bibliography: %v", err)
		}
	default:
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Unsupported bibliography format."})
	}
}

func (s *Server) handleExportInsights(c *gin.Context) {
	insights := s.session(c).Insights()

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.Header("Content-Disposition", "attachment; filename=insights.json")
		c.Header("Content-Type", "application/json")
		if err := export.InsightsJSON(insights, c.Writer); err != nil {
			s.logger.Errorf("Failed to export insights: %v", err)
		}
	case "csv":
		c.Header("Content-Disposition", "attachment; filename=insights.csv")
		c.Header("Content-Type", "text/csv")
		if err := export.InsightsCSV(insights, c.Writer); err != nil {
			s.logger.Errorf("Failed to export insights: %v", err)
		}
	default:
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Unsupported insights format."})
	}
}
