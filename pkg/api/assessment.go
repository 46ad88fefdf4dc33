package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/impactguard/impactguard/pkg/assessment"
	"github.com/impactguard/impactguard/pkg/models"
	"github.com/impactguard/impactguard/pkg/session"
)

// handleStartAssessment launches a background run against a configured target.
func (s *Server) handleStartAssessment(c *gin.Context) {
	sess := s.session(c)

	var req StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Validate() {
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: "Invalid data provided."})
		return
	}

	target, ok := sess.TargetByName(req.Target)
	if !ok {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "Selected target not found."})
		return
	}

	vectors := s.catalog.Vectors()
	duration := time.Duration(req.DurationSeconds * float64(time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	if err := sess.BeginRun(cancel); err != nil {
		cancel()
		if errors.Is(err, session.ErrRunInProgress) {
			c.JSON(http.StatusConflict, response{Error: true, Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, response{Error: true, Message: "Unexpected internal error occurred."})
		return
	}

	events, err := s.runner.Start(ctx, target, vectors, duration)
	if err != nil {
		cancel()
		sess.FinishRun(nil)
		c.JSON(http.StatusUnprocessableEntity, response{Error: true, Message: err.Error()})
		return
	}

	s.metrics.RunsStarted.Inc()
	s.metrics.RunsInProgress.Inc()
	go s.applyEvents(sess, events)

	s.logger.Infof("Started assessment against %s with %d vectors", target.Name, len(vectors))
	c.JSON(http.StatusOK, gin.H{"status": "started", "target": target.Name})
}

// applyEvents drains a run's event stream into the session. The runner is the
// single writer of the stream; this loop is the single writer of the session's
// run-control fields while the run lives.
func (s *Server) applyEvents(sess *session.Session, events <-chan assessment.Event) {
	for ev := range events {
		switch ev.Type {
		case assessment.EventProgress:
			sess.SetProgress(ev.Progress)
		case assessment.EventFinding:
			sess.IncrementFindings()
			s.metrics.FindingsTotal.WithLabelValues(string(ev.Finding.Severity)).Inc()
		case assessment.EventDone:
			sess.FinishRun(ev.Result)
			s.metrics.RunsInProgress.Dec()
			s.metrics.RunsFinished.WithLabelValues(string(ev.Result.Status)).Inc()
		case assessment.EventError:
			sess.FailRun(ev.Err)
			s.metrics.RunsInProgress.Dec()
			s.metrics.RunsFinished.WithLabelValues("error").Inc()
		}
	}
}

// handleStopAssessment requests cooperative cancellation of the live run.
func (s *Server) handleStopAssessment(c *gin.Context) {
	sess := s.session(c)

	if !sess.StopRun() {
		c.JSON(http.StatusConflict, response{Error: true, Message: "No assessment is running."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopping"})
}

// handleAssessmentStatus returns the run-control snapshot for polling UIs.
func (s *Server) handleAssessmentStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).Snapshot())
}

// handleAssessmentResult returns the live run result.
func (s *Server) handleAssessmentResult(c *gin.Context) {
	result := s.session(c).Result()
	if result == nil {
		c.JSON(http.StatusNotFound, response{Error: true, Message: "No assessment results available."})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleListVectors lists the test vector catalog, optionally by category.
func (s *Server) handleListVectors(c *gin.Context) {
	if category := c.Query("category"); category != "" {
		groups := s.catalog.ByCategory()
		vectors, ok := groups[models.Category(category)]
		if !ok {
			c.JSON(http.StatusOK, []models.TestVector{})
			return
		}
		c.JSON(http.StatusOK, vectors)
		return
	}
	c.JSON(http.StatusOK, s.catalog.Vectors())
}
