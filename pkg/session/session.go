// Package session holds all mutable per-user application state. Sessions are
// ephemeral: they live in process memory and are never persisted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/impactguard/impactguard/pkg/assessment"
	"github.com/impactguard/impactguard/pkg/bias"
	"github.com/impactguard/impactguard/pkg/carbon"
	"github.com/impactguard/impactguard/pkg/imports"
	"github.com/impactguard/impactguard/pkg/models"
	"github.com/impactguard/impactguard/pkg/report"
)

var (
	// ErrRunInProgress is returned when a run is started while one is active.
	ErrRunInProgress = errors.New("an assessment is already running")
	// ErrDuplicateTarget is returned when a target name is already taken.
	ErrDuplicateTarget = errors.New("a target with that name already exists")
)

// Session is the aggregate root for one interactive user: configured targets,
// the live run and its control fields, analysis results and collected
// artifacts. All access goes through the session mutex.
type Session struct {
	ID string

	mu       sync.RWMutex
	lastSeen time.Time

	targets []models.Target

	running    bool
	progress   float64
	vulnsFound int
	cancel     context.CancelFunc
	result     *models.RunResult

	lastError *models.RunError

	datasets    map[string]*imports.Table
	biasResults map[string]*bias.Result
	lastBias    *bias.Result

	tracker *carbon.Tracker

	bibliography []string
	insights     []models.Insight
	reports      []*report.Report
}

func newSession(id string) *Session {
	return &Session{
		ID:          id,
		lastSeen:    time.Now(),
		targets:     []models.Target{},
		datasets:    make(map[string]*imports.Table),
		biasResults: make(map[string]*bias.Result),
	}
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// AddTarget validates and stores a new target. Duplicate names are rejected.
func (s *Session) AddTarget(t models.Target) (models.Target, error) {
	if t.Name == "" || t.Endpoint == "" {
		return models.Target{}, fmt.Errorf("name and endpoint are required")
	}
	if !t.Type.Valid() {
		return models.Target{}, fmt.Errorf("unknown target type: %s", t.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.targets {
		if existing.Name == t.Name {
			return models.Target{}, ErrDuplicateTarget
		}
	}

	t.ID = uuid.NewString()
	t.AddedAt = time.Now()
	s.targets = append(s.targets, t)
	return t, nil
}

// Targets returns a copy of the configured targets.
func (s *Session) Targets() []models.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Target, len(s.targets))
	copy(out, s.targets)
	return out
}

// TargetByName looks up a target by its name.
func (s *Session) TargetByName(name string) (models.Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.targets {
		if t.Name == name {
			return t, true
		}
	}
	return models.Target{}, false
}

// RemoveTarget deletes a target by name.
func (s *Session) RemoveTarget(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.targets {
		if t.Name == name {
			s.targets = append(s.targets[:i], s.targets[i+1:]...)
			return true
		}
	}
	return false
}

// BeginRun transitions the session into the running state, clearing the
// previous run's counters and result. The cancel func is kept so the run can
// be stopped cooperatively.
func (s *Session) BeginRun(cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrRunInProgress
	}
	s.running = true
	s.progress = 0
	s.vulnsFound = 0
	s.result = nil
	s.cancel = cancel
	return nil
}

// SetProgress records run progress. Progress never moves backwards within a
// single run.
func (s *Session) SetProgress(p float64) {
	s.mu.Lock()
	if p > s.progress {
		s.progress = p
	}
	s.mu.Unlock()
}

// IncrementFindings bumps the live findings counter.
func (s *Session) IncrementFindings() {
	s.mu.Lock()
	s.vulnsFound++
	s.mu.Unlock()
}

// FinishRun stores the finalized result and leaves the running state. The
// result of a cancelled run is stored the same way, partial findings and all.
func (s *Session) FinishRun(result *models.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.releaseRunContext()
	s.result = result
	if result != nil {
		s.vulnsFound = result.Summary.VulnerabilitiesFound
	}
}

// FailRun records a run error, surfaces it on the error slot and forces the
// session out of the running state.
func (s *Session) FailRun(runErr *models.RunError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.releaseRunContext()
	s.lastError = runErr
}

// releaseRunContext cancels the run context so it is never leaked, even on
// normal completion. Callers hold the session mutex.
func (s *Session) releaseRunContext() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// StopRun requests cooperative cancellation of the live run.
func (s *Session) StopRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Snapshot returns the current run-control fields for progress rendering.
func (s *Session) Snapshot() assessment.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return assessment.Snapshot{
		Running:              s.running,
		Progress:             s.progress,
		VulnerabilitiesFound: s.vulnsFound,
	}
}

// Result returns the live run result, or nil when no run has completed.
func (s *Session) Result() *models.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil
	}
	out := *s.result
	out.Vulnerabilities = make([]models.Finding, len(s.result.Vulnerabilities))
	copy(out.Vulnerabilities, s.result.Vulnerabilities)
	return &out
}

// SetError surfaces an error message on the session's error slot.
func (s *Session) SetError(message string) {
	s.mu.Lock()
	s.lastError = &models.RunError{Message: message, Timestamp: time.Now()}
	s.mu.Unlock()
}

// Error returns the current error slot value, or nil.
func (s *Session) Error() *models.RunError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// ClearError dismisses the error slot.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastError = nil
	s.mu.Unlock()
}

// SetDataset stores an imported tabular dataset under a name.
func (s *Session) SetDataset(name string, table *imports.Table) {
	s.mu.Lock()
	s.datasets[name] = table
	s.mu.Unlock()
}

// Dataset retrieves an imported dataset by name.
func (s *Session) Dataset(name string) (*imports.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.datasets[name]
	return t, ok
}

// DatasetNames lists the imported datasets.
func (s *Session) DatasetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		names = append(names, name)
	}
	return names
}

// SetBiasResult stores a bias analysis result keyed by dataset.
func (s *Session) SetBiasResult(result *bias.Result) {
	s.mu.Lock()
	s.biasResults[result.Dataset] = result
	s.lastBias = result
	s.mu.Unlock()
}

// BiasResult retrieves the bias result for a dataset.
func (s *Session) BiasResult(dataset string) (*bias.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.biasResults[dataset]
	return r, ok
}

// LatestBiasResult returns the most recent bias analysis, or nil.
func (s *Session) LatestBiasResult() *bias.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastBias
}

// InitCarbon creates (or replaces) the session's carbon tracker.
func (s *Session) InitCarbon(projectName string, logger *logrus.Logger) *carbon.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil || s.tracker.ProjectName() != projectName {
		s.tracker = carbon.NewTracker(projectName, logger)
	}
	return s.tracker
}

// CarbonTracker returns the session's carbon tracker, or nil.
func (s *Session) CarbonTracker() *carbon.Tracker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker
}

// AddCitation appends a formatted citation to the session bibliography.
func (s *Session) AddCitation(formatted string) {
	s.mu.Lock()
	s.bibliography = append(s.bibliography, formatted)
	s.mu.Unlock()
}

// Bibliography returns a copy of the collected citations.
func (s *Session) Bibliography() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.bibliography))
	copy(out, s.bibliography)
	return out
}

// SetInsights replaces the imported insight records.
func (s *Session) SetInsights(insights []models.Insight) {
	s.mu.Lock()
	s.insights = insights
	s.mu.Unlock()
}

// Insights returns a copy of the imported insight records.
func (s *Session) Insights() []models.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Insight, len(s.insights))
	copy(out, s.insights)
	return out
}

// AddReport stores a generated report.
func (s *Session) AddReport(r *report.Report) {
	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
}

// Reports returns the generated reports, newest last.
func (s *Session) Reports() []*report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*report.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// Report retrieves a generated report by ID.
func (s *Session) Report(id string) (*report.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}
