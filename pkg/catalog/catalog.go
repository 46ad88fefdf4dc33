package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/impactguard/impactguard/pkg/config"
	"github.com/impactguard/impactguard/pkg/models"
)

// Catalog holds the test vectors available for assessment runs. The vectors
// are read-only reference data: callers get copies, never the backing slice.
type Catalog struct {
	config  config.Config
	vectors []models.TestVector
}

// New creates a catalog from the configured database path. If no catalog file
// exists the built-in default vectors are used.
func New(cfg config.Config) (*Catalog, error) {
	c := &Catalog{config: cfg}

	if err := c.loadVectors(); err != nil {
		return nil, err
	}
	return c, nil
}

// loadVectors loads the test vector catalog from a file
func (c *Catalog) loadVectors() error {
	dbPath := filepath.Join(c.config.DatabasePath, "vectors.json")

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		c.vectors = DefaultVectors()
		return nil
	}

	data, err := os.ReadFile(dbPath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &c.vectors)
}

// Vectors returns a copy of all test vectors.
func (c *Catalog) Vectors() []models.TestVector {
	out := make([]models.TestVector, len(c.vectors))
	copy(out, c.vectors)
	return out
}

// ByCategory returns the vectors grouped by category.
func (c *Catalog) ByCategory() map[models.Category][]models.TestVector {
	groups := make(map[models.Category][]models.TestVector)
	for _, tv := range c.vectors {
		groups[tv.Category] = append(groups[tv.Category], tv)
	}
	return groups
}

// Get retrieves a vector by ID, or nil when unknown.
func (c *Catalog) Get(id string) *models.TestVector {
	for i := range c.vectors {
		if c.vectors[i].ID == id {
			tv := c.vectors[i]
			return &tv
		}
	}
	return nil
}

// DefaultVectors returns the built-in test vector catalog.
func DefaultVectors() []models.TestVector {
	return []models.TestVector{
		{ID: "sql_injection", Name: "SQL Injection", Category: models.CategoryOWASP, Severity: models.SeverityHigh},
		{ID: "xss", Name: "Cross-Site Scripting", Category: models.CategoryOWASP, Severity: models.SeverityMedium},
		{ID: "prompt_injection", Name: "Prompt Injection", Category: models.CategoryOWASP, Severity: models.SeverityCritical},
		{ID: "insecure_output", Name: "Insecure Output Handling", Category: models.CategoryOWASP, Severity: models.SeverityHigh},
		{ID: "nist_governance", Name: "AI Governance", Category: models.CategoryNIST, Severity: models.SeverityMedium},
		{ID: "nist_transparency", Name: "Transparency", Category: models.CategoryNIST, Severity: models.SeverityMedium},
		{ID: "fairness_demographic", Name: "Demographic Parity", Category: models.CategoryFairness, Severity: models.SeverityHigh},
		{ID: "privacy_gdpr", Name: "GDPR Compliance", Category: models.CategoryPrivacy, Severity: models.SeverityCritical},
		{ID: "jailbreaking", Name: "Jailbreaking Resistance", Category: models.CategoryExploit, Severity: models.SeverityCritical},
	}
}
