package bias

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/impactguard/impactguard/pkg/imports"
)

// FeatureMetrics holds the disparity analysis for one protected feature.
type FeatureMetrics struct {
	// Outcomes maps each group to its positive-outcome rate.
	Outcomes map[string]float64 `json:"outcomes"`
	// Disparities maps each group to the gap between it and the best-off group.
	Disparities  map[string]float64 `json:"disparities"`
	MaxDisparity float64            `json:"max_disparity"`
}

// Result is the output of one bias analysis over a dataset.
type Result struct {
	Dataset string                    `json:"dataset"`
	Metrics map[string]FeatureMetrics `json:"bias_metrics"`
}

// Analyzer computes group-outcome disparity metrics over imported datasets.
type Analyzer struct {
	logger *logrus.Logger
}

// NewAnalyzer creates a bias analyzer.
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{logger: logger}
}

// Analyze computes, for each protected feature, the positive-outcome rate of
// every group and its disparity against the best-off group. The target column
// must be numeric and binary.
func (a *Analyzer) Analyze(table *imports.Table, protected []string, targetColumn, dataset string) (*Result, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("dataset %s is empty", dataset)
	}
	if len(protected) == 0 {
		return nil, fmt.Errorf("no protected features selected")
	}

	outcomes, err := parseTarget(table, targetColumn)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Dataset: dataset,
		Metrics: make(map[string]FeatureMetrics, len(protected)),
	}

	for _, feature := range protected {
		idx := table.ColumnIndex(feature)
		if idx < 0 {
			return nil, fmt.Errorf("no such column: %s", feature)
		}

		sums := make(map[string]float64)
		counts := make(map[string]int)
		for i, row := range table.Rows {
			if idx >= len(row) {
				continue
			}
			group := row[idx]
			sums[group] += outcomes[i]
			counts[group]++
		}

		rates := make(map[string]float64, len(sums))
		baseline := 0.0
		for group, sum := range sums {
			rate := sum / float64(counts[group])
			rates[group] = rate
			if rate > baseline {
				baseline = rate
			}
		}

		disparities := make(map[string]float64, len(rates))
		maxDisparity := 0.0
		for group, rate := range rates {
			d := baseline - rate
			disparities[group] = d
			if d > maxDisparity {
				maxDisparity = d
			}
		}

		result.Metrics[feature] = FeatureMetrics{
			Outcomes:     rates,
			Disparities:  disparities,
			MaxDisparity: maxDisparity,
		}
	}

	a.logger.Infof("Bias analysis completed for %s (%d features)", dataset, len(protected))
	return result, nil
}

// MaxDisparity returns the largest disparity across all analyzed features.
func (r *Result) MaxDisparity() float64 {
	max := 0.0
	for _, m := range r.Metrics {
		if m.MaxDisparity > max {
			max = m.MaxDisparity
		}
	}
	return max
}

// parseTarget reads the target column as numbers and checks it is binary.
func parseTarget(table *imports.Table, targetColumn string) ([]float64, error) {
	idx := table.ColumnIndex(targetColumn)
	if idx < 0 {
		return nil, fmt.Errorf("no such column: %s", targetColumn)
	}

	values := make([]float64, len(table.Rows))
	distinct := make(map[float64]struct{})
	for i, row := range table.Rows {
		if idx >= len(row) {
			return nil, fmt.Errorf("row %d is missing the target column", i)
		}
		v, err := strconv.ParseFloat(row[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("target column %s is not numeric: %v", targetColumn, err)
		}
		values[i] = v
		distinct[v] = struct{}{}
	}

	if len(distinct) != 2 {
		return nil, fmt.Errorf("target column %s must be binary, found %d distinct values", targetColumn, len(distinct))
	}
	return values, nil
}
