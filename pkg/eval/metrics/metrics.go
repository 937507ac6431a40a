// Package metrics implements evaluation metrics for retrieval quality.
package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Metric scores a single evaluation sample.
type Metric interface {
	// Name identifies the metric in evaluation reports.
	Name() string
	// Measure scores one sample and reports whether it passes the
	// metric's threshold.
	Measure(ctx context.Context, sample Sample) (Measurement, error)
}

// Sample is one evaluation case: the context units the retriever produced
// and the units the ground truth expects.
type Sample struct {
	Retrieved []string
	Expected  []string
}

// Measurement is the outcome of measuring one sample.
type Measurement struct {
	Score   float64
	Success bool
}

// ContextualRecall measures the share of expected context units the
// retriever actually surfaced. A unit counts as recalled when it appears
// among the retrieved units; order and duplicates are irrelevant.
type ContextualRecall struct {
	// Threshold is the minimum score that counts as a success.
	Threshold float64
}

// NewContextualRecall creates the metric with the given success threshold.
func NewContextualRecall(threshold float64) *ContextualRecall {
	return &ContextualRecall{Threshold: threshold}
}

// Name implements Metric.
func (m *ContextualRecall) Name() string {
	return "ContextualRecall(column-based)"
}

// Measure implements Metric.
func (m *ContextualRecall) Measure(_ context.Context, sample Sample) (Measurement, error) {
	if len(sample.Expected) == 0 {
		return Measurement{}, errors.New("contextual recall: expected context is empty")
	}

	retrieved := make(map[string]struct{}, len(sample.Retrieved))
	for _, unit := range sample.Retrieved {
		retrieved[unit] = struct{}{}
	}

	expected := make(map[string]struct{}, len(sample.Expected))
	for _, unit := range sample.Expected {
		expected[unit] = struct{}{}
	}

	hits := 0
	for unit := range expected {
		if _, ok := retrieved[unit]; ok {
			hits++
		}
	}

	score := float64(hits) / float64(len(expected))
	return Measurement{
		Score:   score,
		Success: score >= m.Threshold,
	}, nil
}

// ContextProvider resolves a SQL statement into the context units it touches.
type ContextProvider interface {
	Contexts(ctx context.Context, query string) ([]string, error)
}

// SQLContextProvider derives context units by executing the statement
// against a live database and reading the result-set column names.
type SQLContextProvider struct {
	db *sql.DB
}

// NewSQLContextProvider wraps an open database handle.
func NewSQLContextProvider(db *sql.DB) *SQLContextProvider {
	return &SQLContextProvider{db: db}
}

// Contexts implements ContextProvider.
func (p *SQLContextProvider) Contexts(ctx context.Context, query string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sql context: query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sql context: columns: %w", err)
	}

	return cols, nil
}
