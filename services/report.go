// services/report.go
package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/sirupsen/logrus"
)

// summaryRow is the CSV shape of one category's outcome. The summary file
// is picked up as a build artifact by the workflow that schedules runs.
type summaryRow struct {
	Category string `csv:"category"`
	Outcome  string `csv:"outcome"`
	Edition  string `csv:"edition_code"`
	Error    string `csv:"error"`
}

// WriteSummary writes the per-category outcomes as a CSV artifact.
func WriteSummary(path string, results []CycleResult) error {
	rows := make([]summaryRow, 0, len(results))
	for _, res := range results {
		row := summaryRow{
			Category: string(res.Category),
			Outcome:  string(res.Outcome),
			Edition:  res.EditionCode,
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		rows = append(rows, row)
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return nil
}

// LogSummary emits one structured line per category and reports whether
// any lane failed.
func LogSummary(logger logrus.FieldLogger, results []CycleResult) (failed bool) {
	for _, res := range results {
		fields := logrus.Fields{"category": res.Category, "outcome": res.Outcome}
		if res.EditionCode != "" {
			fields["edition"] = res.EditionCode
		}
		entry := logger.WithFields(fields)
		if res.Outcome == OutcomeFailed {
			failed = true
			entry.Errorf("Summary: %s FAILED: %v", strings.ToUpper(string(res.Category)), res.Err)
			continue
		}
		entry.Infof("Summary: %s %s", res.Category, res.Outcome)
	}
	return failed
}
