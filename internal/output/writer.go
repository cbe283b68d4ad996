// Package output writes fetch results as JSON, to a file or stdout.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/transform"
)

// Report is one fetch run: the window requested, the accounts involved, and
// every transaction retrieved.
type Report struct {
	FetchedAt    time.Time            `json:"fetchedAt"`
	Start        civil.Date           `json:"start"`
	End          civil.Date           `json:"end"`
	Accounts     []domain.Account     `json:"accounts"`
	Transactions []domain.Transaction `json:"transactions"`
}

// WriteOptions configures how the report is written.
type WriteOptions struct {
	MergeMode bool   // If true, load existing file and merge
	FilePath  string // Output path (empty = stdout)
}

// WriteReport serializes a report to JSON with 2-space indentation.
func WriteReport(report *Report, w io.Writer) error {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report as JSON: %w", err)
	}

	return nil
}

// WriteReportToFile writes a report to file or stdout based on options.
func WriteReportToFile(report *Report, opts WriteOptions) (err error) {
	if report == nil {
		return fmt.Errorf("report cannot be nil")
	}

	if opts.MergeMode && opts.FilePath != "" {
		existing, err := LoadReport(opts.FilePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to load existing report for merge: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Warning: merge mode requested but %s does not exist, creating new file\n", opts.FilePath)
		} else {
			mergeReports(existing, report)
			report = existing
		}
	}

	if opts.FilePath == "" {
		return WriteReport(report, os.Stdout)
	}

	f, err := os.Create(opts.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", opts.FilePath, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close output file %s: %w", opts.FilePath, closeErr)
		}
	}()

	if err = WriteReport(report, f); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", opts.FilePath, err)
	}

	return nil
}

// LoadReport reads an existing report file for merge mode.
func LoadReport(filePath string) (*Report, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	f, err := os.Open(filePath)
	if err != nil {
		// Return unwrapped error so caller can check os.IsNotExist
		// to distinguish "file not found" from other loading errors
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", filePath, closeErr)
		}
	}()

	var report Report
	if err := json.NewDecoder(f).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report JSON: %w", err)
	}

	return &report, nil
}

// mergeReports folds source into target. Accounts merge by number;
// transactions merge by deterministic ID, so re-fetching an overlapping
// window is idempotent. The window and timestamp take source's values, since
// source is the newer run. Pending rows are replaced rather than kept: a
// pending transaction's settled form carries a different fingerprint, and the
// stale pending entry from the older run would otherwise linger forever.
func mergeReports(target, source *Report) {
	target.FetchedAt = source.FetchedAt
	target.Start = source.Start
	target.End = source.End

	haveAccount := make(map[string]bool, len(target.Accounts))
	for _, a := range target.Accounts {
		haveAccount[a.Number] = true
	}
	for _, a := range source.Accounts {
		if !haveAccount[a.Number] {
			target.Accounts = append(target.Accounts, a)
			haveAccount[a.Number] = true
		}
	}

	kept := target.Transactions[:0]
	for _, t := range target.Transactions {
		if !t.Pending {
			kept = append(kept, t)
		}
	}
	target.Transactions = kept

	haveTxn := make(map[string]bool, len(target.Transactions))
	for _, t := range target.Transactions {
		haveTxn[transform.TransactionID(&t)] = true
	}
	for _, t := range source.Transactions {
		id := transform.TransactionID(&t)
		if !haveTxn[id] {
			target.Transactions = append(target.Transactions, t)
			haveTxn[id] = true
		}
	}
}
