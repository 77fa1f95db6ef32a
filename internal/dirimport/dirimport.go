// Package dirimport imports every file in a directory into one kind.
//
// Each file is previewed and committed on its own. Rows that were invalid
// or failed to write go to "Failed/<name> - failed.csv" with a leading
// Status column; the source file moves to "Uploaded/" once its commit
// did not fail. Subdirectories and other file types are left alone, so a
// directory can be processed again after fixing the failed rows.
package dirimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

const (
	uploadedDir = "Uploaded"
	failedDir   = "Failed"
)

// Options configures a directory run.
type Options struct {
	Locale              imports.Locale // zero selects the kind's default
	Sheet               string
	MaxHeaderSearchRows int

	// DryRun previews files without committing or moving them.
	DryRun bool
}

// Result is the outcome of one file.
type Result struct {
	File       string                `json:"file"`
	Preview    *imports.PreviewView  `json:"-"`
	Receipt    imports.CommitReceipt `json:"receipt"`
	Invalid    int                   `json:"invalid"`
	FailedFile string                `json:"failedFile,omitempty"`
	Err        error                 `json:"-"`
	Error      string                `json:"error,omitempty"`
}

// Process imports the .csv and .xlsx files of dir in name order. A file
// that cannot be read or committed is reported in its Result and does not
// stop the run; cancellation does.
func Process(ctx context.Context, imp imports.Importer, dir string, opts Options) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	log := logging.WithFields(ctx, "kind", imp.Info().Kind, "dir", dir)

	var results []Result
	for _, entry := range entries {
		if entry.IsDir() || !importable(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("operation cancelled: %w", err)
		}

		res := processFile(ctx, imp, dir, entry.Name(), opts)
		if res.Err != nil {
			res.Error = res.Err.Error()
			log.Warn("file import failed", "file", res.File, "error", res.Err)
		} else {
			log.Info("file imported", "file", res.File, "status", res.Receipt.Status, "invalid", res.Invalid)
		}
		results = append(results, res)
	}
	return results, nil
}

func importable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx", ".xlsm":
		return !strings.HasPrefix(name, "~$")
	}
	return false
}

func processFile(ctx context.Context, imp imports.Importer, dir, file string, opts Options) Result {
	res := Result{File: file}
	path := filepath.Join(dir, file)

	view, err := preview(ctx, imp, path, opts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Preview = view

	var failures []imports.RowFailure
	for _, r := range view.Rows {
		if !r.Valid {
			res.Invalid++
			failures = append(failures, imports.RowFailure{
				RowNumber:  r.RowNumber,
				NaturalKey: r.NaturalKey,
				Reason:     issueReason(r.Issues),
			})
		}
	}

	if opts.DryRun {
		return res
	}

	switch {
	case view.Blocked:
		res.Err = fmt.Errorf("%s: %w", file, imports.ErrBatchBlocked)
		return res
	case view.Committable():
		res.Receipt, err = imp.Commit(ctx, view.SessionID)
		if err != nil {
			res.Err = err
			return res
		}
		failures = append(failures, res.Receipt.Failures...)
	default:
		res.Receipt = imports.CommitReceipt{
			SessionID: view.SessionID,
			Kind:      view.Kind,
			Skipped:   view.Summary.SkippedCount,
			Status:    imports.StatusCompleted,
		}
	}

	if len(failures) > 0 {
		res.FailedFile, err = writeFailed(dir, file, view, failures)
		if err != nil {
			res.Err = err
			return res
		}
	}

	if err := moveUploaded(dir, file); err != nil {
		res.Err = err
	}
	return res
}

func preview(ctx context.Context, imp imports.Importer, path string, opts Options) (*imports.PreviewView, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ro := imp.Info().ReadOptions()
	ro.Sheet = opts.Sheet
	ro.MaxHeaderSearchRows = opts.MaxHeaderSearchRows

	table, err := imports.ReadFile(path, f, ro)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return imp.PreviewTable(ctx, table, opts.Locale)
}

func issueReason(issues []imports.Issue) string {
	var parts []string
	for _, is := range issues {
		switch {
		case is.Severity != imports.SeverityError:
		case is.ColumnName != "":
			parts = append(parts, is.ColumnName+": "+is.Message)
		default:
			parts = append(parts, is.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// writeFailed writes the failed rows with their original cells and
// returns the file's path.
func writeFailed(dir, file string, view *imports.PreviewView, failures []imports.RowFailure) (string, error) {
	safeFile := filepath.Base(file)
	if safeFile != file || strings.Contains(file, "..") {
		return "", fmt.Errorf("invalid filename: %q", file)
	}

	byRow := make(map[int]imports.RowView, len(view.Rows))
	for _, r := range view.Rows {
		byRow[r.RowNumber] = r
	}

	records := [][]string{append([]string{"Status"}, view.Columns...)}
	for _, fl := range failures {
		rec := make([]string, 0, len(view.Columns)+1)
		rec = append(rec, fmt.Sprintf("line %d: %s", fl.RowNumber, fl.Reason))
		row := byRow[fl.RowNumber]
		for _, col := range view.Columns {
			rec = append(rec, row.Values[col])
		}
		records = append(records, rec)
	}

	target := filepath.Join(dir, failedDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", failedDir, err)
	}
	name := strings.TrimSuffix(safeFile, filepath.Ext(safeFile)) + " - failed.csv"
	path := filepath.Join(target, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed writing failure file: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return "", fmt.Errorf("failed writing failure file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed writing failure file: %w", err)
	}
	return path, nil
}

func moveUploaded(dir, file string) error {
	target := filepath.Join(dir, uploadedDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", uploadedDir, err)
	}
	if err := os.Rename(filepath.Join(dir, file), filepath.Join(target, file)); err != nil {
		return fmt.Errorf("failed moving file %s: %w", file, err)
	}
	return nil
}
