package dirimport

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/catalogimport/internal/catalog"
	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/logging"
)

func customers(t *testing.T) imports.Importer {
	t.Helper()
	reg := imports.NewRegistry()
	catalog.Register(reg, catalog.Deps{})
	imp, err := reg.Get("customers")
	if err != nil {
		t.Fatalf("Get(customers) error = %v", err)
	}
	return imp
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
}

const klanten = "Klantnummer;Naam;Plaats\n" +
	"1001;Bakker BV;Utrecht\n" +
	"abc;Jansen;Zwolle\n" +
	"1002;De Vries;Ede\n"

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "klanten.csv", klanten)
	writeFile(t, dir, "notes.md", "not an import")

	imp := customers(t)
	results, err := Process(context.Background(), imp, dir, Options{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Process() returned %d results, want 1", len(results))
	}

	res := results[0]
	if res.Err != nil {
		t.Fatalf("result error = %v", res.Err)
	}
	if res.Receipt.Status != imports.StatusCompleted || res.Receipt.Inserted != 2 {
		t.Errorf("receipt = %+v, want completed with 2 inserted", res.Receipt)
	}
	if res.Invalid != 1 {
		t.Errorf("Invalid = %d, want 1", res.Invalid)
	}

	failed, err := os.ReadFile(res.FailedFile)
	if err != nil {
		t.Fatalf("reading failed file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(failed)), "\n")
	if len(lines) != 2 {
		t.Fatalf("failed file has %d lines, want 2:\n%s", len(lines), failed)
	}
	if !strings.HasPrefix(lines[1], "line 3: Klantnummer") || !strings.Contains(lines[1], ";abc;Jansen;") {
		t.Errorf("failed row = %q", lines[1])
	}

	if _, err := os.Stat(filepath.Join(dir, uploadedDir, "klanten.csv")); err != nil {
		t.Errorf("source not moved to %s: %v", uploadedDir, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.md")); err != nil {
		t.Errorf("unrelated file touched: %v", err)
	}

	again, err := Process(context.Background(), imp, dir, Options{})
	if err != nil || len(again) != 0 {
		t.Errorf("second Process() = %d results, %v, want none", len(again), err)
	}
}

func TestProcess_FailedFileKeepsAliasedCells(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "klanten.csv", "klantnr;naam;PLAATS\nabc;Jansen;Zwolle\n1001;Bakker BV;Ede\n")

	results, err := Process(context.Background(), customers(t), dir, Options{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("Process() = %+v, want one imported file", results)
	}

	failed, err := os.ReadFile(results[0].FailedFile)
	if err != nil {
		t.Fatalf("reading failed file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(failed)), "\n")
	if len(lines) != 2 {
		t.Fatalf("failed file has %d lines, want 2:\n%s", len(lines), failed)
	}
	if lines[0] != "Status;Klantnummer;Naam;Email;Telefoon;Plaats;Korting" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "line 2: Klantnummer") || !strings.HasSuffix(lines[1], ";abc;Jansen;;;Zwolle;") {
		t.Errorf("failed row = %q, want the original cells under their columns", lines[1])
	}
}

func TestProcess_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "klanten.csv", klanten)

	results, err := Process(context.Background(), customers(t), dir, Options{DryRun: true})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 1 || results[0].Preview == nil {
		t.Fatalf("Process() = %+v, want one previewed file", results)
	}
	if got := results[0].Preview.Summary.InsertCount; got != 2 {
		t.Errorf("InsertCount = %d, want 2", got)
	}
	if results[0].Receipt.Status != "" {
		t.Errorf("dry run committed: %+v", results[0].Receipt)
	}
	if _, err := os.Stat(filepath.Join(dir, "klanten.csv")); err != nil {
		t.Errorf("dry run moved the source: %v", err)
	}
}

func TestProcess_UnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.xlsx", "not a workbook")

	results, err := Process(context.Background(), customers(t), dir, Options{})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("Process() = %+v, want a per-file error", results)
	}
	if _, err := os.Stat(filepath.Join(dir, "broken.xlsx")); err != nil {
		t.Errorf("failed file was moved: %v", err)
	}
}

func TestProcess_LogsThroughContextLogger(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.xlsx", "not a workbook")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With("run", "nightly")
	ctx := logging.IntoContext(context.Background(), logger)

	if _, err := Process(ctx, customers(t), dir, Options{}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"msg":"file import failed"`, `"run":"nightly"`, `"kind":"customers"`, `"file":"broken.xlsx"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
}

func TestImportable(t *testing.T) {
	tests := map[string]bool{
		"a.csv":       true,
		"B.XLSX":      true,
		"c.xlsm":      true,
		"~$lock.xlsx": false,
		"d.pdf":       false,
		"e":           false,
	}
	for name, want := range tests {
		if got := importable(name); got != want {
			t.Errorf("importable(%q) = %v, want %v", name, got, want)
		}
	}
}
