// Package admin provides administrative operations for database management.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/store"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// ReferencesTable holds the reference keys loaded before validation.
const ReferencesTable = "import_references"

var errNoTables = errors.New("no tables to reset")

// Tables returns the target tables of every registered kind.
func Tables(reg *imports.Registry) []string {
	var tables []string
	for _, k := range reg.Kinds() {
		tables = append(tables, k.Target)
	}
	return tables
}

// ResetAll truncates tables in one statement.
// This is a destructive operation - use with caution.
func ResetAll(ctx context.Context, db store.DBTX, tables ...string) error {
	stmt, err := truncateSQL(tables)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	if _, err := db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("reset %s: %w", strings.Join(tables, ", "), err)
	}
	return nil
}

func truncateSQL(tables []string) (string, error) {
	if len(tables) == 0 {
		return "", errNoTables
	}
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = pgx.Identifier{t}.Sanitize()
	}
	return "TRUNCATE " + strings.Join(quoted, ", ") + " RESTART IDENTITY", nil
}
