package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var widgetMapping = Mapping[widget]{
	Table:   "store_test_widgets",
	Columns: []string{"code", "qty"},
	Values:  func(w widget) []any { return []any{w.Code, w.Qty} },
	Scan: func(row pgx.Row) (string, int64, widget, error) {
		var (
			key     string
			version int64
			w       widget
		)
		err := row.Scan(&key, &version, &w.Code, &w.Qty)
		return key, version, w, err
	},
}

// testPool connects to TEST_DATABASE_URL and recreates the widget table.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, PoolConfig{URL: url, MaxConns: 4})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(pool.Close)

	err = Migrate(ctx, pool,
		`DROP TABLE IF EXISTS store_test_widgets`,
		`CREATE TABLE store_test_widgets (
			natural_key text PRIMARY KEY,
			version     bigint NOT NULL,
			code        text NOT NULL,
			qty         bigint NOT NULL CHECK (qty >= 0),
			updated_at  timestamptz NOT NULL
		)`,
		ReferencesSchema,
	)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return pool
}

func TestPostgres_ApplyAndLookup(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewPostgres(pool, widgetMapping)

	res, err := s.Apply(ctx, imports.Batch[widget]{
		Target: "widgets",
		Guards: []imports.Guard{{Key: "A"}, {Key: "B"}},
		Ops:    []imports.WriteOp[widget]{insertOp(2, "A", 1), insertOp(3, "B", 2)},
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}

	got, err := s.Lookup(ctx, []string{"A", "B", "C"})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if len(got) != 2 || got["B"].Version != 1 || got["B"].Record.Qty != 2 {
		t.Errorf("Lookup() = %+v", got)
	}

	res, err = s.Apply(ctx, imports.Batch[widget]{
		Guards: []imports.Guard{{Key: "B", Version: 1}},
		Ops:    []imports.WriteOp[widget]{updateOp(2, "B", 9, 1)},
	})
	if err != nil {
		t.Fatalf("Apply(update) error = %v", err)
	}
	if res.Updated != 1 {
		t.Errorf("Updated = %d, want 1", res.Updated)
	}
	got, _ = s.Lookup(ctx, []string{"B"})
	if got["B"].Version != 2 || got["B"].Record.Qty != 9 {
		t.Errorf("Lookup(B) = %+v, want version 2 qty 9", got["B"])
	}
}

func TestPostgres_StalePreview(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewPostgres(pool, widgetMapping)

	if _, err := s.Apply(ctx, imports.Batch[widget]{Ops: []imports.WriteOp[widget]{insertOp(2, "A", 1)}}); err != nil {
		t.Fatalf("seed Apply() error = %v", err)
	}

	_, err := s.Apply(ctx, imports.Batch[widget]{
		Guards: []imports.Guard{{Key: "A", Version: 0}, {Key: "N", Version: 0}},
		Ops:    []imports.WriteOp[widget]{insertOp(2, "A", 5), insertOp(3, "N", 1)},
	})
	if !errors.Is(err, imports.ErrStalePreview) {
		t.Fatalf("Apply() error = %v, want ErrStalePreview", err)
	}
	got, _ := s.Lookup(ctx, []string{"N"})
	if len(got) != 0 {
		t.Error("stale batch wrote a record")
	}
}

func TestPostgres_Policies(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	s := NewPostgres(pool, widgetMapping)
	ops := []imports.WriteOp[widget]{insertOp(2, "A", 1), insertOp(3, "B", -1), insertOp(4, "C", 3)}

	if _, err := s.Apply(ctx, imports.Batch[widget]{Policy: imports.CommitAtomic, Ops: ops}); err == nil {
		t.Fatal("atomic Apply() error = nil, want check violation")
	}
	if got, _ := s.Lookup(ctx, []string{"A", "C"}); len(got) != 0 {
		t.Errorf("atomic failure left %d records", len(got))
	}

	res, err := s.Apply(ctx, imports.Batch[widget]{Policy: imports.CommitPartial, Ops: ops})
	if err != nil {
		t.Fatalf("partial Apply() error = %v", err)
	}
	if res.Inserted != 2 || len(res.Failures) != 1 || res.Failures[0].NaturalKey != "B" {
		t.Errorf("partial Apply() = %+v, want 2 inserted and B failed", res)
	}
}

func TestPostgres_References(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	if _, err := pool.Exec(ctx, `DELETE FROM import_references WHERE ref_group = 'store_test'`); err != nil {
		t.Fatalf("cleanup error = %v", err)
	}
	if err := AddReference(ctx, pool, "store_test", "Plaat"); err != nil {
		t.Fatalf("AddReference() error = %v", err)
	}
	if err := AddReference(ctx, pool, "store_test", "Plaat"); err != nil {
		t.Fatalf("AddReference() duplicate error = %v", err)
	}

	refs, err := NewPostgres(pool, widgetMapping).References(ctx)
	if err != nil {
		t.Fatalf("References() error = %v", err)
	}
	if !refs.Contains("store_test", "plaat") {
		t.Error("Contains(store_test, plaat) = false, want true")
	}
}
