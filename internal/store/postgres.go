package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ReferencesSchema creates the shared reference table.
const ReferencesSchema = `CREATE TABLE IF NOT EXISTS import_references (
	ref_group text NOT NULL,
	ref_key   text NOT NULL,
	PRIMARY KEY (ref_group, ref_key)
)`

// Migrate runs schema statements in order inside one transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool, stmts ...string) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// LoadReferences reads every reference key from import_references.
func LoadReferences(ctx context.Context, db DBTX) (imports.RefSet, error) {
	rows, err := db.Query(ctx, `SELECT ref_group, ref_key FROM import_references`)
	if err != nil {
		return nil, fmt.Errorf("load references: %w", err)
	}
	defer rows.Close()

	refs := imports.RefSet{}
	for rows.Next() {
		var group, key string
		if err := rows.Scan(&group, &key); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		refs.Add(group, key)
	}
	return refs, rows.Err()
}

// AddReference inserts a reference key, ignoring duplicates.
func AddReference(ctx context.Context, db DBTX, group, key string) error {
	_, err := db.Exec(ctx,
		`INSERT INTO import_references (ref_group, ref_key) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		group, key)
	if err != nil {
		return fmt.Errorf("add reference %s/%s: %w", group, key, err)
	}
	return nil
}

// Mapping binds an entity type to its table.
//
// Every mapped table has a natural_key text primary key, a version bigint,
// the entity Columns and an updated_at timestamp.
type Mapping[T any] struct {
	Table   string
	Columns []string

	// Values returns the column values of rec, in Columns order.
	Values func(rec T) []any

	// Scan reads the entity columns, in Columns order, from a row whose
	// first two columns are natural_key and version.
	Scan func(row pgx.Row) (key string, version int64, rec T, err error)
}

// Postgres is an imports.Store backed by one PostgreSQL table.
type Postgres[T any] struct {
	pool *pgxpool.Pool
	m    Mapping[T]

	lookupSQL string
	guardSQL  string
	insertSQL string
	updateSQL string
}

// NewPostgres creates a store for the mapped table.
func NewPostgres[T any](pool *pgxpool.Pool, m Mapping[T]) *Postgres[T] {
	table := pgx.Identifier{m.Table}.Sanitize()
	cols := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}

	// $1 natural_key, $2 version, $3.. entity columns
	params := make([]string, len(cols))
	sets := make([]string, len(cols))
	for i, c := range cols {
		params[i] = fmt.Sprintf("$%d", i+3)
		sets[i] = fmt.Sprintf("%s = $%d", c, i+3)
	}
	colList := strings.Join(cols, ", ")

	return &Postgres[T]{
		pool: pool,
		m:    m,
		lookupSQL: fmt.Sprintf(`SELECT natural_key, version, %s FROM %s WHERE natural_key = ANY($1)`,
			colList, table),
		guardSQL: fmt.Sprintf(`SELECT natural_key, version FROM %s WHERE natural_key = ANY($1) FOR UPDATE`,
			table),
		insertSQL: fmt.Sprintf(`INSERT INTO %s (natural_key, version, %s, updated_at) VALUES ($1, $2, %s, now())`,
			table, colList, strings.Join(params, ", ")),
		updateSQL: fmt.Sprintf(`UPDATE %s SET %s, version = version + 1, updated_at = now() WHERE natural_key = $1 AND version = $2`,
			table, strings.Join(sets, ", ")),
	}
}

// References loads the shared reference table.
func (p *Postgres[T]) References(ctx context.Context) (imports.RefSet, error) {
	return LoadReferences(ctx, p.pool)
}

// Lookup returns the stored records for keys in one query.
func (p *Postgres[T]) Lookup(ctx context.Context, keys []string) (map[string]imports.Existing[T], error) {
	out := make(map[string]imports.Existing[T], len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := p.pool.Query(ctx, p.lookupSQL, keys)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", p.m.Table, err)
	}
	defer rows.Close()

	for rows.Next() {
		key, version, rec, err := p.m.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p.m.Table, err)
		}
		out[key] = imports.Existing[T]{Record: rec, Version: version}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup %s: %w", p.m.Table, err)
	}
	return out, nil
}

// Apply writes a batch in one transaction.
//
// The transaction takes an advisory lock on the table, locks the guarded
// rows and compares their versions before any write. In partial mode each
// row runs in its own savepoint.
func (p *Postgres[T]) Apply(ctx context.Context, b imports.Batch[T]) (imports.ApplyResult, error) {
	var res imports.ApplyResult

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, p.m.Table); err != nil {
		return res, fmt.Errorf("commit lock on %s: %w", p.m.Table, err)
	}
	if err := p.checkGuards(ctx, tx, b.Guards); err != nil {
		return res, err
	}

	for _, op := range b.Ops {
		if b.Policy != imports.CommitPartial {
			if err := p.write(ctx, tx, op); err != nil {
				return imports.ApplyResult{}, fmt.Errorf("row %d: %w", op.RowNumber, err)
			}
		} else if err := p.writeSavepoint(ctx, tx, op); err != nil {
			if ctx.Err() != nil {
				return imports.ApplyResult{}, fmt.Errorf("apply %s: %w", p.m.Table, ctx.Err())
			}
			res.Failures = append(res.Failures, imports.RowFailure{
				RowNumber:  op.RowNumber,
				NaturalKey: op.Key,
				Reason:     err.Error(),
			})
			continue
		}

		if op.Action == imports.ActionInsert {
			res.Inserted++
		} else {
			res.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return imports.ApplyResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (p *Postgres[T]) checkGuards(ctx context.Context, tx pgx.Tx, guards []imports.Guard) error {
	if len(guards) == 0 {
		return nil
	}
	keys := make([]string, len(guards))
	for i, g := range guards {
		keys[i] = g.Key
	}

	rows, err := tx.Query(ctx, p.guardSQL, keys)
	if err != nil {
		return fmt.Errorf("check versions of %s: %w", p.m.Table, err)
	}
	current := make(map[string]int64, len(keys))
	for rows.Next() {
		var key string
		var version int64
		if err := rows.Scan(&key, &version); err != nil {
			rows.Close()
			return fmt.Errorf("scan version: %w", err)
		}
		current[key] = version
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check versions of %s: %w", p.m.Table, err)
	}

	for _, g := range guards {
		if current[g.Key] != g.Version {
			return fmt.Errorf("%s %q: %w", p.m.Table, g.Key, imports.ErrStalePreview)
		}
	}
	return nil
}

// writeSavepoint runs one write in a nested transaction, which pgx issues
// as a savepoint.
func (p *Postgres[T]) writeSavepoint(ctx context.Context, tx pgx.Tx, op imports.WriteOp[T]) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := p.write(ctx, sp, op); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (p *Postgres[T]) write(ctx context.Context, db DBTX, op imports.WriteOp[T]) error {
	args := append([]any{op.Key, op.Version}, p.m.Values(op.Record)...)

	switch op.Action {
	case imports.ActionInsert:
		args[1] = int64(1)
		if _, err := db.Exec(ctx, p.insertSQL, args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert %q: duplicate key, inserted concurrently: %w", op.Key, err)
			}
			return fmt.Errorf("insert %q: %w", op.Key, err)
		}
	case imports.ActionUpdate:
		tag, err := db.Exec(ctx, p.updateSQL, args...)
		if err != nil {
			return fmt.Errorf("update %q: %w", op.Key, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update %q: %w", op.Key, imports.ErrStalePreview)
		}
	default:
		return fmt.Errorf("unexpected action %s", op.Action)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
