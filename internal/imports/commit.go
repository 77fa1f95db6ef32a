package imports

// commit.go turns a previewed ImportResult into store writes.
//
// The executor never re-validates: it trusts the classification made at
// preview time and only writes Insert and Update rows. Every keyed row also
// contributes a Guard (the version seen at preview time, 0 for absent) so the
// store can detect a stale preview before touching anything.

import (
	"context"
	"errors"
	"fmt"
)

// CommitPolicy selects how write errors on individual rows are handled.
type CommitPolicy string

const (
	// CommitAtomic rolls back the whole batch on the first write error.
	CommitAtomic CommitPolicy = "atomic"
	// CommitPartial rolls back failing rows individually and commits the rest.
	CommitPartial CommitPolicy = "partial"
)

// ParseCommitPolicy parses a policy name. The empty string means CommitAtomic.
func ParseCommitPolicy(s string) (CommitPolicy, error) {
	switch CommitPolicy(s) {
	case "", CommitAtomic:
		return CommitAtomic, nil
	case CommitPartial:
		return CommitPartial, nil
	default:
		return "", fmt.Errorf("unknown commit policy %q", s)
	}
}

// WriteOp is a single insert or update.
type WriteOp[T any] struct {
	RowNumber int
	Action    Action
	Key       string
	Record    T
	Version   int64 // expected stored version; 0 for inserts
}

// Guard is a natural key with the version observed at preview time.
// Version 0 means the key did not exist.
type Guard struct {
	Key     string
	Version int64
}

// Batch is everything a store needs to apply one commit.
type Batch[T any] struct {
	Target string
	Policy CommitPolicy
	Guards []Guard
	Ops    []WriteOp[T]
}

// ApplyResult is the effect a store reports for a batch.
type ApplyResult struct {
	Inserted int
	Updated  int
	Failures []RowFailure
}

// Store is the persistence capability the engine depends on.
//
// Apply must check every guard before writing and return an error wrapping
// ErrStalePreview, with no effect, when any guard no longer holds. Under
// CommitAtomic any write error must leave the store unchanged and be
// returned. Under CommitPartial row errors are reported in Failures and the
// remaining rows are committed.
type Store[T any] interface {
	Lookup(ctx context.Context, keys []string) (map[string]Existing[T], error)
	Apply(ctx context.Context, batch Batch[T]) (ApplyResult, error)
}

// ReferenceLoader is implemented by stores that can provide reference data.
type ReferenceLoader interface {
	References(ctx context.Context) (RefSet, error)
}

// BuildBatch derives the writes and guards of a previewed result.
func BuildBatch[T any](target string, result *ImportResult[T], policy CommitPolicy) Batch[T] {
	b := Batch[T]{Target: target, Policy: policy}
	for _, row := range result.Rows {
		if row.Parsed == nil || row.NaturalKey == "" || row.Superseded > 0 {
			continue
		}
		b.Guards = append(b.Guards, Guard{Key: row.NaturalKey, Version: row.Version})

		switch row.Action {
		case ActionInsert, ActionUpdate:
			b.Ops = append(b.Ops, WriteOp[T]{
				RowNumber: row.RowNumber,
				Action:    row.Action,
				Key:       row.NaturalKey,
				Record:    *row.Parsed,
				Version:   row.Version,
			})
		}
	}
	return b
}

// Execute applies a previewed result to the store and produces its receipt.
//
// The receipt is always usable. The returned error is the cause of a Failed
// receipt and is meant for logging; it is nil otherwise.
func Execute[T any](ctx context.Context, store Store[T], target string, result *ImportResult[T], policy CommitPolicy) (CommitReceipt, error) {
	rcpt := CommitReceipt{SessionID: result.SessionID, Kind: result.Kind}

	fail := func(err error) (CommitReceipt, error) {
		rcpt.Status = StatusFailed
		rcpt.Reason = err.Error()
		return rcpt, err
	}

	if result.Blocked() {
		return fail(ErrBatchBlocked)
	}
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("commit aborted: %w", err))
	}

	res, err := store.Apply(ctx, BuildBatch(target, result, policy))
	if err != nil {
		return fail(err)
	}

	rcpt.Inserted = res.Inserted
	rcpt.Updated = res.Updated
	rcpt.Skipped = result.Summary.SkippedCount
	rcpt.Failures = res.Failures

	switch {
	case len(res.Failures) == 0:
		rcpt.Status = StatusCompleted
	case res.Inserted+res.Updated == 0:
		rcpt.Status = StatusFailed
		rcpt.Reason = fmt.Sprintf("none of %d rows could be written", len(res.Failures))
		rcpt.Skipped = 0
		return rcpt, errors.New(rcpt.Reason)
	default:
		rcpt.Status = StatusPartiallyCompleted
		rcpt.Reason = fmt.Sprintf("%d rows could not be written", len(res.Failures))
	}
	return rcpt, nil
}
