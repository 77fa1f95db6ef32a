package imports

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/catalogimport/internal/logging"
)

// DefaultCommitTimeout bounds a commit, including the wait for the target lock.
const DefaultCommitTimeout = 2 * time.Minute

// Observer receives preview and commit outcomes, typically for metrics.
type Observer interface {
	PreviewDone(kind string, summary Summary, elapsed time.Duration)
	CommitDone(kind string, receipt CommitReceipt, elapsed time.Duration)
}

// Options configures a Pipeline. Zero values select defaults.
type Options struct {
	Locale        Locale
	Workers       int
	Policy        CommitPolicy
	CommitTimeout time.Duration
	Locks         *TargetLocks // shared between pipelines writing the same target
	Observer      Observer
}

// Pipeline runs preview and commit for one entity kind.
type Pipeline[T any] struct {
	def      *Definition[T]
	store    Store[T]
	sessions SessionStore[T]
	opts     Options
}

// NewPipeline creates a pipeline. A nil sessions store keeps sessions in memory.
func NewPipeline[T any](def *Definition[T], store Store[T], sessions SessionStore[T], opts Options) *Pipeline[T] {
	if opts.Locale.Name == "" {
		opts.Locale = LocaleNL
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Policy == "" {
		opts.Policy = CommitAtomic
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = DefaultCommitTimeout
	}
	if opts.Locks == nil {
		opts.Locks = NewTargetLocks()
	}
	if sessions == nil {
		sessions = NewMemorySessions[T](DefaultSessionTTL)
	}
	return &Pipeline[T]{def: def, store: store, sessions: sessions, opts: opts}
}

// Definition returns the kind definition the pipeline runs.
func (p *Pipeline[T]) Definition() *Definition[T] { return p.def }

// Preview validates and reconciles a table and stores the result as a new
// session. Row problems are reported in the result; an error means the
// preview itself could not be produced (store unavailable, cancelled).
// A zero loc uses the pipeline's locale.
func (p *Pipeline[T]) Preview(ctx context.Context, table Table, loc Locale) (*ImportResult[T], error) {
	start := time.Now()
	if loc.Name == "" {
		loc = p.opts.Locale
	}

	refs := RefSet{}
	if rl, ok := p.store.(ReferenceLoader); ok {
		var err error
		if refs, err = rl.References(ctx); err != nil {
			return nil, fmt.Errorf("load references: %w", err)
		}
	}

	parsed, err := p.validateAll(ctx, NewValidator(p.def, loc, refs), table.Rows)
	if err != nil {
		return nil, err
	}

	existing := map[string]Existing[T]{}
	if keys := NaturalKeys(p.def, parsed); len(keys) > 0 {
		if existing, err = p.store.Lookup(ctx, keys); err != nil {
			return nil, fmt.Errorf("lookup %s: %w", p.def.TargetName(), err)
		}
	}

	rows := Reconcile(p.def, parsed, existing)
	for i := range rows {
		rows[i].Raw = p.def.Cells(table.Rows[i])
	}

	result := &ImportResult[T]{
		SessionID:   uuid.NewString(),
		Kind:        p.def.Kind,
		Summary:     Summarize(rows),
		Rows:        rows,
		BatchIssues: table.Issues,
	}
	if err := p.sessions.Save(ctx, result); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	logging.WithFields(ctx, "kind", p.def.Kind, "session_id", result.SessionID).Info("preview ready",
		"rows", result.Summary.TotalRows,
		"valid", result.Summary.ValidRows,
		"insert", result.Summary.InsertCount,
		"update", result.Summary.UpdateCount,
		"skip", result.Summary.SkippedCount,
		"blocked", result.Blocked(),
		"duration_ms", elapsed.Milliseconds(),
	)
	if p.opts.Observer != nil {
		p.opts.Observer.PreviewDone(p.def.Kind, result.Summary, elapsed)
	}
	return result, nil
}

// validateAll validates rows in parallel chunks. Output order matches input order.
func (p *Pipeline[T]) validateAll(ctx context.Context, v *Validator[T], rows []RawRow) ([]ParsedRow[T], error) {
	out := make([]ParsedRow[T], len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	workers := min(p.opts.Workers, len(rows))
	chunk := (len(rows) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(rows); lo += chunk {
		hi := min(lo+chunk, len(rows))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%ContextCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[i] = v.Validate(rows[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validate rows: %w", err)
	}
	return out, nil
}

// ContextCheckInterval is how many rows are validated between cancellation checks.
var ContextCheckInterval = 100

// Load returns a stored preview.
func (p *Pipeline[T]) Load(ctx context.Context, sessionID string) (*ImportResult[T], error) {
	result, err := p.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if result.SessionID != sessionID || result.Kind != p.def.Kind {
		return nil, ErrSessionMismatch
	}
	return result, nil
}

// Commit writes a previewed session. The receipt is always usable; a
// Failed receipt comes with its cause, such as ErrSessionNotFound or
// ErrStalePreview.
func (p *Pipeline[T]) Commit(ctx context.Context, sessionID string) (CommitReceipt, error) {
	result, err := p.Load(ctx, sessionID)
	if err != nil {
		return CommitReceipt{
			SessionID: sessionID,
			Kind:      p.def.Kind,
			Status:    StatusFailed,
			Reason:    err.Error(),
		}, err
	}
	return p.CommitResult(ctx, result)
}

// CommitResult writes a previewed result under the target lock and commit timeout.
// The session is removed once the outcome is durable or the preview is stale.
// The error is the cause of a Failed receipt and nil otherwise.
func (p *Pipeline[T]) CommitResult(ctx context.Context, result *ImportResult[T]) (CommitReceipt, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "kind", p.def.Kind, "session_id", result.SessionID)
	target := p.def.TargetName()

	cctx, cancel := context.WithTimeout(ctx, p.opts.CommitTimeout)
	defer cancel()

	var (
		rcpt  CommitReceipt
		cause error
	)
	unlock, err := p.opts.Locks.Lock(cctx, target)
	if err != nil {
		cause = fmt.Errorf("wait for commit lock on %s: %w", target, err)
		rcpt = CommitReceipt{
			SessionID: result.SessionID,
			Kind:      result.Kind,
			Status:    StatusFailed,
			Reason:    cause.Error(),
		}
	} else {
		rcpt, cause = Execute(cctx, p.store, target, result, p.opts.Policy)
		unlock()
	}

	if rcpt.Status != StatusFailed || errors.Is(cause, ErrStalePreview) {
		if err := p.sessions.Delete(ctx, result.SessionID); err != nil {
			logger.Warn("failed to delete session", "error", err)
		}
	}

	elapsed := time.Since(start)
	attrs := []any{
		"status", rcpt.Status,
		"inserted", rcpt.Inserted,
		"updated", rcpt.Updated,
		"skipped", rcpt.Skipped,
		"duration_ms", elapsed.Milliseconds(),
	}
	switch {
	case rcpt.Status == StatusCompleted:
		logger.Info("commit completed", attrs...)
	case errors.Is(cause, ErrStalePreview), errors.Is(cause, ErrBatchBlocked):
		logger.Warn("commit refused", append(attrs, "reason", rcpt.Reason)...)
	case rcpt.Status == StatusPartiallyCompleted:
		logger.Warn("commit partially completed", append(attrs, "failures", len(rcpt.Failures))...)
	default:
		logger.Error("commit failed", append(attrs, "error", cause)...)
	}
	if p.opts.Observer != nil {
		p.opts.Observer.CommitDone(p.def.Kind, rcpt, elapsed)
	}
	return rcpt, cause
}
