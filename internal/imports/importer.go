package imports

import (
	"context"
	"slices"
)

// Importer is the kind-independent face of a Pipeline, used by the HTTP
// handlers and the CLI.
type Importer interface {
	Info() KindInfo
	PreviewTable(ctx context.Context, table Table, loc Locale) (*PreviewView, error)
	Session(ctx context.Context, sessionID string) (*PreviewView, error)
	Commit(ctx context.Context, sessionID string) (CommitReceipt, error)
}

// KindInfo describes an importable kind.
type KindInfo struct {
	Kind     string      `json:"kind"`
	Group    string      `json:"group"`
	Label    string      `json:"label"`
	Target   string      `json:"target"`
	Columns  []string    `json:"columns"`
	Required []string    `json:"required"`
	Fields   []FieldSpec `json:"-"`
}

// ReadOptions returns the source options for files of this kind.
func (k KindInfo) ReadOptions() ReadOptions {
	return ReadOptions{Fields: k.Fields}
}

// RowView is one previewed row without its typed record.
type RowView struct {
	RowNumber  int               `json:"rowNumber"`
	Valid      bool              `json:"valid"`
	Action     Action            `json:"action,omitempty"`
	NaturalKey string            `json:"naturalKey,omitempty"`
	Changed    []string          `json:"changed,omitempty"`
	Superseded int               `json:"superseded,omitempty"`
	Values     map[string]string `json:"values"`
	Issues     []Issue           `json:"issues,omitempty"`
}

// PreviewView is a preview rendered for display.
type PreviewView struct {
	SessionID   string    `json:"sessionId"`
	Kind        string    `json:"kind"`
	Label       string    `json:"label"`
	Columns     []string  `json:"columns"`
	Summary     Summary   `json:"summary"`
	Blocked     bool      `json:"blocked"`
	BatchIssues []Issue   `json:"batchIssues,omitempty"`
	Rows        []RowView `json:"rows"`
}

// Committable reports whether a commit would write anything.
func (v *PreviewView) Committable() bool {
	return !v.Blocked && v.Summary.InsertCount+v.Summary.UpdateCount > 0
}

// ViewOf renders a result for display.
func ViewOf[T any](def *Definition[T], result *ImportResult[T]) *PreviewView {
	v := &PreviewView{
		SessionID:   result.SessionID,
		Kind:        result.Kind,
		Label:       def.Label,
		Columns:     def.Columns(),
		Summary:     result.Summary,
		Blocked:     result.Blocked(),
		BatchIssues: result.BatchIssues,
		Rows:        make([]RowView, len(result.Rows)),
	}
	for i, r := range result.Rows {
		v.Rows[i] = RowView{
			RowNumber:  r.RowNumber,
			Valid:      r.IsValid(),
			Action:     r.Action,
			NaturalKey: r.NaturalKey,
			Changed:    r.Changed,
			Superseded: r.Superseded,
			Values:     r.Raw,
			Issues:     r.Issues,
		}
	}
	return v
}

// Info implements Importer.
func (p *Pipeline[T]) Info() KindInfo {
	return KindInfo{
		Kind:     p.def.Kind,
		Group:    p.def.Group,
		Label:    p.def.Label,
		Target:   p.def.TargetName(),
		Columns:  p.def.Columns(),
		Required: p.def.RequiredColumns(),
		Fields:   slices.Clone(p.def.Fields),
	}
}

// PreviewTable implements Importer.
func (p *Pipeline[T]) PreviewTable(ctx context.Context, table Table, loc Locale) (*PreviewView, error) {
	result, err := p.Preview(ctx, table, loc)
	if err != nil {
		return nil, err
	}
	return ViewOf(p.def, result), nil
}

// Session implements Importer.
func (p *Pipeline[T]) Session(ctx context.Context, sessionID string) (*PreviewView, error) {
	result, err := p.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return ViewOf(p.def, result), nil
}
