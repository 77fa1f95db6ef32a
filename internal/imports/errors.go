package imports

import "errors"

var (
	// ErrUnknownKind is returned when no importer is registered for a kind.
	ErrUnknownKind = errors.New("unknown import kind")

	// ErrSessionNotFound is returned when a preview session expired or never existed.
	ErrSessionNotFound = errors.New("import session not found")

	// ErrSessionMismatch is returned when a session belongs to another kind.
	ErrSessionMismatch = errors.New("import session does not match kind")

	// ErrStalePreview is returned when stored records changed after the preview.
	ErrStalePreview = errors.New("stale preview: records changed since preview, preview again")

	// ErrBatchBlocked is returned when a batch issue prevents committing.
	ErrBatchBlocked = errors.New("batch blocked by file errors")
)
