package imports

// error_messages.go maps technical errors to user messages with support codes.
//
// Codes by category:
//
//	IMP001-IMP008   preview sessions and commits
//	DB001-DB007     database constraints and connectivity
//	VAL001-VAL005   file-level validation
//	FILE001-FILE007 upload and file format
//	REQ001-REQ003   request lifecycle
//	ERR000          fallback; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing error description.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Sessions and commits
	{"stale preview", UserMessage{"The data changed since this preview was made", "Upload the file again to get a fresh preview", "IMP001"}},
	{"import session not found", UserMessage{"Preview session not found", "The preview may have expired or was already committed. Upload the file again", "IMP002"}},
	{"import session does not match", UserMessage{"This preview belongs to another import type", "Open the preview from the import page it was made on", "IMP003"}},
	{"unknown import kind", UserMessage{"Unknown import type", "Choose one of the listed import types", "IMP004"}},
	{"batch blocked", UserMessage{"The file has errors that prevent importing", "Fix the file-level errors shown above the preview and upload again", "IMP005"}},
	{"too many imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "IMP006"}},
	{"commit lock", UserMessage{"Another import into the same table is still running", "Please try again when it has finished", "IMP007"}},
	{"be written", UserMessage{"Some rows could not be written", "Review the failed rows listed in the receipt", "IMP008"}},

	// Database
	{"duplicate key", UserMessage{"A record with this key already exists", "Preview the file again to refresh the comparison", "DB001"}},
	{"unique constraint", UserMessage{"This value must be unique but already exists", "Check for duplicate entries in your file", "DB002"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review your data for duplicate key values", "DB002"}},
	{"foreign key", UserMessage{"Referenced record does not exist", "Ensure referenced records are imported first", "DB003"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB006"}},
	{"timeout", UserMessage{"Operation timed out", "Try a smaller file or try again later", "DB007"}},

	// File-level validation
	{"missing required columns", UserMessage{"Required columns are missing from the file", "Check that all required columns are present in the header", "VAL001"}},
	{"duplicate header", UserMessage{"A column appears more than once", "Remove or rename the duplicate column", "VAL002"}},
	{"invalid decimal", UserMessage{"Invalid number format detected", "Use a number like 12,50 or 1.234,56", "VAL003"}},
	{"invalid integer", UserMessage{"Invalid whole number detected", "Remove decimals and text from number columns", "VAL004"}},
	{"required field", UserMessage{"Required field is empty", "Ensure all required columns have values", "VAL005"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum size", "Split the file into smaller parts", "FILE001"}},
	{"invalid csv", UserMessage{"File is not a valid CSV", "Export the sheet again as CSV (comma or semicolon separated)", "FILE002"}},
	{"invalid xlsx", UserMessage{"File is not a valid Excel workbook", "Save the file as .xlsx and try again", "FILE003"}},
	{"unsupported file type", UserMessage{"This file type is not supported", "Upload a .csv or .xlsx file", "FILE004"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to upload", "FILE005"}},
	{"empty file", UserMessage{"The uploaded file is empty", "Please upload a file with a header and data rows", "FILE006"}},
	{"no data rows", UserMessage{"The file has a header but no data", "Add data rows below the header", "FILE007"}},

	// Requests
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "REQ001"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "REQ002"}},
	{"rate limit exceeded", UserMessage{"Too many requests", "Please wait a minute and try again", "REQ003"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user message.
// Unknown errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return mapText(err.Error())
}

// MapReason maps a receipt reason the same way MapError maps an error.
func MapReason(reason string) UserMessage {
	if reason == "" {
		return UserMessage{}
	}
	return mapText(reason)
}

func mapText(s string) UserMessage {
	s = strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	return formatMessage(MapError(err))
}

// FormatReason renders a receipt reason like FormatUserError.
func FormatReason(reason string) string {
	return formatMessage(MapReason(reason))
}

func formatMessage(msg UserMessage) string {
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError carries a technical error for logging and a message for display.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
