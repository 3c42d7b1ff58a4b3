package core

// error_messages.go maps technical errors to messages an operator can act on.
// Row errors keep their raw text in the run report; the code from MapError is
// attached next to it so failed rows can be grouped.
//
// Codes by category:
//
//	DB001-DB008   store errors (constraints, connectivity, timeouts)
//	VAL001        row validation (level)
//	FILE001-FILE006 input files (size, format, encoding, empty)
//	RUN001-RUN003 import runs (busy, expired, cancelled)
//	RATE001       request throttling
//	ERR000        anything else; check the logs for the original error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Store constraints
	{"duplicate key", UserMessage{"An entity with this key already exists", "Check the store for conflicting rows", "DB001"}},
	{"unique constraint", UserMessage{"A value that must be unique already exists", "Check the store for conflicting rows", "DB002"}},
	{"violates unique", UserMessage{"A value that must be unique already exists", "Check the store for conflicting rows", "DB002"}},
	{"foreign key", UserMessage{"Referenced parent entity does not exist", "Re-run the import so parents are created first", "DB003"}},

	// Store connectivity
	{"connection refused", UserMessage{"Unable to connect to the store", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Store connection was interrupted", "Please try again", "DB005"}},
	{"database is locked", UserMessage{"Store was busy with another writer", "Please try again", "DB007"}},
	{"deadlock", UserMessage{"Store was busy with conflicting operations", "Please try again", "DB007"}},
	{"timeout", UserMessage{"Store operation timed out", "Try a smaller file or try again later", "DB006"}},
	{"empty id", UserMessage{"Store did not return an id for a created entity", "Check the store logs", "DB008"}},

	// Row validation
	{"invalid level value", UserMessage{"Level must be easy, medium or hard", "Fix the level column and re-import the failed rows", "VAL001"}},

	// Input files
	{"file too large", UserMessage{"File exceeds the maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{"unsupported file format", UserMessage{"File format is not supported", "Upload a .csv or .xlsx file", "FILE002"}},
	{"open workbook", UserMessage{"Spreadsheet could not be opened", "Save the workbook as .xlsx and try again", "FILE002"}},
	{"parse error", UserMessage{"File is not valid CSV", "Ensure the file is comma-separated with a header row", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Please select a file to import", "FILE004"}},
	{"file is empty", UserMessage{"The file has no header row", "Start from the template and add question rows", "FILE005"}},
	{"no sheets", UserMessage{"The workbook has no worksheets", "Put the questions on the first sheet", "FILE006"}},

	// Import runs
	{"too many concurrent imports", UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "RUN001"}},
	{"import run not found", UserMessage{"Import run not found", "The run may have expired; start a new import", "RUN002"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "RUN003"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "RUN003"}},

	// Throttling
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Sentinel
// errors are matched with errors.Is before falling back to the pattern table.
//
// Example:
//
//	msg := MapError(errors.New("dial tcp: connection refused"))
//	// msg.Code == "DB004"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its mapped message. Error returns
// the user message; Unwrap returns the original for logging.
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

// NewUserError maps err. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}

var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrTooManyRuns, UserMessage{"System is busy processing other imports", "Please wait a moment and try again", "RUN001"}},
	{ErrRunNotFound, UserMessage{"Import run not found", "The run may have expired; start a new import", "RUN002"}},
	{ErrFileTooLarge, UserMessage{"File exceeds the maximum size limit", "Split the file into smaller chunks", "FILE001"}},
	{ErrUnsupportedFormat, UserMessage{"File format is not supported", "Upload a .csv or .xlsx file", "FILE002"}},
	{ErrNoFile, UserMessage{"No file was selected", "Please select a file to import", "FILE004"}},
	{ErrEmptyFile, UserMessage{"The file has no header row", "Start from the template and add question rows", "FILE005"}},
}
