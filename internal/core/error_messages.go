// Package core provides the cleaning and reconciliation logic for e-commerce
// CSV data.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// Only source-level problems reach users: malformed cells never produce errors.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Action: Split the file or raise UPLOAD_MAX_FILE_SIZE
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure file is comma-separated with consistent quoting
//	          Patterns: "invalid csv"
//
//	FILE003 - Unreadable source: Input file could not be opened
//	          Action: Check the configured path and file permissions
//	          Patterns: "no such file", "permission denied", "open source"
//
//	FILE004 - No file: A required source was not provided
//	          Action: Provide customers, products and orders files
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The source has no header row
//	          Action: Provide a CSV file with a header row
//	          Patterns: "empty file"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL004 - Missing column: An identity column is missing from the header
//	         Action: Add the listed columns to the file header
//	         Patterns: "missing required column"
//
// # Option Errors (OPT001-OPT099)
//
//	OPT001 - Invalid options: Region or report sizes are not usable
//	         Action: Use a two-letter region such as IN and positive sizes
//	         Patterns: "invalid options"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL001 - Invalid upload: The request body is not a readable multipart form
//	         Action: Send multipart/form-data with customers, products and orders files
//	         Patterns: "invalid upload"
//
//	UPL002 - System busy: Too many cleaning runs in progress
//	         Action: Wait a moment and try again
//	         Patterns: "too many concurrent runs"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Patterns: "context deadline exceeded"
//
// # Table Errors (TBL001-TBL099)
//
//	TBL002 - Unknown table: Table type is not configured
//	         Patterns: "unknown table"
//
// # Rate Limiting and Access (RATE001, AUTH001-AUTH002)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
//	AUTH001 - Missing API key: Request has no X-API-Key header
//	          Patterns: "missing api key"
//
//	AUTH002 - Invalid API key: X-API-Key does not match a configured key
//	          Patterns: "invalid api key"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file or raise UPLOAD_MAX_FILE_SIZE",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent quoting",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Input file could not be found",
			Action:  "Check the configured path",
			Code:    "FILE003",
		},
	},
	{
		pattern: "permission denied",
		msg: UserMessage{
			Message: "Input file could not be opened",
			Action:  "Check file permissions",
			Code:    "FILE003",
		},
	},
	{
		pattern: "open source",
		msg: UserMessage{
			Message: "Input file could not be opened",
			Action:  "Check the configured path and file permissions",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "A required file was not provided",
			Action:  "Provide customers, products and orders files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Provide a CSV file with a header row",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Validation Errors (VAL004)
	// =========================================================================
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Add the listed columns to the file header",
			Code:    "VAL004",
		},
	},

	// =========================================================================
	// Option Errors (OPT001)
	// =========================================================================
	{
		pattern: "invalid options",
		msg: UserMessage{
			Message: "Pipeline options are invalid",
			Action:  "Use a two-letter region such as IN and positive report sizes",
			Code:    "OPT001",
		},
	},

	// =========================================================================
	// Upload Errors (UPL001-UPL002, UPL004-UPL005)
	// =========================================================================
	{
		pattern: "invalid upload",
		msg: UserMessage{
			Message: "Upload could not be read",
			Action:  "Send multipart/form-data with customers, products and orders files",
			Code:    "UPL001",
		},
	},
	{
		pattern: "too many concurrent runs",
		msg: UserMessage{
			Message: "Server is busy",
			Action:  "Wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try smaller files or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Table Errors (TBL002)
	// =========================================================================
	{
		pattern: "unknown table",
		msg: UserMessage{
			Message: "Unknown table type",
			Action:  "Use one of customers, products or orders",
			Code:    "TBL002",
		},
	},

	// =========================================================================
	// Rate Limiting and Access (RATE001, AUTH001-AUTH002)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "missing api key",
		msg: UserMessage{
			Message: "API key required",
			Action:  "Send the X-API-Key header",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid api key",
		msg: UserMessage{
			Message: "API key not accepted",
			Action:  "Check the X-API-Key value",
			Code:    "AUTH002",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
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

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original error for logging
	User      UserMessage // Message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. The original error stays reachable
// through Unwrap for logging. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
