package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// CatalogInvalid indicates a rule catalog failed to parse or compile
	CatalogInvalid ErrorCode = "CATALOG_INVALID"
	// ConfigInvalid indicates a configuration value is out of range or unknown
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InputInvalid indicates malformed scan input (diff, JSON body, file list)
	InputInvalid ErrorCode = "INPUT_INVALID"
	// ScanAborted indicates a scan was cancelled before completion
	ScanAborted ErrorCode = "SCAN_ABORTED"
	// UpstreamUnavailable indicates the code host could not be reached
	UpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// Unauthorized indicates the code host rejected the credentials
	Unauthorized ErrorCode = "UNAUTHORIZED"
	// RateLimited indicates too many requests to the code host or API
	RateLimited ErrorCode = "RATE_LIMITED"
	// NotFound indicates the requested resource does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// SetEnv suggests setting an environment variable
	SetEnv FixActionType = "set-env"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Variable    string        `json:"variable,omitempty"`
}

// AuditError represents an audit error with code, message, and suggestions
type AuditError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates an AuditError carrying the default fixes for code.
func New(code ErrorCode, message string, cause error) *AuditError {
	return &AuditError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...interface{}) *AuditError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *AuditError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AuditError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AuditError) WithDetails(details interface{}) *AuditError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first AuditError in err's chain,
// or InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ae *AuditError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var ae *AuditError
	return errors.As(err, &ae) && ae.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "aiaudit scan --help",
			Safe:        true,
			Description: "List accepted flag values",
		},
	},
	CatalogInvalid: {
		{
			Type:        RunCommand,
			Command:     "aiaudit rules",
			Safe:        true,
			Description: "Show the loaded rule catalogs",
		},
	},
	Unauthorized: {
		{
			Type:        SetEnv,
			Variable:    "GITHUB_TOKEN",
			Description: "Provide a token with pull-requests: write permission",
		},
	},
	RateLimited: {
		{
			Type:        RunCommand,
			Command:     "sleep 60 && aiaudit ${retry_command}",
			Safe:        true,
			Description: "Retry after the rate limit window resets",
		},
	},
	UpstreamUnavailable: {
		{
			Type:        OpenDocs,
			URL:         "https://www.githubstatus.com",
			Description: "Check GitHub service status",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
