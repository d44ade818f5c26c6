package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/shopfloor/internal/engine"
	"github.com/roach88/shopfloor/internal/graph"
	"github.com/roach88/shopfloor/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Request failure (bad filter, entity not found, invalid model, etc.)
	ExitCommandError = 2 // Command error (bad flags, unreadable files, database not opened, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status    string      `json:"status"`               // "ok" or "error"
	Data      interface{} `json:"data,omitempty"`       // success payload
	Error     *CLIError   `json:"error,omitempty"`      // error details
	RequestID string      `json:"request_id,omitempty"` // engine request correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "ENTITY_NOT_FOUND", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// RequestFailed reports an engine failure and returns the ExitError the
// command should return. Failures the engine did not classify as the
// client's are still exit code 1; the code in the output tells them
// apart.
func (f *OutputFormatter) RequestFailed(err error) error {
	re := engine.NewRequestError("", err)
	var details interface{}
	if len(re.Details) > 0 {
		details = re.Details
	}

	if f.Format == "json" {
		if encErr := f.encode(CLIResponse{
			Status:    "error",
			RequestID: re.RequestID,
			Error: &CLIError{
				Code:    string(re.Code),
				Message: re.Message,
				Details: details,
			},
		}); encErr != nil {
			return encErr
		}
	} else {
		_ = f.Error(string(re.Code), re.Message, details)
	}
	return WrapExitError(ExitFailure, string(re.Code), err)
}

// encode writes resp as one JSON document. HTML escaping is off so
// canonical payloads pass through byte for byte.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Canonical renders a JSON-ready document (maps, slices, ir values) as
// canonical JSON, ready to embed as CLIResponse.Data.
func Canonical(doc any) (json.RawMessage, error) {
	b, err := ir.MarshalCanonical(doc)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// WriteProjection renders p as an indented text tree:
//
//	Orders(1)
//	  Id: 1
//	  Name: Bottling
//	  ProductBefore -> Orders(1)/ProductBefore
//	    Orders(1)/ProductBefore(1)
//	      ...
func WriteProjection(w io.Writer, p graph.Projection) {
	writeProjection(w, p, 0)
}

func writeProjection(w io.Writer, p graph.Projection, level int) {
	indent := strings.Repeat("  ", level)
	fmt.Fprintf(w, "%s%s\n", indent, p.ID)
	for _, field := range p.Fields {
		fmt.Fprintf(w, "%s  %s: %s\n", indent, field.Name, ir.Format(field.Value))
	}
	for _, link := range p.Links {
		fmt.Fprintf(w, "%s  %s -> %s\n", indent, link.Name, link.Href)
		if !link.Expanded {
			continue
		}
		if link.Entity != nil {
			writeProjection(w, *link.Entity, level+2)
		}
		for _, e := range link.Entities {
			writeProjection(w, e, level+2)
		}
	}
}
