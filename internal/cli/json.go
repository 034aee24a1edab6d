package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Global JSON output flag
var jsonOutput bool

// Response is the standard JSON envelope for all CLI output.
type Response struct {
	OK       bool        `json:"ok"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorInfo  `json:"error,omitempty"`
	Warnings []Warning   `json:"warnings,omitempty"`
	Meta     *Meta       `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// Warning represents a non-fatal warning.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count      int   `json:"count,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`
}

func outputJSON(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func outputSuccess(cmd *cobra.Command, data interface{}, meta *Meta) {
	outputJSON(cmd.OutOrStdout(), Response{OK: true, Data: data, Meta: meta})
}

func outputSuccessWithWarnings(cmd *cobra.Command, data interface{}, warnings []Warning, meta *Meta) {
	outputJSON(cmd.OutOrStdout(), Response{OK: true, Data: data, Warnings: warnings, Meta: meta})
}

func outputError(cmd *cobra.Command, code, message string, details interface{}, suggestion string) {
	outputJSON(cmd.OutOrStdout(), Response{
		OK: false,
		Error: &ErrorInfo{
			Code:       code,
			Message:    message,
			Details:    details,
			Suggestion: suggestion,
		},
	})
}

func isJSONOutput() bool {
	return jsonOutput
}

// errReported is returned after a JSON error envelope has been written, so the
// process still exits non-zero without printing the error twice.
type errReported struct{ code string }

func (e errReported) Error() string { return e.code }

// handleError handles an error appropriately based on output mode.
// In JSON mode, outputs a JSON error. In text mode, returns the error for Cobra.
func handleError(cmd *cobra.Command, code string, err error, suggestion string) error {
	if jsonOutput {
		outputError(cmd, code, err.Error(), nil, suggestion)
		return errReported{code: code}
	}
	if suggestion != "" {
		return fmt.Errorf("%w\n%s", err, suggestion)
	}
	return err
}

// handleErrorWithDetails handles an error with structured details.
func handleErrorWithDetails(cmd *cobra.Command, code, message, suggestion string, details interface{}) error {
	if jsonOutput {
		outputError(cmd, code, message, details, suggestion)
		return errReported{code: code}
	}
	return fmt.Errorf("%s", message)
}
