package cli

import "github.com/aidanlsb/shed/internal/dispatch"

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// Scenario errors
	ErrScenarioNotFound = "SCENARIO_NOT_FOUND"
	ErrScenarioInvalid  = "SCENARIO_INVALID"
	ErrSetupFailed      = "SETUP_FAILED"
	ErrStepsFailed      = "STEPS_FAILED"
	ErrReportWrite      = "REPORT_WRITE_FAILED"

	// Catalog errors
	ErrCatalogInvalid    = "CATALOG_INVALID"
	ErrPrototypeNotFound = "PROTOTYPE_NOT_FOUND"

	// Command errors
	ErrGroupNotFound = "GROUP_NOT_FOUND"

	// Input errors
	ErrInvalidInput = "INVALID_INPUT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnStepFailed    = "STEP_FAILED"
	WarnElementFailed = dispatch.CodeElementFailed
)
