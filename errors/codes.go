// Package errors provides the foundational error handling system for the sluice runner.
// It extends Go's standard error handling with structured error codes, context
// preservation, and stable classification of runner failures.
package errors

// ErrorCode represents a specific error condition in the sluice runner.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Definition errors.

	// CodeWorkflowNotFound indicates the requested workflow definition does not exist.
	CodeWorkflowNotFound ErrorCode = "WORKFLOW_NOT_FOUND"

	// CodeWorkflowInvalid indicates a workflow definition failed structural validation.
	CodeWorkflowInvalid ErrorCode = "WORKFLOW_INVALID"

	// CodeSchemaFailed indicates a workflow document failed schema validation.
	CodeSchemaFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"

	// Planning errors.

	// CodePlanCycle indicates the job dependency graph contains a cycle.
	CodePlanCycle ErrorCode = "PLAN_CYCLE"

	// CodePlanUnknownJob indicates a job references a dependency that is not defined.
	CodePlanUnknownJob ErrorCode = "PLAN_UNKNOWN_JOB"

	// Execution errors.

	// CodeExecutionFailed indicates a step command failed.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeCheckoutFailed indicates the repository could not be materialized
	// into the job workspace.
	CodeCheckoutFailed ErrorCode = "CHECKOUT_FAILED"

	// CodeSetupFailed indicates a tool setup step could not satisfy its
	// version constraint.
	CodeSetupFailed ErrorCode = "SETUP_FAILED"

	// CodeTimeout indicates a job exceeded its configured time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeCancelled indicates the run was cancelled before completion.
	CodeCancelled ErrorCode = "CANCELLED"

	// Sealed environment errors.

	// CodeSealFailed indicates an environment file could not be sealed.
	CodeSealFailed ErrorCode = "SEAL_FAILED"

	// CodeUnsealFailed indicates a sealed environment file could not be opened.
	CodeUnsealFailed ErrorCode = "UNSEAL_FAILED"

	// CodeSecretNotFound indicates a referenced secret could not be resolved.
	CodeSecretNotFound ErrorCode = "SECRET_NOT_FOUND"

	// Storage errors.

	// CodeArtifactStore indicates an artifact store operation failed.
	CodeArtifactStore ErrorCode = "ARTIFACT_STORE_ERROR"

	// Configuration errors.

	// CodeInvalidConfig indicates a runner configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// System errors.

	// CodeInternal indicates an internal runner error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
