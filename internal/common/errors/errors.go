// Package errors provides the tagged error model shared by the HTTP API, the
// orchestrator client and the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies a failure cause.
type ErrorCode string

const (
	// outbound calls to the counterpart system
	ErrCodeOrchestratorConnectionFailed ErrorCode = "ORCHESTRATOR_CONNECTION_FAILED"
	ErrCodeOrchestratorKeyNotConfigured ErrorCode = "ORCHESTRATOR_KEY_NOT_CONFIGURED"
	ErrCodeOrchestratorAPIError         ErrorCode = "ORCHESTRATOR_API_ERROR"

	// local lookups and validation
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeNoLinkedInterview  ErrorCode = "NO_LINKED_INTERVIEW"
	ErrCodeAuthenticationFail ErrorCode = "AUTHENTICATION_ERROR"

	// invite redemption
	ErrCodeInviteNotFound  ErrorCode = "INVITE_NOT_FOUND"
	ErrCodeInviteRevoked   ErrorCode = "INVITE_REVOKED"
	ErrCodeInviteExpired   ErrorCode = "INVITE_EXPIRED"
	ErrCodeInviteExhausted ErrorCode = "INVITE_EXHAUSTED"

	// candidate sessions
	ErrCodeSessionInvalid ErrorCode = "SESSION_INVALID"
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"

	// infrastructure
	ErrCodeDatabaseError          ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError             ErrorCode = "CACHE_ERROR"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWebhookDeliveryFailed  ErrorCode = "WEBHOOK_DELIVERY_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// ErrorKind groups codes into the failure classes callers branch on.
type ErrorKind string

const (
	KindConnection   ErrorKind = "connection"
	KindAPI          ErrorKind = "api"
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindUnauthorized ErrorKind = "unauthorized"
	KindInternal     ErrorKind = "internal"
)

var kindByCode = map[ErrorCode]ErrorKind{
	ErrCodeOrchestratorConnectionFailed: KindConnection,
	ErrCodeOrchestratorKeyNotConfigured: KindConnection,
	ErrCodeOrchestratorAPIError:         KindAPI,
	ErrCodeResourceNotFound:             KindNotFound,
	ErrCodeInviteNotFound:               KindNotFound,
	ErrCodeValidationFailed:             KindValidation,
	ErrCodeNoLinkedInterview:            KindValidation,
	ErrCodeInviteRevoked:                KindConflict,
	ErrCodeInviteExpired:                KindConflict,
	ErrCodeInviteExhausted:              KindConflict,
	ErrCodeAuthenticationFail:           KindUnauthorized,
	ErrCodeSessionInvalid:               KindUnauthorized,
	ErrCodeSessionExpired:               KindUnauthorized,
}

// Kind returns the failure class for a code. Unknown codes are internal.
func Kind(code ErrorCode) ErrorKind {
	if k, ok := kindByCode[code]; ok {
		return k
	}
	return KindInternal
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Kind returns the failure class of the error.
func (e *StandardError) Kind() ErrorKind {
	return Kind(e.Code)
}

// Is matches any StandardError carrying the same code, so the sentinels below
// work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Sentinels for errors.Is checks.
var (
	ErrKeyNotConfigured  = &StandardError{Code: ErrCodeOrchestratorKeyNotConfigured}
	ErrConnection        = &StandardError{Code: ErrCodeOrchestratorConnectionFailed}
	ErrAPI               = &StandardError{Code: ErrCodeOrchestratorAPIError}
	ErrNotFound          = &StandardError{Code: ErrCodeResourceNotFound}
	ErrValidation        = &StandardError{Code: ErrCodeValidationFailed}
	ErrNoLinkedInterview = &StandardError{Code: ErrCodeNoLinkedInterview}
	ErrInviteNotFound    = &StandardError{Code: ErrCodeInviteNotFound}
	ErrInviteRevoked     = &StandardError{Code: ErrCodeInviteRevoked}
	ErrInviteExpired     = &StandardError{Code: ErrCodeInviteExpired}
	ErrInviteExhausted   = &StandardError{Code: ErrCodeInviteExhausted}
	ErrSessionInvalid    = &StandardError{Code: ErrCodeSessionInvalid}
	ErrSessionExpired    = &StandardError{Code: ErrCodeSessionExpired}
)

// As extracts a *StandardError from an error chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// KindOf returns the failure class of any error. Plain errors are internal.
func KindOf(err error) ErrorKind {
	if stdErr, ok := As(err); ok {
		return stdErr.Kind()
	}
	return KindInternal
}

// CodeOf returns the code of a StandardError in err's chain, or "" for plain errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := As(err); ok {
		return stdErr.Code
	}
	return ""
}

func IsConnection(err error) bool { return KindOf(err) == KindConnection }
func IsAPI(err error) bool        { return KindOf(err) == KindAPI }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// ==========================
// BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewKeyNotConfiguredError is returned when no credential resolves for a write.
func NewKeyNotConfiguredError(operation string) *StandardError {
	return newError(ErrCodeOrchestratorKeyNotConfigured,
		"Orchestrator API key not configured",
		fmt.Sprintf("operation: %s", operation), false)
}

// NewConnectionError wraps a transport failure or timeout.
func NewConnectionError(operation string, err error) *StandardError {
	e := newError(ErrCodeOrchestratorConnectionFailed,
		"Orchestrator connection failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
	e.cause = err
	return e
}

// NewAPIError wraps a non-2xx response from the counterpart system.
func NewAPIError(operation string, statusCode int, body string) *StandardError {
	e := newError(ErrCodeOrchestratorAPIError,
		fmt.Sprintf("Orchestrator returned status %d", statusCode),
		fmt.Sprintf("operation: %s", operation), false)
	e.Metadata = map[string]interface{}{
		"statusCode": statusCode,
		"body":       body,
	}
	return e
}

// StatusCode returns the remote status of an API error, or 0.
func StatusCode(err error) int {
	stdErr, ok := As(err)
	if !ok || stdErr.Code != ErrCodeOrchestratorAPIError {
		return 0
	}
	code, _ := stdErr.Metadata["statusCode"].(int)
	return code
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	return newError(ErrCodeResourceNotFound,
		fmt.Sprintf("%s not found", resource), details, false)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Validation failed", details, false)
}

func NewNoLinkedInterviewError(interviewID string) *StandardError {
	return newError(ErrCodeNoLinkedInterview,
		"Interview has no linked orchestrator interview",
		fmt.Sprintf("interviewId: %s", interviewID), false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthenticationFail, "Authentication failed", details, false)
}

func NewInviteNotFoundError(shortCode string) *StandardError {
	return newError(ErrCodeInviteNotFound, "Invite not found",
		fmt.Sprintf("shortCode: %s", shortCode), false)
}

func NewInviteRevokedError(shortCode string) *StandardError {
	return newError(ErrCodeInviteRevoked, "This invite link is no longer valid",
		fmt.Sprintf("shortCode: %s", shortCode), false)
}

func NewInviteExpiredError(shortCode string, expiresAt time.Time) *StandardError {
	e := newError(ErrCodeInviteExpired, "This invite link has expired",
		fmt.Sprintf("shortCode: %s", shortCode), false)
	e.Metadata = map[string]interface{}{"expiresAt": expiresAt.UTC().Format(time.RFC3339)}
	return e
}

func NewInviteExhaustedError(shortCode string, maxUses int) *StandardError {
	e := newError(ErrCodeInviteExhausted, "This invite link has reached its maximum number of uses",
		fmt.Sprintf("shortCode: %s", shortCode), false)
	e.Metadata = map[string]interface{}{"maxUses": maxUses}
	return e
}

func NewSessionInvalidError(details string) *StandardError {
	return newError(ErrCodeSessionInvalid, "Session is not valid", details, false)
}

func NewSessionExpiredError(jti string) *StandardError {
	return newError(ErrCodeSessionExpired, "Session has expired",
		fmt.Sprintf("jti: %s", jti), false)
}

func NewDatabaseError(operation string, err error) *StandardError {
	e := newError(ErrCodeDatabaseError, "Database operation failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
	e.cause = err
	return e
}

func NewCacheError(operation string, err error) *StandardError {
	e := newError(ErrCodeCacheError, "Cache operation failed",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
	e.cause = err
	return e
}

func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %v", notificationType, err), true)
	e.cause = err
	return e
}

func NewWebhookDeliveryFailedError(endpoint string, err error) *StandardError {
	e := newError(ErrCodeWebhookDeliveryFailed, "Webhook delivery failed",
		fmt.Sprintf("endpoint: %s, error: %v", endpoint, err), true)
	e.cause = err
	return e
}

func NewInternalError(err error) *StandardError {
	e := newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
	e.cause = err
	return e
}

// ==========================
// Retry policy
// ==========================

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseError,
		ErrCodeCacheError,
		ErrCodeNotificationSendFailed,
		ErrCodeWebhookDeliveryFailed:
		return 3
	case ErrCodeOrchestratorConnectionFailed:
		return 2
	default:
		return 0
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorKind":         string(stdErr.Kind()),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "ORCHESTRATOR"):
		return "ORCHESTRATOR"
	case strings.HasPrefix(codeStr, "INVITE"):
		return "INVITE"
	case strings.HasPrefix(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "WEBHOOK"):
		return "DELIVERY"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}
