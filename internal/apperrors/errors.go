// Package apperrors defines the closed error taxonomy used across the
// engine: every error that can reach a REST caller is one of these kinds.
package apperrors

// ErrorCode is the closed set of error kinds from the error-handling design.
type ErrorCode string

const (
	ErrorCodeNotFound               ErrorCode = "NOT_FOUND"
	ErrorCodeInputError             ErrorCode = "INPUT_ERROR"
	ErrorCodeDeviceError            ErrorCode = "DEVICE_ERROR"
	ErrorCodeMediaServerError       ErrorCode = "MEDIA_SERVER_ERROR"
	ErrorCodeMissingDependencyError ErrorCode = "MISSING_DEPENDENCY_ERROR"
	ErrorCodeInternal               ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeUnauthorized is not part of spec.md §7's device/media-catalog
	// taxonomy; it's the REST command surface's own bearer-auth rejection,
	// grounded on the teacher's internal/auth.Middleware.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// statusForCode is the fixed mapping from the error-handling design's
// propagation policy.
var statusForCode = map[ErrorCode]int{
	ErrorCodeNotFound:               404,
	ErrorCodeInputError:             400,
	ErrorCodeDeviceError:            503,
	ErrorCodeMediaServerError:       503,
	ErrorCodeMissingDependencyError: 404,
	ErrorCodeInternal:               500,
	ErrorCodeUnauthorized:           401,
}

// AppError is the base error type surfaced by every package in the engine.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (e *AppError) Error() string {
	return e.Message
}

// ErrorBody is the serialized error payload sent to REST callers.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *AppError) ErrorBody() ErrorBody {
	return ErrorBody{Code: e.Code, Message: e.Message, Details: e.Details}
}

func newError(code ErrorCode, message string, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusForCode[code], Details: details}
}

// NewNotFound builds a NotFound error for a missing media item, playlist, etc.
func NewNotFound(message string, details map[string]any) *AppError {
	return newError(ErrorCodeNotFound, message, details)
}

// NewNotFoundResource builds a NotFound error naming a resource kind and id.
func NewNotFoundResource(resource, id string) *AppError {
	message := resource + " not found"
	details := map[string]any{"resource": resource}
	if id != "" {
		message = resource + " not found: " + id
		details["id"] = id
	}
	return newError(ErrorCodeNotFound, message, details)
}

// NewInputError builds an InputError for a bad seek target, invalid source
// name, unsupported queue action, etc.
func NewInputError(message string, details map[string]any) *AppError {
	return newError(ErrorCodeInputError, message, details)
}

// NewDeviceError builds a DeviceError, optionally carrying a SOAP/SMOIP
// error code from the rejecting device.
func NewDeviceError(message string, deviceErrorCode string) *AppError {
	var details map[string]any
	if deviceErrorCode != "" {
		details = map[string]any{"device_error_code": deviceErrorCode}
	}
	return newError(ErrorCodeDeviceError, message, details)
}

// NewMediaServerError builds a MediaServerError for transport-level
// failures or unexpected XML talking to the content directory.
func NewMediaServerError(message string, details map[string]any) *AppError {
	return newError(ErrorCodeMediaServerError, message, details)
}

// NewMissingDependencyError builds an error for an external tool not on PATH.
func NewMissingDependencyError(dependency string) *AppError {
	return newError(ErrorCodeMissingDependencyError, "missing dependency: "+dependency, map[string]any{"dependency": dependency})
}

// NewInternal is the catch-all.
func NewInternal(message string) *AppError {
	return newError(ErrorCodeInternal, message, nil)
}

// NewUnauthorizedError builds an error for a missing, malformed or invalid
// bearer token on the REST command surface.
func NewUnauthorizedError(message string) *AppError {
	return newError(ErrorCodeUnauthorized, message, nil)
}

// EnsureAppError converts an arbitrary error into an AppError, defaulting to
// Internal so no raw error ever reaches a REST caller.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternal("unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternal(err.Error())
}
