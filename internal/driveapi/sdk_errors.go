package driveapi

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL = errors.New("driveapi: server url missing")
	ErrNoAuthToken = errors.New("driveapi: auth token missing")
	ErrTokenExpired = errors.New("driveapi: auth token expired")

	// objects
	ErrObjectNotFound = errors.New("driveapi: object not found")
	ErrEmptyObjectID  = errors.New("driveapi: empty object id")
)

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // access denied
	CodeUnknownError   = "E_UNKNOWN_ERR"     // unknown error

	// Object errors
	CodeObjectNotFound     = "E_OBJECT_NOT_FOUND"               // the specified object could not be found
	CodeObjectSearchFailed = "E_OBJECT_SEARCH_OPERATION_FAILED" // a failure during the search operation
	CodeObjectPutFailed    = "E_OBJECT_PUT_OPERATION_FAILED"    // a failure during upload/update
	CodeObjectGetFailed    = "E_OBJECT_GET_OPERATION_FAILED"    // a failure during download
	CodeObjectDeleteFailed = "E_OBJECT_DELETE_OPERATION_FAILED" // a failure during delete
)

// DriveError is implemented by structured errors returned by the drive API.
type DriveError interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// BaseError provides common error functionality
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *BaseError) ErrorCode() string    { return e.Code }
func (e *BaseError) ErrorMessage() string { return e.Message }

// APIError represents drive API errors
type APIError struct {
	BaseError
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		BaseError: BaseError{
			Code:    code,
			Message: message,
		},
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

var _ DriveError = (*APIError)(nil)

// handleAPIError folds transport and API-level failures into one error
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok {
			return fmt.Errorf("%s %w", operation, err)
		}

		return fmt.Errorf("api error: %s %s", operation, resp.Dump())
	}

	return nil
}
