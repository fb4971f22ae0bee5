package apierr

import (
	"encoding/json"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mcoot/teamprogress/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

var httpStatus = map[codes.Code]int{
	codes.Unauthenticated:    http.StatusUnauthorized,
	codes.InvalidArgument:    http.StatusBadRequest,
	codes.FailedPrecondition: http.StatusPreconditionFailed,
	codes.NotFound:           http.StatusNotFound,
	codes.PermissionDenied:   http.StatusForbidden,
	codes.ResourceExhausted:  http.StatusTooManyRequests,
	codes.AlreadyExists:      http.StatusConflict,
	codes.Unavailable:        http.StatusServiceUnavailable,
	codes.Internal:           http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status for a code; unmapped codes are 500
func HTTPStatus(code codes.Code) int {
	if s, ok := httpStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// FromError converts err into the status and body sent to the client.
// Only the public part of err is exposed.
func FromError(err error) (int, APIError) {
	st, ok := status.FromError(model.Public(err))
	if !ok || st.Code() == codes.Unknown {
		st = status.New(codes.Internal, model.ErrInternal.Message)
	}
	return HTTPStatus(st.Code()), APIError{Code: st.Code().String(), Message: st.Message()}
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	code, body := FromError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: body})
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return model.NewError(codes.InvalidArgument, message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return model.ErrUnauthenticated
}

// NewForbiddenError creates a permission denied error
func NewForbiddenError(message string) error {
	return model.NewError(codes.PermissionDenied, message)
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return model.ErrInternal
}
