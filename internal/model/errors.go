package model

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a domain error with a machine-readable code and a message
// that is safe to show to callers.
type Error struct {
	Code    codes.Code
	Message string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// GRPCStatus lets status.FromError recover the code from wrapped errors
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Message)
}

// NewError creates a coded domain error
func NewError(code codes.Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the code carried by err, or codes.Internal for
// errors that are not domain errors.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return codes.Internal
}

var (
	// Identity errors
	ErrUnauthenticated = NewError(codes.Unauthenticated, "authentication required")
	ErrUserNotFound    = NewError(codes.NotFound, "user not found")
	ErrUsernameTaken   = NewError(codes.AlreadyExists, "username already exists")

	// Team errors
	ErrAlreadyInTeam   = NewError(codes.FailedPrecondition, "user is already in a team")
	ErrNotInTeam       = NewError(codes.FailedPrecondition, "user is not in a team")
	ErrCreateCooldown  = NewError(codes.FailedPrecondition, "user left a team too recently to create a new one")
	ErrTeamExists      = NewError(codes.AlreadyExists, "team already exists for this user")
	ErrMissingTeamID   = NewError(codes.InvalidArgument, "team id and password are required")
	ErrMissingKickedID = NewError(codes.InvalidArgument, "kicked user id is required")
	ErrTeamNotFound    = NewError(codes.NotFound, "team not found")
	ErrWrongPassword   = NewError(codes.Unauthenticated, "team password is incorrect")
	ErrTeamFull        = NewError(codes.ResourceExhausted, "team is full")
	ErrNotTeamOwner    = NewError(codes.PermissionDenied, "only the team owner can do this")
	ErrSystemNotFound  = NewError(codes.NotFound, "user record not found")
	ErrNotTeamMember   = NewError(codes.FailedPrecondition, "user is not a member of this team")
	ErrCannotKickSelf  = NewError(codes.InvalidArgument, "the owner cannot kick themselves")
	ErrInvalidQuota    = NewError(codes.InvalidArgument, "team quota must be positive")

	// Progress errors
	ErrProgressNotFound = NewError(codes.NotFound, "progress not found")
	ErrInvalidLevel     = NewError(codes.InvalidArgument, "player level is out of range")
	ErrInvalidEdition   = NewError(codes.InvalidArgument, "unknown game edition")
	ErrInvalidFaction   = NewError(codes.InvalidArgument, "faction must be USEC or BEAR")
	ErrInvalidTaskState = NewError(codes.InvalidArgument, "task state must be complete, failed or uncompleted")
	ErrMissingID        = NewError(codes.InvalidArgument, "id is required")

	ErrDisplayNameTooLong = NewError(codes.InvalidArgument, "display name is too long")

	// Game graph errors
	ErrGraphNotLoaded   = NewError(codes.FailedPrecondition, "game data has not been loaded yet")
	ErrDocumentNotFound = NewError(codes.NotFound, "document not found")
	ErrCorruptDocument  = NewError(codes.Internal, "stored document is malformed")
	ErrInvalidGraph     = NewError(codes.InvalidArgument, "game data document is invalid")

	// Infrastructure errors
	ErrTxTimeout = NewError(codes.Unavailable, "operation timed out, please retry")
	ErrInternal  = NewError(codes.Internal, "internal error")
)

// IsUnexpected reports whether err is not a caller-facing failure: either
// not a domain error at all, or one coded Internal.
func IsUnexpected(err error) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == codes.Internal
}

// Public strips err down to the domain error callers may see. Errors
// without one become ErrInternal.
func Public(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal
}
