package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/storage"
)

func TestFromErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrUnauthenticated, http.StatusUnauthorized, "Unauthenticated"},
		{model.ErrMissingTeamID, http.StatusBadRequest, "InvalidArgument"},
		{model.ErrAlreadyInTeam, http.StatusPreconditionFailed, "FailedPrecondition"},
		{model.ErrTeamNotFound, http.StatusNotFound, "NotFound"},
		{model.ErrNotTeamOwner, http.StatusForbidden, "PermissionDenied"},
		{model.ErrTeamFull, http.StatusTooManyRequests, "ResourceExhausted"},
		{model.ErrTeamExists, http.StatusConflict, "AlreadyExists"},
		{model.ErrTxTimeout, http.StatusServiceUnavailable, "Unavailable"},
		{model.ErrInternal, http.StatusInternalServerError, "Internal"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			status, body := FromError(fmt.Errorf("wrapped: %w", tc.err))
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestFromErrorHidesUnexpectedDetails(t *testing.T) {
	status, body := FromError(errors.New("dial tcp 10.0.0.1:6379: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal", body.Code)
	assert.Equal(t, model.ErrInternal.Message, body.Message)

	status, body = FromError(fmt.Errorf("%w: %w", model.ErrInternal, storage.ErrRetriesExhausted))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, model.ErrInternal.Message, body.Message)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, model.ErrWrongPassword)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Unauthenticated", resp.Error.Code)
	assert.Equal(t, model.ErrWrongPassword.Message, resp.Error.Message)
}
