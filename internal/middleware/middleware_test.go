package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamprogress/internal/testutil"
)

func TestLoggingAssignsRequestID(t *testing.T) {
	logger, buf := testutil.BufferLogger()

	var seen string
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	id := rr.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, seen)
	assert.Contains(t, buf.String(), id)
	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"size":5`)
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	logger, buf := testutil.BufferLogger()

	for _, status := range []int{http.StatusOK, http.StatusConflict, http.StatusInternalServerError} {
		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/team/join", nil))
	}

	logs := buf.String()
	assert.Contains(t, logs, `"level":"INFO"`)
	assert.Contains(t, logs, `"level":"WARN"`)
	assert.Contains(t, logs, `"level":"ERROR"`)
}
