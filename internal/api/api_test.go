package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/teamprogress/internal/api"
	"github.com/mcoot/teamprogress/internal/api/apierr"
	"github.com/mcoot/teamprogress/internal/api/middleware"
	"github.com/mcoot/teamprogress/internal/api/response"
	"github.com/mcoot/teamprogress/internal/factory"
	httplog "github.com/mcoot/teamprogress/internal/middleware"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/aggregate"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
	"github.com/mcoot/teamprogress/internal/testutil"
)

const adminToken = "admin-secret"

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()

	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     app.AuthService,
		ProgressService: app.ProgressService,
		TeamService:     app.TeamService,
		Graphs:          app.Graphs,
		Aggregator:      app.Aggregator,
		AdminToken:      adminToken,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	return ts.requestWithHeaders(method, path, body, map[string]string{"Authorization": "Bearer " + token})
}

func (ts *testServer) requestWithHeaders(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func createGuest(t *testing.T, ts *testServer, name string) response.AuthResponse {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"display_name": name}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierr.APIError {
	t.Helper()
	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error
}

func publishFixture(t *testing.T, ts *testServer) {
	t.Helper()
	data, err := os.ReadFile("../services/gamegraph/testdata/graph.yaml")
	require.NoError(t, err)
	bundle, err := gamegraph.ParseBundle(data)
	require.NoError(t, err)
	tasksDoc, hideoutDoc, err := bundle.Documents()
	require.NoError(t, err)

	body := map[string]json.RawMessage{"tasks": tasksDoc, "hideout": hideoutDoc}
	rr := ts.requestWithHeaders(http.MethodPut, "/api/v1/admin/graph", body, map[string]string{middleware.AdminTokenHeader: adminToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(httplog.RequestIDHeader))

	var health response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.GraphLoaded)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registerBody := map[string]string{
		"username":     "alice",
		"password":     "secret123",
		"display_name": "Alice",
	}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var registerResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &registerResp))
	assert.False(t, registerResp.User.IsGuest)

	rr = ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	loginBody := map[string]string{"username": "alice", "password": "secret123"}
	rr = ts.request(http.MethodPost, "/api/v1/players/login", loginBody, "")
	require.Equal(t, http.StatusOK, rr.Code)

	var loginResp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loginResp))
	assert.Equal(t, registerResp.User.ID, loginResp.User.ID)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{"username": "alice", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthenticated", decodeError(t, rr).Code)
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, bob.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var me response.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, "Bob", me.DisplayName)
	assert.True(t, me.IsGuest)
}

func TestGuestDisplayNameValidation(t *testing.T) {
	ts := newTestServer(t)

	for _, name := range []string{"", "   ", strings.Repeat("x", 33)} {
		rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"display_name": name}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, name)
	}

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"display_name": "  Trimmed  "}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var auth response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &auth))
	assert.Equal(t, "Trimmed", auth.User.DisplayName)
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, bob.SessionToken)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, bob.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/players/me", "/api/v1/team", "/api/v1/progress", "/api/v1/team/progress"} {
		rr := ts.request(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
	rr := ts.request(http.MethodPost, "/api/v1/team/create", nil, "bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestTeamLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	// Create
	rr := ts.request(http.MethodPost, "/api/v1/team/create", nil, alice.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created response.CreateTeamResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, alice.User.ID, created.Team)

	rr = ts.request(http.MethodPost, "/api/v1/team/create", nil, alice.SessionToken)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
	assert.Equal(t, "FailedPrecondition", decodeError(t, rr).Code)

	// Owner view includes the secret
	rr = ts.request(http.MethodGet, "/api/v1/team", nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var team response.Team
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &team))
	assert.True(t, team.IsOwner)
	require.NotEmpty(t, team.Password)
	assert.Contains(t, team.InviteLink, "code="+team.Password)

	// Wrong secret, then the right one
	rr = ts.request(http.MethodPost, "/api/v1/team/join", map[string]string{"id": created.Team, "password": "wrong"}, bob.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/team/join", map[string]string{"id": created.Team, "password": team.Password}, bob.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var joined response.JoinResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &joined))
	assert.True(t, joined.Joined)

	// Bob can't kick, Alice can
	rr = ts.request(http.MethodPost, "/api/v1/team/kick", map[string]string{"kicked": alice.User.ID}, bob.SessionToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/team/kick", map[string]string{"kicked": bob.User.ID}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"kicked":true}`, rr.Body.String())

	rr = ts.request(http.MethodGet, "/api/v1/team", nil, bob.SessionToken)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	// Owner leave disbands
	rr = ts.request(http.MethodPost, "/api/v1/team/leave", nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var left response.LeaveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &left))
	assert.True(t, left.Left)
	assert.True(t, left.Disbanded)

	_, err := ts.app.Storage.GetTeam(t.Context(), model.TeamID(created.Team))
	assert.ErrorIs(t, err, model.ErrTeamNotFound)
}

func TestJoinValidation(t *testing.T) {
	ts := newTestServer(t)
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/team/join", map[string]string{"id": "nobody"}, bob.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/team/join", map[string]string{"id": "nobody", "password": "x"}, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/team/kick", map[string]string{}, bob.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/team/leave", nil, bob.SessionToken)
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)
}

func TestStreamerModeOmitsSecret(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")

	rr := ts.request(http.MethodPost, "/api/v1/team/create", nil, alice.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/team?streamer=true", nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)

	view, err := ts.app.TeamService.GetTeam(t.Context(), model.UserID(alice.User.ID))
	require.NoError(t, err)
	assert.NotContains(t, rr.Body.String(), view.Team.Password)
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "invite_link")
}

func TestProgressEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/progress", nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var p model.ProgressRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, model.MinPlayerLevel, p.PlayerLevel)
	assert.Equal(t, model.FactionUSEC, p.Faction)

	rr = ts.request(http.MethodPost, "/api/v1/progress/tasks/debut", map[string]string{"state": "failed"}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.True(t, p.IsTaskFailed("debut"))

	rr = ts.request(http.MethodPost, "/api/v1/progress/tasks/debut", map[string]string{"state": "maybe"}, alice.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/progress/objectives/debut-kill", map[string]bool{"complete": true}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.True(t, p.IsObjectiveComplete("debut-kill"))

	rr = ts.request(http.MethodPost, "/api/v1/progress/hideout/stash-2", map[string]bool{"complete": true}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.True(t, p.IsModuleComplete("stash-2"))

	rr = ts.request(http.MethodPatch, "/api/v1/progress/profile", map[string]any{"playerLevel": 30, "pmcFaction": "BEAR", "gameEdition": 4}, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, 30, p.PlayerLevel)
	assert.Equal(t, model.FactionBEAR, p.Faction)
	assert.Equal(t, model.EditionEdgeOfDarkness, p.GameEdition)

	rr = ts.request(http.MethodPatch, "/api/v1/progress/profile", map[string]any{"pmcFaction": "Any"}, alice.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPatch, "/api/v1/progress/profile", map[string]any{"displayName": strings.Repeat("x", 33)}, alice.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPatch, "/api/v1/progress/profile", nil, alice.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGraphUploadAndTeamProgress(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/graph", nil, "")
	assert.Equal(t, http.StatusPreconditionFailed, rr.Code)

	publishFixture(t, ts)

	rr = ts.request(http.MethodGet, "/api/v1/graph", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summary gamegraph.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 4, summary.Tasks)
	assert.Equal(t, 2, summary.Stations)

	rr = ts.request(http.MethodPost, "/api/v1/team/create", nil, alice.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	view, err := ts.app.TeamService.GetTeam(t.Context(), model.UserID(alice.User.ID))
	require.NoError(t, err)
	rr = ts.request(http.MethodPost, "/api/v1/team/join", map[string]string{"id": alice.User.ID, "password": view.Team.Password}, bob.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/progress/tasks/debut", map[string]string{"state": "complete"}, bob.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/team/progress", nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	var tp aggregate.TeamProgress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tp))
	assert.Len(t, tp.Members, 2)
	assert.Equal(t, summary.Version, tp.GraphVersion)
	assert.Equal(t, map[model.UserID]bool{aggregate.SelfKey: false, model.UserID(bob.User.ID): true}, tp.Availability["checking"])

	rr = ts.request(http.MethodGet, "/api/v1/team/progress?hide="+bob.User.ID, nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	tp = aggregate.TeamProgress{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tp))
	assert.Len(t, tp.Members, 1)
	assert.Equal(t, []model.UserID{model.UserID(bob.User.ID)}, tp.Hidden)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]json.RawMessage{"tasks": json.RawMessage(`{}`), "hideout": json.RawMessage(`{}`)}
	rr := ts.requestWithHeaders(http.MethodPut, "/api/v1/admin/graph", body, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.requestWithHeaders(http.MethodPut, "/api/v1/admin/graph", body, map[string]string{middleware.AdminTokenHeader: "guess"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	bad := map[string]json.RawMessage{"tasks": json.RawMessage(`{"tasks":[{"name":"no id"}]}`), "hideout": json.RawMessage(`{}`)}
	rr = ts.requestWithHeaders(http.MethodPut, "/api/v1/admin/graph", bad, map[string]string{middleware.AdminTokenHeader: adminToken})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	app := factory.NewTestApp()
	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     app.AuthService,
		ProgressService: app.ProgressService,
		TeamService:     app.TeamService,
		Graphs:          app.Graphs,
		Aggregator:      app.Aggregator,
	})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/graph", bytes.NewBufferString(`{}`))
	req.Header.Set(middleware.AdminTokenHeader, "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSetTeamQuota(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	headers := map[string]string{middleware.AdminTokenHeader: adminToken}

	rr := ts.requestWithHeaders(http.MethodPut, "/api/v1/admin/users/"+alice.User.ID+"/team-quota", map[string]int{"max": 3}, headers)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/team/create", nil, alice.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	rr = ts.request(http.MethodGet, "/api/v1/team", nil, alice.SessionToken)
	var team response.Team
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &team))
	assert.Equal(t, 3, team.MaximumMembers)

	rr = ts.requestWithHeaders(http.MethodPut, "/api/v1/admin/users/"+alice.User.ID+"/team-quota", map[string]int{"max": 500}, headers)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
