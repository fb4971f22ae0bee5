package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/teamprogress/internal/api"
	"github.com/mcoot/teamprogress/internal/factory"
	"github.com/mcoot/teamprogress/internal/model"
	"github.com/mcoot/teamprogress/internal/services/aggregate"
	"github.com/mcoot/teamprogress/internal/services/gamegraph"
	"github.com/mcoot/teamprogress/internal/testutil"
)

const testAdminToken = "cli-admin"

type CLISuite struct {
	suite.Suite
	app    *factory.TestApp
	server *httptest.Server
	dir    string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.server = httptest.NewServer(api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     s.app.AuthService,
		ProgressService: s.app.ProgressService,
		TeamService:     s.app.TeamService,
		Graphs:          s.app.Graphs,
		Aggregator:      s.app.Aggregator,
		AdminToken:      testAdminToken,
	}))
	s.dir = s.T().TempDir()
}

func (s *CLISuite) TearDownTest() {
	s.server.Close()
}

// run executes tpctl as the user whose token lives in tokenFile
func (s *CLISuite) run(user string, args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{
		"--server", s.server.URL,
		"--token-file", filepath.Join(s.dir, user),
		"--token", "",
	}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (s *CLISuite) runJSON(user string, v any, args ...string) {
	out, err := s.run(user, append([]string{"-o", "json"}, args...)...)
	s.Require().NoError(err, out)
	s.Require().NoError(json.Unmarshal([]byte(out), v), out)
}

func (s *CLISuite) guest(user string) AuthResult {
	var auth AuthResult
	s.runJSON(user, &auth, "player", "guest", "--name", user)
	return auth
}

func (s *CLISuite) TestGuestSavesToken() {
	auth := s.guest("alice")

	data, err := os.ReadFile(filepath.Join(s.dir, "alice"))
	s.Require().NoError(err)
	s.Equal(auth.SessionToken, string(data))

	out, err := s.run("alice", "player", "me")
	s.Require().NoError(err)
	s.Contains(out, "User: alice ("+auth.User.ID+")")
	s.Contains(out, "Guest: yes")
}

func (s *CLISuite) TestTeamFlowWithInviteLink() {
	alice := s.guest("alice")
	s.guest("bob")

	out, err := s.run("alice", "team", "create")
	s.Require().NoError(err)
	s.Contains(out, "Created team "+alice.User.ID)

	var team Team
	s.runJSON("alice", &team, "team", "show")
	s.Require().NotEmpty(team.InviteLink)

	out, err = s.run("bob", "team", "join", "--link", team.InviteLink)
	s.Require().NoError(err, out)
	s.Contains(out, "Joined team "+alice.User.ID)

	out, err = s.run("alice", "team", "show", "--streamer")
	s.Require().NoError(err)
	s.NotContains(out, team.Password)
	s.Contains(out, "Members (2/10)")

	out, err = s.run("bob", "team", "kick", alice.User.ID)
	s.True(IsCode(err, "PermissionDenied"), err)
	s.Contains(out, "PermissionDenied")

	out, err = s.run("alice", "team", "leave")
	s.Require().NoError(err)
	s.Contains(out, "Team disbanded")
}

func (s *CLISuite) TestGraphImportAndTeamProgress() {
	s.guest("alice")

	out, err := s.run("alice", "graph", "import", "../services/gamegraph/testdata/graph.yaml")
	s.Error(err, "admin token missing")
	s.Contains(out, "PermissionDenied")

	var summary gamegraph.Summary
	s.runJSON("alice", &summary, "--admin-token", testAdminToken, "graph", "import", "../services/gamegraph/testdata/graph.yaml")
	s.Equal(4, summary.Tasks)

	out, err = s.run("alice", "progress", "task", "debut")
	s.Require().NoError(err)
	s.Contains(out, "Tasks: 1 complete, 0 failed")

	out, err = s.run("alice", "progress", "profile", "--level", "20", "--faction", "bear")
	s.Require().NoError(err)
	s.Contains(out, "Level: 20  Faction: BEAR")

	var tp aggregate.TeamProgress
	s.runJSON("alice", &tp, "team", "progress")
	s.Empty(tp.TeamID)
	s.True(tp.Availability["checking"][aggregate.SelfKey])
	s.True(tp.Availability["bear-only"][aggregate.SelfKey])
	s.Equal(model.FactionBEAR, tp.Members[aggregate.SelfKey].Progress.Faction)

	out, err = s.run("alice", "team", "progress")
	s.Require().NoError(err)
	s.Contains(out, "Not in a team")
}

func (s *CLISuite) TestProfileRequiresAField() {
	s.guest("alice")
	_, err := s.run("alice", "progress", "profile")
	s.Error(err)
}

func (s *CLISuite) TestHealth() {
	out, err := s.run("nobody", "health")
	s.Require().NoError(err)
	s.Contains(out, "Status: ok")
	s.Contains(out, "Game data loaded: false")
}

func (s *CLISuite) TestJoinTarget() {
	id, code, err := joinTarget(nil, "http://localhost:8080/team?team=u_1&code=abc")
	s.Require().NoError(err)
	s.Equal("u_1", id)
	s.Equal("abc", code)

	_, _, err = joinTarget(nil, "http://localhost:8080/team?team=u_1")
	s.Error(err)
	_, _, err = joinTarget([]string{"only-id"}, "")
	s.Error(err)
}

func (s *CLISuite) TestRegisterThenLogin() {
	_, err := s.run("carol", "player", "register", "--name", "Carol", "--user", "carol", "--pass", "hunter22")
	s.Require().NoError(err)

	var auth AuthResult
	s.runJSON("carol2", &auth, "player", "login", "--user", "carol", "--pass", "hunter22")
	s.NotEmpty(auth.SessionToken)
	s.False(auth.User.IsGuest)

	_, err = s.run("carol3", "player", "login", "--user", "carol", "--pass", "wrong-pass")
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(401, apiErr.Status)
}

func (s *CLISuite) TestLogoutForgetsToken() {
	s.guest("dave")

	out, err := s.run("dave", "player", "logout")
	s.Require().NoError(err)
	s.Contains(out, "Logged out")

	_, err = os.Stat(filepath.Join(s.dir, "dave"))
	s.True(os.IsNotExist(err))

	_, err = s.run("dave", "player", "me")
	s.True(IsCode(err, "Unauthenticated"), err)
}
