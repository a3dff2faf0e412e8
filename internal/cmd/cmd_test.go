package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/doctag/internal/api"
	"github.com/felixgeelhaar/doctag/internal/apierr"
	"github.com/felixgeelhaar/doctag/internal/exitcode"
	"github.com/felixgeelhaar/doctag/internal/ux"
)

const (
	tokensJSON   = `{"access":"access-1","refresh":"refresh-1"}`
	aliceJSON    = `{"username":"alice","create_projects":true,"project_permissions":{"1":"write","2":"read"}}`
	projectsJSON = `[{"id":1,"name":"Alpha","documents":[{"id":7,"name":"Report"}]},{"id":2,"name":"Beta","documents":[]}]`
	taggedJSON   = `{"tagged_text":"<div class=\"entities\"><mark class=\"entity\">Sebastian Thrun <span>PERSON</span></mark> joined <mark class=\"entity\">Google <span>ORG</span></mark></div>"}`
)

// fakeServer serves canned replies per "METHOD path" and records requests
type fakeServer struct {
	mu       sync.Mutex
	replies  map[string]reply
	requests []string
	bodies   map[string]string
}

type reply struct {
	status int
	body   string
}

func newFakeServer(t *testing.T) (*fakeServer, string) {
	t.Helper()
	f := &fakeServer{
		replies: map[string]reply{
			"POST /api/token/":  {200, tokensJSON},
			"GET /api/user/":    {200, aliceJSON},
			"GET /api/projects/": {200, projectsJSON},
			"GET /api/events/":  {200, `[]`},
		},
		bodies: map[string]string{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		k := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, k)
		f.bodies[k] = string(body)
		rep, ok := f.replies[k]
		f.mu.Unlock()

		if !ok {
			rep = reply{404, `{"detail":"Not found."}`}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = io.WriteString(w, rep.body)
	}))
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func (f *fakeServer) set(key string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[key] = reply{status, body}
}

func (f *fakeServer) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r == key {
			return true
		}
	}
	return false
}

func (f *fakeServer) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

type testCLI struct {
	server  *fakeServer
	dir     string
	session string
}

// newTestCLI isolates HOME, the working directory and the session file, and
// points the CLI at a fake server. Prompts are disabled.
func newTestCLI(t *testing.T) *testCLI {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	testChdir(t, dir)
	t.Setenv("CI", "1")

	f, url := newFakeServer(t)
	session := filepath.Join(dir, "session.json")
	t.Setenv("DOCTAG_API_URL", url)
	t.Setenv("DOCTAG_SESSION_FILE", session)
	t.Setenv("DOCTAG_LOG_LEVEL", "error")
	return &testCLI{server: f, dir: dir, session: session}
}

func (c *testCLI) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", filepath.Join(c.dir, "config.yaml")}, args...)
	err := execute(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func (c *testCLI) login(t *testing.T) {
	t.Helper()
	out, _, err := c.run(t, "login", "-u", "alice", "-p", "secret")
	require.NoError(t, err)
	require.Equal(t, "Logged in as alice.\n", out)
}

func TestVersion_JSON(t *testing.T) {
	c := newTestCLI(t)

	out, _, err := c.run(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestLogin(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	assert.JSONEq(t, `{"username":"alice","password":"secret"}`, c.server.body("POST /api/token/"))

	info, err := os.Stat(c.session)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := newTestCLI(t)
	c.server.set("POST /api/token/", 401, `{"detail":"No active account found with the given credentials"}`)

	out, stderr, err := c.run(t, "login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password.", err.Error())
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))
	assert.Empty(t, out)
	// the returned error is the only report of the failure
	assert.Empty(t, stderr)

	_, statErr := os.Stat(c.session)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestLogin_MissingPasswordWithoutTerminal(t *testing.T) {
	c := newTestCLI(t)

	_, _, err := c.run(t, "login", "-u", "alice")
	assert.ErrorIs(t, err, api.ErrMissingFields)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
	assert.False(t, c.server.called("POST /api/token/"))
}

func TestLogout(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	out, _, err := c.run(t, "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out.\n", out)

	_, statErr := os.Stat(c.session)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	// logging out twice is fine
	_, _, err = c.run(t, "logout")
	assert.NoError(t, err)
}

func TestWhoami(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	out, _, err := c.run(t, "whoami", "--format", "json")
	require.NoError(t, err)

	var user api.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	assert.Equal(t, "alice", user.Username)
	assert.True(t, user.CanWrite(1))

	out, _, err = c.run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Username:         alice")
	assert.Contains(t, out, "Create projects:  yes")
}

func TestProjects_RequireLogin(t *testing.T) {
	c := newTestCLI(t)

	_, _, err := c.run(t, "projects", "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, ux.ErrNotLoggedIn)
	assert.Equal(t, exitcode.AuthError, exitcode.DetermineExitCode(err))
	assert.False(t, c.server.called("GET /api/projects/"))
}

func TestProjectsList(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	out, _, err := c.run(t, "projects", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "Alpha")
	assert.Contains(t, lines[1], "write")
	assert.Contains(t, lines[2], "Beta")
	assert.Contains(t, lines[2], "read")
}

func TestProjectsList_ServerError(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("GET /api/projects/", 500, `oops`)

	out, stderr, err := c.run(t, "projects", "list")
	require.Error(t, err)

	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, 500, apiErr.Status)
	assert.Equal(t, "Internal Server Error", apiErr.Message)
	assert.Equal(t, exitcode.GeneralError, exitcode.DetermineExitCode(err))
	assert.Empty(t, out)
	assert.NotContains(t, stderr, "Internal Server Error")
}

func TestProjectsDelete(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("GET /api/project/1/", 200, `{"id":1,"name":"Alpha","documents":[]}`)
	c.server.set("DELETE /api/project/1/", 200, `{"message":"deleted"}`)

	_, _, err := c.run(t, "projects", "delete", "1")
	assert.ErrorIs(t, err, errNotConfirmed)
	assert.False(t, c.server.called("DELETE /api/project/1/"))

	out, _, err := c.run(t, "projects", "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Deleted project \"Alpha\".\n", out)
	assert.True(t, c.server.called("DELETE /api/project/1/"))
}

func TestProjectsDelete_ReadOnly(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	_, _, err := c.run(t, "projects", "delete", "2", "--yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission")
	assert.False(t, c.server.called("DELETE /api/project/2/"))
}

func TestProjectsShow_InvalidID(t *testing.T) {
	c := newTestCLI(t)

	_, _, err := c.run(t, "projects", "show", "abc")
	require.Error(t, err)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestDocumentsShow(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("GET /api/project/1/document/7/", 200,
		`{"id":7,"name":"Report","text":"Alice met Bob","tagged_text":"<mark class=\"entity\">Alice <span>PERSON</span></mark> met <mark class=\"entity\">Bob <span>PERSON</span></mark>"}`)

	out, _, err := c.run(t, "documents", "show", "1", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Report (#7)")
	assert.Contains(t, out, "Alice [PERSON] met Bob [PERSON]")
	assert.Contains(t, out, "Entities: [PERSON]")
}

func TestSubmitDocument(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("POST /api/create/document/", 201, `{"project_id":1,"id":8,"name":"notes"}`)

	path := filepath.Join(c.dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Angela Merkel visited Paris.\n"), 0o600))

	out, _, err := c.run(t, "submit", "document", "--project", "1", "--name", "notes", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `Document "notes" submitted to project #1.`)
	assert.JSONEq(t, `{"project":"1","name":"notes","text":"Angela Merkel visited Paris."}`,
		c.server.body("POST /api/create/document/"))
}

func TestSubmitDocument_ReadOnlyProject(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	_, _, err := c.run(t, "submit", "document", "--project", "2", "--name", "n", "--text", "t")
	require.Error(t, err)
	assert.False(t, c.server.called("POST /api/create/document/"))
}

func TestSubmitProject_BusinessError(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("POST /api/create/project/", 200, `{"error":"A project with this name already exists"}`)

	_, stderr, err := c.run(t, "submit", "project", "--name", "Alpha")
	require.Error(t, err)
	assert.Equal(t, exitcode.BusinessError, exitcode.DetermineExitCode(err))
	assert.NotContains(t, stderr, "already exists")
}

func TestSubmitProject_InvalidCustomPermissions(t *testing.T) {
	c := newTestCLI(t)

	_, _, err := c.run(t, "submit", "project", "--name", "x", "--permissions", "custom", "--custom", "alice:x")
	assert.ErrorIs(t, err, api.ErrInvalidCustomPermissions)
	assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
}

func TestTag(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("POST /api/tag/", 200, taggedJSON)

	out, _, err := c.run(t, "tag", "Sebastian Thrun joined Google")
	require.NoError(t, err)
	assert.Contains(t, out, "Sebastian Thrun [PERSON] joined Google [ORG]")
	assert.JSONEq(t, `{"text":"Sebastian Thrun joined Google"}`, c.server.body("POST /api/tag/"))
}

func TestTag_TooLong(t *testing.T) {
	c := newTestCLI(t)

	_, _, err := c.run(t, "tag", strings.Repeat("a", api.MaxTagLength+1))
	assert.ErrorIs(t, err, api.ErrTextTooLong)
}

func TestHome_InlineErrorsAndNotifications(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)
	c.server.set("GET /api/events/", 504, ``)

	out, stderr, err := c.run(t, "home")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome back, alice.")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "[504] Fetch Events - Gateway Timeout!")
	assert.Equal(t, "Error - Events: Gateway Timeout\n", stderr)
}

func TestEvents_Limit(t *testing.T) {
	c := newTestCLI(t)
	c.login(t)

	var events []string
	for i := 0; i < 15; i++ {
		events = append(events, `{"type":"project","project_id":1,"name":"Alpha","action":"updated"}`)
	}
	c.server.set("GET /api/events/", 200, "["+strings.Join(events, ",")+"]")

	out, _, err := c.run(t, "events", "--format", "json")
	require.NoError(t, err)

	var got []api.Event
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, defaultEventLimit)
}

func TestConfigSetGet(t *testing.T) {
	c := newTestCLI(t)

	out, _, err := c.run(t, "config", "set", "output.format", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "✓ Set output.format = yaml\n", out)

	out, _, err = c.run(t, "config", "get", "output.format")
	require.NoError(t, err)
	assert.Equal(t, "yaml\n", out)

	// environment overrides are not written back
	data, err := os.ReadFile(filepath.Join(c.dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "127.0.0.1")

	_, _, err = c.run(t, "config", "set", "no.such.key", "x")
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	c := newTestCLI(t)

	out, _, err := c.run(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.dir, "config.yaml")+"\n", out)
}

func TestLoginError(t *testing.T) {
	for _, code := range []int{400, 401, 403} {
		err := loginError(apierr.FromStatus("/api/token/", code, "", nil))
		assert.Equal(t, "Invalid username or password.", err.Error())
	}

	serverErr := apierr.FromStatus("/api/token/", 500, "", nil)
	assert.Same(t, serverErr, loginError(serverErr))
}
