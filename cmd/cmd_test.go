package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/rogersnm/todos/internal/config"
	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/server"
	"github.com/rogersnm/todos/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDataDir string

func setupEnv(t *testing.T) string {
	t.Helper()
	testDataDir = t.TempDir()
	t.Setenv("TODOS_BACKEND", "")
	t.Setenv("TODOS_SERVER", "")
	t.Setenv("TODOS_LOG_LEVEL", "")
	t.Setenv("TODOS_SECRET", "")
	return testDataDir
}

// setupCloud points the CLI at a fresh development server.
func setupCloud(t *testing.T) string {
	t.Helper()
	dir := setupEnv(t)
	logger, _ := test.NewNullLogger()
	srv, err := server.New(server.Config{Logger: logger})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	require.NoError(t, config.Save(dir, &config.Config{Backend: config.BackendCloud, Server: ts.URL}))
	return ts.URL
}

// resetFlags restores every flag to its default; cobra keeps flag values
// between Execute calls on the same command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--data-dir", testDataDir))
	err := rootCmd.Execute()
	return out.String(), err
}

func localTasks(t *testing.T) []model.Task {
	t.Helper()
	tasks, err := store.NewLocal(testDataDir).ListTasks(context.Background())
	require.NoError(t, err)
	return tasks
}

func TestAdd_Success(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "add", "Buy", "milk")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Buy milk")

	tasks := localTasks(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.False(t, tasks[0].Completed)
}

func TestAdd_BlankTitle(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "add", "  ")
	assert.Error(t, err)
	assert.Empty(t, localTasks(t))
}

func TestList_Empty(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No todos.")
}

func TestList_FilterAndFooter(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "add", "Buy milk")
	require.NoError(t, err)
	_, err = run(t, "add", "Walk dog")
	require.NoError(t, err)
	tasks := localTasks(t)
	var milk string
	for _, task := range tasks {
		if task.Title == "Buy milk" {
			milk = task.ID
		}
	}
	_, err = run(t, "done", milk)
	require.NoError(t, err)

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "Walk dog")
	assert.Contains(t, out, "1 item left")
	assert.Contains(t, out, "clear-completed")

	out, err = run(t, "list", "--filter", "active")
	require.NoError(t, err)
	assert.NotContains(t, out, "Buy milk")
	assert.Contains(t, out, "Walk dog")

	_, err = run(t, "list", "--filter", "bogus")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "add", "Buy milk")
	require.NoError(t, err)
	id := localTasks(t)[0].ID

	_, err = run(t, "update", id, "--title", "Buy oat milk", "--completed")
	require.NoError(t, err)

	got := localTasks(t)[0]
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.True(t, got.Completed)

	_, err = run(t, "update", id)
	assert.Error(t, err, "no flags")
}

func TestDoneUndo(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "add", "Buy milk")
	require.NoError(t, err)
	id := localTasks(t)[0].ID

	_, err = run(t, "done", id)
	require.NoError(t, err)
	assert.True(t, localTasks(t)[0].Completed)

	_, err = run(t, "undo", id)
	require.NoError(t, err)
	assert.False(t, localTasks(t)[0].Completed)
}

func TestDone_UnknownID(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "done", "t-zzzzzzzz")
	assert.True(t, store.IsNotFound(err))
}

func TestRm_Force(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "add", "Buy milk")
	require.NoError(t, err)
	id := localTasks(t)[0].ID

	out, err := run(t, "rm", id, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)
	assert.Empty(t, localTasks(t))
}

func TestRm_NotFound(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "rm", "t-zzzzzzzz", "--force")
	assert.Error(t, err)
}

func TestCheckAllAndClearCompleted(t *testing.T) {
	setupEnv(t)
	for _, title := range []string{"a", "b", "c"} {
		_, err := run(t, "add", title)
		require.NoError(t, err)
	}

	_, err := run(t, "check-all")
	require.NoError(t, err)
	assert.Equal(t, 3, model.CountCompleted(localTasks(t), true))

	_, err = run(t, "check-all", "--uncheck")
	require.NoError(t, err)
	assert.Equal(t, 0, model.CountCompleted(localTasks(t), true))

	_, err = run(t, "done", localTasks(t)[0].ID)
	require.NoError(t, err)

	out, err := run(t, "clear-completed")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared 1 completed todo(s)")
	assert.Len(t, localTasks(t), 2)
}

func TestFilter_Persists(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "filter", "completed")
	require.NoError(t, err)

	c, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "completed", c.DefaultFilter)

	_, err = run(t, "add", "Buy milk")
	require.NoError(t, err)
	out, err := run(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Buy milk")
}

func TestFilter_Invalid(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "filter", "done")
	assert.Error(t, err)
}

func TestConfigSetAndShow(t *testing.T) {
	dir := setupEnv(t)
	_, err := run(t, "config", "set", "backend", "cloud")
	require.NoError(t, err)
	_, err = run(t, "config", "set", "server", "http://example.test")
	require.NoError(t, err)

	c, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "cloud", c.Backend)

	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "cloud")
	assert.Contains(t, out, "http://example.test")

	_, err = run(t, "config", "set", "backend", "firebase")
	assert.Error(t, err)
	_, err = run(t, "config", "set", "colour", "blue")
	assert.Error(t, err)
}

func TestEnvOverridesBackend(t *testing.T) {
	setupEnv(t)
	t.Setenv("TODOS_BACKEND", "cloud")
	t.Setenv("TODOS_SERVER", "http://127.0.0.1:1")

	// Logged out against the cloud backend, so the guard refuses.
	_, err := run(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "todos login")
}

func TestAbout(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "about")
	require.NoError(t, err)
	assert.Contains(t, out, "todos")
}

func TestWatch_LocalBackend(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud backend")
}

func TestLogin_LocalBackend(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "login", "--username", "a@x", "--password", "pw")
	assert.Error(t, err)
}

func TestCloud_SessionLifecycle(t *testing.T) {
	setupCloud(t)

	_, err := run(t, "list")
	require.Error(t, err, "guard must refuse the todo route when logged out")

	out, err := run(t, "register", "--name", "Ann", "--email", "ann@example.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered and logged in as ann@example.com")

	c, err := config.Load(testDataDir)
	require.NoError(t, err)
	assert.NotEmpty(t, c.AccessToken)

	_, err = run(t, "login", "--username", "ann@example.com", "--password", "pw")
	require.Error(t, err, "guard must refuse visitor-only routes when logged in")

	out, err = run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann <ann@example.com>")

	_, err = run(t, "add", "Buy milk")
	require.NoError(t, err)
	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")

	out, err = run(t, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	c, err = config.Load(testDataDir)
	require.NoError(t, err)
	assert.Empty(t, c.AccessToken)

	_, err = run(t, "login", "--username", "ann@example.com", "--password", "pw")
	require.NoError(t, err)
	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
}

func TestCloud_WrongPassword(t *testing.T) {
	setupCloud(t)
	_, err := run(t, "register", "--name", "Ann", "--email", "ann@example.com", "--password", "pw")
	require.NoError(t, err)
	_, err = run(t, "logout")
	require.NoError(t, err)

	_, err = run(t, "login", "--username", "ann@example.com", "--password", "nope")
	assert.True(t, store.IsAuthError(err))
}

func TestCloud_MalformedStoredTokenDiscarded(t *testing.T) {
	url := setupCloud(t)
	require.NoError(t, config.Save(testDataDir, &config.Config{
		Backend:     config.BackendCloud,
		Server:      url,
		AccessToken: "not.a.jwt",
	}))

	_, err := run(t, "list")
	require.Error(t, err)

	c, err := config.Load(testDataDir)
	require.NoError(t, err)
	assert.Empty(t, c.AccessToken)
}

func TestCloud_RevokedTokenLogsOut(t *testing.T) {
	url := setupCloud(t)
	_, err := run(t, "register", "--name", "Ann", "--email", "ann@example.com", "--password", "pw")
	require.NoError(t, err)

	// Revoke the stored token behind the CLI's back.
	c, err := config.Load(testDataDir)
	require.NoError(t, err)
	require.NoError(t, store.NewCloudStore(url, c.AccessToken).Logout(context.Background()))

	_, err = run(t, "list")
	assert.True(t, store.IsAuthError(err))

	c, err = config.Load(testDataDir)
	require.NoError(t, err)
	assert.Empty(t, c.AccessToken)
}

func TestServerSecret_FromEnvironment(t *testing.T) {
	setupEnv(t)
	t.Setenv("TODOS_SECRET", "from-env")

	_, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Equal(t, "from-env", serverSecret(""))
	assert.Equal(t, "from-flag", serverSecret("from-flag"))
}

func TestShow(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "add", "Buy milk")
	require.NoError(t, err)
	id := localTasks(t)[0].ID
	_, err = run(t, "done", id)
	require.NoError(t, err)

	out, err := run(t, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "completed")

	_, err = run(t, "show", "t-zzzzzzzz")
	assert.True(t, store.IsNotFound(err))
}
