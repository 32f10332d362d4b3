package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treykane/sshman/internal/history"
	"github.com/treykane/sshman/internal/hoststore"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/sshclient"
)

type fakeClient struct {
	code      int
	connected []model.HostRecord
}

func (f *fakeClient) Args(rec model.HostRecord) []string {
	return sshclient.BuildCommand("ssh", rec)
}

func (f *fakeClient) Connect(_ context.Context, rec model.HostRecord) (int, error) {
	f.connected = append(f.connected, rec)
	return f.code, nil
}

type fixture struct {
	shell   *Shell
	store   *hoststore.Store
	client  *fakeClient
	history *history.History
	out     *bytes.Buffer
	dir     string
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := hoststore.Open(filepath.Join(dir, "hosts"))
	require.NoError(t, err)
	f := &fixture{
		store:   store,
		client:  &fakeClient{},
		history: history.New(filepath.Join(dir, "history.json")),
		out:     &bytes.Buffer{},
		dir:     dir,
	}
	f.shell = New(Config{
		Store:       store,
		Client:      f.client,
		History:     f.history,
		ImportPath:  filepath.Join(dir, "ssh_config"),
		DefaultUser: "me",
		In:          strings.NewReader(input),
		Out:         f.out,
	})
	return f
}

func TestRun_AddThenList(t *testing.T) {
	input := strings.Join([]string{
		"add",
		"web",
		"10.0.0.5",
		"",
		"2222",
		"",
		"prod,web",
		"ls",
		"exit",
		"",
	}, "\n")
	f := newFixture(t, input)
	require.NoError(t, f.shell.Run(context.Background()))

	rec, ok := f.store.FindByName("web")
	require.True(t, ok)
	assert.Equal(t, model.HostRecord{Name: "web", HostName: "10.0.0.5", User: "me", Port: 2222, KeyPath: model.DefaultKeyPath, Tags: "prod,web"}, rec)

	out := f.out.String()
	assert.Contains(t, out, "Host added: web")
	assert.Contains(t, out, "Total: 1 hosts")
	assert.Contains(t, out, "Goodbye!")
}

func TestRun_AddDuplicateRejected(t *testing.T) {
	f := newFixture(t, "add\nweb\n")
	require.NoError(t, f.store.Add(model.NewHostRecord("web", "h", "u")))
	require.NoError(t, f.shell.Run(context.Background()))
	assert.Contains(t, f.out.String(), "host already exists: web")
	assert.Equal(t, 1, f.store.Len())
}

func TestRun_AddReservedNameRejected(t *testing.T) {
	f := newFixture(t, "add\nimport\nh\n\n\n\n\n")
	f.shell.reserved = func(name string) bool { return name == "import" }
	require.NoError(t, f.shell.Run(context.Background()))
	assert.Contains(t, f.out.String(), `"import" is an sshman command`)
	assert.Equal(t, 0, f.store.Len())
}

func TestRun_AddInvalidPort(t *testing.T) {
	f := newFixture(t, "add\nweb\nh\n\nabc\n")
	require.NoError(t, f.shell.Run(context.Background()))
	assert.Contains(t, f.out.String(), `invalid port "abc"`)
	assert.Equal(t, 0, f.store.Len())
}

func TestRun_EOFEndsSession(t *testing.T) {
	f := newFixture(t, "help")
	require.NoError(t, f.shell.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Commands:")
}

func TestExec_QuickConnectAndUnknown(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.store.Add(model.HostRecord{Name: "db", HostName: "db.internal", User: "pg", Port: 2200, KeyPath: "/k"}))

	assert.False(t, f.shell.Exec(context.Background(), "db"))
	require.Len(t, f.client.connected, 1)
	assert.Contains(t, f.out.String(), "Command: ssh -i /k -p 2200 pg@db.internal")

	last, err := f.history.LastUsed()
	require.NoError(t, err)
	assert.NotZero(t, last["db"])

	f.shell.Exec(context.Background(), "nope")
	assert.Contains(t, f.out.String(), "Unknown command or host: nope")
}

func TestQuickConnect_ReturnsExitCode(t *testing.T) {
	f := newFixture(t, "")
	f.client.code = 255
	require.NoError(t, f.store.Add(model.NewHostRecord("db", "h", "u")))

	code, err := f.shell.QuickConnect(context.Background(), "db")
	require.NoError(t, err)
	assert.Equal(t, 255, code)

	last, err := f.history.LastUsed()
	require.NoError(t, err)
	assert.Zero(t, last["db"], "failed sessions are not recorded")

	_, err = f.shell.QuickConnect(context.Background(), "missing")
	assert.True(t, hoststore.IsNotFound(err))
}

func TestConnectMenu(t *testing.T) {
	f := newFixture(t, "connect\n2\nconnect\n0\nconnect\nx\n")
	require.NoError(t, f.store.Append(
		model.NewHostRecord("a", "h1", "u"),
		model.NewHostRecord("b", "h2", "u"),
	))
	require.NoError(t, f.shell.Run(context.Background()))
	require.Len(t, f.client.connected, 1)
	assert.Equal(t, "b", f.client.connected[0].Name)
	assert.Equal(t, 2, strings.Count(f.out.String(), "Cancelled."))
}

func TestDeletePrompt(t *testing.T) {
	f := newFixture(t, "rm\nb\nrm\nb\n")
	require.NoError(t, f.store.Append(
		model.NewHostRecord("a", "h1", "u"),
		model.NewHostRecord("b", "h2", "u"),
	))
	require.NoError(t, f.history.Touch("b"))
	require.NoError(t, f.shell.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Host deleted: b")
	assert.Contains(t, out, "Host not found: b")
	assert.Equal(t, 1, f.store.Len())

	last, err := f.history.LastUsed()
	require.NoError(t, err)
	_, ok := last["b"]
	assert.False(t, ok)
}

func TestImportCommand(t *testing.T) {
	f := newFixture(t, "import\nimport\n")
	cfg := "Host web1\n  HostName 10.0.0.5\nHost web2\n  HostName 10.0.0.6\n"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "ssh_config"), []byte(cfg), 0o600))
	require.NoError(t, f.shell.Run(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Imported 2 hosts")
	assert.Contains(t, out, "Imported 0 hosts")
	assert.Contains(t, out, "Skipped existing: web1, web2")
	assert.Equal(t, 2, f.store.Len())
}

func TestImportMissingFile(t *testing.T) {
	f := newFixture(t, "import\n")
	require.NoError(t, f.shell.Run(context.Background()))
	assert.Contains(t, f.out.String(), "file not found:")
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, []model.HostRecord{
		{Name: "a-very-long-host-name", HostName: "h", Port: 22, Tags: "x"},
	})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "a-very-long-h…")
	assert.Contains(t, out, "Total: 1 hosts")

	buf.Reset()
	RenderTable(&buf, nil)
	assert.Contains(t, buf.String(), "No hosts configured")
}
