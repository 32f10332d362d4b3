package cli

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treykane/sshman/internal/appconfig"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	return captureStdout(func() error { return cmd.Execute() })
}

func TestAddListDelete(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "add", "--name", "web", "--hostname", "10.0.0.5", "--user", "deploy", "--port", "2222", "--tags", "prod,web")
	require.NoError(t, err)

	out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "10.0.0.5")
	assert.Contains(t, out, "2222")
	assert.Contains(t, out, "Total: 1 hosts")

	_, err = runCLI(t, "add", "--name", "web", "--hostname", "10.0.0.6")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host already exists: web")

	out, err = runCLI(t, "rm", "web")
	require.NoError(t, err)
	assert.Contains(t, out, "Host deleted: web")

	out, err = runCLI(t, "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No hosts configured")
}

func TestAddRejectsBadPort(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "add", "--name", "web", "--hostname", "h", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestUnknownHostHints(t *testing.T) {
	setupHome(t)

	_, err := runCLI(t, "nosuch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host not found: nosuch")
	assert.Contains(t, err.Error(), listHint)

	_, err = runCLI(t, "delete", "nosuch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host not found: nosuch")
}

func TestQuickConnectPropagatesExitCode(t *testing.T) {
	dir := setupHome(t)
	settings := appconfig.Default()
	settings.SSHBinary = "false"
	require.NoError(t, appconfig.Save(dir, settings))

	_, err := runCLI(t, "add", "--name", "web", "--hostname", "10.0.0.5")
	require.NoError(t, err)

	_, err = runCLI(t, "web")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ExitError, got %v", err)
	assert.Equal(t, 1, exitErr.Code)

	_, err = runCLI(t, "connect", "web")
	require.True(t, errors.As(err, &exitErr))
}

func TestCommandNamesCannotBeHosts(t *testing.T) {
	dir := setupHome(t)
	settings := appconfig.Default()
	settings.SSHBinary = "false"
	require.NoError(t, appconfig.Save(dir, settings))

	for _, name := range []string{"doctor", "rm", "help"} {
		_, err := runCLI(t, "add", "--name", name, "--hostname", "10.0.0.5")
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "is an sshman command")
	}

	src := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(src, []byte("Host doctor\n  HostName 10.0.0.9\n"), 0o600))
	out, err := runCLI(t, "import", "--file", src)
	require.NoError(t, err)
	assert.Contains(t, out, "use 'sshman connect doctor'")

	_, err = runCLI(t, "connect", "doctor")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected ssh to run, got %v", err)
}

func TestCompletionIsNotACommand(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "completion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host not found: completion")
}

func TestImportSkipsExistingByDefault(t *testing.T) {
	setupHome(t)
	src := filepath.Join(t.TempDir(), "config")
	content := strings.Join([]string{
		"Host web",
		"  HostName 10.0.0.5",
		"  User deploy",
		"Host db",
		"  HostName 10.0.0.6",
		"  Port 2222",
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(src, []byte(content), 0o600))

	out, err := runCLI(t, "import", "--file", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 hosts")

	out, err = runCLI(t, "import", "--file", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 hosts")
	assert.Contains(t, out, "Skipped existing: web, db")

	out, err = runCLI(t, "import", "--file", src, "--allow-duplicates")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 hosts")

	out, err = runCLI(t, "doctor", "--json")
	require.NoError(t, err)
	var report struct {
		Issues []struct {
			Check  string `json:"check"`
			Target string `json:"target"`
		} `json:"issues"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	var dups []string
	for _, i := range report.Issues {
		if i.Check == "duplicate-name" {
			dups = append(dups, i.Target)
		}
	}
	assert.ElementsMatch(t, []string{"web", "db"}, dups)
}

func TestImportMissingFile(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "import", "--file", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestListFilters(t *testing.T) {
	dir := setupHome(t)
	for _, args := range [][]string{
		{"add", "--name", "api", "--hostname", "10.0.0.1", "--tags", "prod"},
		{"add", "--name", "db", "--hostname", "10.0.0.2", "--tags", "staging"},
	} {
		_, err := runCLI(t, args...)
		require.NoError(t, err)
	}

	out, err := runCLI(t, "list", "--tag", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "api")
	assert.NotContains(t, out, "10.0.0.2")

	journal := `{"last_used": {"db": 200, "api": 100}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte(journal), 0o600))
	out, err = runCLI(t, "list", "--recent")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "10.0.0.2"), strings.Index(out, "10.0.0.1"))
}

func TestExportToStdout(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "add", "--name", "web", "--hostname", "10.0.0.5", "--user", "deploy", "--port", "2222")
	require.NoError(t, err)

	out, err := runCLI(t, "export")
	require.NoError(t, err)
	assert.Equal(t, "Host web\n  HostName 10.0.0.5\n  User deploy\n  Port 2222\n  IdentityFile ~/.ssh/id_rsa\n", out)
}

func TestHomeFlagOverridesEnv(t *testing.T) {
	setupHome(t)
	other := t.TempDir()
	_, err := runCLI(t, "add", "--home", other, "--name", "web", "--hostname", "h")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(other, "hosts"))
	require.NoError(t, err)
}

func captureStdout(fn func() error) (string, error) {
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}
	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = orig
	b, readErr := io.ReadAll(r)
	if readErr != nil {
		return "", readErr
	}
	return string(b), runErr
}

func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(appconfig.HomeEnv, dir)
	t.Setenv("USER", "tester")
	return dir
}
