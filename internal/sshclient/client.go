// Package sshclient turns host records into ssh invocations and runs them.
//
// It does not speak the SSH protocol. Connections are made by running the
// system ssh binary with an argument vector (never through a shell), so
// hostnames, users or key paths containing shell metacharacters are passed
// through literally.
package sshclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"

	"github.com/creack/pty"
	"github.com/treykane/sshman/internal/model"
)

// DefaultBinary is the ssh client looked up on PATH.
const DefaultBinary = "ssh"

// BuildCommand returns the program name followed by its arguments for rec.
//
// -i is added only for a non-empty key path other than ~/.ssh/id_rsa, -p only
// for a port other than 22, identity first, both before the user@host target.
func BuildCommand(binary string, rec model.HostRecord) []string {
	if binary == "" {
		binary = DefaultBinary
	}
	argv := []string{binary}
	if rec.KeyPath != "" && rec.KeyPath != model.DefaultKeyPath {
		argv = append(argv, "-i", rec.KeyPath)
	}
	if rec.Port != model.DefaultPort {
		argv = append(argv, "-p", strconv.Itoa(rec.Port))
	}
	return append(argv, rec.Target())
}

// Client launches ssh sessions for host records.
type Client struct {
	binary string
	usePTY bool
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPTY runs the session inside a pseudo-terminal instead of handing the
// current terminal to ssh.
func WithPTY(enabled bool) Option {
	return func(c *Client) { c.usePTY = enabled }
}

// WithIO replaces the standard streams given to ssh.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(c *Client) {
		c.stdin, c.stdout, c.stderr = stdin, stdout, stderr
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the given ssh binary ("" means ssh).
func New(binary string, opts ...Option) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	c := &Client{
		binary: binary,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary returns the configured ssh program.
func (c *Client) Binary() string { return c.binary }

// EnsureBinary checks that binary is available on PATH (or is an existing
// path when it contains a separator).
func EnsureBinary(binary string) error {
	if binary == "" {
		binary = DefaultBinary
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s binary not found in PATH", binary)
	}
	return nil
}

// Args returns the argument vector for rec, program name first.
func (c *Client) Args(rec model.HostRecord) []string {
	return BuildCommand(c.binary, rec)
}

// Command creates an exec.Cmd for an interactive session to rec. Streams are
// not attached; see Connect.
func (c *Client) Command(ctx context.Context, rec model.HostRecord) *exec.Cmd {
	argv := c.Args(rec)
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

// Connect runs an interactive ssh session for rec and blocks until ssh exits.
//
// The argument vector comes from BuildCommand and is executed directly, never
// through a shell. By default ssh inherits the client's streams (os.Stdin,
// os.Stdout and os.Stderr unless WithIO replaced them), which hands the
// current terminal to ssh for password prompts and the remote shell. With
// WithPTY(true) the process is started inside a pseudo-terminal instead and
// the streams are copied to and from it (see runPTY).
//
// The returned int is ssh's exit status. A non-zero status is not an error:
// ssh uses 255 for its own failures and passes the remote command's status
// through otherwise, and callers such as "sshman <name>" propagate it as
// their own exit code. An error means ssh could not be started or waited
// for, in which case the code is -1.
//
// Cancelling ctx kills the ssh process.
func (c *Client) Connect(ctx context.Context, rec model.HostRecord) (int, error) {
	cmd := c.Command(ctx, rec)
	c.logger.Debug("launching ssh", "host", rec.Name, "argv", cmd.Args, "pty", c.usePTY)

	var err error
	if c.usePTY {
		err = c.runPTY(ctx, cmd)
	} else {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = c.stdin, c.stdout, c.stderr
		err = cmd.Run()
	}
	return exitCode(err)
}

func (c *Client) runPTY(ctx context.Context, cmd *exec.Cmd) error {
	f, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer f.Close()

	// Ends when the pty is closed after ssh exits.
	go func() {
		_, _ = io.Copy(f, c.stdin)
	}()
	_, _ = io.Copy(c.stdout, f)

	if ctx.Err() != nil {
		_ = cmd.Process.Kill()
	}
	return cmd.Wait()
}

func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if code := ee.ExitCode(); code >= 0 {
			return code, nil
		}
	}
	return -1, err
}
