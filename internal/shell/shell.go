// Package shell implements the interactive "ssh>" command loop and the host
// operations it shares with the non-interactive CLI.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/treykane/sshman/internal/config"
	"github.com/treykane/sshman/internal/history"
	"github.com/treykane/sshman/internal/hoststore"
	"github.com/treykane/sshman/internal/model"
)

const prompt = "ssh> "

// Connector launches ssh for a record. *sshclient.Client satisfies it.
type Connector interface {
	Args(rec model.HostRecord) []string
	Connect(ctx context.Context, rec model.HostRecord) (int, error)
}

// Config wires a Shell to its collaborators.
type Config struct {
	Store       *hoststore.Store
	Client      Connector
	History     *history.History
	ImportPath  string
	DefaultUser string
	In          io.Reader
	Out         io.Writer
	// Form collects new hosts; nil asks line by line on In.
	Form HostForm
	// Reserved reports names that cannot be used for a host because the
	// command line would read them as a subcommand.
	Reserved func(name string) bool
	Logger   *slog.Logger
}

// ReservedNameError is returned by Add for a name that collides with a
// command.
type ReservedNameError struct {
	Name string
}

func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("%q is an sshman command and cannot be used as a host name", e.Name)
}

// Shell is one interactive session.
type Shell struct {
	store       *hoststore.Store
	client      Connector
	history     *history.History
	importPath  string
	defaultUser string
	lines       *lineReader
	out         io.Writer
	form        HostForm
	reserved    func(string) bool
	logger      *slog.Logger
}

// New creates a shell from cfg.
func New(cfg Config) *Shell {
	s := &Shell{
		store:       cfg.Store,
		client:      cfg.Client,
		history:     cfg.History,
		importPath:  cfg.ImportPath,
		defaultUser: cfg.DefaultUser,
		lines:       newLineReader(cfg.In, cfg.Out),
		out:         cfg.Out,
		form:        cfg.Form,
		reserved:    cfg.Reserved,
		logger:      cfg.Logger,
	}
	if s.form == nil {
		s.form = s.lines.hostForm
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run reads commands until exit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	RenderHeader(s.out, "SSH Manager")
	fmt.Fprintln(s.out, successStyle.Render("Welcome! Type 'help' for commands."))
	fmt.Fprintln(s.out)

	for {
		line, err := s.lines.ask(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}
		if quit := s.Exec(ctx, strings.TrimSpace(line)); quit {
			fmt.Fprintln(s.out, successStyle.Render("Goodbye!"))
			return nil
		}
		fmt.Fprintln(s.out)
	}
}

// Exec runs one shell command and reports whether the shell should exit.
// Input that is not a command is tried as a host name.
func (s *Shell) Exec(ctx context.Context, cmd string) bool {
	switch cmd {
	case "":
	case "exit", "quit":
		return true
	case "add":
		s.add()
	case "list", "ls":
		RenderHeader(s.out, "SSH Hosts List")
		RenderTable(s.out, s.store.List())
	case "connect", "conn":
		s.connectMenu(ctx)
	case "delete", "rm":
		s.deletePrompt()
	case "import":
		s.importConfig()
	case "help", "?":
		s.help()
	default:
		if _, err := s.QuickConnect(ctx, cmd); err != nil {
			if hoststore.IsNotFound(err) {
				s.failf("Unknown command or host: %s", cmd)
				return false
			}
			s.failf("%v", err)
		}
	}
	return false
}

// Add collects a record with the configured form and stores it.
func (s *Shell) Add() (model.HostRecord, error) {
	defaults := model.NewHostRecord("", "", s.defaultUser)
	taken := func(name string) bool {
		_, ok := s.store.FindByName(name)
		return ok
	}
	rec, err := s.form(defaults, taken)
	if err != nil {
		return model.HostRecord{}, err
	}
	if s.reserved != nil && s.reserved(rec.Name) {
		return model.HostRecord{}, &ReservedNameError{Name: rec.Name}
	}
	if err := s.store.Add(rec); err != nil {
		return model.HostRecord{}, err
	}
	return rec, nil
}

func (s *Shell) add() {
	RenderHeader(s.out, "Add New SSH Host")
	rec, err := s.Add()
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			fmt.Fprintln(s.out, warnStyle.Render("Cancelled."))
			return
		}
		s.failf("%v", err)
		return
	}
	fmt.Fprintln(s.out, successStyle.Render("Host added: "+rec.Name))
}

// QuickConnect looks up name and connects to it, returning ssh's exit code.
// An unknown name yields a *hoststore.NotFoundError.
func (s *Shell) QuickConnect(ctx context.Context, name string) (int, error) {
	rec, ok := s.store.FindByName(name)
	if !ok {
		return 1, &hoststore.NotFoundError{Name: name}
	}
	return s.Connect(ctx, rec)
}

// Connect prints the command and runs it for rec.
func (s *Shell) Connect(ctx context.Context, rec model.HostRecord) (int, error) {
	fmt.Fprintln(s.out, successStyle.Render(fmt.Sprintf("Connecting to %s...", rec.HostName)))
	fmt.Fprintln(s.out, warnStyle.Render("Command: "+strings.Join(s.client.Args(rec), " ")))

	code, err := s.client.Connect(ctx, rec)
	if err != nil {
		return code, fmt.Errorf("launch ssh: %w", err)
	}
	if code != 0 {
		fmt.Fprintln(s.out, warnStyle.Render(fmt.Sprintf("ssh exited with status %d", code)))
		return code, nil
	}
	if s.history != nil {
		if err := s.history.Touch(rec.Name); err != nil {
			s.logger.Warn("failed to record connection history", "host", rec.Name, "error", err)
		}
	}
	return code, nil
}

func (s *Shell) connectMenu(ctx context.Context) {
	recs := s.store.List()
	if len(recs) == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("No hosts. Add one first."))
		return
	}
	fmt.Fprintln(s.out, boldStyle.Render("Select host:"))
	for i, r := range recs {
		fmt.Fprintf(s.out, "  %d. %s (%s)\n", i+1, r.Name, r.HostName)
	}
	fmt.Fprintln(s.out, "  0. Cancel")

	choice, err := s.lines.ask("\nYour choice: ")
	if err != nil {
		return
	}
	idx, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil || idx < 1 || idx > len(recs) {
		fmt.Fprintln(s.out, warnStyle.Render("Cancelled."))
		return
	}
	if _, err := s.Connect(ctx, recs[idx-1]); err != nil {
		s.failf("%v", err)
	}
}

// Delete removes name from the store and the connection history.
func (s *Shell) Delete(name string) error {
	removed, err := s.store.Delete(name)
	if err != nil {
		return err
	}
	if !removed {
		return &hoststore.NotFoundError{Name: name}
	}
	if s.history != nil {
		if err := s.history.Forget(name); err != nil {
			s.logger.Warn("failed to update connection history", "host", name, "error", err)
		}
	}
	return nil
}

func (s *Shell) deletePrompt() {
	if s.store.Len() == 0 {
		fmt.Fprintln(s.out, warnStyle.Render("No hosts to delete."))
		return
	}
	RenderHeader(s.out, "SSH Hosts List")
	RenderTable(s.out, s.store.List())
	name, err := s.lines.ask("\nEnter host name to delete: ")
	if err != nil {
		return
	}
	name = strings.TrimSpace(name)
	if err := s.Delete(name); err != nil {
		if hoststore.IsNotFound(err) {
			s.failf("Host not found: %s", name)
			return
		}
		s.failf("%v", err)
		return
	}
	fmt.Fprintln(s.out, successStyle.Render("Host deleted: "+name))
}

// Import merges the configured ssh config into the store, skipping names
// that already exist.
func (s *Shell) Import(allowDuplicates bool) (config.ImportResult, error) {
	return config.ImportFile(s.store, s.importPath, s.defaultUser, config.ImportOptions{
		SkipExisting: !allowDuplicates,
		Logger:       s.logger,
	})
}

func (s *Shell) importConfig() {
	res, err := s.Import(false)
	if err != nil {
		s.failf("%v", err)
		return
	}
	ReportImport(s.out, res)
}

// ReportImport prints the outcome of an import.
func ReportImport(w io.Writer, res config.ImportResult) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("Imported %d hosts", res.Imported)))
	if len(res.Skipped) > 0 {
		fmt.Fprintln(w, warnStyle.Render("Skipped existing: "+strings.Join(res.Skipped, ", ")))
	}
}

func (s *Shell) help() {
	RenderHeader(s.out, "SSH Manager Help")
	fmt.Fprintln(s.out, boldStyle.Render("Commands:"))
	fmt.Fprintln(s.out, "  add     - Add new host")
	fmt.Fprintln(s.out, "  list    - List all hosts")
	fmt.Fprintln(s.out, "  connect - Connect to host")
	fmt.Fprintln(s.out, "  delete  - Delete host")
	fmt.Fprintf(s.out, "  import  - Import from %s\n", s.importPath)
	fmt.Fprintln(s.out, "  help    - Show this help")
	fmt.Fprintln(s.out, "  exit    - Exit program")
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, boldStyle.Render("Quick connect:"))
	fmt.Fprintln(s.out, "  Type a host name at the prompt, or run: sshman <name>")
}

func (s *Shell) failf(format string, args ...any) {
	fmt.Fprintln(s.out, errorStyle.Render(fmt.Sprintf(format, args...)))
}
