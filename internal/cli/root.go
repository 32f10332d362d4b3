// Package cli provides the command-line interface for sshman.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/treykane/sshman/internal/appconfig"
	"github.com/treykane/sshman/internal/config"
	"github.com/treykane/sshman/internal/doctor"
	"github.com/treykane/sshman/internal/history"
	"github.com/treykane/sshman/internal/hoststore"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/shell"
	"github.com/treykane/sshman/internal/sshclient"
	"github.com/treykane/sshman/internal/ui"
	"github.com/treykane/sshman/internal/util"
)

const listHint = "Use 'sshman list' to see available hosts"

// ExitError carries the exit status of an ssh session that ended non-zero.
// main exits with Code without printing anything else.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("ssh exited with status %d", e.Code)
}

// app holds what every command needs once flags are parsed.
type app struct {
	home  string
	debug bool

	// reserved holds subcommand names and aliases; a host with one of these
	// names could not be reached by "sshman <name>".
	reserved map[string]bool

	cfg     appconfig.Config
	store   *hoststore.Store
	history *history.History
	client  *sshclient.Client
	logger  *slog.Logger
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sshman [host]",
		Short: "Keep a list of ssh hosts and connect to them by name",
		Long: "sshman keeps named ssh connection profiles in ~/.sshmanager/hosts.\n" +
			"Run it without arguments for the interactive shell, or pass a host name to connect.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.newShell().Run(cmd.Context())
			}
			return a.connect(cmd.Context(), args[0])
		},
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.home, "home", "", "configuration directory (default $SSHMAN_HOME or ~/.sshmanager)")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newConnectCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newBrowseCmd(a),
		newDoctorCmd(a),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	a.reserved = commandNames(root)
	return root
}

// commandNames collects the words cobra dispatches on instead of treating
// them as a host name. cobra adds "help" itself at Execute time.
func commandNames(root *cobra.Command) map[string]bool {
	names := map[string]bool{"help": true}
	for _, c := range root.Commands() {
		names[c.Name()] = true
		for _, alias := range c.Aliases {
			names[alias] = true
		}
	}
	return names
}

func (a *app) isReserved(name string) bool {
	return a.reserved[name]
}

func (a *app) setup() error {
	var (
		cfg appconfig.Config
		err error
	)
	if a.home != "" {
		cfg, err = appconfig.Load(a.home)
	} else {
		cfg, err = appconfig.Resolve()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	store, err := hoststore.Open(cfg.HostsFile(), hoststore.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("open host registry: %w", err)
	}
	a.store = store
	a.history = history.New(cfg.HistoryFile())
	a.client = sshclient.New(cfg.Settings.SSHBinary,
		sshclient.WithPTY(cfg.Settings.AllocatePTY),
		sshclient.WithIO(os.Stdin, os.Stdout, os.Stderr),
		sshclient.WithLogger(a.logger),
	)
	a.logger.Debug("configuration resolved", "dir", cfg.Dir, "hosts", store.Len())
	return nil
}

func (a *app) newShell() *shell.Shell {
	var form shell.HostForm
	if term.IsTerminal(int(os.Stdin.Fd())) {
		form = shell.HuhHostForm
	}
	return shell.New(shell.Config{
		Store:       a.store,
		Client:      a.client,
		History:     a.history,
		ImportPath:  a.cfg.ImportPath(),
		DefaultUser: a.cfg.User(),
		In:          os.Stdin,
		Out:         os.Stdout,
		Form:        form,
		Reserved:    a.isReserved,
		Logger:      a.logger,
	})
}

func (a *app) connect(ctx context.Context, name string) error {
	if _, ok := a.store.FindByName(name); !ok {
		return fmt.Errorf("%w\n%s", &hoststore.NotFoundError{Name: name}, listHint)
	}
	if err := sshclient.EnsureBinary(a.client.Binary()); err != nil {
		return err
	}
	code, err := a.newShell().QuickConnect(ctx, name)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	var (
		recent bool
		tag    string
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored hosts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs := a.store.List()
			if tag != "" {
				var tagged []model.HostRecord
				for _, r := range recs {
					if r.HasTag(tag) {
						tagged = append(tagged, r)
					}
				}
				recs = tagged
			}
			if recent {
				lastUsed, err := a.history.LastUsed()
				if err != nil {
					a.logger.Warn("failed to read connection history", "error", err)
				} else {
					recs = history.SortRecent(recs, lastUsed)
				}
			}
			shell.RenderTable(os.Stdout, recs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&recent, "recent", false, "sort by most recent connection")
	cmd.Flags().StringVar(&tag, "tag", "", "only show hosts carrying this tag")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var (
		name, hostname, user, key, tags string
		port                            int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a host (prompts unless --name and --hostname are given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" && hostname == "" {
				rec, err := a.newShell().Add()
				if errors.Is(err, shell.ErrCancelled) {
					fmt.Println("Cancelled.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("Host added: %s\n", rec.Name)
				return nil
			}
			if hostname == "" {
				return fmt.Errorf("--hostname is required with --name")
			}
			if a.isReserved(name) {
				return &shell.ReservedNameError{Name: name}
			}
			if err := util.ValidatePort(port); err != nil {
				return err
			}
			rec := model.NewHostRecord(name, hostname, util.DefaultString(user, a.cfg.User()))
			rec.Port = port
			rec.KeyPath = util.DefaultString(key, model.DefaultKeyPath)
			rec.Tags = tags
			if err := a.store.Add(rec); err != nil {
				return err
			}
			fmt.Printf("Host added: %s\n", rec.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "host name (alias)")
	cmd.Flags().StringVar(&hostname, "hostname", "", "hostname or IP")
	cmd.Flags().StringVar(&user, "user", "", "username (default: current user)")
	cmd.Flags().IntVar(&port, "port", model.DefaultPort, "ssh port")
	cmd.Flags().StringVar(&key, "key", "", "ssh key path (default "+model.DefaultKeyPath+")")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags")
	return cmd
}

func newConnectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "connect <name>",
		Aliases: []string{"conn"},
		Short:   "Connect to a stored host",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd.Context(), args[0])
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a stored host",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.newShell().Delete(args[0]); err != nil {
				if hoststore.IsNotFound(err) {
					return fmt.Errorf("%w\n%s", err, listHint)
				}
				return err
			}
			fmt.Printf("Host deleted: %s\n", args[0])
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	var (
		file            string
		allowDuplicates bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import Host blocks from an ssh config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.ImportPath()
			if file != "" {
				path = appconfig.ExpandHome(file)
			}
			res, err := config.ImportFile(a.store, path, a.cfg.User(), config.ImportOptions{
				SkipExisting: !allowDuplicates,
				Logger:       a.logger,
			})
			if err != nil {
				return err
			}
			shell.ReportImport(os.Stdout, res)
			for _, r := range res.Records {
				if a.isReserved(r.Name) {
					fmt.Printf("Host %q shares its name with a command; use 'sshman connect %s'\n", r.Name, r.Name)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "ssh config to read (default ssh_config_path from config.yaml)")
	cmd.Flags().BoolVar(&allowDuplicates, "allow-duplicates", false, "append hosts even when the name already exists")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored hosts as ssh config Host blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs := a.store.List()
			if file == "" {
				return config.Export(os.Stdout, recs)
			}
			res, err := config.ExportFile(appconfig.ExpandHome(file), recs)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d hosts to %s\n", res.Written, file)
			for _, name := range res.Skipped {
				fmt.Printf("  skipped %s (already present)\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "append to this ssh config instead of printing")
	return cmd
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive host dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(ui.Options{
				Store:       a.store,
				Client:      a.client,
				History:     a.history,
				DefaultUser: a.cfg.User(),
				Reserved:    a.isReserved,
				Logger:      a.logger,
			})
		},
	}
}

func newDoctorCmd(a *app) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the registry, file permissions and the ssh binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := doctor.Run(a.cfg, a.store)
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(os.Stdout, report)
			if report.HasHigh() {
				return fmt.Errorf("doctor found high severity issues")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func printReport(w io.Writer, report doctor.Report) {
	if len(report.Issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return
	}
	for _, i := range report.Issues {
		fmt.Fprintf(w, "[%s] %s %s: %s\n", i.Severity, i.Check, i.Target, i.Message)
		if i.Recommendation != "" {
			fmt.Fprintf(w, "    fix: %s\n", i.Recommendation)
		}
	}
}
