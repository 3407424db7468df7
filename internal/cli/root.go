package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/me/logshack/internal/app"
	"github.com/me/logshack/internal/archive"
	"github.com/me/logshack/internal/client"
	"github.com/me/logshack/internal/config"
	"github.com/me/logshack/internal/logging"
	"github.com/me/logshack/internal/session"
	"github.com/me/logshack/internal/store"
	"github.com/me/logshack/internal/view"
)

// Exit statuses returned by Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitInput = 2
	ExitAuth  = 3
)

var (
	flagConfig        string
	flagServer        string
	flagContestServer string
	flagState         string
	flagDebug         bool
	flagLogLevel      string
	flagLogFormat     string

	logger *slog.Logger
	rt     *runtime
)

// runtime is what one CLI invocation (or one shell session) works with.
type runtime struct {
	cfg    config.ClientConfig
	client *client.Client
	ctrl   *app.Controller
	state  *store.SQLiteStore
	in     *bufio.Reader
	shell  bool
}

// reportedError marks errors the controller has already shown as a notice.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// NewRootCmd creates the root cobra command for the logshack CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "logshack",
		Short: "logshack: terminal client for LogShackBaby",
		Long:  "logshack uploads, browses and administers amateur radio logs on a LogShackBaby server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rt != nil && rt.shell {
				return nil
			}
			return setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default ~/.logshack/config.yaml)")
	pf.StringVar(&flagServer, "server", "", "LogShackBaby server URL (or LOGSHACK_SERVER env)")
	pf.StringVar(&flagContestServer, "contest-server", "", "Contest service URL (defaults to --server)")
	pf.StringVar(&flagState, "state", "", "Session state file, or :memory: (default ~/.logshack/state.db)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newVerifyCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newDashboardCmd(),
		newLogsCmd(),
		newStatsCmd(),
		newUploadCmd(),
		newExportCmd(),
		newUploadsCmd(),
		newKeysCmd(),
		newMFACmd(),
		newPasswordCmd(),
		newLogAdminCmd(),
		newTemplatesCmd(),
		newAdminCmd(),
		newContestsCmd(),
		newLeaderboardCmd(),
		newShellCmd(),
	)

	return root
}

// Execute runs the CLI with os.Args and returns the exit status.
func Execute(ctx context.Context) int {
	return run(ctx, NewRootCmd(), os.Stderr)
}

func run(ctx context.Context, root *cobra.Command, stderr io.Writer) int {
	err := root.ExecuteContext(ctx)
	if rt != nil && !rt.shell {
		teardown()
	}
	if err == nil {
		return ExitOK
	}
	var shown reportedError
	if !errors.As(err, &shown) {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, app.ErrValidation):
		return ExitInput
	case client.IsSessionExpired(err), errors.Is(err, client.ErrNotAuthenticated),
		errors.Is(err, app.ErrForbiddenSurface), client.IsUnauthorized(err), client.IsForbidden(err):
		return ExitAuth
	default:
		return ExitError
	}
}

// resolveConfig layers the persistent flags over the config file and environment.
func resolveConfig(cmd *cobra.Command) (config.ClientConfig, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = flagServer
	}
	if flags.Changed("contest-server") {
		cfg.ContestServer = flagContestServer
	}
	if flags.Changed("state") {
		cfg.StatePath = flagState
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagLogFormat
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

func setup(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())

	r := &runtime{cfg: cfg, in: bufio.NewReader(cmd.InOrStdin())}

	// A state file that cannot be opened degrades to an in-memory session.
	var backend session.Backend
	if cfg.StatePath != "" && cfg.StatePath != ":memory:" {
		st, err := store.Open(cmd.Context(), cfg.StatePath, logger)
		if err != nil {
			logger.Warn("session state unavailable, continuing in memory", "path", cfg.StatePath, "error", err)
		} else {
			r.state = st
			backend = st
		}
	}

	sess := session.NewStore(backend, logger)
	r.client = client.New(client.Config{
		BaseURL:    cfg.Server,
		ContestURL: cfg.ContestBase(),
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
	}, sess, logger)

	errOut := cmd.ErrOrStderr()
	r.ctrl = app.New(r.client,
		app.WithLogger(logger),
		app.WithNotifier(app.NotifierFunc(func(n app.Notice) { printNotice(errOut, n) })),
		app.WithArchiver(archive.New(logger,
			archive.WithRegion(cfg.ArchiveRegion),
			archive.WithEndpoint(cfg.ArchiveEndpoint),
		)),
	)
	r.ctrl.Start(cmd.Context())

	rt = r
	return nil
}

func teardown() {
	if rt.state != nil {
		if err := rt.state.Close(); err != nil {
			logger.Debug("close state", "error", err)
		}
	}
	rt = nil
}

func printNotice(w io.Writer, n app.Notice) {
	switch n.Level {
	case app.LevelError:
		fmt.Fprintln(w, "Error:", n.Text)
	default:
		fmt.Fprintln(w, n.Text)
	}
}

// dispatch runs c through the controller. Its failures have already been
// shown to the user.
func dispatch(cmd *cobra.Command, c app.Command) error {
	if err := rt.ctrl.Dispatch(cmd.Context(), c); err != nil {
		return reportedError{err}
	}
	return nil
}

func renderer(cmd *cobra.Command) *view.Renderer {
	return view.NewRenderer(cmd.OutOrStdout())
}
