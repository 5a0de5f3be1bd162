package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dori/workscope/internal/api"
	"github.com/dori/workscope/internal/app"
	"github.com/dori/workscope/internal/config"
	"github.com/dori/workscope/internal/db"
	"github.com/dori/workscope/internal/digest"
	"github.com/dori/workscope/internal/filter"
	"github.com/dori/workscope/internal/report"
	"github.com/dori/workscope/internal/scope"
	"github.com/dori/workscope/internal/ui"
	"github.com/dori/workscope/internal/ui/theme"
	"github.com/dori/workscope/internal/ui/views"
)

var version = "0.1.0"

// tableWidth is the width table output is laid out for
const tableWidth = 100

// flags shared by the subcommands
type options struct {
	configPath string
	dbPath     string
	output     string

	user        int64
	admin       bool
	projects    []string
	departments []string
	startDate   string
	endDate     string

	once      bool
	themeName string
}

func (o *options) viewer() scope.Viewer {
	return scope.Viewer{UserID: o.user, Admin: o.admin}
}

func (o *options) params() filter.Params {
	return filter.Params{
		ProjectIDs:    filter.SplitList(o.projects...),
		DepartmentIDs: filter.SplitList(o.departments...),
		StartDate:     o.startDate,
		EndDate:       o.endDate,
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:           "workscope",
		Short:         "Scoped task reports over an organization's projects.",
		Long:          `workscope computes logged-time, team-summary and task-completion reports limited to the departments and projects a user may see, and sends due-date digests to assignees.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&o.configPath, "config", "", "Path to a YAML config file.")
	rootCmd.PersistentFlags().StringVar(&o.dbPath, "db", "", "Path to the SQLite database (overrides config).")

	reportCmd := &cobra.Command{
		Use:       "report <logged-time|team-summary|task-completions>",
		Short:     "Compute a report for a user.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"logged-time", "team-summary", "task-completions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, o, args[0])
		},
	}
	addViewerFlags(reportCmd, o)
	reportCmd.Flags().StringSliceVar(&o.projects, "projects", nil, "Project ids to filter by.")
	reportCmd.Flags().StringSliceVar(&o.departments, "departments", nil, "Department ids to filter by.")
	reportCmd.Flags().StringVar(&o.startDate, "start", "", "Start date (YYYY-MM-DD).")
	reportCmd.Flags().StringVar(&o.endDate, "end", "", "End date (YYYY-MM-DD), inclusive.")
	reportCmd.Flags().StringVarP(&o.output, "output", "o", "table", "Output format: table or json.")

	scopeCmd := &cobra.Command{
		Use:       "scope <departments|projects>",
		Short:     "List the departments or projects a user may filter by.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"departments", "projects"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScope(cmd, o, args[0])
		},
	}
	addViewerFlags(scopeCmd, o)
	scopeCmd.Flags().StringSliceVar(&o.projects, "projects", nil, "Only departments linked to these projects.")
	scopeCmd.Flags().StringSliceVar(&o.departments, "departments", nil, "Only projects linked to these departments.")
	scopeCmd.Flags().StringVarP(&o.output, "output", "o", "table", "Output format: table or json.")

	digestCmd := &cobra.Command{
		Use:   "digest",
		Short: "Send due-date digests to assignees.",
		Long:  `Sends every assignee a digest of overdue, due-today and upcoming tasks. Without --once it repeats on the configured interval until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd, o)
		},
	}
	digestCmd.Flags().BoolVar(&o.once, "once", false, "Send one round and exit.")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reports over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, o)
		},
	}

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse reports in the terminal.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, o)
		},
	}
	addViewerFlags(browseCmd, o)
	browseCmd.Flags().StringSliceVar(&o.projects, "projects", nil, "Project ids to filter by.")
	browseCmd.Flags().StringSliceVar(&o.departments, "departments", nil, "Department ids to filter by.")
	browseCmd.Flags().StringVar(&o.startDate, "start", "", "Start date (YYYY-MM-DD).")
	browseCmd.Flags().StringVar(&o.endDate, "end", "", "End date (YYYY-MM-DD), inclusive.")
	browseCmd.Flags().StringVar(&o.themeName, "theme", "", "Theme name (nord, dracula).")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, o)
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with a demo organization.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, o)
		},
	}

	rootCmd.AddCommand(reportCmd, scopeCmd, digestCmd, serveCmd, browseCmd, migrateCmd, seedCmd)
	return rootCmd
}

func addViewerFlags(cmd *cobra.Command, o *options) {
	cmd.Flags().Int64Var(&o.user, "user", 0, "Id of the user the report is for.")
	cmd.Flags().BoolVar(&o.admin, "admin", false, "Treat the user as an administrator.")
	cmd.MarkFlagRequired("user")
}

func main() {
	// Setup structured JSON logger for errors.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// openApp loads configuration and opens the database. Logs go to the
// command's stderr.
func openApp(cmd *cobra.Command, o *options) (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return app.New(cfg, logger)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runReport(cmd *cobra.Command, o *options, name string) error {
	kind, err := report.ParseKind(name)
	if err != nil {
		return err
	}
	if o.output != "table" && o.output != "json" {
		return fmt.Errorf("unknown output format %q", o.output)
	}

	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	payload, err := a.Reports.Compute(cmd.Context(), kind, o.viewer(), o.params())
	if err != nil {
		return fmt.Errorf("failed to compute %s: %w", kind.Slug(), err)
	}

	if o.output == "json" {
		return writeJSON(cmd, payload)
	}
	fmt.Fprintln(cmd.OutOrStdout(), views.Render(payload, tableWidth))
	return nil
}

func runScope(cmd *cobra.Command, o *options, what string) error {
	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []scope.Option
	switch what {
	case "departments":
		opts, err = a.Reports.VisibleDepartments(cmd.Context(), o.viewer(), filter.SplitList(o.projects...))
	case "projects":
		opts, err = a.Reports.VisibleProjects(cmd.Context(), o.viewer(), filter.SplitList(o.departments...))
	default:
		return fmt.Errorf("unknown scope list %q (want departments or projects)", what)
	}
	if err != nil {
		return err
	}

	if o.output == "json" {
		if opts == nil {
			opts = []scope.Option{}
		}
		return writeJSON(cmd, opts)
	}
	for _, opt := range opts {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", opt.ID, opt.Name)
	}
	return nil
}

func runDigest(cmd *cobra.Command, o *options) error {
	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	if o.once {
		run, err := a.Digest.RunOnce(cmd.Context())
		if run != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "digest %s: sent %d of %d\n", run.ID, run.Sent, len(run.Digests))
		}
		return err
	}

	interval, err := a.Config.DigestInterval()
	if err != nil {
		return err
	}
	ctx, stop := signalContext(cmd)
	defer stop()

	if err := a.Digest.Loop(ctx, interval); err != nil {
		if errors.Is(err, digest.ErrLocked) {
			return fmt.Errorf("%w (lock: %s)", err, a.Config.DigestLockPath())
		}
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, o *options) error {
	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.New(a.Reports, api.Options{
		JWTSecret: a.Config.Auth.JWTSecret,
		Logger:    a.Logger,
	})

	ctx, stop := signalContext(cmd)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", "addr", a.Config.Server.Addr, "jwt", a.Config.Auth.JWTSecret != "")
		errc <- server.Listen(a.Config.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

func runBrowse(cmd *cobra.Command, o *options) error {
	if o.themeName != "" {
		t, ok := theme.ByName(o.themeName)
		if !ok {
			return fmt.Errorf("unknown theme %q", o.themeName)
		}
		theme.SetTheme(t)
	}

	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(ui.NewRootModel(a, o.viewer(), o.params()), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runMigrate(cmd *cobra.Command, o *options) error {
	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := a.DB.SchemaVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", a.Config.Database.Path, v)
	return nil
}

func runSeed(cmd *cobra.Command, o *options) error {
	a, err := openApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	sum, err := a.DB.Seed(time.Now())
	if err != nil {
		if errors.Is(err, db.ErrNotEmpty) {
			return fmt.Errorf("%s already has data: %w", a.Config.Database.Path, err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", sum)
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
