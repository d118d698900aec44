package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tuannvm/impactlens/internal/api"
	"github.com/tuannvm/impactlens/internal/auth"
	"github.com/tuannvm/impactlens/internal/config"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/render"
)

// SessionExpiredMessage is printed when the backend rejects the stored token.
const SessionExpiredMessage = `session expired; run "impactlens login"`

// app carries what PersistentPreRunE resolves for every subcommand.
type app struct {
	// Global flags
	configPath string
	baseURL    string
	output     string
	verbose    bool

	cfg    *config.Config
	format render.Format
	tokens *auth.FileStore

	// navigator is nil outside the dashboard.
	navigator api.Navigator
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "impactlens",
		Short: "ImpactLens - ticket impact analysis client",
		Long: `ImpactLens submits a Jira ticket to the impact analysis service and
renders the report: related tickets, risks, recommendations and metrics.

Run without arguments to start the interactive dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDashboard(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: "+config.Dir()+"/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Analysis API base URL (or set IMPACTLENS_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newStatusCmd(a),
		newHistoryCmd(a),
		newDeleteCmd(a),
		newHealthCmd(a),
		newCacheCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newAuthCmd(a),
		newTicketCmd(a),
		newDigestCmd(a),
		newDashboardCmd(a),
	)
	return rootCmd
}

// setup loads configuration with the --base-url flag taking precedence, then
// configures logging for the command about to run.
func (a *app) setup(cmd *cobra.Command) error {
	v := viper.New()
	if err := v.BindPFlag("api.base_url", cmd.Root().PersistentFlags().Lookup("base-url")); err != nil {
		return fmt.Errorf("failed to bind base-url flag: %w", err)
	}
	cfg, err := config.LoadViper(v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.format, err = render.ParseFormat(a.output); err != nil {
		return err
	}

	opts := log.Options{Level: cfg.LogLevel, File: cfg.LogFile}
	if a.verbose {
		opts.Level = "debug"
	}
	if isDashboard(cmd) && opts.File == "" {
		opts.File = defaultLogFile()
	}
	if err := log.Setup(opts); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	// json and yaml output is often piped with 2>&1; keep it clean unless
	// asked for logs explicitly.
	if a.format != render.FormatText && !a.verbose && cfg.LogFile == "" {
		log.Discard()
	}

	a.tokens = auth.NewFileStore(cfg.TokenFile)
	log.Debugf("Using API %s, token file %s", cfg.APIBaseURL, cfg.TokenFile)
	return nil
}

func isDashboard(cmd *cobra.Command) bool {
	return cmd == cmd.Root() || cmd.Name() == "dashboard"
}

func defaultLogFile() string {
	return filepath.Join(config.Dir(), "impactlens.log")
}

// client builds the API client for one invocation. Outside the dashboard a
// 401 has nowhere to navigate to; the caller reports it instead.
func (a *app) client() *api.Client {
	nav := a.navigator
	if nav == nil {
		nav = api.NavigatorFunc(func(route string) {
			log.Debugf("Navigation to %s requested outside the dashboard", route)
		})
	}
	return api.New(
		api.Config{BaseURL: a.cfg.APIBaseURL, Timeout: a.cfg.APITimeout},
		api.WithTokenStore(a.tokens),
		api.WithNavigator(nav),
	)
}

// encode writes v in the selected output format.
func (a *app) encode(cmd *cobra.Command, v interface{}, text func(io.Writer) error) error {
	return render.Encode(cmd.OutOrStdout(), a.format, v, text)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, api.ErrUnauthorized):
		fmt.Fprintln(stderr, SessionExpiredMessage)
	case errors.Is(err, errReported):
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return 1
}

// errReported marks a failure whose message the command already printed.
var errReported = errors.New("reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
