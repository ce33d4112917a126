package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"libseat-cli/config"
	"libseat-cli/logging"
	"libseat-cli/service"
	"libseat-cli/session"
	"libseat-cli/store"
	"libseat-cli/timeline"
	"libseat-cli/tui"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version string
	Commit  string
}

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	sess   *session.Session
	client *service.Client
}

func (a *app) close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newRootCmd(info BuildInfo) *cobra.Command {
	v := viper.New()
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "libseat",
		Short:         "Library seat booking from the terminal",
		Long:          `Pick a section, a day and a time window, then click a free seat to book it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(v)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "", "booking API base URL")
	flags.String("token", "", "bearer token (overrides the saved login)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "log file path")
	for key, name := range map[string]string{
		"api_url":   "api-url",
		"token":     "token",
		"log_level": "log-level",
		"log_file":  "log-file",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}

	rootCmd.AddCommand(
		newBookingsCmd(a),
		newCancelCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newAdminCmd(a),
		newVersionCmd(info),
	)
	return rootCmd
}

func (a *app) load(v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg)
	if err != nil {
		return err
	}

	token := cfg.Token
	if token == "" {
		if token, err = store.LoadToken(); err != nil {
			logger.Warn("load saved token", zap.Error(err))
		}
	}
	sess := session.Anonymous()
	if token != "" {
		decoded, err := session.New(token)
		if err != nil {
			logger.Warn("ignoring unreadable token", zap.Error(err))
		} else {
			sess = decoded
		}
	}

	a.cfg = cfg
	a.logger = logger
	a.sess = sess
	a.client = service.NewClient(cfg.APIURL, sess,
		service.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		service.WithLogger(logger.Named("api")),
		service.WithRateLimit(cfg.RequestsPerSecond, 4),
	)
	logger.Debug("configured",
		zap.String("api_url", cfg.APIURL),
		zap.Bool("signed_in", sess.Authenticated()),
	)
	return nil
}

func (a *app) runTUI() error {
	bounds, err := timeline.NewBounds(a.cfg.MinHour, a.cfg.MaxHour)
	if err != nil {
		return err
	}
	model := tui.New(tui.Deps{
		Client:         a.client,
		Session:        a.sess,
		Logger:         a.logger.Named("tui"),
		Bounds:         bounds,
		Interval:       timeline.Interval{Start: timeline.Hour(a.cfg.DefaultStart), End: timeline.Hour(a.cfg.DefaultEnd)},
		RequestTimeout: a.cfg.RequestTimeout,
	})
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)
	_, err = program.Run()
	return err
}

// requireSignIn fails early for commands the API would reject anyway.
func (a *app) requireSignIn() error {
	if !a.sess.Authenticated() {
		return errors.New("not signed in or the session expired: run libseat login")
	}
	return nil
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of libseat",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "libseat %s", info.Version)
			if info.Commit != "none" && info.Commit != "" {
				fmt.Fprintf(out, " (%s)", info.Commit)
			}
			fmt.Fprintln(out)
		},
	}
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(info BuildInfo) {
	if err := newRootCmd(info).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
