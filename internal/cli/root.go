// Package cli is the tada command line: cobra commands over internal/app.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Makepad-fr/tada/internal/app"
	"github.com/Makepad-fr/tada/internal/capture"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/service"
	"github.com/Makepad-fr/tada/internal/store/todostore"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Env is the process surroundings a command runs in.
type Env struct {
	Stdin          io.Reader
	Stdout, Stderr io.Writer
	// HTTPClient is optional; nil uses the default client.
	HTTPClient *http.Client
}

// usageError marks a failure caused by how the command was called.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }
func (e usageError) ExitCode() int { return ExitUsage }

func usagef(format string, a ...any) error {
	return usageError{fmt.Errorf(format, a...)}
}

// usageArgs tags positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

var rootFlagAliases = map[string]string{
	"api-url": "api",
	"url":     "api",
}

// flagAliases maps alternate flag spellings onto their canonical name.
func flagAliases(aliases map[string]string) func(*pflag.FlagSet, string) pflag.NormalizedName {
	return func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		return pflag.NormalizedName(name)
	}
}

// runner carries what every subcommand needs once the root has set up.
type runner struct {
	env   Env
	in    *prompter
	app   *app.App
	flags struct {
		api    string
		config string
		debug  bool
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, env Env) int {
	r := &runner{env: env, in: newPrompter(env.Stdin)}
	root := r.rootCmd()
	r.addCommands(root)
	if args == nil {
		// cobra falls back to os.Args on nil.
		args = []string{}
	}
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	ui.Fail(env.Stderr, message(err))

	code := exitCode(err)
	var u usageError
	if errors.As(err, &u) {
		ui.Hint(env.Stderr, "Run 'tada --help' for usage.")
	}
	return code
}

func exitCode(err error) int {
	var coded interface{ ExitCode() int }
	switch {
	case errors.As(err, &coded):
		return coded.ExitCode()
	case errors.Is(err, app.ErrNotLoggedIn), errors.Is(err, app.ErrSessionExpired):
		return ExitUsage
	}
	return ExitFailure
}

func message(err error) string {
	var u usageError
	if errors.As(err, &u) {
		return u.Error()
	}
	switch {
	case errors.Is(err, app.ErrNotLoggedIn):
		return "not logged in. Run: tada login"
	case errors.Is(err, app.ErrSessionExpired):
		return "session expired. Run: tada login"
	}
	for _, known := range userMessages {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return todostore.NormalizeError(err)
}

// userMessages are shown as they are, even when they wrap an HTTP failure.
var userMessages = []error{
	service.ErrInvalidCredentials,
	service.ErrConnection,
	service.ErrEmailTaken,
	service.ErrRegister,
	service.ErrMissingCredentials,
	service.ErrEmptyTitle,
	capture.ErrPhotoRequired,
}

func (r *runner) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tada",
		Short: "tada - a to-do list synced with a remote service",
		Long: `tada keeps a to-do list on a remote service. Changes show up
immediately and are rolled back if the service rejects them.`,
		Args:              usageArgs(cobra.NoArgs),
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: r.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return usageError{errors.New("missing subcommand")}
		},
	}
	root.SetIn(r.env.Stdin)
	root.SetOut(r.env.Stdout)
	root.SetErr(r.env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	root.Version = versionString()
	root.SetVersionTemplate("tada {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&r.flags.api, "api", "", "remote API base URL (env "+config.EnvAPIURL+")")
	pf.StringVar(&r.flags.config, "config", "", "config file (env "+config.EnvConfig+")")
	pf.BoolVar(&r.flags.debug, "debug", false, "log HTTP traffic to stderr (env "+config.EnvDebug+")")

	root.SetGlobalNormalizationFunc(flagAliases(rootFlagAliases))
	return root
}

func (r *runner) addCommands(root *cobra.Command) {
	root.AddCommand(
		r.loginCmd(),
		r.registerCmd(),
		r.logoutCmd(),
		r.statusCmd(),
		r.whoamiCmd(),
		r.listCmd(),
		r.addCmd(),
		r.doneCmd(),
		r.editCmd(),
		r.removeCmd(),
		r.uiCmd(),
		r.versionCmd(),
	)
}

// setup loads .env and the config, applies root flags and builds the app.
func (r *runner) setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(r.flags.config)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("api") {
		cfg.APIURL = r.flags.api
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = r.flags.debug
	}
	ui.SetTheme(cfg.Theme)

	logger := log.NewWithOptions(r.env.Stderr, log.Options{Prefix: "tada"})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	a, err := app.New(app.Options{Config: cfg, HTTPClient: r.env.HTTPClient, Logger: logger})
	if err != nil {
		return err
	}
	r.app = a
	return nil
}

func (r *runner) out() io.Writer { return r.env.Stdout }
