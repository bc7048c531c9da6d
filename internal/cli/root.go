package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scripthub/scripthub/internal/config"
	"github.com/scripthub/scripthub/internal/includes"
	"github.com/scripthub/scripthub/internal/logging"
	"github.com/scripthub/scripthub/internal/manifest"
	"github.com/scripthub/scripthub/internal/paths"
	"github.com/scripthub/scripthub/internal/scriptcache"
	"github.com/scripthub/scripthub/internal/ui"
	"github.com/scripthub/scripthub/internal/updater"
)

// Exit codes returned through ExitError.
const (
	ExitGeneral = 1
	ExitConfig  = 2
	ExitNetwork = 3
)

// App is the dependency container for all CLI commands.
type App struct {
	rootCmd *cobra.Command
	version string
	commit  string
	date    string

	output   *ui.Output
	paths    paths.Paths
	store    *config.Store
	cfg      *config.Config
	client   *manifest.Client
	cache    *scriptcache.Cache
	coord    *updater.Coordinator
	log      *zap.Logger
	logClose func()

	configDir  string
	repository string
	debug      bool
	noColor    bool
}

// NewApp creates the root command and registers all subcommands.
func NewApp(version, commit, date string) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		output:  ui.NewOutput(),
	}

	root := &cobra.Command{
		Use:   "scripthub",
		Short: "Manifest-driven cache for Ubuntu setup scripts",
		Long:  "Fetches a script manifest from a repository origin and keeps a checksum-verified local cache of setup scripts up to date.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if os.Getenv("SCRIPTHUB_DEBUG") != "" {
				app.debug = true
			}
			if os.Getenv("NO_COLOR") != "" {
				app.noColor = true
			}
			app.output.SetNoColor(app.noColor)
			return app.initComponents()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.logClose != nil {
				app.logClose()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&app.configDir, "config-dir", "", "config directory (overrides "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&app.repository, "repository", "", "repository origin URL (overrides "+manifest.EnvRepository+")")
	root.PersistentFlags().BoolVar(&app.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&app.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		app.newStatusCmd(),
		app.newListCmd(),
		app.newCheckUpdatesCmd(),
		app.newUpdateAllCmd(),
		app.newDownloadCmd(),
		app.newRunCmd(),
		app.newClearCacheCmd(),
		app.newConfigCmd(),
		app.newVersionCmd(),
	)

	app.rootCmd = root
	return app
}

// Execute runs the root command.
func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

// initComponents resolves paths, opens the activity log, loads the config,
// and wires the core components together.
func (a *App) initComponents() error {
	p, err := paths.Resolve(a.configDir)
	if err != nil {
		return &ExitError{Code: ExitConfig, Message: err.Error()}
	}
	if err := p.EnsureDirs(); err != nil {
		return &ExitError{Code: ExitConfig, Message: err.Error()}
	}
	a.paths = p

	log, closeFn, err := logging.New(p.LogFile, a.debug)
	if err != nil {
		return &ExitError{Code: ExitConfig, Message: err.Error()}
	}
	a.log = log
	a.logClose = closeFn

	a.store = config.NewStore(p.ConfigFile)
	cfg, err := a.store.Load()
	if err != nil {
		return &ExitError{Code: ExitConfig, Message: err.Error()}
	}
	a.cfg = cfg

	// The --repository flag pins the origin for this invocation only; it
	// must not end up in config.json when a fetch saves the config.
	clientOpts := []manifest.Option{manifest.WithLogger(log)}
	if a.repository != "" {
		clientOpts = append(clientOpts, manifest.WithRepositoryOverride(a.repository))
	}
	a.client = manifest.NewClient(p, a.store, clientOpts...)
	a.cache = scriptcache.New(p.CacheDir, a.client,
		scriptcache.WithVerification(cfg.VerifyChecksums),
		scriptcache.WithLogger(log))
	inc := includes.NewSyncer(a.client, includes.WithLogger(log))
	a.coord = updater.NewCoordinator(a.client, a.cache, inc, p.IncludesDir,
		updater.WithLogger(log))

	return nil
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			a.output.Info("scripthub %s (commit: %s, built: %s)", a.version, a.commit, a.date)
		},
	}
}

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// debugf prints a debug message if debug mode is enabled.
func (a *App) debugf(format string, args ...any) {
	if a.debug {
		a.output.Debug(format, args...)
	}
}
