// Package cli implements the flowkeeper command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowkeeper/pkg/buildinfo"
	"github.com/matzehuels/flowkeeper/pkg/config"
	"github.com/matzehuels/flowkeeper/pkg/kv"
	"github.com/matzehuels/flowkeeper/pkg/session"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "flowkeeper"

	// defaultProject is the project id used when --project is not given.
	defaultProject = "default"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	backend    string
	project    string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Flowkeeper keeps node-graph flows consistent",
		Long: `Flowkeeper is the consistency engine behind a node-graph flow editor. It validates
connections between typed ports, keeps group containers fitted to their members,
and stores projects in a logic/layout split with migration of older records.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (.toml or .yaml); default $FLOWKEEPER_CONFIG or ~/.config/flowkeeper/config.toml")
	pf.StringVar(&c.backend, "storage", "", "storage backend: file, memory, null, badger, redis, mongo, postgres")
	pf.StringVarP(&c.project, "project", "p", defaultProject, "project id")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.newCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.connectCommand())
	root.AddCommand(c.disconnectCommand())
	root.AddCommand(c.moveCommand())
	root.AddCommand(c.nodeCommand())
	root.AddCommand(c.itemCommand())
	root.AddCommand(c.groupCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads configuration, applies flag overrides and attaches the logger
// to the command context.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		if cfg, err = config.Load(c.configPath); err != nil {
			return err
		}
		config.ApplyEnv(&cfg, os.Getenv)
		err = config.Validate(cfg)
	} else {
		cfg, err = config.LoadDefault()
	}
	if c.backend != "" {
		cfg.Storage.Backend = c.backend
		err = config.Validate(cfg)
	}
	if err != nil {
		return err
	}
	c.Config = cfg

	level, err := resolveLevel(c.verbose, cfg.Log.Level)
	if err != nil {
		return err
	}
	c.SetLogLevel(level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// =============================================================================
// Session Factory
// =============================================================================

// sessionOptions builds session options from the loaded configuration.
func (c *CLI) sessionOptions(confirm bool, answer *bool) session.Options {
	opts := session.Options{
		Keyer:       c.keyer(),
		Logger:      projectLogger(c.Logger, c.project),
		FlushDelay:  c.Config.Editor.FlushDelay.Duration,
		HintTimeout: c.Config.Editor.HintTimeout.Duration,
		SaveLayout:  c.Config.Storage.SaveLayout,
	}
	if confirm {
		opts.Confirmer = newConfirmer(answer)
	}
	return opts
}

func (c *CLI) keyer() kv.Keyer {
	if ns := c.Config.Storage.Namespace; ns != "" {
		return kv.NewScopedKeyer(kv.NewDefaultKeyer(), ns+":")
	}
	return kv.NewDefaultKeyer()
}

// withSession opens the store and the current project, runs fn, and flushes.
func (c *CLI) withSession(ctx context.Context, opts session.Options, fn func(*session.Session) error) error {
	store, err := openStore(ctx, c.Config.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := session.Open(ctx, store, c.project, opts)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Close(ctx)
		return err
	}
	return s.Close(ctx)
}
