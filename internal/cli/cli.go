// Package cli implements the wapsrv command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/geoknoesis/wap-go/internal/config"
)

const appName = "wapsrv"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the build information shown by the version command.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

// CLI holds the state shared by all commands.
type CLI struct {
	out     io.Writer
	cfgFile string
	verbose bool

	Config *config.Config
	Logger *logrus.Logger
}

// New returns a CLI writing command output to out and logs to stderr.
func New(out io.Writer) *CLI {
	return &CLI{out: out, Logger: logrus.New()}
}

// Execute runs the command tree with ctx.
func (c *CLI) Execute(ctx context.Context) error {
	return c.RootCommand().ExecuteContext(ctx)
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Web Annotation Protocol server",
		Long: `wapsrv stores W3C Web Annotations in containers and serves them over
the Web Annotation Protocol.

Configuration is read from built-in defaults, the optional --config file and
WAP_ prefixed environment variables, later layers winning.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(c.newServeCmd())
	root.AddCommand(c.newProfilesCmd())
	root.AddCommand(c.newVersionCmd())
	return root
}

func (c *CLI) load() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	c.Config = cfg
	return configureLogger(c.Logger, cfg, c.verbose)
}

// configureLogger applies the level and format of cfg. verbose forces the
// debug level.
func configureLogger(logger *logrus.Logger, cfg *config.Config, verbose bool) error {
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %s: %w", config.KeyLogLevel, err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.out, "%s %s\ncommit: %s\nbuilt: %s\n", appName, version, commit, date)
			return err
		},
	}
}
