// Package cli implements the gdsfill command-line interface.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gdsfill/pkg/buildinfo"
	"github.com/matzehuels/gdsfill/pkg/cache"
	"github.com/matzehuels/gdsfill/pkg/observability"
	"github.com/matzehuels/gdsfill/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "gdsfill"

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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level. At debug level pipeline and
// cache events are logged as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		hooks := observability.NewLogHooks(c.Logger)
		observability.SetPipelineHooks(hooks)
		observability.SetCacheHooks(hooks)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "gdsfill inserts density-driven dummy fill into GDSII layouts",
		Long:         `gdsfill partitions a GDSII layout into tiles, fills every tile with dummy metal until its density reaches the process target, and merges the fill back into the layout.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.fillCommand())
	root.AddCommand(c.eraseCommand())
	root.AddCommand(c.densityCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheOpts selects the tile outcome cache.
type cacheOpts struct {
	noCache bool
	url     string
}

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped to
// the process so that kits never share outcomes.
func (c *CLI) newRunner(ctx context.Context, process string, co cacheOpts) (*pipeline.Runner, error) {
	tc, err := c.newCache(ctx, co)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), process+":")
	return pipeline.NewRunner(tc, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, co cacheOpts) (cache.Cache, error) {
	switch {
	case co.noCache:
		return cache.NewNullCache(), nil
	case strings.HasPrefix(co.url, "redis://") || strings.HasPrefix(co.url, "rediss://"):
		rc, err := cache.NewRedisCache(ctx, co.url)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir := co.url
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}
