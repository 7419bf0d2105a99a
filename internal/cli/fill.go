package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/geom"
	"github.com/matzehuels/gdsfill/pkg/pdk"
	"github.com/matzehuels/gdsfill/pkg/pipeline"
	"github.com/matzehuels/gdsfill/pkg/report"
)

// fillOpts holds the command-line flags of the fill command.
type fillOpts struct {
	pipeline.Options
	coreSize string    // placement core "llx,lly,urx,ury" in microns
	cache    cacheOpts // tile outcome cache selection
	report   string    // PDF density report path
	history  string    // history directory or mongodb:// URI
}

// fillCommand creates the fill command.
func (c *CLI) fillCommand() *cobra.Command {
	fo := fillOpts{Options: pipeline.Options{Process: pdk.DefaultProcess}}

	cmd := &cobra.Command{
		Use:   "fill [layout.gds]",
		Short: "Insert dummy fill into a GDSII layout",
		Long: `Insert dummy fill into a GDSII layout.

Every selected layer is cut into tiles. Each tile is filled independently
with square or track fill until its density lies within the target band of
the process kit, and the fill is merged back into the layout.

Tile outcomes are cached locally (or in Redis with --cache-url), so refilling
an unchanged layout is fast.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFill(cmd.Context(), args[0], fo)
		},
	}

	cmd.Flags().StringVarP(&fo.Output, "output", "o", "", "output layout (default: overwrite input)")
	cmd.Flags().StringVarP(&fo.Process, "process", "p", fo.Process, "process kit: "+strings.Join(pdk.Processes(), ", "))
	cmd.Flags().StringVarP(&fo.ConfigFile, "config-file", "c", "", "TOML file overriding kit rules")
	cmd.Flags().StringSliceVarP(&fo.Layers, "layer", "l", nil, "layers to fill (default: all kit layers)")
	cmd.Flags().BoolVar(&fo.DryRun, "dry-run", false, "fill tiles but do not modify the layout")
	cmd.Flags().BoolVar(&fo.KeepData, "keep-data", false, "keep tile files in ./"+pipeline.KeepDataDir)
	cmd.Flags().StringVar(&fo.coreSize, "core-size", "", "placement core llx,lly,urx,ury in µm")
	cmd.Flags().IntVarP(&fo.Workers, "workers", "j", 0, "tiles processed in parallel (default: number of CPUs)")
	cmd.Flags().BoolVar(&fo.cache.noCache, "no-cache", false, "disable the tile cache")
	cmd.Flags().StringVar(&fo.cache.url, "cache-url", "", "cache directory or redis:// URL")
	cmd.Flags().StringVar(&fo.report, "report", "", "write a PDF density report")
	cmd.Flags().StringVar(&fo.history, "history", "", "history directory or mongodb:// URI")
	registerKitCompletions(cmd)

	return cmd
}

// runFill executes a fill run and reports its outcome.
func (c *CLI) runFill(ctx context.Context, input string, fo fillOpts) error {
	opts := fo.Options
	opts.Input = input
	opts.Logger = c.Logger
	if fo.coreSize != "" {
		core, err := parseCoreSize(fo.coreSize)
		if err != nil {
			return err
		}
		opts.CoreSize = &core
	}

	runner, err := c.newRunner(ctx, opts.Process, fo.cache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := c.execute(ctx, runner, opts)
	if err != nil {
		return err
	}

	fmt.Println(summaryTable(res))
	for _, lr := range res.Layers {
		for _, tr := range lr.Tiles {
			if tr.Status == filler.StatusFailed {
				printError("%s %s: %s", lr.Layer, tr.Tile.Label(), tr.Message())
			}
		}
	}

	if res.DryRun {
		printWarning("Dry run, layout not modified")
	} else {
		printSuccess("Filled %d layers", len(res.Layers))
		printFile(res.Output)
	}
	if opts.KeepData {
		printKeyValue("Tile data", res.WorkDir)
	}

	rec := report.NewRecord(res)
	if fo.report != "" {
		if err := report.WritePDF(fo.report, rec); err != nil {
			return err
		}
		printFile(fo.report)
	}
	c.saveHistory(ctx, fo.history, rec)

	if res.Failed() {
		return fmt.Errorf("run %s finished with failed tiles", shortID(res.RunID))
	}
	if !res.DryRun {
		printNextStep("Check densities", appName+" density "+res.Output)
	}
	return nil
}

// execute runs the pipeline behind the tile board on terminals and with
// plain progress lines otherwise. Verbose runs always use plain lines so
// that log output stays readable.
func (c *CLI) execute(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	if !isTerminal(os.Stdout) || c.Logger.GetLevel() <= log.DebugLevel {
		opts.Progress = printTileEvent
		return runner.Execute(ctx, opts)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	board := newTileBoard(cancel)
	p := tea.NewProgram(board, tea.WithOutput(os.Stdout))
	opts.Progress = func(ev pipeline.Event) { p.Send(tileEventMsg(ev)) }
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{})

	var (
		res    *pipeline.Result
		runErr error
		done   = make(chan struct{})
	)
	go func() {
		defer close(done)
		res, runErr = runner.Execute(ctx, opts)
		p.Send(runDoneMsg{})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("tile board: %w", err)
	}
	<-done
	return res, runErr
}

// saveHistory records the run. Failures are logged, not returned.
func (c *CLI) saveHistory(ctx context.Context, target string, rec *report.Record) {
	store, err := report.OpenStore(ctx, target)
	if err != nil {
		c.Logger.Warn("run history unavailable", "err", err)
		return
	}
	defer store.Close()
	if err := store.Save(ctx, rec); err != nil {
		c.Logger.Warn("record run", "err", err)
		return
	}
	c.Logger.Debug("run recorded", "id", rec.ID)
}

// parseCoreSize parses "llx,lly,urx,ury" in microns.
func parseCoreSize(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, errors.New(errors.ErrCodeInvalidInput,
			"core size %q: want llx,lly,urx,ury", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "core size %q", s)
		}
		v[i] = f
	}
	if err := errors.ValidateCoreSize(v[0], v[1], v[2], v[3]); err != nil {
		return geom.Rect{}, err
	}
	return geom.RectUM(v[0], v[1], v[2], v[3]), nil
}
