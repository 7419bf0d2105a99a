package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gdsfill/pkg/report"
)

const defaultHistoryLimit = 20

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	var (
		target string
		limit  int
		pdf    string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded fill runs",
		Long: `List recorded fill runs, most recent first.

With a run ID (or its first characters), show the layers of that run and
optionally render its PDF density report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := report.OpenStore(cmd.Context(), target)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(args) == 0 {
				return c.listHistory(cmd.Context(), store, limit)
			}
			return c.showRun(cmd.Context(), store, args[0], pdf)
		},
	}

	cmd.Flags().StringVar(&target, "history", "", "history directory or mongodb:// URI")
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "maximum number of runs to list")
	cmd.Flags().StringVar(&pdf, "report", "", "write the PDF density report of the run")

	return cmd
}

func (c *CLI) listHistory(ctx context.Context, store report.Store, limit int) error {
	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		printInfo("No runs recorded")
		return nil
	}
	fmt.Println(historyTable(records))
	return nil
}

func (c *CLI) showRun(ctx context.Context, store report.Store, id, pdf string) error {
	rec, err := findRun(ctx, store, id)
	if err != nil {
		return err
	}

	fmt.Println(StyleTitle.Render("Run " + rec.ID))
	printKeyValue("Process", rec.Process)
	printKeyValue("Input", rec.Input)
	printKeyValue("Output", rec.Output)
	printKeyValue("Started", rec.Started.Local().Format("2006-01-02 15:04:05"))
	printKeyValue("Duration", rec.Duration.String())
	for _, l := range rec.Layers {
		printDetail("%s: %d tiles, %d success, %d skipped, %d failed, mean %.2f%%",
			l.Layer, len(l.Tiles), l.Success, l.Skipped, l.Failed, l.Density)
	}

	if pdf != "" {
		if err := report.WritePDF(pdf, rec); err != nil {
			return err
		}
		printFile(pdf)
	}
	return nil
}

// findRun resolves a full run ID or a unique prefix of one.
func findRun(ctx context.Context, store report.Store, id string) (*report.Record, error) {
	rec, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var match *report.Record
	for _, r := range all {
		if !strings.HasPrefix(r.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id %q is ambiguous", id)
		}
		match = r
	}
	if match == nil {
		return nil, fmt.Errorf("no run %q", id)
	}
	return match, nil
}
