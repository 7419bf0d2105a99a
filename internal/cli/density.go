package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gdsfill/pkg/report"
)

// densityCommand creates the density command.
func (c *CLI) densityCommand() *cobra.Command {
	var kf kitFlags

	cmd := &cobra.Command{
		Use:   "density [layout.gds]",
		Short: "Report whole-chip density per layer",
		Long: `Report whole-chip density per layer.

Density is the drawing plus fill area of a layer divided by the area
enclosed by the sealring.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDensity(cmd.Context(), args[0], kf)
		},
	}

	kf.register(cmd)

	return cmd
}

func (c *CLI) runDensity(ctx context.Context, input string, kf kitFlags) error {
	kit, lib, err := kf.load(ctx, input)
	if err != nil {
		return err
	}
	densities, err := report.LayoutDensity(lib, kit)
	if err != nil {
		return err
	}

	fmt.Println(densityTable(densities))
	off := 0
	for _, d := range densities {
		if !d.InBand() {
			off++
		}
	}
	if off > 0 {
		printWarning("%d of %d layers outside their density band", off, len(densities))
	} else {
		printSuccess("All layers within their density band")
	}
	return nil
}
