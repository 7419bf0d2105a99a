package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gdsfill/pkg/errors"
	"github.com/matzehuels/gdsfill/pkg/gds"
	"github.com/matzehuels/gdsfill/pkg/pdk"
)

// kitFlags are the process selection flags shared by erase and density.
type kitFlags struct {
	process    string
	configFile string
}

func (k *kitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&k.process, "process", "p", pdk.DefaultProcess, "process kit")
	cmd.Flags().StringVarP(&k.configFile, "config-file", "c", "", "TOML file overriding kit rules")
	registerKitCompletions(cmd)
}

// load reads the kit and the layout behind a spinner.
func (k *kitFlags) load(ctx context.Context, input string) (*pdk.Kit, *gds.Library, error) {
	kit, err := pdk.Load(k.process, k.configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := errors.ValidatePath(input); err != nil {
		return nil, nil, err
	}

	spinner := newSpinnerWithContext(ctx, "Reading "+input+"...")
	spinner.Start()
	lib, err := gds.ReadFile(input)
	spinner.Stop()
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInvalidLayout, err, "read %s", input)
	}
	return kit, lib, nil
}

// eraseCommand creates the erase command.
func (c *CLI) eraseCommand() *cobra.Command {
	var (
		kf     kitFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "erase [layout.gds]",
		Short: "Remove all dummy fill from a GDSII layout",
		Long: `Remove all dummy fill from a GDSII layout.

Shapes on the fill datatype of every kit layer are deleted from every cell.
Functional geometry is never touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runErase(cmd.Context(), args[0], kf, output)
		},
	}

	kf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output layout (default: overwrite input)")

	return cmd
}

func (c *CLI) runErase(ctx context.Context, input string, kf kitFlags, output string) error {
	kit, lib, err := kf.load(ctx, input)
	if err != nil {
		return err
	}
	if output == "" {
		output = input
	}

	prog := newProgress(c.Logger)
	counts := eraseFill(lib, kit)
	total := 0
	for _, l := range kit.Layers() {
		if n := counts[l.Name]; n > 0 {
			c.Logger.Debug("erased fill", "layer", l.Name, "shapes", n)
			total += n
		}
	}

	if err := lib.WriteFile(output); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", output)
	}
	prog.done(fmt.Sprintf("Erased %d fill shapes", total))
	printSuccess("Removed fill from %d layers", len(kit.Layers()))
	printFile(output)
	return nil
}

// eraseFill clears the fill datatype of every kit layer in every cell and
// returns the removed shape count per layer.
func eraseFill(lib *gds.Library, kit *pdk.Kit) map[string]int {
	counts := make(map[string]int)
	for _, l := range kit.Layers() {
		for _, cell := range lib.Cells() {
			counts[l.Name] += cell.ClearLayer(l.FillSpec())
		}
	}
	return counts
}
