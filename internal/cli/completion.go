package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gdsfill/pkg/pdk"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for gdsfill.

Bash:
  $ source <(gdsfill completion bash)

Zsh:
  $ gdsfill completion zsh > "${fpath[1]}/_gdsfill"

Fish:
  $ gdsfill completion fish > ~/.config/fish/completions/gdsfill.fish

PowerShell:
  PS> gdsfill completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// registerKitCompletions completes --process with the built-in kits and
// --layer with the layers of the selected kit.
func registerKitCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("process", completeProcesses)
	if cmd.Flags().Lookup("layer") != nil {
		_ = cmd.RegisterFlagCompletionFunc("layer", completeLayers)
	}
}

func completeProcesses(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return pdk.Processes(), cobra.ShellCompDirectiveNoFileComp
}

func completeLayers(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	process, _ := cmd.Flags().GetString("process")
	configFile, _ := cmd.Flags().GetString("config-file")
	kit, err := pdk.Load(process, configFile)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, l := range kit.Layers() {
		names = append(names, l.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
