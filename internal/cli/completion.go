package cli

import (
	"github.com/spf13/cobra"
)

const completionHelp = `Print a completion script for pixclock.

  bash        source <(pixclock completion bash)
  zsh         pixclock completion zsh > "${fpath[1]}/_pixclock"
  fish        pixclock completion fish > ~/.config/fish/completions/pixclock.fish
  powershell  pixclock completion powershell | Out-String | Invoke-Expression

On a Raspberry Pi running the clock as a service, bash is usually the one
you want; the scan and preview commands are the ones typed by hand.`

func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion bash|zsh|fish|powershell",
		Short:                 "Print a shell completion script",
		Long:                  completionHelp,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}
