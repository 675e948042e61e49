package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowcanvas/pkg/completion"
)

// completeCommand prints the label completions the editor would offer.
func (c *CLI) completeCommand() *cobra.Command {
	var mode string
	var limit int

	cmd := &cobra.Command{
		Use:   "complete [text]",
		Short: "Print label completions for text",
		Long: `Print the candidates the editor's completion list shows while a node
label reads text. Candidates come from the configured class library.`,
		Example: `  flowcanvas complete ad
  flowcanvas complete --mode fuzzy mtr`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			lib, err := cfg.LoadLibrary()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("mode") {
				cfg.Completion.Mode = mode
			}
			if cmd.Flags().Changed("limit") {
				cfg.Completion.Limit = limit
			}
			if _, ok := completion.New(cfg.Completion.Mode, nil, 0); !ok {
				return fmt.Errorf("unknown completion mode %q (valid: %s)", cfg.Completion.Mode, strings.Join(completion.Modes, ", "))
			}

			text := ""
			if len(args) > 0 {
				text = args[0]
			}
			out := cmd.OutOrStdout()
			for _, cand := range cfg.CompletionProvider(lib).Complete(text) {
				fmt.Fprintln(out, cand)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "completion mode: "+strings.Join(completion.Modes, ", "))
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of candidates (0 = unlimited)")
	return cmd
}
