package main

import (
	"fmt"
	"os"

	"github.com/at-ishikawa/ragfood/internal/cli"
	"github.com/spf13/cobra"
)

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions line by line until exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			qa, cleanup := newController(cfg)
			defer cleanup()

			stdout := cmd.OutOrStdout()
			chatCLI := cli.NewChatCLI(cli.NewInteractiveCLI(qa, os.Stdin, stdout, cfg.UI.Color))

			_, _ = fmt.Fprintln(stdout, cfg.UI.Title)
			_, _ = fmt.Fprintln(stdout, "Type your question. Type 'exit' or 'quit' to leave.")
			_, _ = fmt.Fprintln(stdout)
			return chatCLI.Run(cmd.Context(), chatCLI)
		},
	}
}
