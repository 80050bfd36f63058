package main

import (
	"os"
	"os/signal"
	"strings"

	"github.com/at-ishikawa/ragfood/internal/cli"
	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a single question and print the answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			qa, cleanup := newController(cfg)
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			askCLI := cli.NewInteractiveCLI(qa, os.Stdin, cmd.OutOrStdout(), cfg.UI.Color)
			return askCLI.Ask(ctx, strings.Join(args, " "))
		},
	}
}
