package main

import (
	"github.com/at-ishikawa/ragfood/internal/tui"
	"github.com/spf13/cobra"
)

func newTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen question form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			qa, cleanup := newController(cfg)
			defer cleanup()

			return tui.Run(cmd.Context(), qa, cfg.UI)
		},
	}
}
