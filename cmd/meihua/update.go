package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Refresh and cache the draw history",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.manager.Load(cmd.Context())
			if err != nil {
				return err
			}
			a.fw.SetHistory(records)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Game: %s\n", a.fw.Game().Type)
			fmt.Fprintf(out, "Draws: %d\n", len(records))
			if n := len(records); n > 0 {
				last := records[n-1]
				fmt.Fprintf(out, "Latest: %s (%s)\n", last.Period, last.Timestamp)
			}
			return nil
		},
	}
}
