package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/meihua/internal/backtest"
	"github.com/rewired-gh/meihua/internal/telegram"
)

// windowFlags are the replay flags shared by backtest, optimize and evolve.
type windowFlags struct {
	windowSize int
	step       int
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&w.windowSize, "window-size", 0, "Leading draws used only as training history")
	cmd.Flags().IntVar(&w.step, "step", 0, "Distance between replayed periods")
}

// resolve returns the flag values, falling back to the configuration.
func (w *windowFlags) resolve(cmd *cobra.Command, a *app) (int, int) {
	size, step := a.cfg.Backtest.WindowSize, a.cfg.Backtest.Step
	if cmd.Flags().Changed("window-size") {
		size = w.windowSize
	}
	if cmd.Flags().Changed("step") {
		step = w.step
	}
	return size, step
}

func newBacktestCmd(a *app) *cobra.Command {
	var (
		window windowFlags
		notify bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the history and measure hit rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			size, step := window.resolve(cmd, a)
			report, err := a.backtester().Run(cmd.Context(), backtest.Options{WindowSize: size, Step: step})
			if err != nil {
				return err
			}
			printBacktest(cmd.OutOrStdout(), a.fw.Game().Type, &report)
			a.notify(notify, func(c *telegram.Client) error {
				return c.SendBacktest(cmd.Context(), a.fw.Game().Type, &report)
			})
			return nil
		},
	}
	window.register(cmd)
	cmd.Flags().BoolVar(&notify, "notify", false, "Send the summary to Telegram")
	return cmd
}

func newOptimizeCmd(a *app) *cobra.Command {
	var (
		window      windowFlags
		hexGrid     []string
		historyGrid []float64
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Grid search hex and history weights",
		RunE: func(cmd *cobra.Command, args []string) error {
			size, step := window.resolve(cmd, a)
			opts := backtest.GridOptions{
				HexGrid:     a.cfg.HexGrid(),
				HistoryGrid: a.cfg.Optimize.HistoryGrid,
				WindowSize:  size,
				Step:        step,
			}
			if cmd.Flags().Changed("hex-grid") {
				grid, err := parseHexGrid(hexGrid)
				if err != nil {
					return err
				}
				opts.HexGrid = grid
			}
			if cmd.Flags().Changed("history-grid") {
				opts.HistoryGrid = historyGrid
			}

			best, err := a.backtester().Optimize(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printGrid(cmd.OutOrStdout(), best)
			return nil
		},
	}
	window.register(cmd)
	cmd.Flags().StringArrayVar(&hexGrid, "hex-grid", nil, "Hex weight triple \"primary,mutual,changing\" (repeatable)")
	cmd.Flags().Float64SliceVar(&historyGrid, "history-grid", nil, "History weights to try")
	return cmd
}

func parseHexGrid(values []string) ([][3]float64, error) {
	grid := make([][3]float64, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid hex grid entry %q, want three comma-separated weights", v)
		}
		var h [3]float64
		for i, p := range parts {
			w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid hex grid entry %q: %w", v, err)
			}
			h[i] = w
		}
		grid = append(grid, h)
	}
	return grid, nil
}
