package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/meihua/internal/config"
	"github.com/rewired-gh/meihua/internal/evolution"
	"github.com/rewired-gh/meihua/internal/logger"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/telegram"
)

func newEvolveCmd(a *app) *cobra.Command {
	var (
		window     windowFlags
		iterations int
		population int
		seed       int64
		workers    int
		timestamp  string
		presetPath string
		notify     bool
	)
	cmd := &cobra.Command{
		Use:   "evolve",
		Short: "Search scoring parameters with a genetic algorithm",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f := cmd.Flags()
			size, step := window.resolve(cmd, a)

			ts, err := parseTimestamp(timestamp)
			if err != nil {
				return err
			}
			event := models.NewEventSnapshot(ts)

			opts := evolution.Options{
				WindowSize: size,
				Step:       step,
				Iterations: a.cfg.Evolution.Iterations,
				Population: a.cfg.Evolution.Population,
				Event:      event,
				Workers:    a.cfg.Evolution.Workers,
			}
			if f.Changed("iterations") {
				opts.Iterations = iterations
			}
			if f.Changed("population") {
				opts.Population = population
			}
			if f.Changed("workers") {
				opts.Workers = workers
			}
			switch {
			case f.Changed("seed"):
				opts.Seed = &seed
			case a.cfg.Evolution.Seed != 0:
				s := a.cfg.Evolution.Seed
				opts.Seed = &s
			}

			out := cmd.OutOrStdout()
			bar := newProgressBar(cmd.ErrOrStderr())
			opts.Progress = bar.Update

			opt := evolution.New(ctx, a.backtester(), opts)
			g := opt.Guidance()
			logger.Info("Evolving %d generations of %d candidates (seed %d)", g.Iterations, g.Population, opt.Seed())

			best, report, err := opt.Evolve(ctx)
			bar.Finish()
			if err != nil {
				return err
			}
			printEvolution(out, opt.Seed(), best, &report)

			if presetPath != "" {
				if err := config.SavePreset(presetPath, best.ScoringParameters); err != nil {
					return err
				}
				fmt.Fprintf(out, "Preset saved to %s\n", presetPath)
			}

			a.fw.SetParameterOverride(best.Override())
			result := a.fw.Predict(ctx, event)
			fmt.Fprintln(out)
			printPrediction(out, result)

			a.notify(notify, func(c *telegram.Client) error {
				return c.SendEvolution(ctx, a.fw.Game().Type, best, &report)
			})
			return nil
		},
	}
	window.register(cmd)
	f := cmd.Flags()
	f.IntVar(&iterations, "iterations", 0, "Generations, 0 takes the inferred guidance")
	f.IntVar(&population, "population", 0, "Candidates per generation, 0 takes the inferred guidance")
	f.Int64Var(&seed, "seed", 0, "Random seed, defaults to the inferred guidance")
	f.IntVar(&workers, "workers", 1, "Concurrent candidate evaluations")
	f.StringVar(&timestamp, "timestamp", "", "Event time guidance is inferred for, defaults to now")
	f.StringVar(&presetPath, "save-preset", "", "Write the best parameters as a YAML scoring preset")
	f.BoolVar(&notify, "notify", false, "Send the best candidate to Telegram")
	return cmd
}
