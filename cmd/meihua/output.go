package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rewired-gh/meihua/internal/backtest"
	"github.com/rewired-gh/meihua/internal/models"
)

func joinNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

func printBuckets(w io.Writer, title string, b models.Buckets) {
	if len(b) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, key := range b.Keys() {
		fmt.Fprintf(tw, "  %s\t%s\n", key, joinNumbers(b[key]))
	}
	tw.Flush()
}

func printPrediction(w io.Writer, r models.PredictionResult) {
	meta := r.Metadata
	hex := meta.Hexagram

	fmt.Fprintf(w, "Game: %s\n", r.Game)
	fmt.Fprintf(w, "Reference: %s\n", r.ReferenceTime.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "Hexagram: %s (%s)", hex.Primary, hex.PrimaryElement)
	if hex.Mutual != "" {
		fmt.Fprintf(w, ", mutual %s (%s)", hex.Mutual, hex.MutualElement)
	}
	if hex.Changing != "" {
		fmt.Fprintf(w, ", changing %s (%s)", hex.Changing, hex.ChangingElement)
	}
	fmt.Fprintf(w, ", moving lines %v\n", hex.MovingLines)
	fmt.Fprintf(w, "Season: %s\n", meta.Season)
	fmt.Fprintf(w, "History: %d draws\n", meta.HistorySize)

	p := meta.Weights.Active
	fmt.Fprintf(w, "Weights: hex %.3f/%.3f/%.3f history %.3f recency %.3f gap %.3f calendar %.3f\n",
		p.HexWeights[0], p.HexWeights[1], p.HexWeights[2],
		p.HistoryWeight, p.RecencyWeight, p.GapWeight, p.CalendarWeight)
	fmt.Fprintf(w, "Half-life: %.1f days (base %.1f), dynamic %t, override %t\n",
		meta.Weights.HalfLifeDays, meta.Weights.BaseHalfLife,
		meta.Weights.DynamicApplied, meta.Weights.OverrideApplied)
	if m := meta.Mystic; m != nil {
		fmt.Fprintf(w, "Mystic: palace %d, scalar %.2f, spell %d, preferred %v\n",
			m.Palace, m.Scalar, m.NumericSpell, m.PreferredElements)
	}
	if len(meta.ElementCycle) > 0 {
		fmt.Fprintf(w, "Element cycle: %v\n", meta.ElementCycle)
	}
	if len(meta.Extra) > 0 {
		keys := make([]string, 0, len(meta.Extra))
		for k := range meta.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + meta.Extra[k]
		}
		fmt.Fprintf(w, "Custom: %s\n", strings.Join(pairs, ", "))
	}

	fmt.Fprintln(w)
	printBuckets(w, "Selection", r.PrimarySelection)
	printBuckets(w, "Pool", r.CandidatePool)
	for i, set := range r.GuardSets {
		printBuckets(w, fmt.Sprintf("Guard set %d", i+1), set)
	}
}

func printSummary(w io.Writer, report *models.BacktestReport) {
	s := report.Summary()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Periods\t%d\n", s.Periods)
	fmt.Fprintf(tw, "Hit rate\t%.2f%%\n", s.HitRate*100)
	fmt.Fprintf(tw, "Pool hit rate\t%.2f%%\n", s.PoolHitRate*100)
	fmt.Fprintf(tw, "Mean hits\t%.2f (sd %.2f)\n", s.MeanHits, s.StdDevHits)
	fmt.Fprintf(tw, "Mean pool hits\t%.2f (sd %.2f)\n", s.MeanPoolHits, s.StdDevPoolHits)
	fmt.Fprintf(tw, "Best period\t%d\n", s.BestPeriodHits)
	fmt.Fprintf(tw, "Fitness\t%.4f\n", report.Fitness())
	tw.Flush()
}

func printBacktest(w io.Writer, game models.GameType, report *models.BacktestReport) {
	fmt.Fprintf(w, "Backtest %s (run %s)\n", game, report.RunID)
	printSummary(w, report)
}

func printGrid(w io.Writer, best backtest.GridResult) {
	fmt.Fprintf(w, "Best hex weights: %.3f/%.3f/%.3f\n", best.HexWeights[0], best.HexWeights[1], best.HexWeights[2])
	fmt.Fprintf(w, "Best history weight: %.3f\n", best.HistoryWeight)
	printSummary(w, &best.Report)
}

func printEvolution(w io.Writer, seed int64, best models.Candidate, report *models.BacktestReport) {
	p := best.ScoringParameters
	fmt.Fprintf(w, "Evolution (seed %d)\n", seed)
	fmt.Fprintf(w, "Hex weights: %.3f/%.3f/%.3f\n", p.HexWeights[0], p.HexWeights[1], p.HexWeights[2])
	fmt.Fprintf(w, "Weights: history %.3f recency %.3f gap %.3f calendar %.3f\n",
		p.HistoryWeight, p.RecencyWeight, p.GapWeight, p.CalendarWeight)
	fmt.Fprintf(w, "Half-life: %.1f days, window %d\n", p.HistoryHalfLife, p.HistoryWindow)
	printSummary(w, report)
}
