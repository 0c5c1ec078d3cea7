package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/meihua/internal/inference"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/telegram"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

type predictOptions struct {
	timestamp     string
	location      string
	reference     string
	custom        []string
	staticWeights bool
	guardSets     int
	guardHorizon  int
	guardBlue     int
	notify        bool
}

func newPredictCmd(a *app) *cobra.Command {
	opts := &predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict a ticket for a moment in time",
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := opts.event()
			if err != nil {
				return err
			}
			if opts.staticWeights {
				a.fw.SetParameterOverride(&models.ParameterOverride{Params: a.fw.BaseParameters()})
			}

			result := a.fw.Predict(cmd.Context(), event)

			req := inference.GuardRequest{
				Sets:      a.cfg.Guard.Sets,
				Horizon:   a.cfg.Guard.Horizon,
				ExtraBlue: a.cfg.Guard.Blue,
			}
			if cmd.Flags().Changed("guard-sets") {
				req.Sets = opts.guardSets
			}
			if cmd.Flags().Changed("guard-horizon") {
				req.Horizon = opts.guardHorizon
			}
			if cmd.Flags().Changed("guard-blue") {
				req.ExtraBlue = opts.guardBlue
			}
			if req.Sets > 0 {
				result.GuardSets = a.fw.RecommendGuardSets(result, a.fw.History(), req)
			}

			printPrediction(cmd.OutOrStdout(), result)
			a.notify(opts.notify, func(c *telegram.Client) error {
				return c.SendPrediction(cmd.Context(), result)
			})
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.timestamp, "timestamp", "", "Event time (RFC3339 or YYYY-MM-DD[ HH:MM]), defaults to now")
	f.StringVar(&opts.location, "location", models.DefaultLocation, "Event location tag")
	f.StringVar(&opts.reference, "reference", "", "Comma-separated reference numbers")
	f.StringArrayVar(&opts.custom, "custom", nil, "Custom factor key=value (repeatable)")
	f.BoolVar(&opts.staticWeights, "static-weights", false, "Use the configured weights without the calendar layers")
	f.IntVar(&opts.guardSets, "guard-sets", 0, "Number of guard sets to recommend")
	f.IntVar(&opts.guardHorizon, "guard-horizon", 0, "Draws used to rate blue numbers for guard sets")
	f.IntVar(&opts.guardBlue, "guard-blue", 0, "Extra blue numbers per guard set")
	f.BoolVar(&opts.notify, "notify", false, "Send the prediction to Telegram")
	return cmd
}

// event builds the event snapshot from the flags.
func (o *predictOptions) event() (models.EventSnapshot, error) {
	ts, err := parseTimestamp(o.timestamp)
	if err != nil {
		return models.EventSnapshot{}, err
	}
	event := models.NewEventSnapshot(ts)
	if o.location != "" {
		event.Location = o.location
	}
	if event.ReferenceNumbers, err = parseNumbers(o.reference); err != nil {
		return models.EventSnapshot{}, err
	}
	if event.CustomFactors, err = parseCustom(o.custom); err != nil {
		return models.EventSnapshot{}, err
	}
	if err := event.Validate(); err != nil {
		return models.EventSnapshot{}, err
	}
	return event, nil
}

// parseTimestamp accepts the supported layouts. Times without a zone are UTC.
// An empty value means now.
func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp: %q", value)
}

func parseNumbers(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var nums []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid reference number %q: %w", part, err)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func parseCustom(pairs []string) (map[string]string, error) {
	factors := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid custom factor %q, want key=value", pair)
		}
		factors[key] = strings.TrimSpace(value)
	}
	return factors, nil
}
