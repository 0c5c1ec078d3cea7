package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/meihua/internal/backtest"
	"github.com/rewired-gh/meihua/internal/config"
	"github.com/rewired-gh/meihua/internal/inference"
	"github.com/rewired-gh/meihua/internal/logger"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/source"
	"github.com/rewired-gh/meihua/internal/storage"
	"github.com/rewired-gh/meihua/internal/telegram"
)

// simulationSeed seeds the simulated history used when no draws are available.
const simulationSeed int64 = 42

func main() {
	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	presets     []string
	game        string
	logLevel    string
	offline     bool
	forceUpdate bool
	maxPeriods  int
}

// app is the wiring built once per invocation.
type app struct {
	cfg     *config.Config
	manager *storage.Manager
	fw      *inference.Framework
	tg      *telegram.Client
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:           "meihua",
		Short:         "Meihua hexagram lottery inference",
		Long:          "Casts a plum-blossom hexagram for a moment in time, scores every number of a lottery game and picks a ticket, with backtesting and parameter search.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringArrayVar(&opts.presets, "preset", nil, "Scoring preset merged over the configuration (repeatable)")
	root.PersistentFlags().StringVar(&opts.game, "game", "", "Game type (keno8|ssq|dlt)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&opts.offline, "offline", false, "Skip the remote dataset source")
	root.PersistentFlags().BoolVar(&opts.forceUpdate, "force-update", false, "Refresh history even when the cache is fresh")
	root.PersistentFlags().IntVar(&opts.maxPeriods, "max-periods", 0, "Keep at most this many recent draws (0 keeps all)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup(cmd, opts)
	}

	root.AddCommand(
		newPredictCmd(a),
		newBacktestCmd(a),
		newOptimizeCmd(a),
		newEvolveCmd(a),
		newUpdateCmd(a),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the framework.
func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath, opts.presets...)
	} else {
		cfg, err = config.LoadDefaults(opts.presets...)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("game") {
		cfg.Game.Type = opts.game
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("offline") {
		cfg.Data.Offline = opts.offline
	}
	if flags.Changed("force-update") {
		cfg.Data.ForceUpdate = opts.forceUpdate
	}
	if flags.Changed("max-periods") {
		cfg.Data.MaxPeriods = opts.maxPeriods
	}
	if cmd.Name() == "update" {
		cfg.Data.ForceUpdate = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if opts.configPath != "" {
		logger.Debug("Configuration loaded from %s", opts.configPath)
	}

	gameCfg, err := models.LookupGame(cfg.GameType())
	if err != nil {
		return err
	}

	var fetcher storage.Fetcher
	if !cfg.Data.Offline && cfg.Data.SourceBaseURL != "" {
		fetcher = source.NewClient(cfg.Data.SourceBaseURL, cfg.Data.Timeout)
	}
	a.manager = storage.NewManager(storage.ManagerConfig{
		Game:             gameCfg,
		Store:            storage.NewStore(cfg.Data.CacheDir, 0, 0),
		Fetcher:          fetcher,
		DatasetDir:       cfg.Data.DatasetDir,
		MaxPeriods:       cfg.Data.MaxPeriods,
		ForceUpdate:      cfg.Data.ForceUpdate,
		SimulatedPeriods: cfg.Data.SimulatedPeriods,
		Seed:             simulationSeed,
	})

	a.fw, err = inference.New(inference.Config{
		Game:       gameCfg.Type,
		MovingRule: cfg.MovingRule(),
		Base:       cfg.ScoringParameters(),
		Dynamic:    cfg.Scoring.DynamicWeights,
		Loader:     a.manager,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize inference: %w", err)
	}

	// Initialize Telegram client
	if cfg.Telegram.Enabled {
		a.tg, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			return fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		logger.Debug("Telegram client initialized")
	}

	a.cfg = cfg
	return nil
}

// backtester returns a backtester over the app framework.
func (a *app) backtester() *backtest.Backtester {
	return backtest.New(a.fw)
}

// notify runs send when Telegram is configured. Failures are logged only.
func (a *app) notify(enabled bool, send func(*telegram.Client) error) {
	if !enabled {
		return
	}
	if a.tg == nil {
		logger.Warn("Notification requested but Telegram is disabled")
		return
	}
	if err := send(a.tg); err != nil {
		logger.Warn("Failed to send Telegram notification: %v", err)
	}
}
