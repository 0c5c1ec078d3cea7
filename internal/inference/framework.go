// Package inference runs the full prediction pipeline: cast the hexagram,
// build the calendar profile, derive parameters, extract history features,
// score every number and hand the scores to the game adapter.
//
// A Framework holds the game, the configured base parameters, the loaded
// history and an optional parameter override. PredictWith is the pure core:
// it takes history and override as arguments and touches no framework state,
// so backtests and the genetic optimizer can call it from many goroutines.
// Predict is the stateful convenience wrapper around it.
package inference

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/meihua/internal/calendar"
	"github.com/rewired-gh/meihua/internal/game"
	"github.com/rewired-gh/meihua/internal/hexagram"
	"github.com/rewired-gh/meihua/internal/logger"
	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/scoring"
)

// Loader supplies the draw history, oldest first.
type Loader interface {
	Load(ctx context.Context) ([]models.HistoryRecord, error)
}

// Config configures a Framework.
type Config struct {
	Game       models.GameType
	MovingRule hexagram.MovingRule
	Base       models.ScoringParameters
	Dynamic    bool
	Provider   calendar.Provider // nil selects calendar.NewBuilder()
	Loader     Loader            // nil disables lazy loading
	Now        func() time.Time  // nil selects time.Now
}

// DefaultConfig returns a config for a game with stock parameters and the dynamic layer on.
func DefaultConfig(t models.GameType) Config {
	return Config{
		Game:       t,
		MovingRule: hexagram.MovingStandard,
		Base:       models.DefaultScoringParameters(),
		Dynamic:    true,
	}
}

// PredictOptions are the per-call inputs of PredictWith.
type PredictOptions struct {
	// Override replaces the derived base parameters when set.
	Override *models.ParameterOverride
	// Base replaces the configured base parameters the mystic layer starts
	// from. Ignored when Override is set.
	Base *models.ScoringParameters
}

// Framework is the prediction pipeline for one game.
type Framework struct {
	cfg       models.GameConfig
	engine    *hexagram.Engine
	adapter   game.Adapter
	provider  calendar.Provider
	extractor *scoring.Extractor
	dynamic   bool
	loader    Loader
	now       func() time.Time

	mu       sync.RWMutex
	base     models.ScoringParameters
	history  *scoring.History
	override *models.ParameterOverride
}

// New creates a framework. It fails for an unknown game or invalid parameters.
func New(cfg Config) (*Framework, error) {
	adapter, err := game.New(cfg.Game)
	if err != nil {
		return nil, err
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, err
	}
	provider := cfg.Provider
	if provider == nil {
		provider = calendar.NewBuilder()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Framework{
		cfg:       adapter.Config(),
		engine:    hexagram.NewEngine(cfg.MovingRule),
		adapter:   adapter,
		provider:  provider,
		extractor: scoring.NewExtractor(adapter.Config().TotalNumbers),
		dynamic:   cfg.Dynamic,
		loader:    cfg.Loader,
		now:       now,
		base:      cfg.Base,
	}, nil
}

// Game returns the game configuration.
func (f *Framework) Game() models.GameConfig {
	return f.cfg
}

// Adapter returns the game adapter.
func (f *Framework) Adapter() game.Adapter {
	return f.adapter
}

// BaseParameters returns the configured base parameters.
func (f *Framework) BaseParameters() models.ScoringParameters {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.base
}

// SetBaseParameters replaces the configured base parameters.
func (f *Framework) SetBaseParameters(p models.ScoringParameters) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.base = p
}

// SetParameterOverride installs an override used by Predict. nil clears it.
func (f *Framework) SetParameterOverride(o *models.ParameterOverride) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.override = o
}

// ParameterOverride returns the installed override, or nil.
func (f *Framework) ParameterOverride() *models.ParameterOverride {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.override
}

// SetHistory replaces the loaded history.
func (f *Framework) SetHistory(records []models.HistoryRecord) {
	h := scoring.NewHistory(records, f.now().UTC())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = h
}

// History returns the loaded history, which may be empty.
func (f *Framework) History() *scoring.History {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.history == nil {
		return scoring.NewHistory(nil, f.now().UTC())
	}
	return f.history
}

// UpdateData reloads the history from the loader.
func (f *Framework) UpdateData(ctx context.Context) error {
	if f.loader == nil {
		return nil
	}
	records, err := f.loader.Load(ctx)
	if err != nil {
		return err
	}
	f.SetHistory(records)
	logger.Info("Loaded %d %s draws", len(records), f.cfg.Type)
	return nil
}

// EnsureHistory loads the history once if none is loaded. Load failures are
// logged and leave the history empty.
func (f *Framework) EnsureHistory(ctx context.Context) *scoring.History {
	if h := f.History(); h.Len() > 0 {
		return h
	}
	if err := f.UpdateData(ctx); err != nil {
		logger.Warn("History unavailable for %s, predicting without draws: %v", f.cfg.Type, err)
	}
	return f.History()
}

// Predict loads history if needed and predicts with the installed override.
func (f *Framework) Predict(ctx context.Context, event models.EventSnapshot) models.PredictionResult {
	h := f.EnsureHistory(ctx)
	return f.PredictWith(event, h, PredictOptions{Override: f.ParameterOverride()})
}

// cast holds the event-derived inputs shared by prediction and guidance.
type cast struct {
	ref     time.Time
	state   hexagram.State
	profile models.CalendarProfile
}

func (f *Framework) castEvent(event models.EventSnapshot) cast {
	ref := event.ReferenceTime()
	state := f.engine.Cast(event)
	return cast{ref: ref, state: state, profile: f.buildProfile(ref, state)}
}

// buildProfile takes the provider profile and adds each hexagram's element
// to the favorable set and the element it overcomes to the unfavorable set.
func (f *Framework) buildProfile(ref time.Time, state hexagram.State) models.CalendarProfile {
	p := f.provider.Profile(ref).Clone()
	for k, e := range p.Elements {
		p.Elements[k] = models.NormalizeElement(e)
	}
	favorable := make([]models.Element, 0, len(p.FavorableElements)+3)
	for _, e := range p.FavorableElements {
		favorable = append(favorable, models.NormalizeElement(e))
	}
	unfavorable := make([]models.Element, 0, len(p.UnfavorableElements)+3)
	for _, e := range p.UnfavorableElements {
		unfavorable = append(unfavorable, models.NormalizeElement(e))
	}
	for _, e := range state.Elements() {
		favorable = append(favorable, e)
		if o := e.Overcomes(); o != "" {
			unfavorable = append(unfavorable, o)
		}
	}
	p.FavorableElements = models.SortedElements(favorable)
	p.UnfavorableElements = models.SortedElements(unfavorable)
	return p
}

// resolved is the parameter set a prediction starts from.
type resolved struct {
	params   models.ScoringParameters
	mystic   *models.MysticBias
	dynamic  bool
	override bool
}

func (f *Framework) resolve(c cast, opts PredictOptions) resolved {
	if o := opts.Override; o != nil {
		return resolved{params: o.Params, dynamic: o.Dynamic, override: true}
	}
	initial := f.BaseParameters()
	if opts.Base != nil {
		initial = *opts.Base
	}
	mystic := Mystic(c.profile, c.ref)
	return resolved{
		params:  BaseParameters(initial, c.ref, c.profile, c.state, mystic),
		mystic:  &mystic,
		dynamic: true,
	}
}

// PredictWith predicts from the given history and options only.
func (f *Framework) PredictWith(event models.EventSnapshot, history *scoring.History, opts PredictOptions) models.PredictionResult {
	c := f.castEvent(event)
	r := f.resolve(c, opts)

	active := r.params
	applyDynamic := f.dynamic && r.dynamic
	if applyDynamic {
		active = DynamicParameters(r.params, c.ref, c.profile, c.state)
	}

	cycle := ElementCycle(c.profile, c.state, r.mystic)
	elementMap := ElementMap(f.cfg.TotalNumbers, c.ref, c.profile, c.state, r.mystic, cycle)

	features := f.extractor.Extract(history, c.ref, active.HistoryHalfLife, r.params.HistoryWindow)
	scores := scoring.NewScorer(active).Score(c.state, features, f.cfg.TotalNumbers, c.ref, elementMap, &c.profile)

	weights := models.WeightsUsed{
		Active:          active,
		HalfLifeDays:    active.HistoryHalfLife,
		BaseHalfLife:    r.params.HistoryHalfLife,
		HistoryWindow:   r.params.HistoryWindow,
		DynamicApplied:  applyDynamic,
		OverrideApplied: r.override,
	}
	if applyDynamic {
		base := r.params
		weights.Base = &base
	}

	var extra map[string]string
	if len(event.CustomFactors) > 0 {
		extra = make(map[string]string, len(event.CustomFactors))
		for k, v := range event.CustomFactors {
			extra[k] = v
		}
	}

	return models.PredictionResult{
		ID:               uuid.NewString(),
		Game:             f.cfg.Type,
		ReferenceTime:    c.ref,
		PrimarySelection: f.adapter.Select(scores),
		CandidatePool:    f.adapter.BuildPool(scores),
		Scores:           scores,
		Metadata: models.PredictionMetadata{
			Hexagram:      c.state.Summary(),
			Season:        scoring.SeasonFor(c.ref),
			HistorySize:   history.Len(),
			Weights:       weights,
			Calendar:      c.profile,
			ElementCycle:  cycle,
			ElementGroups: ElementGroups(elementMap),
			Mystic:        r.mystic,
			ElementMap:    elementMap,
			Extra:         extra,
		},
	}
}

// InferGuidance derives genetic algorithm hyperparameters for the event
// from the loaded history and the installed override.
func (f *Framework) InferGuidance(ctx context.Context, event models.EventSnapshot, windowSize, step int) models.EvolutionGuidance {
	h := f.EnsureHistory(ctx)
	c := f.castEvent(event)
	r := f.resolve(c, PredictOptions{Override: f.ParameterOverride()})
	return Guidance(r.params, r.mystic, c.ref, c.profile, c.state, h.Len(), windowSize, step)
}

// BlueScores rates the blue numbers over the last horizon draws. Games
// without a scored special zone return an empty map.
func (f *Framework) BlueScores(history *scoring.History, horizon int) map[int]float64 {
	if f.cfg.Type != models.GameSSQ {
		return map[int]float64{}
	}
	return game.BlueScores(history.Records(), horizon)
}

// GuardRequest sizes a guard-set recommendation.
type GuardRequest struct {
	Sets      int
	Horizon   int
	ExtraBlue int
}

// DefaultGuardRequest returns three sets over a 120-draw horizon with five extra blues.
func DefaultGuardRequest() GuardRequest {
	return GuardRequest{Sets: 3, Horizon: 120, ExtraBlue: 5}
}

// RecommendGuardSets builds alternative tickets from a prediction, using
// its scores, element map and calendar profile.
func (f *Framework) RecommendGuardSets(result models.PredictionResult, history *scoring.History, req GuardRequest) []models.Buckets {
	profile := result.Metadata.Calendar
	opts := game.GuardOptions{
		NumSets:    req.Sets,
		ExtraBlue:  req.ExtraBlue,
		ElementMap: result.Metadata.ElementMap,
		Profile:    &profile,
	}
	if f.cfg.Type == models.GameSSQ {
		opts.BlueScores = f.BlueScores(history, req.Horizon)
	}
	return f.adapter.GuardSets(result.Scores, opts)
}
