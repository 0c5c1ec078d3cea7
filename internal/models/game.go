package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedGame is returned when a game type has no configuration or adapter.
var ErrUnsupportedGame = errors.New("unsupported game type")

// GameType identifies a supported lottery game.
type GameType string

const (
	// GameKeno8 is the 80-number keno game (20 drawn per period).
	GameKeno8 GameType = "keno8"
	// GameSSQ is the red/blue ball game (6 of 33 red plus 1 of 16 blue).
	GameSSQ GameType = "ssq"
	// GameDLT is the front/back zone game (5 of 35 front plus 2 of 12 back).
	GameDLT GameType = "dlt"
)

// GameTypes lists every supported game in a stable order.
var GameTypes = []GameType{GameKeno8, GameSSQ, GameDLT}

// ParseGameType resolves a game tag, case-insensitively.
func ParseGameType(value string) (GameType, error) {
	t := GameType(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range GameTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedGame, value)
}

// GameConfig holds the fixed constants of a game.
type GameConfig struct {
	Type                 GameType `json:"type"`
	TotalNumbers         int      `json:"total_numbers"`
	DrawnNumbers         int      `json:"drawn_numbers"`
	SelectedNumbers      int      `json:"selected_numbers"`
	PredictionCount      int      `json:"prediction_count"`
	HistoricalWeeks      int      `json:"historical_weeks"`
	PredictionInputWeeks int      `json:"prediction_input_weeks"`
	SpecialNumbers       int      `json:"special_numbers"` // size of the blue/back range, 0 if none
	BacktestWindow       int      `json:"backtest_window"`
	BacktestStep         int      `json:"backtest_step"`
	DatasetFile          string   `json:"dataset_file"`
}

var gameConfigs = map[GameType]GameConfig{
	GameKeno8: {
		Type:                 GameKeno8,
		TotalNumbers:         80,
		DrawnNumbers:         20,
		SelectedNumbers:      10,
		PredictionCount:      10,
		HistoricalWeeks:      7,
		PredictionInputWeeks: 3,
		BacktestWindow:       300,
		BacktestStep:         5,
		DatasetFile:          "kl8_asc.txt",
	},
	GameSSQ: {
		Type:                 GameSSQ,
		TotalNumbers:         33,
		DrawnNumbers:         6,
		SelectedNumbers:      6,
		PredictionCount:      6,
		HistoricalWeeks:      12,
		PredictionInputWeeks: 3,
		SpecialNumbers:       16,
		BacktestWindow:       200,
		BacktestStep:         3,
		DatasetFile:          "ssq_asc.txt",
	},
	GameDLT: {
		Type:                 GameDLT,
		TotalNumbers:         35,
		DrawnNumbers:         5,
		SelectedNumbers:      5,
		PredictionCount:      5,
		HistoricalWeeks:      7,
		PredictionInputWeeks: 3,
		SpecialNumbers:       12,
		BacktestWindow:       200,
		BacktestStep:         3,
		DatasetFile:          "dlt_asc.txt",
	},
}

// LookupGame returns the constants for a game type.
func LookupGame(t GameType) (GameConfig, error) {
	cfg, ok := gameConfigs[t]
	if !ok {
		return GameConfig{}, fmt.Errorf("%w: %q", ErrUnsupportedGame, string(t))
	}
	return cfg, nil
}
