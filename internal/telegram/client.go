// Package telegram sends prediction, backtest and evolution summaries via the
// Telegram Bot API.
//
// Messages are rendered as MarkdownV2 by the pure Format functions and
// delivered with a linear retry backoff.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/meihua/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendPrediction sends a prediction summary
func (c *Client) SendPrediction(ctx context.Context, result models.PredictionResult) error {
	return c.send(ctx, FormatPrediction(result))
}

// SendBacktest sends a backtest summary
func (c *Client) SendBacktest(ctx context.Context, game models.GameType, report *models.BacktestReport) error {
	return c.send(ctx, FormatBacktest(game, report))
}

// SendEvolution sends the best candidate of an evolution run
func (c *Client) SendEvolution(ctx context.Context, game models.GameType, best models.Candidate, report *models.BacktestReport) error {
	return c.send(ctx, FormatEvolution(game, best, report))
}

func (c *Client) send(ctx context.Context, message string) error {
	msg := tgbotapi.NewMessage(c.chatID, message)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	// Send with retry
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// FormatPrediction renders a prediction as a MarkdownV2 message
func FormatPrediction(r models.PredictionResult) string {
	var b strings.Builder
	b.WriteString("🔮 *Meihua Prediction*\n\n")
	fmt.Fprintf(&b, "🎲 Game: %s\n", escapeMarkdownV2(string(r.Game)))
	fmt.Fprintf(&b, "📅 Reference: %s\n", escapeMarkdownV2(r.ReferenceTime.Format("2006-01-02 15:04")))

	hex := r.Metadata.Hexagram
	line := fmt.Sprintf("%s (%s)", hex.Primary, hex.PrimaryElement)
	if hex.Changing != "" {
		line += fmt.Sprintf(" -> %s (%s)", hex.Changing, hex.ChangingElement)
	}
	fmt.Fprintf(&b, "☯ Hexagram: %s\n", escapeMarkdownV2(line))
	if r.Metadata.Season != "" {
		fmt.Fprintf(&b, "🍃 Season: %s\n", escapeMarkdownV2(r.Metadata.Season))
	}
	b.WriteString("\n")

	for _, key := range r.PrimarySelection.Keys() {
		fmt.Fprintf(&b, "*%s*: %s\n", escapeMarkdownV2(key), formatNumbers(r.PrimarySelection[key]))
	}
	for i, set := range r.GuardSets {
		parts := make([]string, 0, len(set))
		for _, key := range set.Keys() {
			parts = append(parts, formatNumbers(set[key]))
		}
		fmt.Fprintf(&b, "🛡 Guard %d: %s\n", i+1, strings.Join(parts, " \\+ "))
	}
	return b.String()
}

// FormatBacktest renders a backtest summary as a MarkdownV2 message
func FormatBacktest(game models.GameType, report *models.BacktestReport) string {
	s := report.Summary()

	var b strings.Builder
	b.WriteString("📊 *Meihua Backtest*\n\n")
	fmt.Fprintf(&b, "🎲 Game: %s\n", escapeMarkdownV2(string(game)))
	fmt.Fprintf(&b, "🗓 Periods: %d\n", s.Periods)
	fmt.Fprintf(&b, "🎯 Hit rate: *%s*\n", formatPercent(s.HitRate))
	fmt.Fprintf(&b, "🧺 Pool hit rate: %s\n", formatPercent(s.PoolHitRate))
	fmt.Fprintf(&b, "📈 Mean hits: %s\n", escapeMarkdownV2(strconv.FormatFloat(s.MeanHits, 'f', 2, 64)))
	fmt.Fprintf(&b, "🏆 Best period: %d\n", s.BestPeriodHits)
	return b.String()
}

// FormatEvolution renders the best evolved candidate as a MarkdownV2 message
func FormatEvolution(game models.GameType, best models.Candidate, report *models.BacktestReport) string {
	var b strings.Builder
	b.WriteString("🧬 *Meihua Evolution*\n\n")
	fmt.Fprintf(&b, "🎲 Game: %s\n", escapeMarkdownV2(string(game)))
	fmt.Fprintf(&b, "🏅 Fitness: *%s*\n", escapeMarkdownV2(strconv.FormatFloat(report.Fitness(), 'f', 4, 64)))
	fmt.Fprintf(&b, "🎯 Hit rate: %s\n", formatPercent(report.HitRate()))

	p := best.ScoringParameters
	hex := fmt.Sprintf("%.3f / %.3f / %.3f", p.HexWeights[0], p.HexWeights[1], p.HexWeights[2])
	fmt.Fprintf(&b, "☯ Hex weights: %s\n", escapeMarkdownV2(hex))
	weights := fmt.Sprintf("history %.3f, recency %.3f, gap %.3f, calendar %.3f",
		p.HistoryWeight, p.RecencyWeight, p.GapWeight, p.CalendarWeight)
	fmt.Fprintf(&b, "⚖ Weights: %s\n", escapeMarkdownV2(weights))
	fmt.Fprintf(&b, "⏳ Half\\-life: %s days, window %d\n",
		escapeMarkdownV2(strconv.FormatFloat(p.HistoryHalfLife, 'f', 1, 64)), p.HistoryWindow)
	return b.String()
}

func formatNumbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, " ")
}

func formatPercent(rate float64) string {
	return escapeMarkdownV2(fmt.Sprintf("%.2f%%", rate*100))
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
