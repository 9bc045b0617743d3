// Package telegram sends run summaries via the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/quakestat/internal/analysis"
	"github.com/rewired-gh/quakestat/internal/logger"
	"github.com/rewired-gh/quakestat/internal/models"
)

// sender is the part of *tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications.
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client. The chat id is checked before the
// token, which costs a network round trip.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
			logger.Debug("Telegram send attempt %d/%d failed: %v", i+1, c.maxRetries, err)
		}
		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("telegram send cancelled: %w", ctx.Err())
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError reports a failed run.
func (c *Client) SendError(ctx context.Context, mode models.WindowMode, runErr error) error {
	text := fmt.Sprintf("⚠️ *%s analysis failed*\n`%s`",
		escapeMarkdownV2(string(mode)), escapeMarkdownV2(runErr.Error()))
	return c.sendMarkdownV2(ctx, text)
}

// SendRunSummary reports a finished run.
func (c *Client) SendRunSummary(ctx context.Context, run *models.Run, report *analysis.Report) error {
	return c.sendMarkdownV2(ctx, formatSummary(run, report))
}

// formatSummary formats a run into a Telegram MarkdownV2 message.
func formatSummary(run *models.Run, report *analysis.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *b\\-value run* `%s`\n", escapeMarkdownV2(string(run.Mode)))
	fmt.Fprintf(&b, "📅 %s\n\n", escapeMarkdownV2(run.CreatedAt.UTC().Format("2006-01-02 15:04:05")))

	if run.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", escapeMarkdownV2(run.Source))
	}
	fmt.Fprintf(&b, "Events: %d\n", run.EventCount)
	fmt.Fprintf(&b, "Windows: %d \\(%d included, %d below minimum\\)\n",
		report.Windows, report.Included, report.BelowMin)
	if report.Degenerate > 0 {
		fmt.Fprintf(&b, "⚠️ Degenerate: %d\n", report.Degenerate)
	}

	for _, est := range []struct {
		label string
		name  analysis.Estimator
	}{
		{"ML", analysis.ML},
		{"LSR", analysis.LSR},
	} {
		if lo, hi, ok := report.BRange(est.name); ok {
			rng := escapeMarkdownV2(fmt.Sprintf("%.3f to %.3f", lo, hi))
			fmt.Fprintf(&b, "b \\(%s\\): *%s*\n", est.label, rng)
		}
	}

	if run.ID != "" {
		fmt.Fprintf(&b, "\nRun `%s`", escapeMarkdownV2(run.ID))
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
