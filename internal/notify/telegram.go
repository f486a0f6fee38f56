package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// TelegramNotifier delivers alert batches as MarkdownV2 messages via the
// Telegram Bot API, with bounded retry for transient API failures.
type TelegramNotifier struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

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

	return &TelegramNotifier{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Name implements Notifier.
func (n *TelegramNotifier) Name() string { return "telegram" }

// Send formats the batch and delivers it as one message, retrying with a
// linear backoff. Empty batches are a no-op.
func (n *TelegramNotifier) Send(batch models.AlertBatch) error {
	if batch.Empty() {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, formatBatch(batch))
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(n.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed to send message after %d retries: %w", n.maxRetries, lastErr)
}

// formatBatch renders an alert batch as a MarkdownV2 message, one section
// per catalog item in batch order.
func formatBatch(batch models.AlertBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎯 *New Deals Found* \\(%d\\)\n", batch.Size())
	fmt.Fprintf(&b, "📅 %s\n\n", escapeMarkdownV2(batch.CycleAt.Format("2006-01-02 15:04:05")))

	for _, group := range batch.Groups {
		fmt.Fprintf(&b, "*%s*\n", escapeMarkdownV2(group.ItemID))
		for _, deal := range group.Deals {
			title := escapeMarkdownV2(deal.Title)
			if deal.URL != "" {
				title = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(deal.Title), deal.URL)
			}
			b.WriteString("• " + title + "\n")
			fmt.Fprintf(&b, "  💰 %s → profit %s \\(%s\\)\n",
				escapeMarkdownV2(fmt.Sprintf("$%.2f", deal.Price)),
				escapeMarkdownV2(fmt.Sprintf("$%.2f", deal.Profit)),
				escapeMarkdownV2(fmt.Sprintf("%.1f%%", deal.Margin*100)),
			)
			if deal.Location != "" {
				fmt.Fprintf(&b, "  📍 %s\n", escapeMarkdownV2(strings.ToUpper(deal.Location)))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
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
