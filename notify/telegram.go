package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"page-scraper/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Telegram sends a short run summary to one chat
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zap.Logger
}

// NewTelegram connects to the bot API. endpoint is a format string taking
// the token and the method name; empty uses the public API.
func NewTelegram(token string, chatID int64, endpoint string, client *http.Client, log *zap.Logger) (*Telegram, error) {
	if log == nil {
		log = zap.L()
	}
	if token == "" {
		return nil, eris.New("notify: telegram token is empty")
	}
	if chatID == 0 {
		return nil, eris.New("notify: telegram chat id is empty")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, eris.Wrap(err, "notify: create bot")
	}
	log.Info("telegram bot authorized", zap.String("account", bot.Self.UserName))

	return &Telegram{bot: bot, chatID: chatID, log: log}, nil
}

// Notify sends the summary of a finished session
func (t *Telegram) Notify(ctx context.Context, session *models.Session, output string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "notify: context done")
	}

	msg := tgbotapi.NewMessage(t.chatID, Summary(session, output))
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return eris.Wrap(err, "notify: send message")
	}

	t.log.Info("sent telegram summary", zap.Int64("chat_id", t.chatID))
	return nil
}

// Summary renders a plain text run summary
func Summary(session *models.Session, output string) string {
	var b strings.Builder
	status := "✅"
	if session.Len() == 0 {
		status = "⚠️"
	}
	fmt.Fprintf(&b, "%s Scrape finished: %s\n", status, session.Site)
	fmt.Fprintf(&b, "Records: %d\n", session.Len())
	fmt.Fprintf(&b, "Pages: %d (fetches: %d)\n", session.Pages, session.Fetches)
	fmt.Fprintf(&b, "Stopped: %s\n", session.StopReason)
	if n := len(session.Errors); n > 0 {
		fmt.Fprintf(&b, "Errors: %d\n", n)
	}
	if !session.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", session.FinishedAt.Sub(session.StartedAt).Round(time.Second))
	}
	if output != "" {
		fmt.Fprintf(&b, "Saved to: %s\n", output)
	}
	return strings.TrimRight(b.String(), "\n")
}
