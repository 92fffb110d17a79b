// Package telegram is the thin presentation layer: it polls updates,
// routes them by conversation state, and renders service outcomes as
// messages. Matching, ledger, and referral logic live in the services —
// nothing here decides, it only asks and shows.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mortza214/dating-bot-sub000/internal/app"
)

// Bot wraps the Telegram client so handlers depend on a small surface.
type Bot struct {
	api    *tgbotapi.BotAPI
	appCtx *app.AppContext
}

func NewBot(appCtx *app.AppContext) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(appCtx.Config.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram client: %w", err)
	}
	api.Debug = appCtx.Config.Bot.Debug
	appCtx.Logger.Info("telegram client ready", "username", api.Self.UserName)
	return &Bot{api: api, appCtx: appCtx}, nil
}

// Username is used to build invite deep links.
func (b *Bot) Username() string { return b.api.Self.UserName }

// SendText sends a plain message, optionally with a keyboard markup.
func (b *Bot) SendText(chatID int64, text string, markup any) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops the
// spinner.
func (b *Bot) AnswerCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cb); err != nil {
		b.appCtx.Logger.Debug("callback ack failed", "err", err)
	}
}

// GetUpdates fetches the next batch after offset with the configured
// long-poll timeout.
func (b *Bot) GetUpdates(offset int) ([]tgbotapi.Update, error) {
	return b.api.GetUpdates(tgbotapi.UpdateConfig{
		Offset:  offset,
		Timeout: b.appCtx.Config.Bot.PollTimeout,
	})
}
