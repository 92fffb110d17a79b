package telegram

import (
	"context"

	"github.com/mortza214/dating-bot-sub000/internal/repository"
)

// Poller runs the sequential update loop. Updates are processed one at a
// time in arrival order; the durable cursor advances only after an
// update was fully handled, so a crash replays the in-flight update.
// Handlers are therefore written to tolerate duplicate delivery (menus
// re-render harmlessly, the purchase path is guarded by the history
// check).
type Poller struct {
	bot    *Bot
	router *Router
	cursor *repository.BotStateRepository
}

func NewPoller(bot *Bot, router *Router, cursor *repository.BotStateRepository) *Poller {
	return &Poller{bot: bot, router: router, cursor: cursor}
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	last, err := p.cursor.LastUpdateID(ctx)
	if err != nil {
		return err
	}
	log := p.bot.appCtx.Logger
	log.Info("update loop started", "cursor", last)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.bot.GetUpdates(last + 1)
		if err != nil {
			// transport hiccup: log and poll again after the client's
			// own backoff
			log.Warn("getUpdates failed", "err", err)
			continue
		}

		for _, update := range updates {
			if err := p.router.HandleUpdate(ctx, update); err != nil {
				// Handler errors are already surfaced to the user as a
				// message; the update still counts as processed so one
				// poison update cannot wedge the loop.
				log.Error("update handling failed", "update_id", update.UpdateID, "err", err)
			}
			last = update.UpdateID
			if err := p.cursor.SetLastUpdateID(ctx, last); err != nil {
				return err
			}
		}
	}
}
