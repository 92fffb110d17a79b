package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/contact"
	"github.com/mortza214/dating-bot-sub000/internal/service/match"
	"github.com/mortza214/dating-bot-sub000/internal/service/payment"
	"github.com/mortza214/dating-bot-sub000/internal/service/profile"
	"github.com/mortza214/dating-bot-sub000/internal/service/referral"
	"github.com/mortza214/dating-bot-sub000/internal/service/wallet"
	"github.com/mortza214/dating-bot-sub000/internal/state"
)

// Router resolves the sender, parses their conversation state, and
// dispatches to a handler. Every handler ends by leaving the user's
// state on a reachable menu.
type Router struct {
	bot    *Bot
	appCtx *app.AppContext

	users   *repository.UserRepository
	fields  *repository.FieldRepository
	filters *repository.FilterRepository

	matcher   *match.Service
	contacts  *contact.Service
	wallets   *wallet.Service
	referrals *referral.Service
	profiles  *profile.Service
	payments  *payment.Service
}

func NewRouter(
	bot *Bot,
	appCtx *app.AppContext,
	matcher *match.Service,
	contacts *contact.Service,
	wallets *wallet.Service,
	referrals *referral.Service,
	profiles *profile.Service,
	payments *payment.Service,
) *Router {
	return &Router{
		bot:       bot,
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		fields:    repository.NewFieldRepository(appCtx.DB),
		filters:   repository.NewFilterRepository(appCtx.DB),
		matcher:   matcher,
		contacts:  contacts,
		wallets:   wallets,
		referrals: referrals,
		profiles:  profiles,
		payments:  payments,
	}
}

// HandleUpdate processes one inbound update to completion.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.Message != nil:
		return r.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return r.handleCallback(ctx, update.CallbackQuery)
	}
	return nil // ignore membership changes etc.
}

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	user, err := r.users.FindOrCreateByTelegramID(
		ctx, msg.From.ID, msg.Chat.ID, msg.From.FirstName, msg.From.UserName)
	if err != nil {
		return err
	}

	if msg.IsCommand() {
		return r.handleCommand(ctx, user, msg)
	}

	switch st := state.Parse(user.State); st.Kind {
	case state.KindEditingField, state.KindProfileEdit:
		return r.handleWizardInput(ctx, user, msg.Text)
	case state.KindAwaitingTopUpAmount:
		return r.handleTopUpAmount(ctx, user, msg.Text)
	case state.KindAwaitingFilterAge:
		return r.handleFilterAge(ctx, user, msg.Text)
	case state.KindFilterMenu:
		return r.handleFilterMenu(ctx, user, msg.Text)
	case state.KindAdminAddingFieldName, state.KindAdminAddingFieldLabel, state.KindAdminAddingFieldType:
		if !r.appCtx.Config.IsAdmin(msg.Chat.ID) {
			return r.showMainMenu(ctx, user)
		}
		return r.handleAddFieldStep(ctx, user, st, msg.Text)
	default:
		return r.handleMainMenu(ctx, user, msg.Text)
	}
}

func (r *Router) handleCommand(ctx context.Context, user *db.User, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return r.handleStart(ctx, user, msg.CommandArguments())
	case "pending":
		if r.appCtx.Config.IsAdmin(msg.Chat.ID) {
			return r.handlePendingPayments(ctx, user)
		}
	case "addfield":
		if r.appCtx.Config.IsAdmin(msg.Chat.ID) {
			return r.handleAddField(ctx, user, msg.CommandArguments())
		}
	case "togglefield":
		if r.appCtx.Config.IsAdmin(msg.Chat.ID) {
			return r.handleToggleField(ctx, user, msg.CommandArguments())
		}
	}
	return r.showMainMenu(ctx, user)
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}
	user, err := r.users.FindOrCreateByTelegramID(
		ctx, cb.From.ID, cb.Message.Chat.ID, cb.From.FirstName, cb.From.UserName)
	if err != nil {
		return err
	}

	action, arg := splitCallback(cb.Data)
	defer r.bot.AnswerCallback(cb.ID, "")

	switch action {
	case "suggest":
		return r.handleSuggest(ctx, user)
	case "contact":
		return r.handleContactRequest(ctx, user, arg)
	case "contact_ok":
		return r.handleContactConfirm(ctx, user, arg)
	case "contact_no":
		return r.handleContactCancel(ctx, user, arg)
	case "pay_ok", "pay_no":
		if !r.appCtx.Config.IsAdmin(cb.Message.Chat.ID) {
			return nil
		}
		return r.handlePaymentDecision(ctx, user, action, arg)
	}
	return nil
}
