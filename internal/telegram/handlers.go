package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/contact"
	"github.com/mortza214/dating-bot-sub000/internal/service/profile"
	"github.com/mortza214/dating-bot-sub000/internal/state"
	"github.com/mortza214/dating-bot-sub000/internal/utils/digits"
)

// --- onboarding ---

func (r *Router) handleStart(ctx context.Context, user *db.User, payload string) error {
	if payload != "" {
		if err := r.referrals.Attach(ctx, user.ID, strings.TrimSpace(payload)); err != nil {
			r.appCtx.Logger.Warn("referral attach failed", "user_id", user.ID, "err", err)
		}
	}

	if !user.IsProfileCompleted {
		_ = r.bot.SendText(user.ChatID,
			"سلام! 👋 برای شروع، لطفا پروفایل خود را تکمیل کنید.", nil)
		return r.beginWizard(ctx, user)
	}
	return r.showMainMenu(ctx, user)
}

func (r *Router) showMainMenu(ctx context.Context, user *db.User) error {
	if err := r.users.SetState(ctx, user.ID, state.MainMenu); err != nil {
		return err
	}
	return r.bot.SendText(user.ChatID, "منوی اصلی:", mainMenuKeyboard())
}

// --- main menu ---

func (r *Router) handleMainMenu(ctx context.Context, user *db.User, text string) error {
	switch text {
	case btnSuggest:
		return r.handleSuggest(ctx, user)
	case btnProfile:
		return r.beginWizard(ctx, user)
	case btnWallet:
		return r.showWallet(ctx, user)
	case btnFilters:
		return r.showFilterMenu(ctx, user)
	case btnInvite:
		return r.showInviteLink(ctx, user)
	case btnTopUp:
		if err := r.users.SetState(ctx, user.ID, state.AwaitingTopUp); err != nil {
			return err
		}
		return r.bot.SendText(user.ChatID,
			"مبلغ واریزی را به تومان وارد کنید. پس از بررسی ادمین، کیف پول شما شارژ می‌شود.", nil)
	case btnTxHistory:
		return r.handleTxHistory(ctx, user)
	}
	return r.showMainMenu(ctx, user)
}

// --- suggestions ---

func (r *Router) handleSuggest(ctx context.Context, user *db.User) error {
	if !user.IsProfileCompleted {
		_ = r.bot.SendText(user.ChatID,
			"برای دریافت پیشنهاد ابتدا باید پروفایل خود را تکمیل کنید.", nil)
		return r.beginWizard(ctx, user)
	}

	candidate, err := r.matcher.FindSuggestion(ctx, user)
	if err != nil {
		if domainErr.Is(err, domainErr.ErrNoCandidate) {
			return r.bot.SendText(user.ChatID, domainErr.UserMessage(err), mainMenuKeyboard())
		}
		return r.fail(user, err)
	}

	values, err := r.fields.Values(ctx, candidate.ID)
	if err != nil {
		return r.fail(user, err)
	}
	fields, err := r.fields.ActiveFields(ctx)
	if err != nil {
		return r.fail(user, err)
	}
	return r.bot.SendText(user.ChatID,
		candidateCard(candidate, values, fields), candidateKeyboard(candidate.ID))
}

// --- contact purchase flow ---

func (r *Router) handleContactRequest(ctx context.Context, user *db.User, candidateID uint64) error {
	if candidateID == 0 {
		return nil
	}
	out, err := r.contacts.Request(ctx, user.ID, candidateID)
	if err != nil {
		return r.fail(user, err)
	}
	return r.renderContactOutcome(ctx, user, candidateID, out)
}

func (r *Router) handleContactConfirm(ctx context.Context, user *db.User, candidateID uint64) error {
	if candidateID == 0 {
		return nil
	}
	out, err := r.contacts.Confirm(ctx, user.ID, candidateID)
	if err != nil {
		if domainErr.Is(err, domainErr.ErrInsufficientFunds) {
			// race lost the balance between quote and confirm
			return r.bot.SendText(user.ChatID, domainErr.UserMessage(err), walletKeyboard())
		}
		return r.fail(user, err)
	}
	return r.renderContactOutcome(ctx, user, candidateID, out)
}

func (r *Router) handleContactCancel(ctx context.Context, user *db.User, candidateID uint64) error {
	if err := r.contacts.Cancel(ctx, user.ID, candidateID); err != nil {
		return err
	}
	return r.bot.SendText(user.ChatID, "لغو شد.", mainMenuKeyboard())
}

func (r *Router) renderContactOutcome(ctx context.Context, user *db.User, candidateID uint64, out contact.Outcome) error {
	switch out.Status {
	case contact.StatusBlocked:
		text := fmt.Sprintf(
			"هزینه دریافت اطلاعات تماس %d تومان است اما موجودی شما %d تومان است.\nلطفا ابتدا کیف پول خود را شارژ کنید.",
			out.Cost, out.Balance)
		return r.bot.SendText(user.ChatID, text, walletKeyboard())

	case contact.StatusPendingConfirmation:
		text := fmt.Sprintf(
			"هزینه دریافت اطلاعات تماس: %d تومان\nموجودی فعلی شما: %d تومان\n\nادامه می‌دهید؟",
			out.Cost, out.Balance)
		return r.bot.SendText(user.ChatID, text, confirmKeyboard(candidateID))

	case contact.StatusRevealedFree, contact.StatusRevealedPaid:
		values, err := r.fields.Values(ctx, out.Candidate.ID)
		if err != nil {
			return r.fail(user, err)
		}
		fields, err := r.fields.ActiveFields(ctx)
		if err != nil {
			return r.fail(user, err)
		}
		text := contactCard(out.Candidate, values, fields)
		if out.Status == contact.StatusRevealedFree {
			text += "\n\n(این اطلاعات قبلا خریداری شده و نمایش مجدد آن رایگان است.)"
		}
		return r.bot.SendText(user.ChatID, text, mainMenuKeyboard())
	}
	return nil
}

// --- wallet ---

func (r *Router) showWallet(ctx context.Context, user *db.User) error {
	balance, err := r.wallets.DisplayBalance(ctx, user.ID)
	if err != nil {
		return r.fail(user, err)
	}
	text := fmt.Sprintf("💰 موجودی کیف پول شما: %d تومان", balance)
	return r.bot.SendText(user.ChatID, text, walletKeyboard())
}

const txPageSize = 5

func (r *Router) handleTxHistory(ctx context.Context, user *db.User) error {
	txs, next, err := r.wallets.History(ctx, user.ID, nil, txPageSize)
	if err != nil {
		return r.fail(user, err)
	}
	if len(txs) == 0 {
		return r.bot.SendText(user.ChatID, "هنوز تراکنشی ثبت نشده است.", walletKeyboard())
	}

	var sb strings.Builder
	sb.WriteString("📄 تراکنش‌های اخیر:\n")
	for _, tx := range txs {
		fmt.Fprintf(&sb, "\n%s | %+d تومان | %s",
			tx.CreatedAt.Format("2006-01-02"), tx.Amount, txTypeLabel(tx.Type))
	}
	if next != nil {
		fmt.Fprintf(&sb, "\n\n(فقط %d تراکنش اخیر نمایش داده می‌شود.)", txPageSize)
	}
	return r.bot.SendText(user.ChatID, sb.String(), walletKeyboard())
}

func txTypeLabel(t string) string {
	switch t {
	case db.TxCharge:
		return "شارژ"
	case db.TxPurchase:
		return "خرید اطلاعات تماس"
	case db.TxReferralBonus:
		return "پاداش معرفی"
	case db.TxWithdraw:
		return "برداشت"
	}
	return t
}

func (r *Router) handleTopUpAmount(ctx context.Context, user *db.User, text string) error {
	amount, ok := digits.ParseInt(text)
	if !ok || amount <= 0 {
		return r.bot.SendText(user.ChatID, domainErr.UserMessage(domainErr.ErrInvalidInput), nil)
	}

	req, err := r.payments.Declare(ctx, user.ID, int64(amount))
	if err != nil {
		return r.fail(user, err)
	}

	for _, adminChat := range r.appCtx.Config.Bot.AdminChatIDs {
		text := fmt.Sprintf("درخواست شارژ جدید:\nکاربر: %d\nمبلغ: %d تومان", user.ID, req.Amount)
		if err := r.bot.SendText(adminChat, text, paymentReviewKeyboard(req.ID)); err != nil {
			r.appCtx.Logger.Warn("admin notify failed", "chat_id", adminChat, "err", err)
		}
	}

	_ = r.bot.SendText(user.ChatID,
		"درخواست شما ثبت شد و پس از تایید ادمین، کیف پول شما شارژ می‌شود.", mainMenuKeyboard())
	return r.users.SetState(ctx, user.ID, state.MainMenu)
}

// --- filters ---

func (r *Router) showFilterMenu(ctx context.Context, user *db.User) error {
	f, err := r.filters.Get(ctx, user.ID)
	if err != nil {
		return r.fail(user, err)
	}
	if err := r.users.SetState(ctx, user.ID, state.FilterMenu); err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("🔎 فیلترهای فعلی شما:\n")
	fmt.Fprintf(&sb, "\nجنسیت: %s", displayOr(f.Gender, "همه"))
	fmt.Fprintf(&sb, "\nسن: %s تا %s", displayOr(f.MinAge, "—"), displayOr(f.MaxAge, "—"))
	fmt.Fprintf(&sb, "\nشهرها: %s", displayOr(strings.Join(f.Cities(), "، "), "همه"))
	sb.WriteString("\n\nبرای تغییر:")
	sb.WriteString("\n«فقط زن» یا «فقط مرد» — فیلتر جنسیت")
	sb.WriteString("\n«سن» — محدوده سنی")
	sb.WriteString("\n«شهر تهران» — افزودن شهر")
	sb.WriteString("\n«" + btnClearFilter + "» — حذف همه فیلترها")
	sb.WriteString("\n«بازگشت» — منوی اصلی")
	return r.bot.SendText(user.ChatID, sb.String(), nil)
}

func (r *Router) handleFilterMenu(ctx context.Context, user *db.User, text string) error {
	f, err := r.filters.Get(ctx, user.ID)
	if err != nil {
		return r.fail(user, err)
	}

	switch {
	case text == "فقط زن":
		f.Gender = "زن"
	case text == "فقط مرد":
		f.Gender = "مرد"
	case text == "سن":
		if err := r.users.SetState(ctx, user.ID, state.AwaitingFilterAge); err != nil {
			return err
		}
		return r.bot.SendText(user.ChatID,
			"محدوده سنی را به شکل «۲۵-۳۵» وارد کنید.", nil)
	case strings.HasPrefix(text, "شهر "):
		city := strings.TrimSpace(strings.TrimPrefix(text, "شهر "))
		if city != "" {
			f.City = append(f.City, city)
		}
	case text == btnClearFilter:
		f = repository.Filters{City: []string{}}
	case text == "بازگشت":
		return r.showMainMenu(ctx, user)
	default:
		return r.showFilterMenu(ctx, user)
	}

	if err := r.filters.Save(ctx, user.ID, f); err != nil {
		return r.fail(user, err)
	}
	return r.showFilterMenu(ctx, user)
}

func (r *Router) handleFilterAge(ctx context.Context, user *db.User, text string) error {
	parts := strings.SplitN(digits.Normalize(text), "-", 2)
	if len(parts) != 2 {
		return r.bot.SendText(user.ChatID, domainErr.UserMessage(domainErr.ErrInvalidInput), nil)
	}
	min, okMin := digits.ParseInt(parts[0])
	max, okMax := digits.ParseInt(parts[1])
	if !okMin || !okMax || min <= 0 || max < min {
		return r.bot.SendText(user.ChatID, domainErr.UserMessage(domainErr.ErrInvalidInput), nil)
	}

	f, err := r.filters.Get(ctx, user.ID)
	if err != nil {
		return r.fail(user, err)
	}
	f.MinAge = strconv.Itoa(min)
	f.MaxAge = strconv.Itoa(max)
	if err := r.filters.Save(ctx, user.ID, f); err != nil {
		return r.fail(user, err)
	}
	return r.showFilterMenu(ctx, user)
}

// --- invite ---

func (r *Router) showInviteLink(ctx context.Context, user *db.User) error {
	code, err := r.referrals.InviteCode(ctx, user.ID)
	if err != nil {
		return r.fail(user, err)
	}
	link := fmt.Sprintf("https://t.me/%s?start=%s", r.bot.Username(), code)
	text := fmt.Sprintf(
		"🎁 دوستان خود را دعوت کنید!\nبا اولین خرید هر دوستی که با لینک شما عضو شود، ۱۰٪ مبلغ خرید به کیف پول شما اضافه می‌شود.\n\n%s",
		link)
	return r.bot.SendText(user.ChatID, text, mainMenuKeyboard())
}

// --- profile wizard ---

func (r *Router) beginWizard(ctx context.Context, user *db.User) error {
	step, err := r.profiles.Begin(ctx, user)
	if err != nil {
		return r.fail(user, err)
	}
	return r.sendStep(user, step)
}

func (r *Router) handleWizardInput(ctx context.Context, user *db.User, text string) error {
	var (
		step *profile.Step
		err  error
	)
	switch text {
	case btnSkip:
		step, err = r.profiles.Skip(ctx, user)
	case btnPrev:
		step, err = r.profiles.Prev(ctx, user)
	case btnExit:
		err = r.profiles.SaveAndExit(ctx, user)
	default:
		step, err = r.profiles.Input(ctx, user, text)
	}

	if err != nil {
		if domainErr.Is(err, domainErr.ErrInvalidInput) || domainErr.Is(err, domainErr.ErrSkipRequired) {
			_ = r.bot.SendText(user.ChatID, domainErr.UserMessage(err), nil)
			return r.sendStep(user, step)
		}
		return r.fail(user, err)
	}
	return r.sendStep(user, step)
}

// sendStep renders the current wizard position, or the main menu when
// the wizard has finished.
func (r *Router) sendStep(user *db.User, step *profile.Step) error {
	if step == nil {
		text := "پروفایل شما ذخیره شد. ✅"
		if !user.IsProfileCompleted {
			text = "پروفایل شما ذخیره شد اما هنوز کامل نیست؛ فیلدهای اجباری را تکمیل کنید."
		}
		return r.bot.SendText(user.ChatID, text, mainMenuKeyboard())
	}
	return r.bot.SendText(user.ChatID, stepPrompt(step), wizardKeyboard(step))
}

// --- admin ---

func (r *Router) handlePendingPayments(ctx context.Context, user *db.User) error {
	reqs, err := r.payments.Pending(ctx)
	if err != nil {
		return r.fail(user, err)
	}
	if len(reqs) == 0 {
		return r.bot.SendText(user.ChatID, "درخواست در انتظاری وجود ندارد.", nil)
	}
	for _, req := range reqs {
		text := fmt.Sprintf("درخواست %d:\nکاربر: %d\nمبلغ: %d تومان", req.ID, req.UserID, req.Amount)
		if err := r.bot.SendText(user.ChatID, text, paymentReviewKeyboard(req.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) handlePaymentDecision(ctx context.Context, admin *db.User, action string, requestID uint64) error {
	if requestID == 0 {
		return nil
	}

	var (
		req *db.PaymentRequest
		err error
	)
	if action == "pay_ok" {
		req, err = r.payments.Approve(ctx, requestID, admin.ChatID)
	} else {
		req, err = r.payments.Reject(ctx, requestID, admin.ChatID)
	}
	if err != nil {
		return r.fail(admin, err)
	}

	// tell the requesting user
	target, err := r.users.GetByID(ctx, req.UserID)
	if err == nil {
		text := "✅ درخواست شارژ شما تایید شد."
		if req.Status == db.PaymentRejected {
			text = "❌ درخواست شارژ شما رد شد."
		}
		_ = r.bot.SendText(target.ChatID, text, mainMenuKeyboard())
	}

	return r.bot.SendText(admin.ChatID,
		fmt.Sprintf("درخواست %d بسته شد (%s).", req.ID, req.Status), nil)
}

// handleAddField creates a profile field from
// "name | label | type | required | opt1,opt2". Without arguments it
// starts the step-by-step variant instead.
func (r *Router) handleAddField(ctx context.Context, admin *db.User, args string) error {
	if strings.TrimSpace(args) == "" {
		if err := r.users.SetState(ctx, admin.ID, state.AdminAddFieldName); err != nil {
			return err
		}
		return r.bot.SendText(admin.ChatID,
			"نام فیلد جدید را به انگلیسی وارد کنید (مثال: education).", nil)
	}

	parts := strings.Split(args, "|")
	if len(parts) < 3 {
		return r.bot.SendText(admin.ChatID,
			"قالب: /addfield name | label | type | required | options", nil)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	field := db.ProfileField{
		FieldName:  parts[0],
		FieldLabel: parts[1],
		FieldType:  parts[2],
		IsActive:   true,
	}
	if len(parts) > 3 {
		field.IsRequired = parts[3] == "1" || parts[3] == "true"
	}
	if len(parts) > 4 && field.FieldType == db.FieldSelect {
		field.Options = repository.EncodeOptions(strings.Split(parts[4], ","))
	}

	if err := r.fields.Create(ctx, field); err != nil {
		return r.bot.SendText(admin.ChatID, domainErr.UserMessage(err), nil)
	}
	return r.bot.SendText(admin.ChatID,
		fmt.Sprintf("فیلد «%s» ساخته شد.", field.FieldLabel), nil)
}

// handleAddFieldStep drives the step-by-step field creation: name →
// label → type. The field is inserted inactive after the name step and
// activated once the type lands, so an abandoned wizard never exposes a
// half-defined field to the profile pipeline.
func (r *Router) handleAddFieldStep(ctx context.Context, admin *db.User, st state.State, text string) error {
	text = strings.TrimSpace(text)
	if text == "انصراف" {
		return r.showMainMenu(ctx, admin)
	}

	switch st.Kind {
	case state.KindAdminAddingFieldName:
		field := db.ProfileField{
			FieldName:  text,
			FieldLabel: text,
			FieldType:  db.FieldText,
		}
		if err := r.fields.Create(ctx, field); err != nil {
			if domainErr.Is(err, domainErr.ErrInvalidFieldName) || domainErr.Is(err, domainErr.ErrDuplicateField) {
				return r.bot.SendText(admin.ChatID, domainErr.UserMessage(err), nil)
			}
			return r.fail(admin, err)
		}
		// park it inactive until the type step completes; an explicit
		// update because the column default is active
		if err := r.fields.SetFlags(ctx, text, map[string]any{"is_active": false}); err != nil {
			return r.fail(admin, err)
		}
		if err := r.users.SetState(ctx, admin.ID, state.AdminFieldLabel(text)); err != nil {
			return err
		}
		return r.bot.SendText(admin.ChatID, "برچسب نمایشی فیلد را وارد کنید:", nil)

	case state.KindAdminAddingFieldLabel:
		if text == "" {
			return r.bot.SendText(admin.ChatID, domainErr.UserMessage(domainErr.ErrInvalidInput), nil)
		}
		if err := r.fields.SetFlags(ctx, st.Field, map[string]any{"field_label": text}); err != nil {
			return r.fail(admin, err)
		}
		if err := r.users.SetState(ctx, admin.ID, state.AdminFieldType(st.Field)); err != nil {
			return err
		}
		return r.bot.SendText(admin.ChatID,
			"نوع فیلد را وارد کنید: text / number / textarea یا «select گزینه۱,گزینه۲»", nil)

	case state.KindAdminAddingFieldType:
		flags := map[string]any{"is_active": true}
		parts := strings.Fields(text)
		switch {
		case len(parts) == 1 && (parts[0] == db.FieldText || parts[0] == db.FieldNumber || parts[0] == db.FieldTextarea):
			flags["field_type"] = parts[0]
		case len(parts) == 2 && parts[0] == db.FieldSelect:
			flags["field_type"] = db.FieldSelect
			flags["options"] = repository.EncodeOptions(strings.Split(parts[1], ","))
		default:
			return r.bot.SendText(admin.ChatID, domainErr.UserMessage(domainErr.ErrInvalidInput), nil)
		}
		if err := r.fields.SetFlags(ctx, st.Field, flags); err != nil {
			return r.fail(admin, err)
		}
		_ = r.bot.SendText(admin.ChatID, fmt.Sprintf("فیلد «%s» فعال شد.", st.Field), nil)
		return r.showMainMenu(ctx, admin)
	}
	return r.showMainMenu(ctx, admin)
}

// handleToggleField flips is_active for "name on|off".
func (r *Router) handleToggleField(ctx context.Context, admin *db.User, args string) error {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return r.bot.SendText(admin.ChatID, "قالب: /togglefield name on|off", nil)
	}
	active := parts[1] == "on"
	if err := r.fields.SetFlags(ctx, parts[0], map[string]any{"is_active": active}); err != nil {
		return r.bot.SendText(admin.ChatID, domainErr.UserMessage(err), nil)
	}
	return r.bot.SendText(admin.ChatID, "انجام شد.", nil)
}

// --- helpers ---

// fail reports an unexpected error to the user with a safe way back to
// the menu, and bubbles it up for logging.
func (r *Router) fail(user *db.User, err error) error {
	_ = r.bot.SendText(user.ChatID, domainErr.UserMessage(err), mainMenuKeyboard())
	return err
}

func splitCallback(data string) (string, uint64) {
	action, rest, found := strings.Cut(data, ":")
	if !found {
		return data, 0
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return action, 0
	}
	return action, id
}
