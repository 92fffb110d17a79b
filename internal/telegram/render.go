package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/gender"
	"github.com/mortza214/dating-bot-sub000/internal/service/profile"
)

// Button labels. The main menu is a reply keyboard; per-candidate and
// per-request actions are inline keyboards with compact callback data.
const (
	btnSuggest = "💝 پیشنهاد همسر"
	btnProfile = "👤 پروفایل من"
	btnWallet  = "💰 کیف پول"
	btnFilters = "🔎 فیلترها"
	btnInvite  = "🎁 دعوت دوستان"

	btnSkip = "⏭ رد شدن"
	btnPrev = "⬅️ قبلی"
	btnExit = "💾 ذخیره و بازگشت"

	btnTopUp       = "➕ شارژ کیف پول"
	btnTxHistory   = "📄 تراکنش‌ها"
	btnClearFilter = "🗑 حذف فیلترها"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSuggest),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnProfile),
			tgbotapi.NewKeyboardButton(btnWallet),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnFilters),
			tgbotapi.NewKeyboardButton(btnInvite),
		),
	)
}

func wizardKeyboard(step *profile.Step) tgbotapi.ReplyKeyboardMarkup {
	row := []tgbotapi.KeyboardButton{}
	if step.Index > 0 {
		row = append(row, tgbotapi.NewKeyboardButton(btnPrev))
	}
	if !step.Field.IsRequired {
		row = append(row, tgbotapi.NewKeyboardButton(btnSkip))
	}
	rows := [][]tgbotapi.KeyboardButton{}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnExit)))
	return tgbotapi.NewReplyKeyboard(rows...)
}

func stepPrompt(step *profile.Step) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%d/%d) %s را وارد کنید:", step.Index+1, step.Total, step.Field.FieldLabel)
	if step.Field.FieldType == db.FieldSelect {
		sb.WriteString("\n")
		for i, opt := range step.Options {
			fmt.Fprintf(&sb, "\n%d. %s", i+1, opt)
		}
		sb.WriteString("\n\nشماره گزینه را بفرستید.")
	}
	return sb.String()
}

// candidateCard renders the public view of a suggested profile: no
// contact details, hidden fields omitted.
func candidateCard(candidate *db.User, values map[string]string, fields []db.ProfileField) string {
	var sb strings.Builder
	sb.WriteString("✨ پیشنهاد جدید:\n")
	fmt.Fprintf(&sb, "\nنام: %s", displayOr(candidate.FirstName, "—"))
	if g := gender.Canonical(candidate.Gender); g != gender.Unknown {
		fmt.Fprintf(&sb, "\nجنسیت: %s", genderLabel(g))
	}
	if candidate.Age > 0 {
		fmt.Fprintf(&sb, "\nسن: %d", candidate.Age)
	}
	if candidate.City != "" {
		fmt.Fprintf(&sb, "\nشهر: %s", candidate.City)
	}
	for _, f := range fields {
		if f.IsHiddenForNonSubscribers {
			continue
		}
		switch f.FieldName {
		case "gender", "city", "age":
			continue // already rendered from the user row
		}
		if v := values[f.FieldName]; v != "" {
			fmt.Fprintf(&sb, "\n%s: %s", f.FieldLabel, v)
		}
	}
	return sb.String()
}

func candidateKeyboard(candidateID uint64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 دریافت اطلاعات تماس", fmt.Sprintf("contact:%d", candidateID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏩ پیشنهاد بعدی", "suggest"),
		),
	)
}

func confirmKeyboard(candidateID uint64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ تایید و پرداخت", fmt.Sprintf("contact_ok:%d", candidateID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ انصراف", fmt.Sprintf("contact_no:%d", candidateID)),
		),
	)
}

func paymentReviewKeyboard(requestID uint64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ تایید", fmt.Sprintf("pay_ok:%d", requestID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ رد", fmt.Sprintf("pay_no:%d", requestID)),
		),
	)
}

func walletKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnTopUp),
			tgbotapi.NewKeyboardButton(btnTxHistory),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSuggest),
		),
	)
}

// contactCard renders the full reveal after a purchase (or free
// re-view): username and every stored field, hidden ones included.
func contactCard(candidate *db.User, values map[string]string, fields []db.ProfileField) string {
	var sb strings.Builder
	sb.WriteString("📱 اطلاعات تماس:\n")
	fmt.Fprintf(&sb, "\nنام: %s", displayOr(candidate.FirstName, "—"))
	if candidate.Username != "" {
		fmt.Fprintf(&sb, "\nآیدی تلگرام: @%s", candidate.Username)
	}
	for _, f := range fields {
		if v := values[f.FieldName]; v != "" {
			fmt.Fprintf(&sb, "\n%s: %s", f.FieldLabel, v)
		}
	}
	return sb.String()
}

func genderLabel(canonical string) string {
	switch canonical {
	case gender.Male:
		return "مرد"
	case gender.Female:
		return "زن"
	}
	return "—"
}

func displayOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
