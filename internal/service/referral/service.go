package referral

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/wallet"
)

// Service pays the one-time referrer bonus and manages invite codes.
type Service struct {
	appCtx    *app.AppContext
	referrals *repository.ReferralRepository
	users     *repository.UserRepository
	wallets   *wallet.Service
}

func NewService(appCtx *app.AppContext, wallets *wallet.Service) *Service {
	return &Service{
		appCtx:    appCtx,
		referrals: repository.NewReferralRepository(appCtx.DB),
		users:     repository.NewUserRepository(appCtx.DB),
		wallets:   wallets,
	}
}

// InviteCode returns the user's invite code, generating it lazily.
func (s *Service) InviteCode(ctx context.Context, userID uint64) (string, error) {
	return s.users.EnsureInviteCode(ctx, userID)
}

// Attach links a new user to a referrer via the invite code carried in
// the /start parameter. Unknown codes are ignored: a bad deep link must
// not break onboarding.
func (s *Service) Attach(ctx context.Context, newUserID uint64, inviteCode string) error {
	if inviteCode == "" {
		return nil
	}
	referrer, err := s.users.GetByInviteCode(ctx, inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	created, err := s.referrals.Attach(ctx, referrer.ID, newUserID, inviteCode)
	if err != nil {
		return err
	}
	if !created {
		// Self-referral or already referred: the user row must keep
		// naming the same referrer the referral row does.
		return nil
	}

	// Keep the denormalized back-reference on the user row in step.
	return s.users.Update(ctx, newUserID, map[string]any{"referred_by": referrer.ID})
}

// OnQualifyingPurchase runs after any wallet-charging event that counts
// as a first purchase (contact purchase, approved top-up).
//
// Behavior:
//   - No-op unless the purchaser was referred and the bonus is unpaid.
//   - Credits the referrer 10% (configurable) of the purchase amount and
//     flips has_purchased in one transaction, so the bonus is paid at
//     most once no matter how many purchases race.
func (s *Service) OnQualifyingPurchase(ctx context.Context, purchaserID uint64, amount int64) error {
	bonus := amount * s.appCtx.Config.Pricing.ReferralPct / 100
	if bonus <= 0 {
		return nil
	}

	var referrerID uint64
	claimed, err := s.referrals.ClaimFirstPurchase(ctx, purchaserID, bonus, func(tx *gorm.DB, ref *db.Referral) error {
		referrerID = ref.ReferrerID
		desc := fmt.Sprintf("پاداش معرفی کاربر %d", ref.ReferredID)
		_, err := s.wallets.Repo().ChargeTx(tx, ref.ReferrerID, bonus, desc, db.TxReferralBonus)
		return err
	})
	if err != nil {
		return fmt.Errorf("referral bonus payout: %w", err)
	}
	if claimed {
		_ = s.appCtx.RedisCache.InvalidateBalance(ctx, referrerID)
		s.appCtx.Logger.Info("referral bonus paid",
			"purchaser_id", purchaserID, "referrer_id", referrerID, "bonus", bonus)
	}
	return nil
}
