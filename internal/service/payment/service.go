package payment

import (
	"context"
	"fmt"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/referral"
	"github.com/mortza214/dating-bot-sub000/internal/service/wallet"
)

// Service runs the manual top-up workflow: users declare a payment,
// admins approve or reject. No gateway integration — approval is the
// admin's judgment.
type Service struct {
	appCtx    *app.AppContext
	payments  *repository.PaymentRepository
	wallets   *wallet.Service
	referrals *referral.Service
}

func NewService(appCtx *app.AppContext, wallets *wallet.Service, referrals *referral.Service) *Service {
	return &Service{
		appCtx:    appCtx,
		payments:  repository.NewPaymentRepository(appCtx.DB),
		wallets:   wallets,
		referrals: referrals,
	}
}

// Declare opens a pending request for admin review.
func (s *Service) Declare(ctx context.Context, userID uint64, amount int64) (*db.PaymentRequest, error) {
	return s.payments.Create(ctx, userID, amount)
}

// Pending lists requests awaiting review.
func (s *Service) Pending(ctx context.Context) ([]db.PaymentRequest, error) {
	return s.payments.Pending(ctx)
}

// Approve charges the user's wallet and counts as a qualifying purchase
// for the referral engine. The conditional resolve makes a double-tapped
// approve button charge only once.
func (s *Service) Approve(ctx context.Context, requestID uint64, adminChatID int64) (*db.PaymentRequest, error) {
	req, resolved, err := s.payments.Resolve(ctx, requestID, db.PaymentApproved, adminChatID)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return req, nil // already handled by another admin or a replay
	}

	desc := fmt.Sprintf("شارژ کیف پول (درخواست %d)", req.ID)
	if err := s.wallets.Charge(ctx, req.UserID, req.Amount, desc, db.TxCharge); err != nil {
		return nil, fmt.Errorf("approve charge: %w", err)
	}

	if err := s.referrals.OnQualifyingPurchase(ctx, req.UserID, req.Amount); err != nil {
		s.appCtx.Logger.Error("referral bonus on approval failed",
			"request_id", req.ID, "err", err)
	}

	s.appCtx.Logger.Info("payment approved",
		"request_id", req.ID, "user_id", req.UserID, "amount", req.Amount)
	return req, nil
}

// Reject closes the request without side effects.
func (s *Service) Reject(ctx context.Context, requestID uint64, adminChatID int64) (*db.PaymentRequest, error) {
	req, _, err := s.payments.Resolve(ctx, requestID, db.PaymentRejected, adminChatID)
	return req, err
}
