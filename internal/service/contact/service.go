package contact

import (
	"context"
	"fmt"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/service/referral"
	"github.com/mortza214/dating-bot-sub000/internal/service/wallet"
)

// Status is the contact-purchase state machine outcome.
type Status int

const (
	// StatusRevealedFree: the pair was purchased before; contact info is
	// shown again at zero cost.
	StatusRevealedFree Status = iota
	// StatusBlocked: wallet balance is below the cost; nothing happened.
	StatusBlocked
	// StatusPendingConfirmation: funds look sufficient; show the quote
	// and wait for an explicit confirm.
	StatusPendingConfirmation
	// StatusRevealedPaid: deduct succeeded, history written, contact
	// info is shown.
	StatusRevealedPaid
)

// Outcome carries everything the presentation layer needs to render the
// result of a request or confirm step.
type Outcome struct {
	Status    Status
	Cost      int64
	Balance   int64
	Candidate *db.User
}

// Service gates full-contact reveal behind the wallet.
type Service struct {
	appCtx      *app.AppContext
	users       *repository.UserRepository
	contacts    *repository.ContactRepository
	suggestions *repository.SuggestionRepository
	wallets     *wallet.Service
	referrals   *referral.Service
}

func NewService(appCtx *app.AppContext, wallets *wallet.Service, referrals *referral.Service) *Service {
	return &Service{
		appCtx:      appCtx,
		users:       repository.NewUserRepository(appCtx.DB),
		contacts:    repository.NewContactRepository(appCtx.DB),
		suggestions: repository.NewSuggestionRepository(appCtx.DB),
		wallets:     wallets,
		referrals:   referrals,
	}
}

func (s *Service) cost() int64 { return s.appCtx.Config.Pricing.ContactCost }

// Request is the first step: free reveal for an already-purchased pair,
// otherwise either a balance block or a confirmation quote. No side
// effects beyond reads.
func (s *Service) Request(ctx context.Context, requesterID, candidateID uint64) (Outcome, error) {
	purchased, err := s.contacts.Exists(ctx, requesterID, candidateID)
	if err != nil {
		return Outcome{}, err
	}
	if purchased {
		return s.reveal(ctx, requesterID, candidateID, StatusRevealedFree)
	}

	balance, err := s.wallets.DisplayBalance(ctx, requesterID)
	if err != nil {
		return Outcome{}, err
	}
	if balance < s.cost() {
		return Outcome{Status: StatusBlocked, Cost: s.cost(), Balance: balance}, nil
	}
	return Outcome{Status: StatusPendingConfirmation, Cost: s.cost(), Balance: balance}, nil
}

// Confirm executes the purchase.
//
// Behavior:
//   - Re-checks purchase history first, so a replayed confirm (crash
//     recovery, double tap) reveals for free instead of double-debiting.
//   - The deduct is the authoritative balance check; a refusal surfaces
//     as ErrInsufficientFunds with no history row and no reveal.
//   - On success: history row, contact_requested flag, referral engine.
func (s *Service) Confirm(ctx context.Context, requesterID, candidateID uint64) (Outcome, error) {
	purchased, err := s.contacts.Exists(ctx, requesterID, candidateID)
	if err != nil {
		return Outcome{}, err
	}
	if purchased {
		return s.reveal(ctx, requesterID, candidateID, StatusRevealedFree)
	}

	cost := s.cost()
	desc := fmt.Sprintf("خرید اطلاعات تماس کاربر %d", candidateID)
	ok, err := s.wallets.Deduct(ctx, requesterID, cost, desc, db.TxPurchase)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		// Race lost the balance between quote and confirm. The caller
		// stays on the confirmation step.
		return Outcome{Status: StatusBlocked, Cost: cost}, domainErr.ErrInsufficientFunds
	}

	if err := s.contacts.Append(ctx, requesterID, candidateID, cost); err != nil {
		// The deduct is already committed; losing the history row would
		// charge the user again later. Surface loudly.
		s.appCtx.Logger.Error("purchase history write failed",
			"user_id", requesterID, "candidate_id", candidateID, "err", err)
		return Outcome{}, err
	}

	if err := s.suggestions.MarkContactRequested(ctx, requesterID, candidateID); err != nil {
		s.appCtx.Logger.Warn("contact_requested flag update failed",
			"user_id", requesterID, "candidate_id", candidateID, "err", err)
	}

	if err := s.referrals.OnQualifyingPurchase(ctx, requesterID, cost); err != nil {
		// Bonus failure must not hide the user's successful purchase;
		// the claim rolled back and a later purchase can retry it.
		s.appCtx.Logger.Error("referral bonus failed", "purchaser_id", requesterID, "err", err)
	}

	s.appCtx.Logger.Info("contact purchased",
		"user_id", requesterID, "candidate_id", candidateID, "cost", cost)
	return s.reveal(ctx, requesterID, candidateID, StatusRevealedPaid)
}

// Cancel returns the pair to the unrequested state. No side effects.
func (s *Service) Cancel(ctx context.Context, requesterID, candidateID uint64) error {
	return nil
}

func (s *Service) reveal(ctx context.Context, requesterID, candidateID uint64, status Status) (Outcome, error) {
	candidate, err := s.users.GetByID(ctx, candidateID)
	if err != nil {
		return Outcome{}, err
	}
	balance, err := s.wallets.DisplayBalance(ctx, requesterID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Status:    status,
		Cost:      s.cost(),
		Balance:   balance,
		Candidate: candidate,
	}, nil
}
