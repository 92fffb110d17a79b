package match

import (
	"context"
	"math/rand"

	"github.com/mortza214/dating-bot-sub000/internal/app"
	"github.com/mortza214/dating-bot-sub000/internal/db"
	domainErr "github.com/mortza214/dating-bot-sub000/internal/errors"
	"github.com/mortza214/dating-bot-sub000/internal/gender"
	"github.com/mortza214/dating-bot-sub000/internal/repository"
	"github.com/mortza214/dating-bot-sub000/internal/utils/digits"
)

// Service is the candidate matcher: given a requesting user it produces
// at most one new candidate, or ErrNoCandidate.
type Service struct {
	appCtx      *app.AppContext
	users       *repository.UserRepository
	filters     *repository.FilterRepository
	suggestions *repository.SuggestionRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:      appCtx,
		users:       repository.NewUserRepository(appCtx.DB),
		filters:     repository.NewFilterRepository(appCtx.DB),
		suggestions: repository.NewSuggestionRepository(appCtx.DB),
	}
}

// FindSuggestion selects one candidate for the requester and records the
// exposure.
//
// Behavior:
//   - Exclusion set = every candidate already shown to this user, plus
//     the user themself. Exposed candidates never resurface.
//   - Active filters form a hard conjunctive predicate; an empty result
//     is ErrNoCandidate, never a fallback to default logic.
//   - Without active filters: opposite gender of the requester, or
//     anyone when the requester has no gender set.
//   - Selection among eligibles is uniform random.
func (s *Service) FindSuggestion(ctx context.Context, requester *db.User) (*db.User, error) {
	f, err := s.filters.Get(ctx, requester.ID)
	if err != nil {
		return nil, err
	}

	shown, err := s.suggestions.ShownIDs(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	exclude := append(shown, requester.ID)

	query := repository.CandidateQuery{
		ExcludeIDs: exclude,
		PoolSize:   s.appCtx.Config.Pricing.SuggestionPool,
	}

	if f.Active() {
		query.Gender = gender.Canonical(f.Gender)
		if query.Gender == gender.Unknown && f.Gender != "" {
			// A gender filter that normalizes to nothing can match no
			// stored row; honor the hard-gate and report none.
			s.appCtx.Logger.Warn("unmatchable gender filter", "user_id", requester.ID, "raw", f.Gender)
			return nil, domainErr.ErrNoCandidate
		}
		query.Cities = f.Cities()
		if n, ok := digits.ParseInt(f.MinAge); ok {
			query.MinAge = n
		}
		if n, ok := digits.ParseInt(f.MaxAge); ok {
			query.MaxAge = n
		}
	} else {
		// Default logic only when no filter dimension is set.
		query.Gender = gender.Opposite(requester.Gender)
	}

	pool, err := s.users.FindCandidates(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		s.appCtx.Logger.Debug("no eligible candidate",
			"user_id", requester.ID, "filtered", f.Active())
		return nil, domainErr.ErrNoCandidate
	}

	candidate := pool[rand.Intn(len(pool))]

	if err := s.suggestions.RecordExposure(ctx, requester.ID, candidate.ID); err != nil {
		// Exposure recording is part of the contract: without it the
		// same candidate could loop forever. Fail the whole operation.
		return nil, err
	}
	if _, err := s.appCtx.RedisCache.IncrSuggestionCount(ctx, requester.ID); err != nil {
		s.appCtx.Logger.Debug("suggestion counter update failed", "err", err)
	}

	s.appCtx.Logger.Info("suggestion made",
		"user_id", requester.ID, "candidate_id", candidate.ID)
	return &candidate, nil
}
