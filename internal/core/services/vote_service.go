package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openballot/api/internal/core/domain"
	"github.com/openballot/api/internal/core/ports"
)

const dispatchTimeout = 5 * time.Second

type voteService struct {
	repo       ports.VoteRepository
	dispatcher ports.JobDispatcher
	cache      *Cache
	logger     *slog.Logger

	// mu orders RefreshAll's store-read-plus-swap against Confirm's
	// store-transition-plus-insert. Without it a rebuild could publish a
	// snapshot read before a concurrent confirmation landed, dropping
	// that vote from the cache until the next refresh.
	mu sync.Mutex
}

func NewVoteService(repo ports.VoteRepository, dispatcher ports.JobDispatcher, cache *Cache, logger *slog.Logger) ports.VoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &voteService{
		repo:       repo,
		dispatcher: dispatcher,
		cache:      cache,
		logger:     logger,
	}
}

func (s *voteService) Submit(ctx context.Context, input ports.SubmitVoteInput) (*domain.Vote, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.ErrInvalidSubmission
	}
	if strings.TrimSpace(input.CountryCode) == "" {
		return nil, domain.ErrInvalidSubmission
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.ErrAlreadyVoted
	}
	if !errors.Is(err, domain.ErrVoteNotFound) {
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}

	if !input.PrivacyPolicyAccepted || !input.AgeConfirmed {
		return nil, domain.ErrConsentRequired
	}

	vote := &domain.Vote{
		ID:                    uuid.New(),
		Email:                 email,
		CountryCode:           input.CountryCode,
		PrivacyPolicyAccepted: input.PrivacyPolicyAccepted,
		AgeConfirmed:          input.AgeConfirmed,
		CreatedAt:             time.Now().UTC(),
		ConfirmedAt:           nil,
		Disabled:              false,
	}
	if err := s.repo.Insert(ctx, vote); err != nil {
		return nil, fmt.Errorf("failed to save vote: %w", err)
	}

	// The vote is persisted; a lost job only delays downstream work,
	// which is at-least-once anyway.
	s.dispatch(ctx, vote)

	return vote, nil
}

func (s *voteService) Confirm(ctx context.Context, id uuid.UUID) (domain.PublicVote, error) {
	vote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrVoteNotFound) {
			return domain.PublicVote{}, domain.ErrVoteNotFound
		}
		return domain.PublicVote{}, fmt.Errorf("failed to load vote: %w", err)
	}

	if vote.Confirmed() {
		return vote.PublicPart(), nil
	}

	// The store decides the race: only the caller whose conditional
	// update lands performs the side effects below. The transition and
	// the cache insert happen under mu so a concurrent rebuild sees
	// either neither or both.
	s.mu.Lock()
	vote, confirmed, err := s.repo.ConfirmIfPending(ctx, id, time.Now().UTC())
	if err != nil {
		s.mu.Unlock()
		return domain.PublicVote{}, fmt.Errorf("failed to confirm vote: %w", err)
	}
	if confirmed {
		s.cache.Insert(vote)
	}
	s.mu.Unlock()

	if confirmed {
		s.dispatch(ctx, vote)
	}

	return vote.PublicPart(), nil
}

func (s *voteService) RefreshAll(ctx context.Context) error {
	// The read must sit inside the same critical section as the swap:
	// a snapshot built from a pre-confirmation read must not overwrite
	// that confirmation's insert.
	s.mu.Lock()
	defer s.mu.Unlock()

	votes, err := s.repo.ListConfirmed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list confirmed votes: %w", err)
	}
	s.cache.Rebuild(votes)
	return nil
}

func (s *voteService) ListByCountry(countryCode string) []domain.PublicVote {
	return s.cache.ByCountry(countryCode)
}

func (s *voteService) Stats() domain.Stats {
	return s.cache.Stats()
}

// dispatch hands the vote to the job dispatcher with its own deadline,
// detached from the request context so a slow dispatcher cannot hold the
// response path. Failures are logged and swallowed; they never undo the
// store write and never fail the caller's request.
func (s *voteService) dispatch(ctx context.Context, vote *domain.Vote) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(dctx, vote); err != nil {
		s.logger.Error("vote job dispatch failed",
			"vote_id", vote.ID,
			"error", err,
		)
	}
}
