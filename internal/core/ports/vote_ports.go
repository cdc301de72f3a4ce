package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openballot/api/internal/core/domain"
)

// VoteRepository is the durable store for vote records.
type VoteRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error)
	// GetByEmail returns domain.ErrVoteNotFound when no record exists for
	// the email.
	GetByEmail(ctx context.Context, email string) (*domain.Vote, error)
	Insert(ctx context.Context, vote *domain.Vote) error
	// ConfirmIfPending sets the confirmation timestamp if and only if the
	// vote is still pending. The returned bool reports whether this call
	// performed the transition; either way the current record is returned.
	ConfirmIfPending(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Vote, bool, error)
	// ListConfirmed returns all confirmed, enabled votes ordered by
	// confirmation time, most recent first.
	ListConfirmed(ctx context.Context) ([]*domain.Vote, error)
}

// JobDispatcher hands a vote record to an asynchronous, at-least-once
// downstream processor. No ordering guarantee between jobs.
type JobDispatcher interface {
	Dispatch(ctx context.Context, vote *domain.Vote) error
}

type SubmitVoteInput struct {
	Email                 string
	CountryCode           string
	PrivacyPolicyAccepted bool
	AgeConfirmed          bool
}

type VoteService interface {
	Submit(ctx context.Context, input SubmitVoteInput) (*domain.Vote, error)
	Confirm(ctx context.Context, id uuid.UUID) (domain.PublicVote, error)
	RefreshAll(ctx context.Context) error
	ListByCountry(countryCode string) []domain.PublicVote
	Stats() domain.Stats
}
