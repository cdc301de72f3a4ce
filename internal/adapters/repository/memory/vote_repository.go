// Package memory provides an in-memory VoteRepository with the same
// observable behavior as the postgres adapter, including the unique-email
// constraint and the conditional confirmation update. Used by unit tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openballot/api/internal/core/domain"
)

type VoteRepository struct {
	mu    sync.Mutex
	votes map[uuid.UUID]domain.Vote
}

func NewVoteRepository() *VoteRepository {
	return &VoteRepository{
		votes: make(map[uuid.UUID]domain.Vote),
	}
}

func (r *VoteRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vote, ok := r.votes[id]
	if !ok {
		return nil, domain.ErrVoteNotFound
	}
	return copyVote(vote), nil
}

func (r *VoteRepository) GetByEmail(_ context.Context, email string) (*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, vote := range r.votes {
		if strings.EqualFold(vote.Email, email) {
			return copyVote(vote), nil
		}
	}
	return nil, domain.ErrVoteNotFound
}

func (r *VoteRepository) Insert(_ context.Context, vote *domain.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.votes {
		if strings.EqualFold(existing.Email, vote.Email) {
			return domain.ErrAlreadyVoted
		}
	}
	r.votes[vote.ID] = *vote
	return nil
}

func (r *VoteRepository) ConfirmIfPending(_ context.Context, id uuid.UUID, at time.Time) (*domain.Vote, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vote, ok := r.votes[id]
	if !ok {
		return nil, false, domain.ErrVoteNotFound
	}
	if vote.ConfirmedAt != nil {
		return copyVote(vote), false, nil
	}
	vote.ConfirmedAt = &at
	r.votes[id] = vote
	return copyVote(vote), true, nil
}

func (r *VoteRepository) ListConfirmed(_ context.Context) ([]*domain.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var votes []*domain.Vote
	for _, vote := range r.votes {
		if vote.ConfirmedAt == nil || vote.Disabled {
			continue
		}
		votes = append(votes, copyVote(vote))
	}
	sort.Slice(votes, func(i, j int) bool {
		return votes[i].ConfirmedAt.After(*votes[j].ConfirmedAt)
	})
	return votes, nil
}

// Disable flips the admin flag on a stored vote. Not part of the
// repository port; tests use it to seed disabled records.
func (r *VoteRepository) Disable(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if vote, ok := r.votes[id]; ok {
		vote.Disabled = true
		r.votes[id] = vote
	}
}

func copyVote(vote domain.Vote) *domain.Vote {
	if vote.ConfirmedAt != nil {
		t := *vote.ConfirmedAt
		vote.ConfirmedAt = &t
	}
	return &vote
}
