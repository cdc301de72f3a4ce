package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/openballot/api/internal/core/domain"
	"github.com/openballot/api/internal/core/ports"
)

const uniqueViolation = "23505"

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT id, email, country_code, privacy_policy_accepted, age_confirmed, created_at, confirmed_at, disabled
		FROM votes
		WHERE id = $1
	`
	vote, err := r.scanVote(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return vote, nil
}

func (r *voteRepository) GetByEmail(ctx context.Context, email string) (*domain.Vote, error) {
	query := `
		SELECT id, email, country_code, privacy_policy_accepted, age_confirmed, created_at, confirmed_at, disabled
		FROM votes
		WHERE lower(email) = lower($1)
	`
	vote, err := r.scanVote(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote by email: %w", err)
	}
	return vote, nil
}

func (r *voteRepository) Insert(ctx context.Context, vote *domain.Vote) error {
	query := `
		INSERT INTO votes (id, email, country_code, privacy_policy_accepted, age_confirmed, created_at, confirmed_at, disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		vote.ID, vote.Email, vote.CountryCode,
		vote.PrivacyPolicyAccepted, vote.AgeConfirmed,
		vote.CreatedAt, vote.ConfirmedAt, vote.Disabled,
	)
	if err != nil {
		// The unique index on lower(email) closes the window between
		// the existence pre-check and this insert.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (r *voteRepository) ConfirmIfPending(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Vote, bool, error) {
	query := `
		UPDATE votes
		SET confirmed_at = $2
		WHERE id = $1 AND confirmed_at IS NULL
		RETURNING id, email, country_code, privacy_policy_accepted, age_confirmed, created_at, confirmed_at, disabled
	`
	vote, err := r.scanVote(r.db.QueryRowContext(ctx, query, id, at))
	if err == nil {
		return vote, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to confirm vote: %w", err)
	}

	// Already confirmed, or gone. Re-read to tell the two apart.
	vote, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return vote, false, nil
}

func (r *voteRepository) ListConfirmed(ctx context.Context) ([]*domain.Vote, error) {
	query := `
		SELECT id, email, country_code, privacy_policy_accepted, age_confirmed, created_at, confirmed_at, disabled
		FROM votes
		WHERE confirmed_at IS NOT NULL AND disabled = FALSE
		ORDER BY confirmed_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed votes: %w", err)
	}
	defer rows.Close()

	var votes []*domain.Vote
	for rows.Next() {
		vote, err := r.scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *voteRepository) scanVote(row rowScanner) (*domain.Vote, error) {
	var vote domain.Vote
	var confirmedAt sql.NullTime
	err := row.Scan(
		&vote.ID, &vote.Email, &vote.CountryCode,
		&vote.PrivacyPolicyAccepted, &vote.AgeConfirmed,
		&vote.CreatedAt, &confirmedAt, &vote.Disabled,
	)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		vote.ConfirmedAt = &confirmedAt.Time
	}
	return &vote, nil
}
