// Package outbox dispatches vote jobs by writing them to a vote_jobs
// table in the same database. A downstream consumer drains the table
// at-least-once; rows keep their dispatched_at NULL until then.
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/openballot/api/internal/core/domain"
	"github.com/openballot/api/internal/core/ports"
)

type dispatcher struct {
	db *sql.DB
}

func NewDispatcher(db *sql.DB) ports.JobDispatcher {
	return &dispatcher{
		db: db,
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, vote *domain.Vote) error {
	payload, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("failed to encode vote job: %w", err)
	}

	query := `
		INSERT INTO vote_jobs (id, vote_id, payload)
		VALUES ($1, $2, $3)
	`
	_, err = d.db.ExecContext(ctx, query, uuid.New(), vote.ID, payload)
	if err != nil {
		return fmt.Errorf("failed to enqueue vote job: %w", err)
	}
	return nil
}
