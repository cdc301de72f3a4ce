package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a signed-up vote. It stays pending until the voter follows the
// confirmation link; only confirmed, enabled votes reach public views.
type Vote struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	CountryCode           string     `json:"country_code"`
	PrivacyPolicyAccepted bool       `json:"privacy_policy_accepted"`
	AgeConfirmed          bool       `json:"age_confirmed"`
	CreatedAt             time.Time  `json:"created_at"`
	ConfirmedAt           *time.Time `json:"confirmed_at,omitempty"`
	Disabled              bool       `json:"disabled"`
}

// Confirmed reports whether the vote counts toward public results.
func (v *Vote) Confirmed() bool {
	return v.ConfirmedAt != nil
}

// PublicVote is the externally visible projection of a confirmed vote.
// Email and consent answers are stripped.
type PublicVote struct {
	CountryCode string    `json:"country_code"`
	CreatedAt   time.Time `json:"created_at"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// PublicPart projects a vote onto its public fields. Only meaningful for
// confirmed votes; a pending vote projects a zero ConfirmedAt.
func (v *Vote) PublicPart() PublicVote {
	p := PublicVote{
		CountryCode: v.CountryCode,
		CreatedAt:   v.CreatedAt,
	}
	if v.ConfirmedAt != nil {
		p.ConfirmedAt = *v.ConfirmedAt
	}
	return p
}

type CountryCount struct {
	CountryCode string `json:"country_code"`
	Count       int    `json:"count"`
}

// Stats summarizes the confirmed votes currently held in the cache.
type Stats struct {
	Total           int            `json:"total"`
	Countries       []CountryCount `json:"countries"`
	LastConfirmedAt *time.Time     `json:"last_confirmed_at,omitempty"`
}
