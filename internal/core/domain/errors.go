package domain

import "errors"

var (
	ErrVoteNotFound      = errors.New("vote not found")
	ErrInvalidVoteID     = errors.New("invalid vote id")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrConsentRequired   = errors.New("consent not given")
	ErrAlreadyVoted      = errors.New("email has already voted")
	ErrInternal          = errors.New("internal server error")
)
