package timebank

import "errors"

var (

	// common errors
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// auth-specific errors
	ErrUnauthorized       = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("access denied")

	// ledger/exchange-specific errors
	ErrInsufficientBalance = errors.New("insufficient tokens")
	ErrInvalidState        = errors.New("no longer available")

	// governance-specific errors
	ErrAlreadyVoted = errors.New("already voted on this proposal")
	ErrVotingEnded  = errors.New("voting has ended for this proposal")
)
