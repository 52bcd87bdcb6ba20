package domain

import "errors"

var (
	ErrInvalidCategory    = errors.New("invalid category")
	ErrOwnerLimitExceeded = errors.New("owner ticket limit exceeded")
	ErrGroupLimitExceeded = errors.New("category group ticket limit exceeded")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrIntakeTimeout      = errors.New("intake reply timed out")
	ErrStaleConfirmation  = errors.New("close confirmation is stale")
)
