package account

import "tajwid-academy/internal/apperr"

var (
	ErrNotFound       = apperr.New(apperr.NotFound, "account not found")
	ErrAlreadyExists  = apperr.New(apperr.Conflict, "account already exists")
	ErrPaymentNotPaid = apperr.New(apperr.Validation, "payment is not completed")
	ErrNoSubscription = apperr.New(apperr.Validation, "no active subscription")
)
