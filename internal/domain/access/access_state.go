package access

import "tajwid-academy/internal/domain/account"

// ComputeEffectiveAccessState summarises the account for the UI: trial|full|limited|locked.
func ComputeEffectiveAccessState(s account.State) AccessState {
	if !CanAccessProtectedContent(s) {
		return AccessLocked
	}

	switch s.AccountType {
	case account.TypeFreeTrial:
		return AccessTrial
	case account.TypePaidLegacy, account.TypePaidFull:
		return AccessFull
	}

	// Paid with a pending cancellation: access runs until the period end,
	// revocation arrives with the provider's deletion event.
	if s.CancelAtPeriodEnd {
		return AccessLimited
	}
	return AccessFull
}
