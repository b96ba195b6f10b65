package access

import "tajwid-academy/internal/domain/account"

// Evaluate applies the module access rules in order. Inactivity short-circuits
// everything and legacy status short-circuits the trial and purchase checks.
// An INACTIVE type denies even when the flag says otherwise.
func Evaluate(s account.State, m account.Module) Decision {
	if !s.IsActive || s.AccountType == account.TypeInactive {
		return Decision{Allowed: false, Rule: RuleInactive}
	}
	if s.AccountType.Grandfathered() {
		return Decision{Allowed: true, Rule: RuleLegacy}
	}
	if s.AccountType == account.TypeFreeTrial {
		if s.TrialExpired {
			return Decision{Allowed: false, Rule: RuleTrialExpired}
		}
		return Decision{Allowed: true, Rule: RuleTrialActive}
	}
	for _, p := range s.Purchases {
		if p.LevelActive && p.Module == m {
			return Decision{Allowed: true, Rule: RulePurchase}
		}
	}
	return Decision{Allowed: false, Rule: RuleNoPurchase}
}

func CanAccessModule(s account.State, m account.Module) bool {
	return Evaluate(s, m).Allowed
}

// CanAccessProtectedContent reports whether the account may reach any
// protected resource at all. Per-module checks still apply on top.
func CanAccessProtectedContent(s account.State) bool {
	if !s.IsActive {
		return false
	}
	switch s.AccountType {
	case account.TypePaidLegacy, account.TypePaidFull, account.TypePaid:
		return true
	case account.TypeFreeTrial:
		return !s.TrialExpired
	default:
		return false
	}
}
