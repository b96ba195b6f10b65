package users

import (
	"time"

	"tajwid-academy/internal/domain/access"
	"tajwid-academy/internal/domain/account"
)

func BuildSubscriptionDTO(st account.State) *SubscriptionDTO {
	if !st.HasSubscription() {
		return nil
	}

	status := "active"
	switch {
	case !st.IsActive:
		status = "canceled"
	case st.CancelAtPeriodEnd:
		status = "canceling"
	}

	return &SubscriptionDTO{
		Status:               status,
		Plan:                 st.SubscriptionPlan,
		CurrentPeriodEnd:     st.SubscriptionEndDate,
		CancelAtPeriodEnd:    st.CancelAtPeriodEnd,
		StripeSubscriptionID: st.StripeSubscriptionID,
	}
}

// BuildTrialDTO is nil for accounts that never had a trial.
func BuildTrialDTO(now time.Time, start *time.Time, st account.State) *TrialDTO {
	if st.TrialEndDate == nil {
		return nil
	}

	daysLeft := 0
	if !st.TrialExpired && now.Before(*st.TrialEndDate) {
		daysLeft = int(st.TrialEndDate.Sub(now).Hours() / 24)
	}

	return &TrialDTO{
		StartsAt: start,
		EndsAt:   st.TrialEndDate,
		DaysLeft: daysLeft,
		Expired:  st.TrialExpired,
	}
}

func BuildModulesDTO(st account.State) map[string]bool {
	out := map[string]bool{}
	for m, ok := range access.ModulesFor(st) {
		out[string(m)] = ok
	}
	return out
}
