package access

import (
	"testing"
	"time"

	"tajwid-academy/internal/domain/account"

	"github.com/stretchr/testify/assert"
)

func purchase(m account.Module, active bool) account.Purchase {
	return account.Purchase{LevelID: 1, Module: m, LevelActive: active}
}

func TestEvaluate_RuleOrder(t *testing.T) {
	future := time.Now().UTC().Add(24 * time.Hour)

	cases := []struct {
		name    string
		state   account.State
		module  account.Module
		allowed bool
		rule    Rule
	}{
		{
			name:   "inactive beats legacy",
			state:  account.State{AccountType: account.TypePaidLegacy, IsActive: false},
			module: account.ModuleTajwid, allowed: false, rule: RuleInactive,
		},
		{
			name:   "inactive beats purchase",
			state:  account.State{AccountType: account.TypePaid, IsActive: false, Purchases: []account.Purchase{purchase(account.ModuleTajwid, true)}},
			module: account.ModuleTajwid, allowed: false, rule: RuleInactive,
		},
		{
			name:   "legacy gets everything",
			state:  account.State{AccountType: account.TypePaidLegacy, IsActive: true},
			module: account.ModuleLecture, allowed: true, rule: RuleLegacy,
		},
		{
			name:   "unmigrated full plan is grandfathered",
			state:  account.State{AccountType: account.TypePaidFull, IsActive: true},
			module: account.ModuleLecture, allowed: true, rule: RuleLegacy,
		},
		{
			name:   "inactive type beats a stale active flag",
			state:  account.State{AccountType: account.TypeInactive, IsActive: true, Purchases: []account.Purchase{purchase(account.ModuleTajwid, true)}},
			module: account.ModuleTajwid, allowed: false, rule: RuleInactive,
		},
		{
			name:   "running trial gets everything",
			state:  account.State{AccountType: account.TypeFreeTrial, IsActive: true, TrialEndDate: &future},
			module: account.ModuleLecture, allowed: true, rule: RuleTrialActive,
		},
		{
			name:   "expired trial is denied even with a purchase",
			state:  account.State{AccountType: account.TypeFreeTrial, IsActive: true, TrialExpired: true, Purchases: []account.Purchase{purchase(account.ModuleTajwid, true)}},
			module: account.ModuleTajwid, allowed: false, rule: RuleTrialExpired,
		},
		{
			name:   "paid with matching purchase",
			state:  account.State{AccountType: account.TypePaid, IsActive: true, Purchases: []account.Purchase{purchase(account.ModuleTajwid, true)}},
			module: account.ModuleTajwid, allowed: true, rule: RulePurchase,
		},
		{
			name:   "purchase of another module",
			state:  account.State{AccountType: account.TypePaid, IsActive: true, Purchases: []account.Purchase{purchase(account.ModuleTajwid, true)}},
			module: account.ModuleLecture, allowed: false, rule: RuleNoPurchase,
		},
		{
			name:   "purchase of a retired level",
			state:  account.State{AccountType: account.TypePaid, IsActive: true, Purchases: []account.Purchase{purchase(account.ModuleTajwid, false)}},
			module: account.ModuleTajwid, allowed: false, rule: RuleNoPurchase,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Evaluate(tc.state, tc.module)
			assert.Equal(t, tc.allowed, d.Allowed)
			assert.Equal(t, tc.rule, d.Rule)
			assert.Equal(t, tc.allowed, CanAccessModule(tc.state, tc.module))
		})
	}
}

func TestCanAccessProtectedContent(t *testing.T) {
	assert.True(t, CanAccessProtectedContent(account.State{AccountType: account.TypePaidLegacy, IsActive: true}))
	assert.True(t, CanAccessProtectedContent(account.State{AccountType: account.TypePaidFull, IsActive: true}))
	assert.True(t, CanAccessProtectedContent(account.State{AccountType: account.TypePaid, IsActive: true}))
	assert.True(t, CanAccessProtectedContent(account.State{AccountType: account.TypeFreeTrial, IsActive: true}))
	assert.False(t, CanAccessProtectedContent(account.State{AccountType: account.TypeFreeTrial, IsActive: true, TrialExpired: true}))
	assert.False(t, CanAccessProtectedContent(account.State{AccountType: account.TypeInactive}))
	assert.False(t, CanAccessProtectedContent(account.State{AccountType: account.TypeInactive, IsActive: true}))
	assert.False(t, CanAccessProtectedContent(account.State{AccountType: account.TypePaid, IsActive: false}))
}

func TestComputeEffectiveAccessState(t *testing.T) {
	assert.Equal(t, AccessTrial, ComputeEffectiveAccessState(account.State{AccountType: account.TypeFreeTrial, IsActive: true}))
	assert.Equal(t, AccessLocked, ComputeEffectiveAccessState(account.State{AccountType: account.TypeFreeTrial, IsActive: true, TrialExpired: true}))
	assert.Equal(t, AccessFull, ComputeEffectiveAccessState(account.State{AccountType: account.TypePaidLegacy, IsActive: true}))
	assert.Equal(t, AccessFull, ComputeEffectiveAccessState(account.State{AccountType: account.TypePaidFull, IsActive: true, CancelAtPeriodEnd: true}))
	assert.Equal(t, AccessFull, ComputeEffectiveAccessState(account.State{AccountType: account.TypePaid, IsActive: true}))
	assert.Equal(t, AccessLimited, ComputeEffectiveAccessState(account.State{AccountType: account.TypePaid, IsActive: true, CancelAtPeriodEnd: true}))
	assert.Equal(t, AccessLocked, ComputeEffectiveAccessState(account.State{AccountType: account.TypeInactive}))
}

func TestModulesFor(t *testing.T) {
	st := account.State{AccountType: account.TypePaid, IsActive: true, Purchases: []account.Purchase{purchase(account.ModuleLecture, true)}}
	assert.Equal(t, map[account.Module]bool{account.ModuleLecture: true, account.ModuleTajwid: false}, ModulesFor(st))

	full := account.State{AccountType: account.TypePaidFull, IsActive: true}
	assert.Equal(t, map[account.Module]bool{account.ModuleLecture: true, account.ModuleTajwid: true}, ModulesFor(full))
}
