package account

import "strings"

type AccountType string

const (
	TypeFreeTrial  AccountType = "FREE_TRIAL"
	TypePaid       AccountType = "PAID"
	TypePaidLegacy AccountType = "PAID_LEGACY"
	TypeInactive   AccountType = "INACTIVE"

	// TypePaidFull is the discontinued unlimited plan. Rows still carrying it are
	// rewritten to TypePaidLegacy by OnLegacyMigration and it is never assigned.
	// Until then they are grandfathered exactly like TypePaidLegacy.
	TypePaidFull AccountType = "PAID_FULL"
)

// Grandfathered reports whether the type carries unconditional access.
func (t AccountType) Grandfathered() bool {
	return t == TypePaidLegacy || t == TypePaidFull
}

func (t AccountType) Valid() bool {
	switch t {
	case TypeFreeTrial, TypePaid, TypePaidLegacy, TypeInactive, TypePaidFull:
		return true
	}
	return false
}

type Module string

const (
	ModuleLecture Module = "LECTURE"
	ModuleTajwid  Module = "TAJWID"
)

// Modules lists every content track in display order.
var Modules = []Module{ModuleLecture, ModuleTajwid}

// ParseModule accepts a module name in any case.
func ParseModule(s string) (Module, bool) {
	switch Module(strings.ToUpper(strings.TrimSpace(s))) {
	case ModuleLecture:
		return ModuleLecture, true
	case ModuleTajwid:
		return ModuleTajwid, true
	}
	return "", false
}
