package access

import "tajwid-academy/internal/domain/account"

// ModulesFor returns the access decision for every module.
func ModulesFor(s account.State) map[account.Module]bool {
	out := make(map[account.Module]bool, len(account.Modules))
	for _, m := range account.Modules {
		out[m] = CanAccessModule(s, m)
	}
	return out
}
