package access

// AccessState is the coarse account status shown to the learner.
type AccessState string

const (
	AccessTrial   AccessState = "trial"
	AccessFull    AccessState = "full"
	AccessLimited AccessState = "limited"
	AccessLocked  AccessState = "locked"
)

// Rule names which evaluation step produced a decision. It is logged, never
// returned to clients.
type Rule string

const (
	RuleInactive     Rule = "inactive"
	RuleLegacy       Rule = "legacy"
	RuleTrialActive  Rule = "trial_active"
	RuleTrialExpired Rule = "trial_expired"
	RulePurchase     Rule = "purchase"
	RuleNoPurchase   Rule = "no_purchase"
)

type Decision struct {
	Allowed bool
	Rule    Rule
}
