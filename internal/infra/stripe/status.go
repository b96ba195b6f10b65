package stripe

import "strings"

// NormalizeStripeStatus folds provider subscription statuses into the small
// set the service logs and reports. Nil or blank is "none".
func NormalizeStripeStatus(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "none"
	}
	switch v := strings.TrimSpace(*s); v {
	case "active", "trialing":
		return v
	case "past_due", "unpaid":
		return "past_due"
	case "canceled", "incomplete_expired":
		return "canceled"
	default:
		return v
	}
}
