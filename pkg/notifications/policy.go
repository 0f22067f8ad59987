package notifications

import "time"

// Reason explains why a candidate was suppressed.
type Reason string

const (
	ReasonSelfNotification Reason = "self_notification"
	ReasonKindDisabled     Reason = "kind_disabled"
	ReasonQuietHours       Reason = "quiet_hours"
)

// Decision is the outcome of Evaluate. Reason is empty when Accepted.
type Decision struct {
	Accepted bool
	Reason   Reason
}

func accept() Decision { return Decision{Accepted: true} }

func reject(r Reason) Decision { return Decision{Reason: r} }

// Evaluate decides whether candidate c is delivered to a recipient with the
// given settings at time now. Checks run in order: self-notification, kind
// toggle, quiet hours. System notifications ignore quiet hours but respect
// their own toggle.
func Evaluate(settings Settings, c Candidate, now time.Time) Decision {
	if c.ActorID != nil && *c.ActorID == c.RecipientID {
		return reject(ReasonSelfNotification)
	}
	if !settings.Enabled(c.Kind) {
		return reject(ReasonKindDisabled)
	}
	if settings.QuietHoursEnabled && c.Kind != KindSystem &&
		InQuietHours(settings.QuietHoursStart, settings.QuietHoursEnd, now.Hour()) {
		return reject(ReasonQuietHours)
	}
	return accept()
}

// InQuietHours reports whether hour falls inside the [start, end) window.
// Equal bounds mean the whole day; start > end wraps past midnight.
func InQuietHours(start, end, hour int) bool {
	switch {
	case start == end:
		return true
	case start < end:
		return hour >= start && hour < end
	default:
		return hour >= start || hour < end
	}
}
