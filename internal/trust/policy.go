// Package trust holds the pure scoring rules for the trust-score ledger.
// All persistence goes through internal/ledger; this package only decides
// the deltas so the rules live in one place instead of at every call site.
package trust

// Score bounds. Every adjustment is clamped into this range except the
// national-identity verification path, which sets MaxScore directly.
const (
	MinScore = 0
	MaxScore = 100

	// InitialScore is assigned at registration.
	InitialScore = 50

	// CheckInBonus is granted once per participation when the QR scan or
	// host ticket validation succeeds.
	CheckInBonus = 5
)

// One-time verification bonuses, granted only while the corresponding
// flag is still false.
const (
	EmailBonus   = 10
	PhoneBonus   = 15
	StudentBonus = 30
)

// Leave-penalty tags emitted in system notifications.
const (
	TagLastMinuteLeave   = "SON_DAKIKA_AYRILMA"
	TagCriticalTimeLeave = "KRİTİK_ZAMAN_AYRILMA"
)

// Leave policy windows, in hours before the event start.
const (
	lastMinuteWindow  = 2.0
	criticalWindow    = 12.0
	refundWindowHours = 24.0
	lastMinutePenalty = 10
	criticalPenalty   = 5
)

// LeavePenalty returns the trust-score penalty and notification tag for a
// user leaving an event hoursLeft hours before it starts. Windows do not
// overlap; the most severe one wins.
func LeavePenalty(hoursLeft float64) (penalty int, tag string) {
	switch {
	case hoursLeft < lastMinuteWindow:
		return lastMinutePenalty, TagLastMinuteLeave
	case hoursLeft < criticalWindow:
		return criticalPenalty, TagCriticalTimeLeave
	default:
		return 0, ""
	}
}

// LeaveRefundable reports whether a paid deposit is returned when leaving
// hoursLeft hours before the event. The refund and penalty windows are
// independent: between 12 and 24 hours there is neither.
func LeaveRefundable(hoursLeft float64) bool {
	return hoursLeft > refundWindowHours
}

// ReportDeduction maps a report reason code to the immediate trust-score
// deduction applied to the reported user.
func ReportDeduction(reason string) int {
	switch reason {
	case "noshow":
		return 10
	case "harassment":
		return 20
	default:
		return 5
	}
}

// ReviewDelta converts a 1-5 rating into a trust-score change:
// rating 5 gives +4, rating 3 is neutral, rating 1 gives -4.
func ReviewDelta(rating int) int {
	return (rating - 3) * 2
}

// Clamp bounds a score into [MinScore, MaxScore]. The database applies the
// same clamp in SQL; this is used by simulations and response shaping.
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
