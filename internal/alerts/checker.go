package alerts

import (
	"fmt"
	"time"

	"github.com/dennisdiepolder/calldesk/internal/types"
)

// Severity of an alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rule names
const (
	RuleSentimentNegative = "sentiment_negative"
	RuleCallLong          = "call_long"
)

// LongCallThreshold is the duration after which a finished call is flagged
const LongCallThreshold = 20 * time.Minute

// Alert is a rule hit on a call
type Alert struct {
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	CallID     uint     `json:"callId"`
	EmployeeID uint     `json:"employeeId"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
}

// CheckCall evaluates the alert rules for a call that changed from previous
// to current. Rules fire on transitions only, so re-saving the same values
// never raises the same alert twice.
func CheckCall(previous, current types.Call) []Alert {
	var out []Alert

	if isNegative(current.Sentiment) && !isNegative(previous.Sentiment) {
		out = append(out, Alert{
			Rule:       RuleSentimentNegative,
			Severity:   SeverityCritical,
			CallID:     current.ID,
			EmployeeID: current.EmployeeID,
			Subject:    current.Subject,
			Message:    fmt.Sprintf("Customer sentiment turned negative on call %d (%s)", current.ID, current.Subject),
		})
	}

	dur := time.Duration(current.Duration) * time.Second
	if dur > LongCallThreshold && time.Duration(previous.Duration)*time.Second <= LongCallThreshold {
		out = append(out, Alert{
			Rule:       RuleCallLong,
			Severity:   SeverityWarning,
			CallID:     current.ID,
			EmployeeID: current.EmployeeID,
			Subject:    current.Subject,
			Message:    fmt.Sprintf("Call %d lasted %s", current.ID, formatDuration(dur)),
		})
	}

	return out
}

func isNegative(sentiment *string) bool {
	return sentiment != nil && *sentiment == types.SentimentNegative
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		hours := mins / 60
		mins = mins % 60
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
