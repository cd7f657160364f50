package types

import "time"

// Event names pushed to dashboard subscribers
const (
	EventNewCall       = "newCall"       // a call was reassigned; payload is the call
	EventNewPage       = "newPage"       // the desk view changed; payload is the view
	EventNewIncidencia = "newIncidencia" // an incident was logged; payload is the incident view
)

// Event is the envelope written to every subscriber
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// TranscriptSegment is one normalized turn of a conversation. A nil field
// means the analysis service did not report it.
type TranscriptSegment struct {
	Role      *string `json:"role"`
	Content   *string `json:"content"`
	Sentiment *string `json:"sentiment"`
}

// SentimentResult is returned after a fetch-and-merge
type SentimentResult struct {
	CallID    uint                `json:"callId"`
	ContactID string              `json:"contactId"`
	Segments  []TranscriptSegment `json:"segments"`
	Sentiment *string             `json:"sentiment"` // the call's sentiment after the merge
	Changed   bool                `json:"changed"`
}
