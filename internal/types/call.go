package types

import "time"

// Sentiment labels reported by the transcript analysis service
const (
	SentimentPositive = "POSITIVE"
	SentimentNeutral  = "NEUTRAL"
	SentimentNegative = "NEGATIVE"
	SentimentMixed    = "MIXED"
)

// Call is a logged support interaction between an employee and a client
type Call struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	EmployeeID uint      `json:"employeeId" gorm:"index;not null"`
	Phone      string    `json:"phone" gorm:"size:32;index;not null"` // client reference
	Subject    string    `json:"subject" gorm:"size:200;not null"`
	StartedAt  time.Time `json:"startedAt" gorm:"index"`
	Duration   int       `json:"duration"` // seconds
	Active     bool      `json:"active"`
	Sentiment  *string   `json:"sentiment" gorm:"size:20;index"` // set asynchronously
	Notes      string    `json:"notes" gorm:"size:2000"`
	ContactID  string    `json:"contactId,omitempty" gorm:"size:100;index"` // Contact Lens contact
}

func (Call) TableName() string {
	return "calls"
}

// Validate checks the fields required to create a call
func (c *Call) Validate() error {
	switch {
	case c.EmployeeID == 0:
		return &ValidationError{Field: "employeeId", Reason: "is required"}
	case c.Phone == "":
		return &ValidationError{Field: "phone", Reason: "is required"}
	case c.Subject == "":
		return &ValidationError{Field: "subject", Reason: "is required"}
	case c.Duration < 0:
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	return nil
}

// CallPatch carries a partial update; nil fields are left untouched
type CallPatch struct {
	EmployeeID *uint   `json:"employeeId,omitempty"`
	Subject    *string `json:"subject,omitempty"`
	Duration   *int    `json:"duration,omitempty"`
	Active     *bool   `json:"active,omitempty"`
	Sentiment  *string `json:"sentiment,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	ContactID  *string `json:"contactId,omitempty"`
}

// Columns returns the column/value pairs to write
func (p CallPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.EmployeeID != nil {
		cols["employee_id"] = *p.EmployeeID
	}
	if p.Subject != nil {
		cols["subject"] = *p.Subject
	}
	if p.Duration != nil {
		cols["duration"] = *p.Duration
	}
	if p.Active != nil {
		cols["active"] = *p.Active
	}
	if p.Sentiment != nil {
		cols["sentiment"] = *p.Sentiment
	}
	if p.Notes != nil {
		cols["notes"] = *p.Notes
	}
	if p.ContactID != nil {
		cols["contact_id"] = *p.ContactID
	}
	return cols
}

// Validate rejects patches that would break call invariants
func (p CallPatch) Validate() error {
	if p.EmployeeID != nil && *p.EmployeeID == 0 {
		return &ValidationError{Field: "employeeId", Reason: "must not be zero"}
	}
	if p.Subject != nil && *p.Subject == "" {
		return &ValidationError{Field: "subject", Reason: "must not be empty"}
	}
	if p.Duration != nil && *p.Duration < 0 {
		return &ValidationError{Field: "duration", Reason: "must not be negative"}
	}
	if len(p.Columns()) == 0 {
		return &ValidationError{Field: "body", Reason: "no fields to update"}
	}
	return nil
}
