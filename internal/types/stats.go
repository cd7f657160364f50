package types

// TotalEmployeeKey is the sort key of the all-employees item of a day
const TotalEmployeeKey = "TOTAL"

// DailyStats is a per-day call summary archived by the snapshot job
type DailyStats struct {
	DateKey       string  `json:"dateKey" dynamodbav:"DateKey"`         // YYYY-MM-DD (partition key)
	EmployeeKey   string  `json:"employeeKey" dynamodbav:"EmployeeKey"` // TOTAL or E#<id> (sort key)
	EmployeeID    uint    `json:"employeeId,omitempty" dynamodbav:"EmployeeID"`
	CallCount     int64   `json:"callCount" dynamodbav:"CallCount"`
	NegativeCount int64   `json:"negativeCount" dynamodbav:"NegativeCount"`
	AvgDuration   float64 `json:"avgDuration" dynamodbav:"AvgDuration"` // seconds
	CapturedAt    string  `json:"capturedAt" dynamodbav:"CapturedAt"`   // RFC3339
}

// EmployeeCallStats aggregates one employee's calls over a time range
type EmployeeCallStats struct {
	EmployeeID    uint    `gorm:"column:employee_id"`
	CallCount     int64   `gorm:"column:call_count"`
	NegativeCount int64   `gorm:"column:negative_count"`
	AvgDuration   float64 `gorm:"column:avg_duration"`
}

// DateKeyLayout formats archive partition keys
const DateKeyLayout = "2006-01-02"
