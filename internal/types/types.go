package types

import "time"

// Employee is a desk agent who handles calls
type Employee struct {
	ID        uint   `json:"id" gorm:"primaryKey" yaml:"id"`
	FirstName string `json:"firstName" gorm:"size:100" yaml:"firstName"`
	LastName  string `json:"lastName" gorm:"size:100" yaml:"lastName"`
}

func (Employee) TableName() string { return "employees" }

// Zone is a service area clients and incidents belong to
type Zone struct {
	ID   uint   `json:"id" gorm:"primaryKey" yaml:"id"`
	Name string `json:"name" gorm:"size:100" yaml:"name"`
}

func (Zone) TableName() string { return "zones" }

// Client is a customer, identified by phone number
type Client struct {
	Phone     string `json:"phone" gorm:"primaryKey;size:32" yaml:"phone"`
	FirstName string `json:"firstName" gorm:"size:100" yaml:"firstName"`
	LastName  string `json:"lastName" gorm:"size:100" yaml:"lastName"`
	ZoneID    *uint  `json:"zoneId" yaml:"zoneId"`
}

func (Client) TableName() string { return "clients" }

// Package is a service plan a client can contract
type Package struct {
	ID    uint    `json:"id" gorm:"primaryKey" yaml:"id"`
	Name  string  `json:"name" gorm:"size:100" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
}

func (Package) TableName() string { return "packages" }

// Contract binds a client to a package
type Contract struct {
	ID        uint      `json:"id" gorm:"primaryKey" yaml:"id"`
	Phone     string    `json:"phone" gorm:"size:32;index" yaml:"phone"`
	PackageID uint      `json:"packageId" yaml:"packageId"`
	SignedAt  time.Time `json:"signedAt" yaml:"signedAt"`
}

func (Contract) TableName() string { return "contracts" }

// IncidenceType classifies incidents
type IncidenceType struct {
	ID   uint   `json:"id" gorm:"primaryKey" yaml:"id"`
	Name string `json:"name" gorm:"size:100" yaml:"name"`
}

func (IncidenceType) TableName() string { return "incidence_types" }

// Incident is a reported field incident. Create-only.
type Incident struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	IncidenceTypeID uint      `json:"incidenceTypeId" gorm:"index;not null"`
	ZoneID          uint      `json:"zoneId" gorm:"index;not null"`
	Description     string    `json:"description" gorm:"size:2000"`
	Notes           string    `json:"notes" gorm:"size:2000"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (Incident) TableName() string { return "incidents" }

// Validate checks the fields required to create an incident
func (i *Incident) Validate() error {
	if i.IncidenceTypeID == 0 {
		return &ValidationError{Field: "incidenceTypeId", Reason: "is required"}
	}
	if i.ZoneID == 0 {
		return &ValidationError{Field: "zoneId", Reason: "is required"}
	}
	return nil
}

// Survey is a satisfaction survey attached to a call. Create-only.
type Survey struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CallID    uint      `json:"callId" gorm:"index;not null"`
	Rating    int       `json:"rating"`
	Comments  string    `json:"comments" gorm:"size:2000"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Survey) TableName() string { return "surveys" }

// Validate checks the fields required to create a survey
func (s *Survey) Validate() error {
	if s.CallID == 0 {
		return &ValidationError{Field: "callId", Reason: "is required"}
	}
	if s.Rating < 1 || s.Rating > 5 {
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	return nil
}

// Solution is a knowledge-base entry for a call subject
type Solution struct {
	ID      uint           `json:"id" gorm:"primaryKey" yaml:"id"`
	Name    string         `json:"name" gorm:"size:200" yaml:"name"`
	Subject string         `json:"subject" gorm:"size:200;index" yaml:"subject"`
	Steps   []SolutionStep `json:"steps" gorm:"foreignKey:SolutionID" yaml:"steps"`
}

func (Solution) TableName() string { return "solutions" }

// SolutionStep is one ordered step of a Solution
type SolutionStep struct {
	ID          uint   `json:"-" gorm:"primaryKey" yaml:"-"`
	SolutionID  uint   `json:"-" gorm:"index" yaml:"-"`
	Position    int    `json:"position" yaml:"position"`
	Description string `json:"description" gorm:"size:2000" yaml:"description"`
}

func (SolutionStep) TableName() string { return "solution_steps" }
