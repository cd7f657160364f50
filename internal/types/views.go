package types

import "time"

// DeskViewRow is one employee's card on the live desk dashboard: their most
// recent call joined with client, zone, contract and package data. JSON names
// follow the dashboard's existing wire format.
type DeskViewRow struct {
	EmployeeID      uint       `json:"IdEmpleado" gorm:"column:employee_id"`
	FirstName       string     `json:"Nombre" gorm:"column:first_name"`
	LastName        string     `json:"ApellidoP" gorm:"column:last_name"`
	CallID          *uint      `json:"IdLlamada" gorm:"column:call_id"`
	Subject         *string    `json:"Asunto" gorm:"column:subject"`
	Sentiment       *string    `json:"Sentiment" gorm:"column:sentiment"`
	Notes           *string    `json:"Notas" gorm:"column:notes"`
	Active          *bool      `json:"Estado" gorm:"column:active"`
	StartedAt       *time.Time `json:"FechaHora" gorm:"column:started_at"`
	ClientFirstName *string    `json:"CName" gorm:"column:client_first_name"`
	ClientLastName  *string    `json:"CLastName" gorm:"column:client_last_name"`
	Phone           *string    `json:"Celular" gorm:"column:phone"`
	ZoneName        *string    `json:"ZoneName" gorm:"column:zone_name"`
	ContractDate    *time.Time `json:"Fecha" gorm:"column:contract_date"`
	PackageName     *string    `json:"PName" gorm:"column:package_name"`
	PackagePrice    *float64   `json:"Precio" gorm:"column:package_price"`
	CallCount       int64      `json:"numLlamadas" gorm:"column:call_count"`
}

// IncidentViewRow is an incident joined with its type and zone names
type IncidentViewRow struct {
	ID              uint      `json:"IdReporte" gorm:"column:id"`
	IncidenceTypeID uint      `json:"IdIncidencia" gorm:"column:incidence_type_id"`
	ZoneID          uint      `json:"IdZona" gorm:"column:zone_id"`
	Description     string    `json:"Descripcion" gorm:"column:description"`
	Notes           string    `json:"Notas" gorm:"column:notes"`
	CreatedAt       time.Time `json:"FechaHora" gorm:"column:created_at"`
	IncidenceName   string    `json:"NombreIncidencia" gorm:"column:incidence_name"`
	ZoneName        string    `json:"NombreZona" gorm:"column:zone_name"`
}
