// Package api defines the wire types exchanged with the SenseHel backend.
// Field names follow the server's JSON conventions verbatim so the types can
// be unmarshaled directly from API responses.
package api

import (
	"encoding/json"
	"time"
)

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// User is the login response. The server returns the user record together
// with the session token; the raw response is also persisted as-is so the
// token and id can be recovered after a restart.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Token     string `json:"token"`
}

// SensorAttribute is one measurable attribute of an apartment sensor.
// UIType is a display hint; it is empty for attributes that are consumed by
// services but never rendered on the dashboard.
type SensorAttribute struct {
	ID          int         `json:"id"`
	URI         string      `json:"uri"`
	Description string      `json:"description"`
	UIType      string      `json:"ui_type,omitempty"`
	Value       json.Number `json:"value"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Sensor describes the sensor model installed in an apartment.
type Sensor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ApartmentSensor is a sensor instance mounted in a specific apartment,
// carrying the attribute readings for that installation.
type ApartmentSensor struct {
	ID         int               `json:"id"`
	Identifier string            `json:"identifier"`
	Sensor     Sensor            `json:"sensor"`
	Attributes []SensorAttribute `json:"attributes"`
}

// Apartment is the resident's apartment with its full sensor graph.
type Apartment struct {
	ID               int               `json:"id"`
	Street           string            `json:"street"`
	City             string            `json:"city"`
	PostalCode       string            `json:"postal_code"`
	ApartmentSensors []ApartmentSensor `json:"apartment_sensors"`
}

// Service is a third-party service offered to residents. Requires lists the
// attribute URIs the service needs access to before it can operate.
type Service struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         string   `json:"price,omitempty"`
	BenefitShort  string   `json:"benefit_short,omitempty"`
	BenefitLong   string   `json:"benefit_long,omitempty"`
	EulaURL       string   `json:"eula_url"`
	ImgLogoURL    string   `json:"img_logo_url"`
	ImgServiceURL string   `json:"img_service_url"`
	ReportURL     string   `json:"report_url,omitempty"`
	PreviewURL    string   `json:"preview_url,omitempty"`
	Requires      []string `json:"requires"`
}

// Subscription is an active consent linking the resident to a service.
type Subscription struct {
	ID        int       `json:"id"`
	UUID      string    `json:"uuid"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Service   Service   `json:"service"`
}

// CreateSubscriptionRequest is the body of the subscription create call.
// Attributes carries apartment sensor attribute ids, not URIs.
type CreateSubscriptionRequest struct {
	Service        int   `json:"service"`
	Attributes     []int `json:"attributes"`
	IncludeHistory bool  `json:"include_history"`
}
