// Package flightops holds the flight-operations records the specialist
// agents query during disruption analysis. All access in the analysis flow
// is read-only.
package flightops

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Flight is the current operational state of a scheduled flight.
type Flight struct {
	FlightNumber   string    `db:"flight_number" json:"flight_number"`
	Origin         string    `db:"origin" json:"origin"`
	Destination    string    `db:"destination" json:"destination"`
	ScheduledDep   time.Time `db:"scheduled_dep" json:"scheduled_dep"`
	EstimatedDep   time.Time `db:"estimated_dep" json:"estimated_dep"`
	Status         string    `db:"status" json:"status"` // scheduled, delayed, cancelled, departed
	AircraftReg    string    `db:"aircraft_reg" json:"aircraft_reg"`
	AircraftType   string    `db:"aircraft_type" json:"aircraft_type"`
	DelayMinutes   int       `db:"delay_minutes" json:"delay_minutes"`
	PassengerCount int       `db:"passenger_count" json:"passenger_count"`
}

// CrewMember is one assigned crew member with duty-time state.
type CrewMember struct {
	CrewID           string    `db:"crew_id" json:"crew_id"`
	FlightNumber     string    `db:"flight_number" json:"flight_number"`
	Role             string    `db:"role" json:"role"` // captain, first_officer, cabin
	DutyStart        time.Time `db:"duty_start" json:"duty_start"`
	DutyUsedMinutes  int       `db:"duty_used_minutes" json:"duty_used_minutes"`
	DutyLimitMinutes int       `db:"duty_limit_minutes" json:"duty_limit_minutes"`
	RestCompliant    bool      `db:"rest_compliant" json:"rest_compliant"`
	Base             string    `db:"base" json:"base"`
}

// RemainingMinutes returns the duty time left before the legal limit.
func (c CrewMember) RemainingMinutes() int {
	remaining := c.DutyLimitMinutes - c.DutyUsedMinutes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MaintenanceItem is one open or recent maintenance record for an aircraft.
type MaintenanceItem struct {
	AircraftReg  string    `db:"aircraft_reg" json:"aircraft_reg"`
	Code         string    `db:"code" json:"code"` // ATA chapter or MEL reference
	Description  string    `db:"description" json:"description"`
	Severity     string    `db:"severity" json:"severity"` // info, minor, major, aog
	Deferrable   bool      `db:"deferrable" json:"deferrable"`
	ReportedAt   time.Time `db:"reported_at" json:"reported_at"`
	EstRepairMin int       `db:"est_repair_min" json:"est_repair_min"`
}

// AircraftOption is a candidate replacement airframe.
type AircraftOption struct {
	AircraftReg   string    `db:"aircraft_reg" json:"aircraft_reg"`
	AircraftType  string    `db:"aircraft_type" json:"aircraft_type"`
	Location      string    `db:"location" json:"location"`
	AvailableFrom time.Time `db:"available_from" json:"available_from"`
	SeatCapacity  int       `db:"seat_capacity" json:"seat_capacity"`
	CargoCapKg    int       `db:"cargo_cap_kg" json:"cargo_cap_kg"`
}

// Connection is a downstream passenger connection at risk.
type Connection struct {
	FlightNumber     string    `db:"flight_number" json:"flight_number"`
	ConnectingFlight string    `db:"connecting_flight" json:"connecting_flight"`
	PassengerCount   int       `db:"passenger_count" json:"passenger_count"`
	ConnectionDep    time.Time `db:"connection_dep" json:"connection_dep"`
	MinConnectMin    int       `db:"min_connect_min" json:"min_connect_min"`
}

// CargoShipment is one cargo consignment loaded on a flight.
type CargoShipment struct {
	AWB          string          `db:"awb" json:"awb"`
	FlightNumber string          `db:"flight_number" json:"flight_number"`
	WeightKg     int             `db:"weight_kg" json:"weight_kg"`
	Category     string          `db:"category" json:"category"` // general, perishable, pharma, live_animals, dangerous_goods
	TimeCritical bool            `db:"time_critical" json:"time_critical"`
	DeclaredValue decimal.Decimal `db:"declared_value" json:"declared_value"`
}

// CurfewRule is an airport operating restriction relevant to recovery planning.
type CurfewRule struct {
	Airport     string `db:"airport" json:"airport"`
	StartLocal  string `db:"start_local" json:"start_local"` // "23:00"
	EndLocal    string `db:"end_local" json:"end_local"`     // "06:00"
	Description string `db:"description" json:"description"`
	Waiverable  bool   `db:"waiverable" json:"waiverable"`
}

// DelayCost is the estimated financial exposure of a delay scenario.
type DelayCost struct {
	FlightNumber     string          `db:"flight_number" json:"flight_number"`
	DelayMinutes     int             `db:"delay_minutes" json:"delay_minutes"`
	CrewCost         decimal.Decimal `db:"crew_cost" json:"crew_cost"`
	PassengerComp    decimal.Decimal `db:"passenger_comp" json:"passenger_comp"`
	HandlingCost     decimal.Decimal `db:"handling_cost" json:"handling_cost"`
	CancellationCost decimal.Decimal `db:"cancellation_cost" json:"cancellation_cost"`
	Currency         string          `db:"currency" json:"currency"`
}

// Total sums all delay cost components (cancellation excluded, it is the
// alternative scenario).
func (d DelayCost) Total() decimal.Decimal {
	return d.CrewCost.Add(d.PassengerComp).Add(d.HandlingCost)
}

// Repository is the read-only query surface the Tool Provider exposes to agents.
type Repository interface {
	FlightByNumber(ctx context.Context, flightNumber string) (*Flight, error)
	CrewRoster(ctx context.Context, flightNumber string) ([]CrewMember, error)
	MaintenanceHistory(ctx context.Context, aircraftReg string) ([]MaintenanceItem, error)
	AvailableAircraft(ctx context.Context, location string, minSeats int) ([]AircraftOption, error)
	ConnectionsAtRisk(ctx context.Context, flightNumber string) ([]Connection, error)
	CargoManifest(ctx context.Context, flightNumber string) ([]CargoShipment, error)
	CurfewRules(ctx context.Context, airport string) ([]CurfewRule, error)
	DelayCostEstimate(ctx context.Context, flightNumber string, delayMinutes int) (*DelayCost, error)
}
