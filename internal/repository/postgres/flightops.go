package postgres

import (
	"context"
	"database/sql"

	"skymarshal/internal/domain/flightops"
	"skymarshal/pkg/errors"
)

// FlightOpsRepository implements flightops.Repository. All queries are
// read-only; the analysis flow never writes to operational tables.
type FlightOpsRepository struct {
	db DBTX
}

// NewFlightOpsRepository creates a new flight operations repository
func NewFlightOpsRepository(db DBTX) *FlightOpsRepository {
	return &FlightOpsRepository{db: db}
}

// FlightByNumber retrieves the current state of a flight
func (r *FlightOpsRepository) FlightByNumber(ctx context.Context, flightNumber string) (*flightops.Flight, error) {
	query := `
		SELECT flight_number, origin, destination, scheduled_dep, estimated_dep,
		       status, aircraft_reg, aircraft_type, delay_minutes, passenger_count
		FROM flights
		WHERE flight_number = $1
	`

	f := &flightops.Flight{}
	err := r.db.GetContext(ctx, f, query, flightNumber)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "flight %s", flightNumber)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get flight by number")
	}
	return f, nil
}

// CrewRoster returns the crew assigned to a flight with duty-time state
func (r *FlightOpsRepository) CrewRoster(ctx context.Context, flightNumber string) ([]flightops.CrewMember, error) {
	query := `
		SELECT crew_id, flight_number, role, duty_start,
		       duty_used_minutes, duty_limit_minutes, rest_compliant, base
		FROM crew_assignments
		WHERE flight_number = $1
		ORDER BY role, crew_id
	`

	var crew []flightops.CrewMember
	if err := r.db.SelectContext(ctx, &crew, query, flightNumber); err != nil {
		return nil, errors.Wrap(err, "select crew roster")
	}
	return crew, nil
}

// MaintenanceHistory returns open and recent maintenance items for an aircraft
func (r *FlightOpsRepository) MaintenanceHistory(ctx context.Context, aircraftReg string) ([]flightops.MaintenanceItem, error) {
	query := `
		SELECT aircraft_reg, code, description, severity, deferrable,
		       reported_at, est_repair_min
		FROM maintenance_items
		WHERE aircraft_reg = $1
		ORDER BY reported_at DESC
		LIMIT 50
	`

	var items []flightops.MaintenanceItem
	if err := r.db.SelectContext(ctx, &items, query, aircraftReg); err != nil {
		return nil, errors.Wrap(err, "select maintenance history")
	}
	return items, nil
}

// AvailableAircraft lists replacement airframes at a location
func (r *FlightOpsRepository) AvailableAircraft(ctx context.Context, location string, minSeats int) ([]flightops.AircraftOption, error) {
	query := `
		SELECT aircraft_reg, aircraft_type, location, available_from,
		       seat_capacity, cargo_cap_kg
		FROM aircraft_availability
		WHERE location = $1 AND seat_capacity >= $2
		ORDER BY available_from
	`

	var options []flightops.AircraftOption
	if err := r.db.SelectContext(ctx, &options, query, location, minSeats); err != nil {
		return nil, errors.Wrap(err, "select available aircraft")
	}
	return options, nil
}

// ConnectionsAtRisk lists downstream connections fed by a flight
func (r *FlightOpsRepository) ConnectionsAtRisk(ctx context.Context, flightNumber string) ([]flightops.Connection, error) {
	query := `
		SELECT flight_number, connecting_flight, passenger_count,
		       connection_dep, min_connect_min
		FROM connections
		WHERE flight_number = $1
		ORDER BY connection_dep
	`

	var conns []flightops.Connection
	if err := r.db.SelectContext(ctx, &conns, query, flightNumber); err != nil {
		return nil, errors.Wrap(err, "select connections at risk")
	}
	return conns, nil
}

// CargoManifest lists cargo shipments loaded on a flight
func (r *FlightOpsRepository) CargoManifest(ctx context.Context, flightNumber string) ([]flightops.CargoShipment, error) {
	query := `
		SELECT awb, flight_number, weight_kg, category, time_critical, declared_value
		FROM cargo_shipments
		WHERE flight_number = $1
		ORDER BY weight_kg DESC
	`

	var shipments []flightops.CargoShipment
	if err := r.db.SelectContext(ctx, &shipments, query, flightNumber); err != nil {
		return nil, errors.Wrap(err, "select cargo manifest")
	}
	return shipments, nil
}

// CurfewRules returns operating restrictions for an airport
func (r *FlightOpsRepository) CurfewRules(ctx context.Context, airport string) ([]flightops.CurfewRule, error) {
	query := `
		SELECT airport, start_local, end_local, description, waiverable
		FROM curfew_rules
		WHERE airport = $1
	`

	var rules []flightops.CurfewRule
	if err := r.db.SelectContext(ctx, &rules, query, airport); err != nil {
		return nil, errors.Wrap(err, "select curfew rules")
	}
	return rules, nil
}

// DelayCostEstimate returns the financial exposure of a delay scenario.
// Cost bands are precomputed by the finance pipeline; we look up the band
// covering the requested delay.
func (r *FlightOpsRepository) DelayCostEstimate(ctx context.Context, flightNumber string, delayMinutes int) (*flightops.DelayCost, error) {
	query := `
		SELECT flight_number, delay_minutes, crew_cost, passenger_comp,
		       handling_cost, cancellation_cost, currency
		FROM delay_cost_bands
		WHERE flight_number = $1 AND delay_minutes >= $2
		ORDER BY delay_minutes
		LIMIT 1
	`

	cost := &flightops.DelayCost{}
	err := r.db.GetContext(ctx, cost, query, flightNumber, delayMinutes)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "delay cost band for %s at %d min", flightNumber, delayMinutes)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get delay cost estimate")
	}
	return cost, nil
}
