package tools

import (
	"context"
	"encoding/json"

	"skymarshal/internal/domain/flightops"
	"skymarshal/pkg/errors"
)

// Tool categories. Agent grants are expressed in categories, not
// individual tool names, so adding a tool to a category extends every
// agent already granted that category.
const (
	CategoryFlight      = "flight"
	CategoryCrew        = "crew"
	CategoryMaintenance = "maintenance"
	CategoryFleet       = "fleet"
	CategoryNetwork     = "network"
	CategoryCargo       = "cargo"
	CategoryAirport     = "airport"
	CategoryFinance     = "finance"
)

// RegisterFlightOps registers the full flight-operations tool catalog
// against the given repository.
func RegisterFlightOps(reg *Registry, repo flightops.Repository) error {
	all := []Tool{
		newGetFlightStatus(repo),
		newGetCrewRoster(repo),
		newGetMaintenanceHistory(repo),
		newFindAvailableAircraft(repo),
		newGetConnectionsAtRisk(repo),
		newGetCargoManifest(repo),
		newGetCurfewRules(repo),
		newEstimateDelayCost(repo),
	}

	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

type flightNumberArgs struct {
	FlightNumber string `json:"flight_number"`
}

func newGetFlightStatus(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "get_flight_status",
		Description: "Get the current operational state of a flight: route, schedule, delay, aircraft, and passenger count.",
		Category:    CategoryFlight,
		Parameters: objectSchema(map[string]interface{}{
			"flight_number": stringProp("IATA flight number, e.g. SM482"),
		}, "flight_number"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a flightNumberArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.FlightByNumber(ctx, a.FlightNumber)
	})
}

func newGetCrewRoster(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "get_crew_roster",
		Description: "List the crew assigned to a flight with duty-time usage, duty limits, and rest compliance.",
		Category:    CategoryCrew,
		Parameters: objectSchema(map[string]interface{}{
			"flight_number": stringProp("IATA flight number"),
		}, "flight_number"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a flightNumberArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.CrewRoster(ctx, a.FlightNumber)
	})
}

func newGetMaintenanceHistory(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "get_maintenance_history",
		Description: "Get open and recent maintenance items for an aircraft, including severity and deferral status.",
		Category:    CategoryMaintenance,
		Parameters: objectSchema(map[string]interface{}{
			"aircraft_reg": stringProp("Aircraft registration, e.g. VH-SMA"),
		}, "aircraft_reg"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a struct {
			AircraftReg string `json:"aircraft_reg"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.MaintenanceHistory(ctx, a.AircraftReg)
	})
}

func newFindAvailableAircraft(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "find_available_aircraft",
		Description: "Find replacement airframes available at an airport with at least the given seat capacity.",
		Category:    CategoryFleet,
		Parameters: objectSchema(map[string]interface{}{
			"location":  stringProp("IATA airport code where the aircraft is needed"),
			"min_seats": intProp("Minimum seat capacity required"),
		}, "location"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a struct {
			Location string `json:"location"`
			MinSeats int    `json:"min_seats"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.AvailableAircraft(ctx, a.Location, a.MinSeats)
	})
}

func newGetConnectionsAtRisk(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "get_connections_at_risk",
		Description: "List downstream connecting flights fed by this flight, with connecting passenger counts and minimum connect times.",
		Category:    CategoryNetwork,
		Parameters: objectSchema(map[string]interface{}{
			"flight_number": stringProp("IATA flight number of the disrupted feeder"),
		}, "flight_number"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a flightNumberArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.ConnectionsAtRisk(ctx, a.FlightNumber)
	})
}

func newGetCargoManifest(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "get_cargo_manifest",
		Description: "List cargo shipments loaded on a flight, including time-critical freight and declared values.",
		Category:    CategoryCargo,
		Parameters: objectSchema(map[string]interface{}{
			"flight_number": stringProp("IATA flight number"),
		}, "flight_number"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a flightNumberArgs
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.CargoManifest(ctx, a.FlightNumber)
	})
}

func newGetCurfewRules(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "get_curfew_rules",
		Description: "Get night curfew and operating restrictions for an airport, including whether waivers are available.",
		Category:    CategoryAirport,
		Parameters: objectSchema(map[string]interface{}{
			"airport": stringProp("IATA airport code"),
		}, "airport"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a struct {
			Airport string `json:"airport"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.CurfewRules(ctx, a.Airport)
	})
}

func newEstimateDelayCost(repo flightops.Repository) Tool {
	return New(Definition{
		Name:        "estimate_delay_cost",
		Description: "Estimate the financial exposure of delaying a flight by a given number of minutes: crew, passenger compensation, handling, and cancellation comparison.",
		Category:    CategoryFinance,
		Parameters: objectSchema(map[string]interface{}{
			"flight_number": stringProp("IATA flight number"),
			"delay_minutes": intProp("Projected delay in minutes"),
		}, "flight_number", "delay_minutes"),
	}, func(ctx context.Context, args json.RawMessage) (interface{}, error) {
		var a struct {
			FlightNumber string `json:"flight_number"`
			DelayMinutes int    `json:"delay_minutes"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, err
		}
		return repo.DelayCostEstimate(ctx, a.FlightNumber, a.DelayMinutes)
	})
}

// decodeArgs strictly decodes model-supplied tool arguments. Unknown
// fields are tolerated; malformed JSON is not.
func decodeArgs(args json.RawMessage, dest interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, dest); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "decode tool arguments: "+err.Error())
	}
	return nil
}
