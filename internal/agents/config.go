package agents

import "skymarshal/internal/tools"

// AgentConfig is the immutable per-specialist configuration: the system
// instruction, the tool categories the agent is granted, and whether its
// binding constraints dominate arbitration.
type AgentConfig struct {
	Name           AgentName
	Description    string
	SystemPrompt   string
	ToolCategories []string
	SafetyCritical bool
}

// AgentConfigs returns the full specialist roster. Every agent gets the
// flight category; the rest of the grant is domain-scoped.
func AgentConfigs() map[AgentName]AgentConfig {
	return map[AgentName]AgentConfig{
		AgentCrewCompliance: {
			Name:           AgentCrewCompliance,
			Description:    "Crew duty-time limits, rest requirements, and reserve availability",
			SystemPrompt:   crewCompliancePrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryCrew},
			SafetyCritical: true,
		},
		AgentMaintenance: {
			Name:           AgentMaintenance,
			Description:    "Airworthiness, defect deferral, and repair turnaround",
			SystemPrompt:   maintenancePrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryMaintenance, tools.CategoryFleet},
			SafetyCritical: true,
		},
		AgentRegulatory: {
			Name:           AgentRegulatory,
			Description:    "Curfews, slot restrictions, and operating permissions",
			SystemPrompt:   regulatoryPrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryAirport},
			SafetyCritical: true,
		},
		AgentNetwork: {
			Name:           AgentNetwork,
			Description:    "Downstream rotations, connectivity, and schedule recovery",
			SystemPrompt:   networkPrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryNetwork, tools.CategoryFleet},
		},
		AgentGuestExperience: {
			Name:           AgentGuestExperience,
			Description:    "Passenger impact, rebooking, and care obligations",
			SystemPrompt:   guestExperiencePrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryNetwork},
		},
		AgentCargo: {
			Name:           AgentCargo,
			Description:    "Freight exposure, time-critical shipments, and offload options",
			SystemPrompt:   cargoPrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryCargo},
		},
		AgentFinance: {
			Name:           AgentFinance,
			Description:    "Delay cost exposure and recovery-option economics",
			SystemPrompt:   financePrompt,
			ToolCategories: []string{tools.CategoryFlight, tools.CategoryFinance},
		},
	}
}
