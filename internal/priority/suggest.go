package priority

import "curatorhub/internal/model"

type TimeSuggestion struct {
	When   string `json:"when"`
	Slot   string `json:"slot"`
	Reason string `json:"reason"`
}

// SlotAt maps an hour of the day to its slot label and energy.
func SlotAt(hour int) (string, Energy) {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning", EnergyHigh
	case hour >= 12 && hour <= 16:
		return "afternoon", EnergyMedium
	default:
		return "evening", EnergyLow
	}
}

// Demanding reports whether a task needs high-energy time: creative
// categories or a complexity score of 4 and up.
func Demanding(t model.Task) bool {
	switch t.Category {
	case model.CategoryExhibition, model.CategoryResearch, model.CategoryPublication:
		return true
	}
	return ComplexityScore(t.EstimatedHours) >= 4
}

// SuggestTaskTime recommends when to work on t given the current hour.
func SuggestTaskTime(t model.Task, hour int) TimeSuggestion {
	slot, energy := SlotAt(hour)
	demanding := Demanding(t)

	switch {
	case demanding && energy == EnergyHigh:
		return TimeSuggestion{When: "now", Slot: slot, Reason: "Energy is at its peak and this task needs focus."}
	case !demanding && energy != EnergyHigh:
		return TimeSuggestion{When: "now", Slot: slot, Reason: "A light task fits the current energy level."}
	case demanding:
		return TimeSuggestion{When: "tomorrow morning", Slot: slot, Reason: "This task needs focused time. Save it for the next morning."}
	default:
		return TimeSuggestion{When: "afternoon", Slot: slot, Reason: "Keep the morning for creative work and do this in the afternoon."}
	}
}
