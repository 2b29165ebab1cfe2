package priority

import (
	"testing"

	"curatorhub/internal/model"
)

func TestSlotAt(t *testing.T) {
	tests := []struct {
		hour   int
		slot   string
		energy Energy
	}{
		{4, "evening", EnergyLow},
		{5, "morning", EnergyHigh},
		{11, "morning", EnergyHigh},
		{12, "afternoon", EnergyMedium},
		{16, "afternoon", EnergyMedium},
		{17, "evening", EnergyLow},
		{23, "evening", EnergyLow},
	}

	for _, tt := range tests {
		slot, energy := SlotAt(tt.hour)
		if slot != tt.slot || energy != tt.energy {
			t.Fatalf("SlotAt(%d) = (%s, %s), want (%s, %s)", tt.hour, slot, energy, tt.slot, tt.energy)
		}
	}
}

func TestSuggestTaskTime(t *testing.T) {
	creative := model.Task{Category: model.CategoryExhibition, EstimatedHours: hours(1)}
	heavyAdmin := model.Task{Category: model.CategoryAdmin, EstimatedHours: hours(6)}
	light := model.Task{Category: model.CategoryAdmin, EstimatedHours: hours(1)}

	tests := []struct {
		name string
		task model.Task
		hour int
		when string
		slot string
	}{
		{"creative in the morning", creative, 9, "now", "morning"},
		{"creative in the afternoon", creative, 14, "tomorrow morning", "afternoon"},
		{"complex admin at night", heavyAdmin, 21, "tomorrow morning", "evening"},
		{"complex admin in the morning", heavyAdmin, 8, "now", "morning"},
		{"light task in the afternoon", light, 13, "now", "afternoon"},
		{"light task at night", light, 20, "now", "evening"},
		{"light task in the morning", light, 7, "afternoon", "morning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestTaskTime(tt.task, tt.hour)
			if got.When != tt.when || got.Slot != tt.slot {
				t.Fatalf("SuggestTaskTime() = %+v, want when=%s slot=%s", got, tt.when, tt.slot)
			}
			if got.Reason == "" {
				t.Fatalf("SuggestTaskTime() reason is empty")
			}
		})
	}
}
