package priority

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"curatorhub/internal/model"
)

const (
	TopPriorityLimit = 3
	CandidateLimit   = 10
	SlotHourCap      = 3.0

	overloadHours  = 8.0
	underloadHours = 4.0
	eveningMax     = 2
)

type Energy string

const (
	EnergyHigh   Energy = "high"
	EnergyMedium Energy = "medium"
	EnergyLow    Energy = "low"
)

type ScheduleSlot struct {
	Time   string       `json:"time"`
	Tasks  []model.Task `json:"tasks"`
	Energy Energy       `json:"energy"`
}

// Hours sums the estimates of the tasks in the slot.
func (s ScheduleSlot) Hours() float64 {
	var total float64
	for _, t := range s.Tasks {
		total += t.Hours()
	}
	return total
}

type DailySchedule struct {
	Date                string       `json:"date"`
	Morning             ScheduleSlot `json:"morning"`
	Afternoon           ScheduleSlot `json:"afternoon"`
	Evening             ScheduleSlot `json:"evening"`
	TotalEstimatedHours float64      `json:"totalEstimatedHours"`
	AIRecommendation    string       `json:"aiRecommendation"`
	// Deferred holds candidates trimmed from a slot by the hour cap.
	Deferred []model.Task `json:"deferred"`
}

// Planner ranks tasks and builds daily schedules on top of a Scorer.
type Planner struct {
	scorer *Scorer
}

func NewPlanner(scorer *Scorer) *Planner {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Planner{scorer: scorer}
}

// Rank scores every eligible task and orders the results by descending
// urgency, lower task id first on equal scores.
func (p *Planner) Rank(tasks []model.Task, now time.Time) []UrgencyResult {
	results := make([]UrgencyResult, 0, len(tasks))
	for _, t := range tasks {
		if !t.Status.Eligible() {
			continue
		}
		results = append(results, p.scorer.ScoreAt(t, now))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].UrgencyScore != results[j].UrgencyScore {
			return results[i].UrgencyScore > results[j].UrgencyScore
		}
		return results[i].Task.ID < results[j].Task.ID
	})
	return results
}

// TopPriorityTasks returns at most three of the most urgent eligible tasks.
func (p *Planner) TopPriorityTasks(tasks []model.Task) []UrgencyResult {
	return p.TopPriorityTasksAt(tasks, p.scorer.now())
}

func (p *Planner) TopPriorityTasksAt(tasks []model.Task, now time.Time) []UrgencyResult {
	ranked := p.Rank(tasks, now)
	if len(ranked) > TopPriorityLimit {
		ranked = ranked[:TopPriorityLimit]
	}
	return ranked
}

// DailySchedule builds today's plan from tasks.
func (p *Planner) DailySchedule(tasks []model.Task) DailySchedule {
	now := p.scorer.now()
	return p.ScheduleFor(tasks, now, now)
}

// ScheduleFor builds the plan labelled with day, scoring deadlines against now.
func (p *Planner) ScheduleFor(tasks []model.Task, day, now time.Time) DailySchedule {
	ranked := p.Rank(tasks, now)
	if len(ranked) > CandidateLimit {
		ranked = ranked[:CandidateLimit]
	}

	morning := ScheduleSlot{Time: "morning", Energy: EnergyHigh, Tasks: []model.Task{}}
	afternoon := ScheduleSlot{Time: "afternoon", Energy: EnergyMedium, Tasks: []model.Task{}}
	evening := ScheduleSlot{Time: "evening", Energy: EnergyLow, Tasks: []model.Task{}}

	for _, r := range ranked {
		switch SlotEnergy(r.Task) {
		case EnergyHigh:
			morning.Tasks = append(morning.Tasks, r.Task)
		case EnergyMedium:
			afternoon.Tasks = append(afternoon.Tasks, r.Task)
		default:
			evening.Tasks = append(evening.Tasks, r.Task)
		}
	}

	deferred := []model.Task{}
	deferred = append(deferred, balance(&morning)...)
	deferred = append(deferred, balance(&afternoon)...)
	deferred = append(deferred, balance(&evening)...)

	total := morning.Hours() + afternoon.Hours() + evening.Hours()

	return DailySchedule{
		Date:                day.Format("2006-01-02"),
		Morning:             morning,
		Afternoon:           afternoon,
		Evening:             evening,
		TotalEstimatedHours: total,
		AIRecommendation:    scheduleAdvice(total, morning, evening, len(deferred)),
		Deferred:            deferred,
	}
}

// SlotEnergy picks the slot a task belongs in: long exhibition or research
// work in the morning, education and publication in the afternoon, the rest
// in the evening.
func SlotEnergy(t model.Task) Energy {
	switch {
	case (t.Category == model.CategoryExhibition || t.Category == model.CategoryResearch) && t.Hours() > 2:
		return EnergyHigh
	case t.Category == model.CategoryEducation || t.Category == model.CategoryPublication:
		return EnergyMedium
	default:
		return EnergyLow
	}
}

// balance trims tasks from the tail of the slot until it fits the hour cap or
// a single task is left. Trimmed tasks are returned in slot order.
func balance(slot *ScheduleSlot) []model.Task {
	var trimmed []model.Task
	hours := slot.Hours()
	for hours > SlotHourCap && len(slot.Tasks) > 1 {
		last := slot.Tasks[len(slot.Tasks)-1]
		slot.Tasks = slot.Tasks[:len(slot.Tasks)-1]
		hours -= last.Hours()
		trimmed = append([]model.Task{last}, trimmed...)
	}
	return trimmed
}

func scheduleAdvice(total float64, morning, evening ScheduleSlot, deferred int) string {
	var advice []string
	if total > overloadHours {
		advice = append(advice, fmt.Sprintf("Today holds %.1f hours of planned work, which is more than a sustainable day. Consider moving something to tomorrow.", total))
	}
	if total < underloadHours {
		if deferred > 0 {
			advice = append(advice, fmt.Sprintf("Only %.1f hours are planned. There is room to pull in %d deferred task(s).", total, deferred))
		} else {
			advice = append(advice, fmt.Sprintf("Only %.1f hours are planned. Use the spare time for backlog or deferred work.", total))
		}
	}
	if len(morning.Tasks) == 0 {
		advice = append(advice, "The morning is empty. Move creative exhibition or research work there while energy is high.")
	}
	if len(evening.Tasks) > eveningMax {
		advice = append(advice, fmt.Sprintf("The evening holds %d tasks. Trim it to keep the end of the day light.", len(evening.Tasks)))
	}

	if len(advice) == 0 {
		return "The schedule is well-balanced. Keep the order and take short breaks between slots."
	}
	return strings.Join(advice, "\n")
}
