// Package priority scores curator tasks by urgency and packs the most urgent
// ones into a three-slot daily plan. Everything here is pure: callers supply
// the tasks and the clock, nothing is read from or written to a store.
package priority

import (
	"fmt"
	"math"
	"strings"
	"time"

	"curatorhub/internal/model"
)

const (
	weightDeadline   = 0.40
	weightImpact     = 0.30
	weightDependency = 0.20
	weightComplexity = 0.10

	maxFactor = 10
)

// Factors are the four sub-scores behind an urgency score, each in [0,10].
type Factors struct {
	Deadline   int `json:"deadline"`
	Impact     int `json:"impact"`
	Dependency int `json:"dependency"`
	Complexity int `json:"complexity"`
}

// Composite is the weighted sum of the factors, rounded to two decimals.
func (f Factors) Composite() float64 {
	score := weightDeadline*float64(f.Deadline) +
		weightImpact*float64(f.Impact) +
		weightDependency*float64(f.Dependency) +
		weightComplexity*float64(f.Complexity)
	return math.Round(score*100) / 100
}

type UrgencyResult struct {
	Task           model.Task `json:"task"`
	UrgencyScore   float64    `json:"urgencyScore"`
	Factors        Factors    `json:"factors"`
	Recommendation string     `json:"recommendation"`
}

// DependencyFunc maps a task to its dependency sub-score in [0,10].
type DependencyFunc func(model.Task) int

// Scorer computes urgency results. The zero value scores against time.Now
// with the category dependency heuristic.
type Scorer struct {
	Now        func() time.Time
	Dependency DependencyFunc
}

func NewScorer() *Scorer {
	return &Scorer{Now: time.Now, Dependency: CategoryDependency}
}

func (s *Scorer) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Score scores t against the scorer's clock.
func (s *Scorer) Score(t model.Task) UrgencyResult {
	return s.ScoreAt(t, s.now())
}

// ScoreAt scores t as if the current time were now.
func (s *Scorer) ScoreAt(t model.Task, now time.Time) UrgencyResult {
	dep := CategoryDependency
	if s != nil && s.Dependency != nil {
		dep = s.Dependency
	}

	f := Factors{
		Deadline:   DeadlineScore(t.DueDate, now),
		Impact:     ImpactScore(t),
		Dependency: clamp(dep(t)),
		Complexity: ComplexityScore(t.EstimatedHours),
	}
	score := f.Composite()

	return UrgencyResult{
		Task:           t,
		UrgencyScore:   score,
		Factors:        f,
		Recommendation: Recommend(f, score),
	}
}

// DaysUntil is the number of calendar days from now's date to due's date.
// Negative when due is in the past.
func DaysUntil(due, now time.Time) int {
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	n := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(d.Sub(n).Hours() / 24))
}

func DeadlineScore(due *time.Time, now time.Time) int {
	if due == nil {
		return 2
	}

	days := DaysUntil(*due, now)
	switch {
	case days < 0:
		return 10
	case days <= 1:
		return 9
	case days <= 3:
		return 8
	case days <= 7:
		return 6
	case days <= 14:
		return 4
	case days <= 30:
		return 3
	default:
		return 2
	}
}

var categoryImpact = map[model.Category]int{
	model.CategoryExhibition:  5,
	model.CategoryEducation:   4,
	model.CategoryCollection:  3,
	model.CategoryPublication: 3,
	model.CategoryResearch:    2,
	model.CategoryAdmin:       2,
}

func ImpactScore(t model.Task) int {
	score, ok := categoryImpact[t.Category]
	if !ok {
		score = 2
	}

	if t.EstimatedHours != nil {
		h := *t.EstimatedHours
		switch {
		case h > 8:
			score += 3
		case h > 4:
			score += 2
		default:
			score++
		}
	}

	if score > maxFactor {
		score = maxFactor
	}
	return score
}

// CategoryDependency stands in for a real dependency graph: exhibition and
// collection work is assumed to block other people.
func CategoryDependency(t model.Task) int {
	if t.Category == model.CategoryExhibition || t.Category == model.CategoryCollection {
		return 5
	}
	return 2
}

// BlockingDependency starts from the category heuristic and adds 2 for every
// pending task known to wait on t.
func BlockingDependency(t model.Task) int {
	return clamp(CategoryDependency(t) + 2*t.BlockedCount)
}

// ComplexityScore grades effort by estimated hours. The 2h boundary is inclusive.
func ComplexityScore(hours *float64) int {
	if hours == nil {
		return 2
	}

	h := *hours
	switch {
	case h > 16:
		return 8
	case h > 8:
		return 6
	case h > 4:
		return 4
	case h >= 2:
		return 3
	default:
		return 2
	}
}

// Recommend turns factors and the composite score into a one-line advice.
func Recommend(f Factors, score float64) string {
	var reasons []string
	if f.Deadline >= 8 {
		reasons = append(reasons, "deadline is close")
	}
	if f.Impact >= 7 {
		reasons = append(reasons, "high impact")
	}
	if f.Dependency >= 5 {
		reasons = append(reasons, "other work depends on it")
	}
	if f.Complexity >= 6 {
		reasons = append(reasons, "needs focused time")
	}

	why := func(fallback string) string {
		if len(reasons) == 0 {
			return fallback
		}
		return strings.Join(reasons, ", ")
	}

	switch {
	case score >= 8:
		return fmt.Sprintf("Urgent: start on this today (%s).", why("several factors add up"))
	case score >= 6:
		return fmt.Sprintf("Important: schedule this within the next few days (%s).", why("steady pressure across factors"))
	case score >= 4:
		return fmt.Sprintf("Normal: plan this into the current week (%s).", why("no single pressing factor"))
	default:
		return fmt.Sprintf("Low: keep this on the backlog (%s).", why("nothing pressing yet"))
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > maxFactor {
		return maxFactor
	}
	return v
}
