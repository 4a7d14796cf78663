package entity

import (
	"math"
	"time"
)

type Efficiency string

const (
	EfficiencyEfficient Efficiency = "efficient"
	EfficiencyOnTime    Efficiency = "on-time"
	EfficiencyOvertime  Efficiency = "overtime"
)

type WorkDuration struct {
	EstimatedHours float64     `json:"estimated_hours"`
	ActualHours    *float64    `json:"actual_hours,omitempty"`
	VarianceHours  *float64    `json:"variance_hours,omitempty"`
	Efficiency     *Efficiency `json:"efficiency,omitempty"`
}

// WorkDuration сравнивает оценку часов с фактическим временем работ.
// Фактические часы округляются до одного знака после запятой.
func (b *Booking) WorkDuration() WorkDuration {
	d := WorkDuration{EstimatedHours: b.EstimatedHours}
	if b.ActualStart == nil || b.ActualEnd == nil {
		return d
	}

	actual := roundTenth(b.ActualEnd.Sub(*b.ActualStart).Hours())
	variance := roundTenth(actual - b.EstimatedHours)

	var eff Efficiency
	switch {
	case variance <= 0:
		eff = EfficiencyEfficient
	case variance <= 1:
		eff = EfficiencyOnTime
	default:
		eff = EfficiencyOvertime
	}

	d.ActualHours = &actual
	d.VarianceHours = &variance
	d.Efficiency = &eff
	return d
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

type TimelineStage string

const (
	StageApplied   TimelineStage = "applied"
	StageAccepted  TimelineStage = "accepted"
	StageStarted   TimelineStage = "started"
	StageCompleted TimelineStage = "completed"
	StageReviewed  TimelineStage = "reviewed"
)

type TimelineEntry struct {
	Stage       TimelineStage `json:"stage"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description"`
}

// Timeline вехи заявки в порядке полей; сортировка не нужна, отметки монотонны.
func (b *Booking) Timeline() []TimelineEntry {
	entries := []TimelineEntry{{
		Stage:       StageApplied,
		Timestamp:   b.AppliedAt,
		Description: "Отклик отправлен",
	}}

	milestones := []struct {
		stage TimelineStage
		at    *time.Time
		desc  string
	}{
		{StageAccepted, b.AcceptedAt, "Клиент принял отклик"},
		{StageStarted, b.StartedAt, "Исполнитель начал работу"},
		{StageCompleted, b.CompletedAt, "Исполнитель завершил работу"},
		{StageReviewed, b.ReviewedAt, "Клиент принял результат"},
	}
	for _, m := range milestones {
		if m.at == nil {
			continue
		}
		entries = append(entries, TimelineEntry{Stage: m.stage, Timestamp: *m.at, Description: m.desc})
	}
	return entries
}
