package entity_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

func TestNewBooking_CalculatesPayment(t *testing.T) {
	b := newBooking(t)

	assert.Equal(t, valueobject.BookingStatusPending, b.Status)
	assert.Equal(t, valueobject.PaymentStatusPending, b.PaymentStatus)
	p, ok := b.Payment()
	require.True(t, ok)
	assert.Equal(t, money(t, 4000), p.Total)
	assert.Equal(t, money(t, 600), p.Commission)
	assert.Equal(t, money(t, 3400), p.WorkerPayout)
}

func TestNewBooking_Validation(t *testing.T) {
	base := entity.NewBookingParams{
		ListingID:      uuid.New(),
		WorkerID:       uuid.New(),
		ClientID:       uuid.New(),
		ProposedRate:   money(t, 500),
		EstimatedHours: 2,
		CommissionRate: valueobject.DefaultCommissionRate,
	}

	selfApply := base
	selfApply.ClientID = selfApply.WorkerID
	zeroRate := base
	zeroRate.ProposedRate = 0
	noHours := base
	noHours.EstimatedHours = 0
	badCommission := base
	badCommission.CommissionRate = 10000
	emptyQuestion := base
	emptyQuestion.Answers = map[string]string{" ": "да"}
	hugeRate := base
	hugeRate.ProposedRate = valueobject.MaxAmount + 1
	hugeTotal := base
	hugeTotal.ProposedRate = valueobject.Money(1e12)
	hugeTotal.EstimatedHours = 100
	hugeFinal := base
	overMax := valueobject.MaxAmount + 1
	hugeFinal.FinalAmount = &overMax

	for name, p := range map[string]entity.NewBookingParams{
		"свой отклик":                 selfApply,
		"нулевая ставка":              zeroRate,
		"нет часов":                   noHours,
		"комиссия 100%":               badCommission,
		"пустой вопрос":               emptyQuestion,
		"ставка выше потолка":         hugeRate,
		"ставка на часы выше потолка": hugeTotal,
		"итоговая сумма выше потолка": hugeFinal,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := entity.NewBooking(p, t0)
			assert.True(t, apperror.IsValidation(err), err)
		})
	}
}

func TestBooking_FullLifecycle(t *testing.T) {
	b := newBooking(t)
	walk(t, b,
		valueobject.BookingStatusAccepted,
		valueobject.BookingStatusConfirmed,
		valueobject.BookingStatusInProgress,
		valueobject.BookingStatusCompleted,
		valueobject.BookingStatusApproved,
		valueobject.BookingStatusPaid,
	)

	assert.Equal(t, valueobject.BookingStatusPaid, b.Status)
	assert.Equal(t, valueobject.PaymentStatusReleased, b.PaymentStatus)
	assert.Len(t, b.StatusHistory, 6)
	assert.Contains(t, b.StatusHistory[0], "pending → accepted")

	timeline := b.Timeline()
	require.Len(t, timeline, 5)
	stages := []entity.TimelineStage{entity.StageApplied, entity.StageAccepted, entity.StageStarted, entity.StageCompleted, entity.StageReviewed}
	for i, e := range timeline {
		assert.Equal(t, stages[i], e.Stage)
		if i > 0 {
			assert.False(t, e.Timestamp.Before(timeline[i-1].Timestamp), "вехи должны идти по возрастанию")
		}
	}
	require.NotNil(t, b.ActualStart)
	require.NotNil(t, b.ActualEnd)
	assert.True(t, b.ActualEnd.After(*b.ActualStart))
}

func TestBooking_PaymentStatusFollowsLifecycle(t *testing.T) {
	b := newBooking(t)
	walk(t, b, valueobject.BookingStatusAccepted, valueobject.BookingStatusConfirmed)
	assert.Equal(t, valueobject.PaymentStatusHeld, b.PaymentStatus)

	require.NoError(t, b.Transition(valueobject.BookingStatusCancelled, "клиент передумал", t0.Add(5*time.Hour)))
	assert.Equal(t, valueobject.PaymentStatusRefunded, b.PaymentStatus)
	assert.Contains(t, b.StatusHistory[len(b.StatusHistory)-1], ": клиент передумал")
}

func TestBooking_IllegalTransitionLeavesBookingUntouched(t *testing.T) {
	b := newBooking(t)
	before := b.Clone()

	err := b.Transition(valueobject.BookingStatusPaid, "", t0.Add(time.Hour))

	var te *entity.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, valueobject.BookingStatusPending, te.From)
	assert.Equal(t, valueobject.BookingStatusPaid, te.To)
	assert.True(t, apperror.IsIllegalTransition(err))
	assert.Equal(t, before, b)
}

func TestBooking_TimestampsNeverGoBackwards(t *testing.T) {
	b := newBooking(t)

	require.NoError(t, b.Transition(valueobject.BookingStatusAccepted, "", t0.Add(-time.Hour)))
	require.NotNil(t, b.AcceptedAt)
	assert.Equal(t, b.AppliedAt, *b.AcceptedAt)
}

func TestBooking_CompletedAtSameInstantAsStart(t *testing.T) {
	b := newBooking(t)
	walk(t, b, valueobject.BookingStatusAccepted, valueobject.BookingStatusConfirmed, valueobject.BookingStatusInProgress)

	require.NoError(t, b.Transition(valueobject.BookingStatusCompleted, "", *b.ActualStart))
	assert.True(t, b.ActualEnd.After(*b.ActualStart))
}

func TestBooking_HoldsListing(t *testing.T) {
	pending := newBooking(t)
	require.NoError(t, pending.Transition(valueobject.BookingStatusDisputed, "", t0.Add(time.Hour)))
	assert.False(t, pending.HoldsListing())
	assert.True(t, pending.IssueFlagged)

	accepted := newBooking(t)
	walk(t, accepted, valueobject.BookingStatusAccepted)
	assert.True(t, accepted.HoldsListing())
	require.NoError(t, accepted.Transition(valueobject.BookingStatusDisputed, "", t0.Add(2*time.Hour)))
	assert.True(t, accepted.HoldsListing())
	assert.Equal(t, valueobject.PaymentStatusDisputed, accepted.PaymentStatus)
}

func TestBooking_CanCancel(t *testing.T) {
	grace := entity.DefaultCancelGracePeriod

	t.Run("в работе", func(t *testing.T) {
		b := newBooking(t)
		walk(t, b, valueobject.BookingStatusAccepted, valueobject.BookingStatusConfirmed, valueobject.BookingStatusInProgress)
		got := b.CanCancel(t0.Add(4*time.Hour), grace)
		assert.False(t, got.Allowed)
		assert.NotEmpty(t, got.Reason)
	})

	t.Run("старт через час", func(t *testing.T) {
		b := newBooking(t)
		walk(t, b, valueobject.BookingStatusAccepted, valueobject.BookingStatusConfirmed)
		now := t0.Add(3 * time.Hour)
		require.NoError(t, b.Schedule(now.Add(time.Hour), now.Add(5*time.Hour), now))
		assert.False(t, b.CanCancel(now, grace).Allowed)
	})

	t.Run("старт через три часа", func(t *testing.T) {
		b := newBooking(t)
		walk(t, b, valueobject.BookingStatusAccepted, valueobject.BookingStatusConfirmed)
		now := t0.Add(3 * time.Hour)
		require.NoError(t, b.Schedule(now.Add(3*time.Hour), now.Add(7*time.Hour), now))
		assert.True(t, b.CanCancel(now, grace).Allowed)
	})

	t.Run("без расписания", func(t *testing.T) {
		assert.True(t, newBooking(t).CanCancel(t0, grace).Allowed)
	})

	t.Run("уже отменена", func(t *testing.T) {
		b := newBooking(t)
		walk(t, b, valueobject.BookingStatusCancelled)
		assert.False(t, b.CanCancel(t0.Add(2*time.Hour), grace).Allowed)
	})
}

func TestBooking_SetFinalAmount(t *testing.T) {
	b := newBooking(t)
	require.NoError(t, b.SetFinalAmount(money(t, 1200), t0))

	p, _ := b.Payment()
	assert.Equal(t, money(t, 180), p.Commission)
	assert.Equal(t, money(t, 1020), p.WorkerPayout)

	assert.Error(t, b.SetFinalAmount(0, t0))
	assert.True(t, apperror.IsValidation(b.SetFinalAmount(valueobject.MaxAmount+1, t0)))
	p, _ = b.Payment()
	assert.Equal(t, money(t, 1200), p.Total)

	walk(t, b,
		valueobject.BookingStatusAccepted,
		valueobject.BookingStatusConfirmed,
		valueobject.BookingStatusInProgress,
		valueobject.BookingStatusCompleted,
		valueobject.BookingStatusApproved,
	)
	err := b.SetFinalAmount(money(t, 5000), t0.Add(10*time.Hour))
	assert.True(t, apperror.IsValidation(err))
	p, _ = b.Payment()
	assert.Equal(t, money(t, 1200), p.Total)
}

func TestBooking_Schedule(t *testing.T) {
	b := newBooking(t)
	assert.Error(t, b.Schedule(t0.Add(-time.Hour), t0.Add(time.Hour), t0), "старт в прошлом")
	assert.Error(t, b.Schedule(t0.Add(2*time.Hour), t0.Add(time.Hour), t0), "конец раньше начала")
	require.NoError(t, b.Schedule(t0.Add(time.Hour), t0.Add(3*time.Hour), t0))
	assert.Equal(t, t0.Add(time.Hour), *b.ScheduledStart)
}

func TestBooking_Rate(t *testing.T) {
	b := newBooking(t)
	assert.True(t, apperror.IsValidation(b.Rate(valueobject.RoleClient, 5, t0)), "до завершения оценивать нельзя")

	walk(t, b,
		valueobject.BookingStatusAccepted,
		valueobject.BookingStatusConfirmed,
		valueobject.BookingStatusInProgress,
		valueobject.BookingStatusCompleted,
	)
	now := t0.Add(5 * time.Hour)
	assert.Error(t, b.Rate(valueobject.RoleClient, 6, now))
	require.NoError(t, b.Rate(valueobject.RoleClient, 5, now))
	require.NoError(t, b.Rate(valueobject.RoleWorker, 4, now))
	assert.Error(t, b.Rate(valueobject.RoleClient, 3, now), "повторная оценка")
	assert.Equal(t, 5, *b.ClientSatisfaction)
	assert.Equal(t, 4, *b.WorkerSatisfaction)
}

func TestBooking_EvidenceNotesAndIssues(t *testing.T) {
	b := newBooking(t)
	assert.Error(t, b.AddCompletionEvidence("https://files.example/1.jpg", t0), "до начала работ")

	walk(t, b, valueobject.BookingStatusAccepted, valueobject.BookingStatusConfirmed, valueobject.BookingStatusInProgress)
	require.NoError(t, b.AddCompletionEvidence("https://files.example/1.jpg", t0.Add(4*time.Hour)))
	assert.Equal(t, []string{"https://files.example/1.jpg"}, b.CompletionEvidence)

	require.NoError(t, b.AddNote(valueobject.RoleWorker, "купил смеситель", t0.Add(4*time.Hour)))
	require.NoError(t, b.AddNote(valueobject.RoleWorker, "заменил", t0.Add(5*time.Hour)))
	assert.Contains(t, b.WorkerNotes, "купил смеситель\n")
	assert.Empty(t, b.ClientNotes)

	assert.Error(t, b.FlagIssue("  ", t0))
	require.NoError(t, b.FlagIssue("опоздал на два часа", t0.Add(5*time.Hour)))
	assert.True(t, b.IssueFlagged)
	assert.Equal(t, valueobject.BookingStatusInProgress, b.Status)
}

func TestBooking_WorkDuration(t *testing.T) {
	tests := []struct {
		actual time.Duration
		want   entity.Efficiency
	}{
		{3 * time.Hour, entity.EfficiencyEfficient},
		{4 * time.Hour, entity.EfficiencyEfficient},
		{4*time.Hour + 30*time.Minute, entity.EfficiencyOnTime},
		{6 * time.Hour, entity.EfficiencyOvertime},
	}
	for _, tt := range tests {
		b := newBooking(t)
		start := t0.Add(time.Hour)
		end := start.Add(tt.actual)
		b.ActualStart, b.ActualEnd = &start, &end

		d := b.WorkDuration()
		require.NotNil(t, d.Efficiency)
		assert.Equal(t, tt.want, *d.Efficiency, "actual=%s", tt.actual)
		assert.InDelta(t, tt.actual.Hours(), *d.ActualHours, 0.05)
	}

	empty := newBooking(t).WorkDuration()
	assert.Nil(t, empty.ActualHours)
	assert.Nil(t, empty.Efficiency)
	assert.Equal(t, 4.0, empty.EstimatedHours)
}

func TestBooking_RoleOf(t *testing.T) {
	b := newBooking(t)
	role, ok := b.RoleOf(b.WorkerID)
	assert.True(t, ok)
	assert.Equal(t, valueobject.RoleWorker, role)

	_, ok = b.RoleOf(uuid.New())
	assert.False(t, ok)
}
