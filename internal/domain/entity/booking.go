package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

const (
	// DefaultCancelGracePeriod минимальный запас до запланированного старта, при котором ещё можно отменить.
	DefaultCancelGracePeriod = 2 * time.Hour

	MaxMessageLength  = 2000
	MaxEvidenceItems  = 20
	MaxEstimatedHours = 1000
	MinSatisfaction   = 1
	MaxSatisfaction   = 5
)

type Booking struct {
	ID             uuid.UUID
	ListingID      uuid.UUID
	WorkerID       uuid.UUID
	ClientID       uuid.UUID
	ProposedRate   valueobject.Money
	EstimatedHours float64
	Message        string
	Answers        map[string]string

	Status        valueobject.BookingStatus
	PaymentStatus valueobject.PaymentStatus

	ScheduledStart *time.Time
	ScheduledEnd   *time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time

	CommissionRate   valueobject.CommissionRate
	FinalAmount      *valueobject.Money
	CommissionAmount *valueobject.Money
	WorkerPayout     *valueobject.Money

	CompletionEvidence []string
	ClientSatisfaction *int
	WorkerSatisfaction *int
	ClientNotes        string
	WorkerNotes        string
	StatusHistory      []string
	IssueFlagged       bool
	IssueReason        string

	AppliedAt   time.Time
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ReviewedAt  *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type NewBookingParams struct {
	ListingID      uuid.UUID
	WorkerID       uuid.UUID
	ClientID       uuid.UUID
	ProposedRate   valueobject.Money
	EstimatedHours float64
	Message        string
	Answers        map[string]string
	FinalAmount    *valueobject.Money
	CommissionRate valueobject.CommissionRate
}

// NewBooking создаёт отклик в статусе pending и сразу рассчитывает оплату.
func NewBooking(p NewBookingParams, now time.Time) (*Booking, error) {
	if p.ListingID == uuid.Nil || p.WorkerID == uuid.Nil || p.ClientID == uuid.Nil {
		return nil, apperror.Validation("не указаны объявление, исполнитель или клиент")
	}
	if p.WorkerID == p.ClientID {
		return nil, apperror.Validation("нельзя откликнуться на собственное объявление")
	}
	if err := valueobject.CheckAmount(p.ProposedRate, "предложенная ставка"); err != nil {
		return nil, err
	}
	if p.EstimatedHours <= 0 || p.EstimatedHours > MaxEstimatedHours {
		return nil, apperror.Validation("оценка часов должна быть в диапазоне (0, %d]", MaxEstimatedHours)
	}
	message := strings.TrimSpace(p.Message)
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return nil, apperror.Validation("сообщение не может быть длиннее %d символов", MaxMessageLength)
	}
	answers := make(map[string]string, len(p.Answers))
	for q, a := range p.Answers {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, apperror.Validation("вопрос анкеты не может быть пустым")
		}
		answers[q] = strings.TrimSpace(a)
	}
	if p.CommissionRate < 0 || p.CommissionRate >= 10000 {
		return nil, apperror.ErrInvalidCommission
	}

	b := &Booking{
		ID:             uuid.New(),
		ListingID:      p.ListingID,
		WorkerID:       p.WorkerID,
		ClientID:       p.ClientID,
		ProposedRate:   p.ProposedRate,
		EstimatedHours: p.EstimatedHours,
		Message:        message,
		Answers:        answers,
		Status:         valueobject.BookingStatusPending,
		PaymentStatus:  valueobject.PaymentStatusPending,
		CommissionRate: p.CommissionRate,
		AppliedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	amount := p.ProposedRate.MulHours(p.EstimatedHours)
	if err := valueobject.CheckAmount(amount, "стоимость работ по ставке"); err != nil {
		return nil, err
	}
	if p.FinalAmount != nil {
		if err := valueobject.CheckAmount(*p.FinalAmount, "итоговая сумма"); err != nil {
			return nil, err
		}
		amount = *p.FinalAmount
	}
	b.applyPayment(amount)
	return b, nil
}

// TransitionError недопустимая пара статусов; заявка при этом не меняется.
type TransitionError struct {
	From valueobject.BookingStatus
	To   valueobject.BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход заявки %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return apperror.New(apperror.ErrCodeIllegalTransition, e.Error())
}

// CanTransitionTo проверка по таблице переходов.
func (b *Booking) CanTransitionTo(next valueobject.BookingStatus) bool {
	return b.Status.CanTransitionTo(next)
}

// Transition единственная точка смены статуса: статус, отметки времени, оплата и журнал
// меняются вместе либо не меняются вовсе.
func (b *Booking) Transition(next valueobject.BookingStatus, note string, now time.Time) error {
	if !next.IsValid() || !b.Status.CanTransitionTo(next) {
		return &TransitionError{From: b.Status, To: next}
	}

	// отметки не могут идти назад, даже если часы отстали
	if last := b.lastMilestone(); now.Before(last) {
		now = last
	}

	prev := b.Status
	if b.FinalAmount == nil {
		b.applyPayment(b.ProposedRate.MulHours(b.EstimatedHours))
	}

	switch next {
	case valueobject.BookingStatusAccepted:
		if b.AcceptedAt == nil {
			b.AcceptedAt = timePtr(now)
		}
	case valueobject.BookingStatusConfirmed:
		b.PaymentStatus = valueobject.PaymentStatusHeld
	case valueobject.BookingStatusInProgress:
		b.StartedAt = timePtr(now)
		if b.ActualStart == nil {
			b.ActualStart = timePtr(now)
		}
	case valueobject.BookingStatusCompleted:
		b.CompletedAt = timePtr(now)
		if b.ActualEnd == nil {
			end := now
			if b.ActualStart != nil && !end.After(*b.ActualStart) {
				end = b.ActualStart.Add(time.Microsecond)
			}
			b.ActualEnd = timePtr(end)
		}
	case valueobject.BookingStatusApproved:
		b.ReviewedAt = timePtr(now)
		b.PaymentStatus = valueobject.PaymentStatusProcessing
	case valueobject.BookingStatusPaid:
		b.PaymentStatus = valueobject.PaymentStatusReleased
	case valueobject.BookingStatusCancelled:
		if b.PaymentStatus == valueobject.PaymentStatusHeld {
			b.PaymentStatus = valueobject.PaymentStatusRefunded
		}
	case valueobject.BookingStatusDisputed:
		b.PaymentStatus = valueobject.PaymentStatusDisputed
		b.IssueFlagged = true
	}

	b.Status = next
	b.appendHistory(prev, next, note, now)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) appendHistory(from, to valueobject.BookingStatus, note string, now time.Time) {
	line := fmt.Sprintf("[%s] status %s → %s", now.UTC().Format(time.RFC3339), from, to)
	if note = strings.TrimSpace(note); note != "" {
		line += ": " + note
	}
	b.StatusHistory = append(b.StatusHistory, line)
}

func (b *Booking) lastMilestone() time.Time {
	last := b.AppliedAt
	for _, t := range []*time.Time{b.AcceptedAt, b.StartedAt, b.CompletedAt, b.ReviewedAt} {
		if t != nil && t.After(last) {
			last = *t
		}
	}
	return last
}

// SetFinalAmount явно задаёт итоговую сумму до приёмки работы и пересчитывает комиссию.
func (b *Booking) SetFinalAmount(amount valueobject.Money, now time.Time) error {
	if err := valueobject.CheckAmount(amount, "итоговая сумма"); err != nil {
		return err
	}
	if !b.Status.IsActive() || b.Status.Rank() >= valueobject.BookingStatusApproved.Rank() {
		return apperror.Validation("итоговую сумму можно менять только до приёмки работы")
	}
	b.applyPayment(amount)
	b.UpdatedAt = now
	return nil
}

func (b *Booking) applyPayment(total valueobject.Money) {
	p := valueobject.CalculatePayment(total, b.CommissionRate)
	b.FinalAmount = moneyPtr(p.Total)
	b.CommissionAmount = moneyPtr(p.Commission)
	b.WorkerPayout = moneyPtr(p.WorkerPayout)
}

// Payment текущее разбиение суммы; ok=false если оплата ещё не рассчитана.
func (b *Booking) Payment() (valueobject.Payment, bool) {
	if b.FinalAmount == nil || b.CommissionAmount == nil || b.WorkerPayout == nil {
		return valueobject.Payment{}, false
	}
	return valueobject.Payment{
		Total:        *b.FinalAmount,
		Commission:   *b.CommissionAmount,
		WorkerPayout: *b.WorkerPayout,
	}, true
}

// HoldsListing заявка закрепляет объявление за исполнителем.
func (b *Booking) HoldsListing() bool {
	if b.Status.IsLocked() {
		return true
	}
	return b.Status == valueobject.BookingStatusDisputed && b.AcceptedAt != nil
}

type CancelEligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// CanCancel запрещает отмену после начала работ и ближе чем за grace до запланированного старта.
func (b *Booking) CanCancel(now time.Time, grace time.Duration) CancelEligibility {
	if b.Status.Rank() >= valueobject.BookingStatusInProgress.Rank() {
		return CancelEligibility{Reason: "работа уже начата, отмена невозможна"}
	}
	if !b.Status.CanTransitionTo(valueobject.BookingStatusCancelled) {
		return CancelEligibility{Reason: fmt.Sprintf("заявку в статусе %s нельзя отменить", b.Status)}
	}
	if b.ScheduledStart != nil && b.ScheduledStart.Sub(now) < grace {
		return CancelEligibility{Reason: fmt.Sprintf("до начала работ меньше %s", grace)}
	}
	return CancelEligibility{Allowed: true}
}

// Schedule задаёт плановое время работ до их начала.
func (b *Booking) Schedule(start, end time.Time, now time.Time) error {
	if b.Status.Rank() < 0 || b.Status.Rank() >= valueobject.BookingStatusInProgress.Rank() {
		return apperror.Validation("расписание можно менять только до начала работ")
	}
	if !end.After(start) {
		return apperror.Validation("окончание должно быть позже начала")
	}
	if start.Before(now) {
		return apperror.Validation("начало работ не может быть в прошлом")
	}
	b.ScheduledStart = timePtr(start.UTC())
	b.ScheduledEnd = timePtr(end.UTC())
	b.UpdatedAt = now
	return nil
}

// AddCompletionEvidence прикладывает подтверждение выполненной работы.
func (b *Booking) AddCompletionEvidence(ref string, now time.Time) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return apperror.Validation("ссылка на подтверждение обязательна")
	}
	if b.Status != valueobject.BookingStatusInProgress && b.Status != valueobject.BookingStatusCompleted {
		return apperror.Validation("подтверждения принимаются только во время и после выполнения работ")
	}
	if len(b.CompletionEvidence) >= MaxEvidenceItems {
		return apperror.Validation("можно приложить не больше %d подтверждений", MaxEvidenceItems)
	}
	b.CompletionEvidence = append(b.CompletionEvidence, ref)
	b.UpdatedAt = now
	return nil
}

// Rate сохраняет оценку удовлетворённости от стороны role.
// Клиент оценивает исполнителя (client_satisfaction), исполнитель - клиента (worker_satisfaction).
func (b *Booking) Rate(role valueobject.Role, score int, now time.Time) error {
	if score < MinSatisfaction || score > MaxSatisfaction {
		return apperror.Validation("оценка должна быть от %d до %d", MinSatisfaction, MaxSatisfaction)
	}
	if b.Status.Rank() < valueobject.BookingStatusCompleted.Rank() {
		return apperror.Validation("оценить можно только завершённую работу")
	}
	var target **int
	switch role {
	case valueobject.RoleClient:
		target = &b.ClientSatisfaction
	case valueobject.RoleWorker:
		target = &b.WorkerSatisfaction
	default:
		return apperror.Validation("оценку выставляют только участники заявки")
	}
	if *target != nil {
		return apperror.Validation("оценка уже выставлена")
	}
	*target = &score
	b.UpdatedAt = now
	return nil
}

// AddNote дописывает заметку стороны в её собственное поле.
func (b *Booking) AddNote(role valueobject.Role, text string, now time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperror.Validation("заметка не может быть пустой")
	}
	line := fmt.Sprintf("[%s] %s", now.UTC().Format(time.RFC3339), text)
	switch role {
	case valueobject.RoleClient:
		b.ClientNotes = joinLine(b.ClientNotes, line)
	case valueobject.RoleWorker:
		b.WorkerNotes = joinLine(b.WorkerNotes, line)
	default:
		return apperror.Validation("заметки оставляют только участники заявки")
	}
	b.UpdatedAt = now
	return nil
}

// FlagIssue отмечает проблему без смены статуса.
func (b *Booking) FlagIssue(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperror.Validation("нужно описать проблему")
	}
	b.IssueFlagged = true
	b.IssueReason = reason
	b.UpdatedAt = now
	return nil
}

func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	return b.ClientID == userID || b.WorkerID == userID
}

// RoleOf роль пользователя в этой заявке.
func (b *Booking) RoleOf(userID uuid.UUID) (valueobject.Role, bool) {
	switch userID {
	case b.ClientID:
		return valueobject.RoleClient, true
	case b.WorkerID:
		return valueobject.RoleWorker, true
	}
	return "", false
}

// Clone глубокая копия для хранилищ в памяти.
func (b *Booking) Clone() *Booking {
	c := *b
	c.Answers = make(map[string]string, len(b.Answers))
	for k, v := range b.Answers {
		c.Answers[k] = v
	}
	c.CompletionEvidence = append([]string(nil), b.CompletionEvidence...)
	c.StatusHistory = append([]string(nil), b.StatusHistory...)
	c.ScheduledStart = copyTime(b.ScheduledStart)
	c.ScheduledEnd = copyTime(b.ScheduledEnd)
	c.ActualStart = copyTime(b.ActualStart)
	c.ActualEnd = copyTime(b.ActualEnd)
	c.AcceptedAt = copyTime(b.AcceptedAt)
	c.StartedAt = copyTime(b.StartedAt)
	c.CompletedAt = copyTime(b.CompletedAt)
	c.ReviewedAt = copyTime(b.ReviewedAt)
	c.FinalAmount = copyMoney(b.FinalAmount)
	c.CommissionAmount = copyMoney(b.CommissionAmount)
	c.WorkerPayout = copyMoney(b.WorkerPayout)
	c.ClientSatisfaction = copyInt(b.ClientSatisfaction)
	c.WorkerSatisfaction = copyInt(b.WorkerSatisfaction)
	return &c
}

func joinLine(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func moneyPtr(m valueobject.Money) *valueobject.Money {
	return &m
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyMoney(m *valueobject.Money) *valueobject.Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
