package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

// GeoPoint координаты объявления. В подборе не используются, только хранятся.
type GeoPoint struct {
	Lat float64
	Lng float64
}

type Location struct {
	City     string
	Province string
	Geo      *GeoPoint
}

type Listing struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	Title             string
	Description       string
	Category          string
	Skills            valueobject.SkillSet
	Budget            valueobject.Budget
	DurationHours     int
	Urgency           valueobject.Urgency
	Location          Location
	Status            valueobject.ListingStatus
	ApplicationCap    *int
	StartDate         *time.Time
	ApplicationsCount int
	ViewsCount        int64
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type NewListingParams struct {
	OwnerID        uuid.UUID
	Title          string
	Description    string
	Category       string
	Skills         []string
	BudgetMin      valueobject.Money
	BudgetMax      valueobject.Money
	BudgetMode     valueobject.BudgetMode
	DurationHours  int
	Urgency        valueobject.Urgency
	Location       Location
	ApplicationCap *int
	StartDate      *time.Time
	Publish        bool
}

// NewListing проверяет входные данные до любых изменений хранилища.
func NewListing(p NewListingParams, now time.Time) (*Listing, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, apperror.Validation("название объявления обязательно")
	}
	if p.OwnerID == uuid.Nil {
		return nil, apperror.Validation("не указан владелец объявления")
	}

	skills, err := valueobject.NewSkillSet(p.Skills)
	if err != nil {
		return nil, err
	}

	budget, err := valueobject.NewBudget(p.BudgetMin, p.BudgetMax, p.BudgetMode)
	if err != nil {
		return nil, err
	}

	if p.DurationHours < 1 {
		return nil, apperror.Validation("длительность должна быть не меньше 1 часа")
	}

	urgency := p.Urgency
	if urgency == "" {
		urgency = valueobject.UrgencyNormal
	}
	if !urgency.IsValid() {
		return nil, apperror.Validation("некорректная срочность: %q", p.Urgency)
	}

	city := strings.TrimSpace(p.Location.City)
	province := strings.TrimSpace(p.Location.Province)
	if city == "" || province == "" {
		return nil, apperror.Validation("город и провинция обязательны")
	}
	if g := p.Location.Geo; g != nil && (g.Lat < -90 || g.Lat > 90 || g.Lng < -180 || g.Lng > 180) {
		return nil, apperror.Validation("некорректные координаты")
	}

	if p.ApplicationCap != nil && *p.ApplicationCap < 1 {
		return nil, apperror.Validation("лимит откликов должен быть положительным")
	}

	status := valueobject.ListingStatusDraft
	if p.Publish {
		status = valueobject.ListingStatusOpen
	}

	return &Listing{
		ID:             uuid.New(),
		OwnerID:        p.OwnerID,
		Title:          title,
		Description:    strings.TrimSpace(p.Description),
		Category:       strings.ToLower(strings.TrimSpace(p.Category)),
		Skills:         skills,
		Budget:         budget,
		DurationHours:  p.DurationHours,
		Urgency:        urgency,
		Location:       Location{City: city, Province: province, Geo: p.Location.Geo},
		Status:         status,
		ApplicationCap: p.ApplicationCap,
		StartDate:      p.StartDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// BudgetPerHour для почасового бюджета возвращает максимальную ставку,
// для фиксированного - budget_max / длительность с округлением.
func (l *Listing) BudgetPerHour() valueobject.Money {
	if l.Budget.Mode == valueobject.BudgetModeHourly {
		return l.Budget.Max
	}
	return l.Budget.Max.PerHour(l.DurationHours)
}

// IsAcceptingApplications объявление открыто, лимит откликов не исчерпан и дата начала не прошла.
func (l *Listing) IsAcceptingApplications(now time.Time) bool {
	if l.Status != valueobject.ListingStatusOpen {
		return false
	}
	if l.ApplicationCap != nil && l.ApplicationsCount >= *l.ApplicationCap {
		return false
	}
	if l.StartDate != nil && l.StartDate.Before(now) {
		return false
	}
	return true
}

// MoveTo меняет статус объявления по таблице допустимых переходов.
func (l *Listing) MoveTo(next valueobject.ListingStatus, now time.Time) error {
	if l.Status == next {
		return nil
	}
	if !l.Status.CanTransitionTo(next) {
		return apperror.New(apperror.ErrCodeIllegalTransition,
			"недопустимый переход объявления "+string(l.Status)+" -> "+string(next))
	}
	l.Status = next
	l.UpdatedAt = now
	return nil
}

func (l *Listing) Publish(now time.Time) error {
	return l.MoveTo(valueobject.ListingStatusOpen, now)
}

func (l *Listing) Cancel(now time.Time) error {
	return l.MoveTo(valueobject.ListingStatusCancelled, now)
}

func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// ListingStatusFor статус объявления, который следует из перехода заявки.
// ok=false если переход заявки объявление не затрагивает.
func ListingStatusFor(from, to valueobject.BookingStatus, heldListing bool) (valueobject.ListingStatus, bool) {
	switch to {
	case valueobject.BookingStatusAccepted:
		return valueobject.ListingStatusAssigned, true
	case valueobject.BookingStatusInProgress:
		return valueobject.ListingStatusInProgress, true
	case valueobject.BookingStatusCompleted:
		return valueobject.ListingStatusReview, true
	case valueobject.BookingStatusApproved:
		return valueobject.ListingStatusCompleted, true
	case valueobject.BookingStatusCancelled:
		if from.IsLocked() {
			return valueobject.ListingStatusOpen, true
		}
	case valueobject.BookingStatusDisputed:
		if heldListing {
			return valueobject.ListingStatusDisputed, true
		}
	}
	return "", false
}
