package valueobject

import "github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"

type ListingStatus string

const (
	ListingStatusDraft      ListingStatus = "draft"
	ListingStatusOpen       ListingStatus = "open"
	ListingStatusAssigned   ListingStatus = "assigned"
	ListingStatusInProgress ListingStatus = "in_progress"
	ListingStatusReview     ListingStatus = "review"
	ListingStatusCompleted  ListingStatus = "completed"
	ListingStatusCancelled  ListingStatus = "cancelled"
	ListingStatusDisputed   ListingStatus = "disputed"
)

func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingStatusDraft, ListingStatusOpen, ListingStatusAssigned, ListingStatusInProgress,
		ListingStatusReview, ListingStatusCompleted, ListingStatusCancelled, ListingStatusDisputed:
		return true
	}
	return false
}

// CanTransitionTo движение статуса объявления монотонно, кроме отмены.
// assigned -> open допускается только при отмене принятой заявки.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	if next == ListingStatusCancelled {
		return s.IsPreCompletion()
	}
	switch s {
	case ListingStatusDraft:
		return next == ListingStatusOpen
	case ListingStatusOpen:
		return next == ListingStatusAssigned
	case ListingStatusAssigned:
		return next == ListingStatusInProgress || next == ListingStatusOpen || next == ListingStatusDisputed
	case ListingStatusInProgress:
		return next == ListingStatusReview || next == ListingStatusDisputed
	case ListingStatusReview:
		return next == ListingStatusCompleted || next == ListingStatusDisputed
	case ListingStatusCompleted, ListingStatusCancelled, ListingStatusDisputed:
		return false
	}
	return false
}

// IsPreCompletion статусы, из которых объявление ещё можно отменить.
func (s ListingStatus) IsPreCompletion() bool {
	switch s {
	case ListingStatusDraft, ListingStatusOpen, ListingStatusAssigned, ListingStatusInProgress,
		ListingStatusReview, ListingStatusDisputed:
		return true
	}
	return false
}

func NewListingStatus(status string) (ListingStatus, error) {
	s := ListingStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус объявления: %q", status)
	}
	return s, nil
}

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusAccepted   BookingStatus = "accepted"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusApproved   BookingStatus = "approved"
	BookingStatusPaid       BookingStatus = "paid"
	BookingStatusRejected   BookingStatus = "rejected"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusDisputed   BookingStatus = "disputed"
)

// AllBookingStatuses в порядке нормального прохождения, затем боковые ветки.
var AllBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAccepted,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusApproved,
	BookingStatusPaid,
	BookingStatusRejected,
	BookingStatusCancelled,
	BookingStatusDisputed,
}

// LockedBookingStatuses статусы, удерживающие объявление за одним исполнителем.
// disputed удерживает объявление только если заявка была принята (см. entity.Booking.HoldsListing).
var LockedBookingStatuses = []BookingStatus{
	BookingStatusAccepted,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusApproved,
	BookingStatusPaid,
}

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusApproved, BookingStatusPaid, BookingStatusRejected,
		BookingStatusCancelled, BookingStatusDisputed:
		return true
	}
	return false
}

// CanTransitionTo таблица допустимых переходов заявки.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if next == BookingStatusDisputed {
		return s.IsActive()
	}
	switch s {
	case BookingStatusPending:
		return next == BookingStatusAccepted || next == BookingStatusRejected || next == BookingStatusCancelled
	case BookingStatusAccepted:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusInProgress || next == BookingStatusCancelled
	case BookingStatusInProgress:
		return next == BookingStatusCompleted
	case BookingStatusCompleted:
		return next == BookingStatusApproved
	case BookingStatusApproved:
		return next == BookingStatusPaid
	case BookingStatusPaid, BookingStatusRejected, BookingStatusCancelled, BookingStatusDisputed:
		return false
	}
	return false
}

// IsActive нетерминальные статусы.
func (s BookingStatus) IsActive() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusApproved:
		return true
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && !s.IsActive()
}

// IsLocked статус принятой (или более поздней) заявки.
func (s BookingStatus) IsLocked() bool {
	for _, locked := range LockedBookingStatuses {
		if s == locked {
			return true
		}
	}
	return false
}

// Rank порядковый номер в нормальной цепочке; -1 для боковых веток.
func (s BookingStatus) Rank() int {
	switch s {
	case BookingStatusPending:
		return 0
	case BookingStatusAccepted:
		return 1
	case BookingStatusConfirmed:
		return 2
	case BookingStatusInProgress:
		return 3
	case BookingStatusCompleted:
		return 4
	case BookingStatusApproved:
		return 5
	case BookingStatusPaid:
		return 6
	}
	return -1
}

func NewBookingStatus(status string) (BookingStatus, error) {
	s := BookingStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус заявки: %q", status)
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusHeld       PaymentStatus = "held"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusReleased   PaymentStatus = "released"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusDisputed   PaymentStatus = "disputed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusHeld, PaymentStatusProcessing, PaymentStatusReleased,
		PaymentStatusRefunded, PaymentStatusDisputed:
		return true
	}
	return false
}

func NewPaymentStatus(status string) (PaymentStatus, error) {
	s := PaymentStatus(status)
	if !s.IsValid() {
		return "", apperror.Validation("некорректный статус оплаты: %q", status)
	}
	return s, nil
}

type BudgetMode string

const (
	BudgetModeFixed  BudgetMode = "fixed"
	BudgetModeHourly BudgetMode = "hourly"
)

func (m BudgetMode) IsValid() bool {
	return m == BudgetModeFixed || m == BudgetModeHourly
}

type Urgency string

const (
	UrgencyFlexible Urgency = "flexible"
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyASAP     Urgency = "asap"
)

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyFlexible, UrgencyNormal, UrgencyUrgent, UrgencyASAP:
		return true
	}
	return false
}

type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleWorker || r == RoleAdmin
}
