package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

type ApplyRequest struct {
	ProposedRate   float64           `json:"proposed_rate" binding:"required,gt=0"`
	EstimatedHours float64           `json:"estimated_hours" binding:"required,gt=0"`
	Message        string            `json:"message"`
	Answers        map[string]string `json:"answers"`
	FinalAmount    *float64          `json:"final_amount"`
}

type TransitionRequest struct {
	Status          string `json:"status" binding:"required"`
	Note            string `json:"note"`
	ExpectedVersion *int64 `json:"expected_version"`
}

type ScheduleRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

type FinalAmountRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

type EvidenceRequest struct {
	URL string `json:"url" binding:"required"`
}

type RatingRequest struct {
	Score int `json:"score" binding:"required"`
}

type NoteRequest struct {
	Text string `json:"text" binding:"required"`
}

type IssueRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type PaymentDTO struct {
	Total          float64 `json:"total"`
	Commission     float64 `json:"commission"`
	WorkerPayout   float64 `json:"worker_payout"`
	CommissionRate float64 `json:"commission_rate"`
	Currency       string  `json:"currency"`
}

type BookingResponse struct {
	ID                 uuid.UUID         `json:"id"`
	ListingID          uuid.UUID         `json:"listing_id"`
	WorkerID           uuid.UUID         `json:"worker_id"`
	ClientID           uuid.UUID         `json:"client_id"`
	ProposedRate       float64           `json:"proposed_rate"`
	EstimatedHours     float64           `json:"estimated_hours"`
	Message            string            `json:"message"`
	Answers            map[string]string `json:"answers"`
	Status             string            `json:"status"`
	PaymentStatus      string            `json:"payment_status"`
	Payment            *PaymentDTO       `json:"payment,omitempty"`
	ScheduledStart     *time.Time        `json:"scheduled_start,omitempty"`
	ScheduledEnd       *time.Time        `json:"scheduled_end,omitempty"`
	ActualStart        *time.Time        `json:"actual_start,omitempty"`
	ActualEnd          *time.Time        `json:"actual_end,omitempty"`
	CompletionEvidence []string          `json:"completion_evidence"`
	ClientSatisfaction *int              `json:"client_satisfaction,omitempty"`
	WorkerSatisfaction *int              `json:"worker_satisfaction,omitempty"`
	ClientNotes        string            `json:"client_notes,omitempty"`
	WorkerNotes        string            `json:"worker_notes,omitempty"`
	StatusHistory      []string          `json:"status_history"`
	IssueFlagged       bool              `json:"issue_flagged"`
	IssueReason        string            `json:"issue_reason,omitempty"`
	AppliedAt          time.Time         `json:"applied_at"`
	AcceptedAt         *time.Time        `json:"accepted_at,omitempty"`
	StartedAt          *time.Time        `json:"started_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	ReviewedAt         *time.Time        `json:"reviewed_at,omitempty"`
	Version            int64             `json:"version"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func ToBookingResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		ListingID:          b.ListingID,
		WorkerID:           b.WorkerID,
		ClientID:           b.ClientID,
		ProposedRate:       b.ProposedRate.Units(),
		EstimatedHours:     b.EstimatedHours,
		Message:            b.Message,
		Answers:            b.Answers,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		ScheduledStart:     b.ScheduledStart,
		ScheduledEnd:       b.ScheduledEnd,
		ActualStart:        b.ActualStart,
		ActualEnd:          b.ActualEnd,
		CompletionEvidence: append([]string{}, b.CompletionEvidence...),
		ClientSatisfaction: b.ClientSatisfaction,
		WorkerSatisfaction: b.WorkerSatisfaction,
		ClientNotes:        b.ClientNotes,
		WorkerNotes:        b.WorkerNotes,
		StatusHistory:      append([]string{}, b.StatusHistory...),
		IssueFlagged:       b.IssueFlagged,
		IssueReason:        b.IssueReason,
		AppliedAt:          b.AppliedAt,
		AcceptedAt:         b.AcceptedAt,
		StartedAt:          b.StartedAt,
		CompletedAt:        b.CompletedAt,
		ReviewedAt:         b.ReviewedAt,
		Version:            b.Version,
		UpdatedAt:          b.UpdatedAt,
	}
	if p, ok := b.Payment(); ok {
		resp.Payment = &PaymentDTO{
			Total:          p.Total.Units(),
			Commission:     p.Commission.Units(),
			WorkerPayout:   p.WorkerPayout.Units(),
			CommissionRate: b.CommissionRate.Fraction(),
			Currency:       valueobject.DefaultCurrency,
		}
	}
	return resp
}

func ToBookingResponses(bookings []*entity.Booking) []BookingResponse {
	result := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, ToBookingResponse(b))
	}
	return result
}

// ParseStatuses разбирает список статусов из query-параметра.
func ParseStatuses(raw []string) ([]valueobject.BookingStatus, error) {
	result := make([]valueobject.BookingStatus, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		status, err := valueobject.NewBookingStatus(s)
		if err != nil {
			return nil, err
		}
		result = append(result, status)
	}
	return result, nil
}
