package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

type BookingRepositoryAdapter struct {
	db *sqlx.DB
}

func NewBookingRepositoryAdapter(db *sqlx.DB) *BookingRepositoryAdapter {
	return &BookingRepositoryAdapter{db: db}
}

const bookingColumns = `id, listing_id, worker_id, client_id, proposed_rate, estimated_hours, message, answers,
	status, payment_status, scheduled_start, scheduled_end, actual_start, actual_end,
	commission_rate_bps, final_amount, commission_amount, worker_payout,
	completion_evidence, client_satisfaction, worker_satisfaction, client_notes, worker_notes,
	status_history, issue_flagged, issue_reason,
	applied_at, accepted_at, started_at, completed_at, reviewed_at, version, created_at, updated_at`

func (r *BookingRepositoryAdapter) Create(ctx context.Context, b *entity.Booking) error {
	answers, err := json.Marshal(b.Answers)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать анкету")
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34)
	`
	_, err = executor(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.ListingID, b.WorkerID, b.ClientID, int64(b.ProposedRate), b.EstimatedHours, b.Message, answers,
		string(b.Status), string(b.PaymentStatus), b.ScheduledStart, b.ScheduledEnd, b.ActualStart, b.ActualEnd,
		int(b.CommissionRate), moneyColumn(b.FinalAmount), moneyColumn(b.CommissionAmount), moneyColumn(b.WorkerPayout),
		pq.Array(nonNil(b.CompletionEvidence)), b.ClientSatisfaction, b.WorkerSatisfaction, b.ClientNotes, b.WorkerNotes,
		pq.Array(nonNil(b.StatusHistory)), b.IssueFlagged, b.IssueReason,
		b.AppliedAt, b.AcceptedAt, b.StartedAt, b.CompletedAt, b.ReviewedAt, b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "не удалось создать заявку")
	}
	return nil
}

func (r *BookingRepositoryAdapter) Update(ctx context.Context, b *entity.Booking, expectedVersion int64) error {
	query := `
		UPDATE bookings
		SET status = $3, payment_status = $4, scheduled_start = $5, scheduled_end = $6,
		    actual_start = $7, actual_end = $8, final_amount = $9, commission_amount = $10, worker_payout = $11,
		    completion_evidence = $12, client_satisfaction = $13, worker_satisfaction = $14,
		    client_notes = $15, worker_notes = $16, status_history = $17, issue_flagged = $18, issue_reason = $19,
		    accepted_at = $20, started_at = $21, completed_at = $22, reviewed_at = $23,
		    version = version + 1, updated_at = $24
		WHERE id = $1 AND version = $2
	`
	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		b.ID, expectedVersion, string(b.Status), string(b.PaymentStatus), b.ScheduledStart, b.ScheduledEnd,
		b.ActualStart, b.ActualEnd, moneyColumn(b.FinalAmount), moneyColumn(b.CommissionAmount), moneyColumn(b.WorkerPayout),
		pq.Array(nonNil(b.CompletionEvidence)), b.ClientSatisfaction, b.WorkerSatisfaction,
		b.ClientNotes, b.WorkerNotes, pq.Array(nonNil(b.StatusHistory)), b.IssueFlagged, b.IssueReason,
		b.AcceptedAt, b.StartedAt, b.CompletedAt, b.ReviewedAt, b.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "не удалось обновить заявку")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows == 0 {
		var exists bool
		if err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, b.ID); err != nil {
			return mapError(err, "не удалось проверить заявку")
		}
		if !exists {
			return apperror.ErrBookingNotFound
		}
		return apperror.ErrVersionConflict
	}
	b.Version = expectedVersion + 1
	return nil
}

func (r *BookingRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "не удалось удалить заявку")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат удаления")
	}
	if rows == 0 {
		return apperror.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, err := r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err == nil && b == nil {
		return nil, apperror.ErrBookingNotFound
	}
	return b, err
}

func (r *BookingRepositoryAdapter) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, err := r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	if err == nil && b == nil {
		return nil, apperror.ErrBookingNotFound
	}
	return b, err
}

func (r *BookingRepositoryAdapter) FindByListingAndWorker(ctx context.Context, listingID, workerID uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE listing_id = $1 AND worker_id = $2`, listingID, workerID)
}

// FindListingHolder ищет заявку, которая уже закрепила объявление.
func (r *BookingRepositoryAdapter) FindListingHolder(ctx context.Context, listingID, excludeID uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE listing_id = $1 AND id <> $2
		  AND (status = ANY($3) OR (status = 'disputed' AND accepted_at IS NOT NULL))
		LIMIT 1`
	return r.findOne(ctx, query, listingID, excludeID, pq.Array(lockedStatuses()))
}

// findOne возвращает nil, nil если строки нет.
func (r *BookingRepositoryAdapter) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(err, "не удалось получить заявку")
	}
	return row.toEntity()
}

func (r *BookingRepositoryAdapter) List(ctx context.Context, f repository.BookingFilter) ([]*entity.Booking, int, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ListingID != nil {
		add("listing_id = $%d", *f.ListingID)
	}
	if f.WorkerID != nil {
		add("worker_id = $%d", *f.WorkerID)
	}
	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, mapError(err, "не удалось посчитать заявки")
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY applied_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "не удалось получить заявки")
	}
	result := make([]*entity.Booking, 0, len(rows))
	for i := range rows {
		b, err := rows[i].toEntity()
		if err != nil {
			return nil, 0, err
		}
		result = append(result, b)
	}
	return result, total, nil
}

type bookingRow struct {
	ID                 uuid.UUID      `db:"id"`
	ListingID          uuid.UUID      `db:"listing_id"`
	WorkerID           uuid.UUID      `db:"worker_id"`
	ClientID           uuid.UUID      `db:"client_id"`
	ProposedRate       int64          `db:"proposed_rate"`
	EstimatedHours     float64        `db:"estimated_hours"`
	Message            string         `db:"message"`
	Answers            []byte         `db:"answers"`
	Status             string         `db:"status"`
	PaymentStatus      string         `db:"payment_status"`
	ScheduledStart     *time.Time     `db:"scheduled_start"`
	ScheduledEnd       *time.Time     `db:"scheduled_end"`
	ActualStart        *time.Time     `db:"actual_start"`
	ActualEnd          *time.Time     `db:"actual_end"`
	CommissionRateBps  int            `db:"commission_rate_bps"`
	FinalAmount        *int64         `db:"final_amount"`
	CommissionAmount   *int64         `db:"commission_amount"`
	WorkerPayout       *int64         `db:"worker_payout"`
	CompletionEvidence pq.StringArray `db:"completion_evidence"`
	ClientSatisfaction *int           `db:"client_satisfaction"`
	WorkerSatisfaction *int           `db:"worker_satisfaction"`
	ClientNotes        string         `db:"client_notes"`
	WorkerNotes        string         `db:"worker_notes"`
	StatusHistory      pq.StringArray `db:"status_history"`
	IssueFlagged       bool           `db:"issue_flagged"`
	IssueReason        string         `db:"issue_reason"`
	AppliedAt          time.Time      `db:"applied_at"`
	AcceptedAt         *time.Time     `db:"accepted_at"`
	StartedAt          *time.Time     `db:"started_at"`
	CompletedAt        *time.Time     `db:"completed_at"`
	ReviewedAt         *time.Time     `db:"reviewed_at"`
	Version            int64          `db:"version"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (row *bookingRow) toEntity() (*entity.Booking, error) {
	status, err := valueobject.NewBookingStatus(row.Status)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждённая запись заявки")
	}
	paymentStatus, err := valueobject.NewPaymentStatus(row.PaymentStatus)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждённая запись заявки")
	}
	answers := map[string]string{}
	if len(row.Answers) > 0 {
		if err := json.Unmarshal(row.Answers, &answers); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждённая анкета заявки")
		}
	}

	return &entity.Booking{
		ID:                 row.ID,
		ListingID:          row.ListingID,
		WorkerID:           row.WorkerID,
		ClientID:           row.ClientID,
		ProposedRate:       valueobject.Money(row.ProposedRate),
		EstimatedHours:     row.EstimatedHours,
		Message:            row.Message,
		Answers:            answers,
		Status:             status,
		PaymentStatus:      paymentStatus,
		ScheduledStart:     row.ScheduledStart,
		ScheduledEnd:       row.ScheduledEnd,
		ActualStart:        row.ActualStart,
		ActualEnd:          row.ActualEnd,
		CommissionRate:     valueobject.CommissionRate(row.CommissionRateBps),
		FinalAmount:        moneyFromColumn(row.FinalAmount),
		CommissionAmount:   moneyFromColumn(row.CommissionAmount),
		WorkerPayout:       moneyFromColumn(row.WorkerPayout),
		CompletionEvidence: []string(row.CompletionEvidence),
		ClientSatisfaction: row.ClientSatisfaction,
		WorkerSatisfaction: row.WorkerSatisfaction,
		ClientNotes:        row.ClientNotes,
		WorkerNotes:        row.WorkerNotes,
		StatusHistory:      []string(row.StatusHistory),
		IssueFlagged:       row.IssueFlagged,
		IssueReason:        row.IssueReason,
		AppliedAt:          row.AppliedAt,
		AcceptedAt:         row.AcceptedAt,
		StartedAt:          row.StartedAt,
		CompletedAt:        row.CompletedAt,
		ReviewedAt:         row.ReviewedAt,
		Version:            row.Version,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

func lockedStatuses() []string {
	result := make([]string, 0, len(valueobject.LockedBookingStatuses))
	for _, s := range valueobject.LockedBookingStatuses {
		result = append(result, string(s))
	}
	return result
}

func moneyColumn(m *valueobject.Money) *int64 {
	if m == nil {
		return nil
	}
	v := int64(*m)
	return &v
}

func moneyFromColumn(v *int64) *valueobject.Money {
	if v == nil {
		return nil
	}
	m := valueobject.Money(*v)
	return &m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
