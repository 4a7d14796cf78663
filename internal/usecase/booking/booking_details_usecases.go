package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/metrics"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/clock"
)

// editor общая часть операций, которые меняют поля заявки без смены статуса.
type editor struct {
	uow         repository.UnitOfWork
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
	clock       clock.Clock
}

func newEditor(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) editor {
	return editor{uow: uow, bookingRepo: bookingRepo, users: users, clock: clk}
}

// edit блокирует заявку, вызывает fn и сохраняет результат со сверкой версии.
func (e editor) edit(ctx context.Context, operation string, bookingID, actorID uuid.UUID,
	fn func(b *entity.Booking, who actor, now time.Time) error) (*entity.Booking, error) {
	who, err := loadActor(ctx, e.users, actorID)
	if err != nil {
		return nil, err
	}
	var result *entity.Booking
	err = e.uow.Do(ctx, func(ctx context.Context) error {
		b, err := e.bookingRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !who.canView(b) {
			return apperror.ErrBookingNotFound
		}
		version := b.Version
		if err := fn(b, who, e.clock.Now()); err != nil {
			return err
		}
		if err := e.bookingRepo.Update(ctx, b, version); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		if apperror.IsConflict(err) {
			metrics.BookingConflicts.WithLabelValues(operation, string(apperror.CodeOf(err))).Inc()
		}
		return nil, err
	}
	return result, nil
}

// participantRole роль участника в заявке; администратор без роли в заявке получает Forbidden.
func participantRole(b *entity.Booking, who actor) (valueobject.Role, error) {
	role, ok := b.RoleOf(who.ID)
	if !ok {
		return "", apperror.ErrForbidden
	}
	return role, nil
}

type ScheduleBookingUseCase struct {
	editor
}

func NewScheduleBookingUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) *ScheduleBookingUseCase {
	return &ScheduleBookingUseCase{editor: newEditor(uow, bookingRepo, users, clk)}
}

func (uc *ScheduleBookingUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID, start, end time.Time) (*entity.Booking, error) {
	return uc.edit(ctx, "schedule", bookingID, actorID, func(b *entity.Booking, _ actor, now time.Time) error {
		return b.Schedule(start, end, now)
	})
}

type SetFinalAmountUseCase struct {
	editor
}

func NewSetFinalAmountUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) *SetFinalAmountUseCase {
	return &SetFinalAmountUseCase{editor: newEditor(uow, bookingRepo, users, clk)}
}

// Execute итоговую сумму задаёт клиент или администратор.
func (uc *SetFinalAmountUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID, amount valueobject.Money) (*entity.Booking, error) {
	return uc.edit(ctx, "final_amount", bookingID, actorID, func(b *entity.Booking, who actor, now time.Time) error {
		if !who.Admin && who.ID != b.ClientID {
			return apperror.ErrForbidden
		}
		return b.SetFinalAmount(amount, now)
	})
}

type AddEvidenceUseCase struct {
	editor
}

func NewAddEvidenceUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) *AddEvidenceUseCase {
	return &AddEvidenceUseCase{editor: newEditor(uow, bookingRepo, users, clk)}
}

func (uc *AddEvidenceUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID, ref string) (*entity.Booking, error) {
	return uc.edit(ctx, "evidence", bookingID, actorID, func(b *entity.Booking, who actor, now time.Time) error {
		if who.ID != b.WorkerID {
			return apperror.ErrForbidden
		}
		return b.AddCompletionEvidence(ref, now)
	})
}

type RateBookingUseCase struct {
	editor
}

func NewRateBookingUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) *RateBookingUseCase {
	return &RateBookingUseCase{editor: newEditor(uow, bookingRepo, users, clk)}
}

func (uc *RateBookingUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID, score int) (*entity.Booking, error) {
	return uc.edit(ctx, "rate", bookingID, actorID, func(b *entity.Booking, who actor, now time.Time) error {
		role, err := participantRole(b, who)
		if err != nil {
			return err
		}
		return b.Rate(role, score, now)
	})
}

type AddNoteUseCase struct {
	editor
}

func NewAddNoteUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) *AddNoteUseCase {
	return &AddNoteUseCase{editor: newEditor(uow, bookingRepo, users, clk)}
}

func (uc *AddNoteUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID, text string) (*entity.Booking, error) {
	return uc.edit(ctx, "note", bookingID, actorID, func(b *entity.Booking, who actor, now time.Time) error {
		role, err := participantRole(b, who)
		if err != nil {
			return err
		}
		return b.AddNote(role, text, now)
	})
}

type FlagIssueUseCase struct {
	editor
}

func NewFlagIssueUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory, clk clock.Clock) *FlagIssueUseCase {
	return &FlagIssueUseCase{editor: newEditor(uow, bookingRepo, users, clk)}
}

func (uc *FlagIssueUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*entity.Booking, error) {
	return uc.edit(ctx, "issue", bookingID, actorID, func(b *entity.Booking, _ actor, now time.Time) error {
		return b.FlagIssue(reason, now)
	})
}
