package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/logger"
	"github.com/ignatzorin/workmarket-backend/internal/metrics"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/clock"
	"github.com/sirupsen/logrus"
)

type TransitionInput struct {
	BookingID uuid.UUID
	ActorID   uuid.UUID
	Target    valueobject.BookingStatus
	Note      string
	// ExpectedVersion если задан, операция выполняется только над этой версией заявки.
	ExpectedVersion *int64
}

type TransitionBookingUseCase struct {
	uow         repository.UnitOfWork
	listingRepo repository.ListingRepository
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
	clock       clock.Clock
	grace       time.Duration
}

func NewTransitionBookingUseCase(
	uow repository.UnitOfWork,
	listingRepo repository.ListingRepository,
	bookingRepo repository.BookingRepository,
	users repository.UserDirectory,
	clk clock.Clock,
	cancelGrace time.Duration,
) *TransitionBookingUseCase {
	return &TransitionBookingUseCase{
		uow:         uow,
		listingRepo: listingRepo,
		bookingRepo: bookingRepo,
		users:       users,
		clock:       clk,
		grace:       cancelGrace,
	}
}

// Execute применяет переход заявки и вытекающую смену статуса объявления в одной единице работы.
func (uc *TransitionBookingUseCase) Execute(ctx context.Context, input TransitionInput) (*entity.Booking, error) {
	if !input.Target.IsValid() {
		return nil, apperror.Validation("неизвестный статус заявки: %q", input.Target)
	}
	who, err := loadActor(ctx, uc.users, input.ActorID)
	if err != nil {
		return nil, err
	}

	var (
		result *entity.Booking
		from   valueobject.BookingStatus
	)
	err = uc.uow.Do(ctx, func(ctx context.Context) error {
		b, err := uc.bookingRepo.FindByIDForUpdate(ctx, input.BookingID)
		if err != nil {
			return err
		}
		if !who.canView(b) {
			return apperror.ErrBookingNotFound
		}
		if input.ExpectedVersion != nil && *input.ExpectedVersion != b.Version {
			return apperror.ErrVersionConflict
		}
		if !who.mayTransition(b, input.Target) {
			return apperror.ErrForbidden
		}
		if !b.CanTransitionTo(input.Target) {
			return &entity.TransitionError{From: b.Status, To: input.Target}
		}

		now := uc.clock.Now()
		if input.Target == valueobject.BookingStatusCancelled && !who.Admin {
			if eligibility := b.CanCancel(now, uc.grace); !eligibility.Allowed {
				return apperror.Validation("отмена невозможна: %s", eligibility.Reason)
			}
		}

		listing, err := uc.lockListingFor(ctx, b, input.Target)
		if err != nil {
			return err
		}

		from = b.Status
		heldListing := b.HoldsListing()
		version := b.Version
		if err := b.Transition(input.Target, input.Note, now); err != nil {
			return err
		}
		if err := uc.bookingRepo.Update(ctx, b, version); err != nil {
			return err
		}

		if listing != nil {
			if err := uc.syncListing(ctx, listing, from, input.Target, heldListing, now); err != nil {
				return err
			}
		}
		result = b
		return nil
	})
	if err != nil {
		uc.reportFailure(input, err)
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(string(from), string(input.Target)).Inc()
	logger.Log.WithFields(logrus.Fields{
		"booking_id": result.ID,
		"listing_id": result.ListingID,
		"from":       from,
		"to":         result.Status,
		"actor_id":   input.ActorID,
	}).Info("статус заявки изменён")

	return result, nil
}

// lockListingFor блокирует объявление, если переход его затрагивает.
// Для принятия дополнительно проверяется, что объявление никем не занято и открыто.
func (uc *TransitionBookingUseCase) lockListingFor(ctx context.Context, b *entity.Booking, next valueobject.BookingStatus) (*entity.Listing, error) {
	if _, affects := entity.ListingStatusFor(b.Status, next, b.HoldsListing()); !affects {
		return nil, nil
	}
	listing, err := uc.listingRepo.FindByIDForUpdate(ctx, b.ListingID)
	if err != nil {
		return nil, err
	}
	if next != valueobject.BookingStatusAccepted {
		return listing, nil
	}

	holder, err := uc.bookingRepo.FindListingHolder(ctx, b.ListingID, b.ID)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		return nil, apperror.ErrListingLocked
	}
	if listing.Status != valueobject.ListingStatusOpen {
		return nil, apperror.Validation("принять отклик можно только по открытому объявлению, сейчас %s", listing.Status)
	}
	return listing, nil
}

func (uc *TransitionBookingUseCase) syncListing(ctx context.Context, listing *entity.Listing,
	from, to valueobject.BookingStatus, heldListing bool, now time.Time) error {
	next, ok := entity.ListingStatusFor(from, to, heldListing)
	if !ok || listing.Status == next {
		return nil
	}
	if !listing.Status.CanTransitionTo(next) {
		logger.Log.WithFields(logrus.Fields{
			"listing_id": listing.ID,
			"status":     listing.Status,
			"wanted":     next,
		}).Warn("статус объявления не изменён: переход недопустим")
		return nil
	}
	version := listing.Version
	if err := listing.MoveTo(next, now); err != nil {
		return err
	}
	return uc.listingRepo.Update(ctx, listing, version)
}

func (uc *TransitionBookingUseCase) reportFailure(input TransitionInput, err error) {
	fields := logrus.Fields{
		"booking_id": input.BookingID,
		"to":         input.Target,
		"actor_id":   input.ActorID,
	}
	switch {
	case apperror.IsConflict(err):
		metrics.BookingConflicts.WithLabelValues("transition", string(apperror.CodeOf(err))).Inc()
		logger.Log.WithFields(fields).WithError(err).Warn("конфликт при смене статуса заявки")
	case apperror.IsIllegalTransition(err):
		logger.Log.WithFields(fields).Debug("недопустимый переход заявки")
	}
}
