package booking

import (
	"context"

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

type ApplyInput struct {
	ListingID      uuid.UUID
	WorkerID       uuid.UUID
	ProposedRate   valueobject.Money
	EstimatedHours float64
	Message        string
	Answers        map[string]string
	FinalAmount    *valueobject.Money
}

type ApplyUseCase struct {
	uow         repository.UnitOfWork
	listingRepo repository.ListingRepository
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
	clock       clock.Clock
	commission  valueobject.CommissionRate
}

func NewApplyUseCase(
	uow repository.UnitOfWork,
	listingRepo repository.ListingRepository,
	bookingRepo repository.BookingRepository,
	users repository.UserDirectory,
	clk clock.Clock,
	commission valueobject.CommissionRate,
) *ApplyUseCase {
	return &ApplyUseCase{
		uow:         uow,
		listingRepo: listingRepo,
		bookingRepo: bookingRepo,
		users:       users,
		clock:       clk,
		commission:  commission,
	}
}

func (uc *ApplyUseCase) Execute(ctx context.Context, input ApplyInput) (*entity.Booking, error) {
	role, err := uc.users.GetUserRole(ctx, input.WorkerID)
	if err != nil {
		return nil, err
	}
	if role != valueobject.RoleWorker {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться могут только исполнители")
	}

	var created *entity.Booking
	err = uc.uow.Do(ctx, func(ctx context.Context) error {
		// блокировка строки объявления сериализует отклики и проверку лимита
		listing, err := uc.listingRepo.FindByIDForUpdate(ctx, input.ListingID)
		if err != nil {
			return err
		}
		if listing.IsOwnedBy(input.WorkerID) {
			return apperror.Validation("нельзя откликнуться на собственное объявление")
		}
		now := uc.clock.Now()
		if !listing.IsAcceptingApplications(now) {
			return apperror.ErrNotAccepting
		}

		existing, err := uc.bookingRepo.FindByListingAndWorker(ctx, listing.ID, input.WorkerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.ErrAlreadyApplied
		}

		b, err := entity.NewBooking(entity.NewBookingParams{
			ListingID:      listing.ID,
			WorkerID:       input.WorkerID,
			ClientID:       listing.OwnerID,
			ProposedRate:   input.ProposedRate,
			EstimatedHours: input.EstimatedHours,
			Message:        input.Message,
			Answers:        input.Answers,
			FinalAmount:    input.FinalAmount,
			CommissionRate: uc.commission,
		}, now)
		if err != nil {
			return err
		}

		if err := uc.bookingRepo.Create(ctx, b); err != nil {
			return err
		}
		if _, err := uc.listingRepo.IncrementApplications(ctx, listing.ID); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		if apperror.IsConflict(err) {
			metrics.BookingConflicts.WithLabelValues("apply", string(apperror.CodeOf(err))).Inc()
		}
		return nil, err
	}

	metrics.BookingApplications.Inc()
	logger.Log.WithFields(logrus.Fields{
		"booking_id": created.ID,
		"listing_id": created.ListingID,
		"worker_id":  created.WorkerID,
	}).Info("отклик создан")

	return created, nil
}
