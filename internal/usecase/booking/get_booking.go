package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/logger"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/clock"
	"github.com/sirupsen/logrus"
)

type GetBookingUseCase struct {
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
}

func NewGetBookingUseCase(bookingRepo repository.BookingRepository, users repository.UserDirectory) *GetBookingUseCase {
	return &GetBookingUseCase{bookingRepo: bookingRepo, users: users}
}

// Execute чужая заявка выглядит как несуществующая.
func (uc *GetBookingUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID) (*entity.Booking, error) {
	who, err := loadActor(ctx, uc.users, actorID)
	if err != nil {
		return nil, err
	}
	b, err := uc.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !who.canView(b) {
		return nil, apperror.ErrBookingNotFound
	}
	return b, nil
}

type ListListingBookingsUseCase struct {
	listingRepo repository.ListingRepository
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
}

func NewListListingBookingsUseCase(listingRepo repository.ListingRepository, bookingRepo repository.BookingRepository, users repository.UserDirectory) *ListListingBookingsUseCase {
	return &ListListingBookingsUseCase{listingRepo: listingRepo, bookingRepo: bookingRepo, users: users}
}

// Execute отклики на объявление видит его владелец и администратор.
func (uc *ListListingBookingsUseCase) Execute(ctx context.Context, listingID, actorID uuid.UUID, statuses []valueobject.BookingStatus, limit, offset int) ([]*entity.Booking, int, error) {
	listing, err := uc.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, 0, err
	}
	if !listing.IsOwnedBy(actorID) {
		who, err := loadActor(ctx, uc.users, actorID)
		if err != nil {
			return nil, 0, err
		}
		if !who.Admin {
			return nil, 0, apperror.ErrForbidden
		}
	}
	return uc.bookingRepo.List(ctx, repository.BookingFilter{
		ListingID: &listingID,
		Statuses:  statuses,
		Limit:     clampLimit(limit),
		Offset:    offset,
	})
}

// Side сторона заявки, с которой пользователь смотрит свои заявки.
type Side string

const (
	SideWorker Side = "worker"
	SideClient Side = "client"
)

type ListMyBookingsInput struct {
	UserID   uuid.UUID
	Side     Side
	Statuses []valueobject.BookingStatus
	Limit    int
	Offset   int
}

type ListMyBookingsUseCase struct {
	bookingRepo repository.BookingRepository
}

func NewListMyBookingsUseCase(bookingRepo repository.BookingRepository) *ListMyBookingsUseCase {
	return &ListMyBookingsUseCase{bookingRepo: bookingRepo}
}

func (uc *ListMyBookingsUseCase) Execute(ctx context.Context, input ListMyBookingsInput) ([]*entity.Booking, int, error) {
	filter := repository.BookingFilter{
		Statuses: input.Statuses,
		Limit:    clampLimit(input.Limit),
		Offset:   input.Offset,
	}
	switch input.Side {
	case SideWorker:
		filter.WorkerID = &input.UserID
	case SideClient:
		filter.ClientID = &input.UserID
	default:
		return nil, 0, apperror.Validation("сторона должна быть %q или %q", SideWorker, SideClient)
	}
	return uc.bookingRepo.List(ctx, filter)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

type CanCancelUseCase struct {
	get   *GetBookingUseCase
	clock clock.Clock
	grace time.Duration
}

func NewCanCancelUseCase(get *GetBookingUseCase, clk clock.Clock, grace time.Duration) *CanCancelUseCase {
	return &CanCancelUseCase{get: get, clock: clk, grace: grace}
}

func (uc *CanCancelUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID) (entity.CancelEligibility, error) {
	b, err := uc.get.Execute(ctx, bookingID, actorID)
	if err != nil {
		return entity.CancelEligibility{}, err
	}
	return b.CanCancel(uc.clock.Now(), uc.grace), nil
}

// PurgeBookingUseCase административная очистка завершённых заявок; в обычной работе не используется.
type PurgeBookingUseCase struct {
	uow         repository.UnitOfWork
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
}

func NewPurgeBookingUseCase(uow repository.UnitOfWork, bookingRepo repository.BookingRepository, users repository.UserDirectory) *PurgeBookingUseCase {
	return &PurgeBookingUseCase{uow: uow, bookingRepo: bookingRepo, users: users}
}

func (uc *PurgeBookingUseCase) Execute(ctx context.Context, bookingID, actorID uuid.UUID) error {
	who, err := loadActor(ctx, uc.users, actorID)
	if err != nil {
		return err
	}
	if !who.Admin {
		return apperror.ErrForbidden
	}
	err = uc.uow.Do(ctx, func(ctx context.Context) error {
		b, err := uc.bookingRepo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.IsTerminal() {
			return apperror.Validation("удалить можно только заявку в конечном статусе, сейчас %s", b.Status)
		}
		return uc.bookingRepo.Delete(ctx, bookingID)
	})
	if err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"actor_id":   actorID,
	}).Warn("заявка удалена администратором")
	return nil
}
