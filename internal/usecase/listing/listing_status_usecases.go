package listing

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

// moveListing меняет статус объявления владельцем внутри единицы работы.
func moveListing(ctx context.Context, uow repository.UnitOfWork, repo repository.ListingRepository, clk clock.Clock,
	listingID, actorID uuid.UUID, next valueobject.ListingStatus) (*entity.Listing, error) {
	var result *entity.Listing
	err := uow.Do(ctx, func(ctx context.Context) error {
		listing, err := repo.FindByIDForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsOwnedBy(actorID) {
			return apperror.ErrForbidden
		}
		version := listing.Version
		if err := listing.MoveTo(next, clk.Now()); err != nil {
			return err
		}
		if err := repo.Update(ctx, listing, version); err != nil {
			return err
		}
		result = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type PublishListingUseCase struct {
	uow         repository.UnitOfWork
	listingRepo repository.ListingRepository
	clock       clock.Clock
}

func NewPublishListingUseCase(uow repository.UnitOfWork, listingRepo repository.ListingRepository, clk clock.Clock) *PublishListingUseCase {
	return &PublishListingUseCase{uow: uow, listingRepo: listingRepo, clock: clk}
}

func (uc *PublishListingUseCase) Execute(ctx context.Context, listingID, ownerID uuid.UUID) (*entity.Listing, error) {
	return moveListing(ctx, uc.uow, uc.listingRepo, uc.clock, listingID, ownerID, valueobject.ListingStatusOpen)
}

type CancelListingUseCase struct {
	uow         repository.UnitOfWork
	listingRepo repository.ListingRepository
	bookingRepo repository.BookingRepository
	clock       clock.Clock
}

func NewCancelListingUseCase(uow repository.UnitOfWork, listingRepo repository.ListingRepository, bookingRepo repository.BookingRepository, clk clock.Clock) *CancelListingUseCase {
	return &CancelListingUseCase{uow: uow, listingRepo: listingRepo, bookingRepo: bookingRepo, clock: clk}
}

// Execute отменяет объявление вместе с активными заявками до начала работ.
// Если по объявлению работа уже начата, отмена отклоняется с конфликтом.
func (uc *CancelListingUseCase) Execute(ctx context.Context, listingID, ownerID uuid.UUID) (*entity.Listing, error) {
	var (
		result    *entity.Listing
		cancelled []*entity.Booking
		from      []valueobject.BookingStatus
	)
	err := uc.uow.Do(ctx, func(ctx context.Context) error {
		listing, err := uc.listingRepo.FindByIDForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsOwnedBy(ownerID) {
			return apperror.ErrForbidden
		}
		active, err := uc.activeBookings(ctx, listingID)
		if err != nil {
			return err
		}
		for _, b := range active {
			if b.Status.Rank() >= valueobject.BookingStatusInProgress.Rank() {
				return apperror.New(apperror.ErrCodeConflict, "по объявлению уже идёт работа, отменить его нельзя")
			}
		}

		now := uc.clock.Now()
		version := listing.Version
		if err := listing.MoveTo(valueobject.ListingStatusCancelled, now); err != nil {
			return err
		}
		if err := uc.listingRepo.Update(ctx, listing, version); err != nil {
			return err
		}

		for _, item := range active {
			b, err := uc.bookingRepo.FindByIDForUpdate(ctx, item.ID)
			if err != nil {
				return err
			}
			prev, bookingVersion := b.Status, b.Version
			if err := b.Transition(valueobject.BookingStatusCancelled, "объявление отменено владельцем", now); err != nil {
				return err
			}
			if err := uc.bookingRepo.Update(ctx, b, bookingVersion); err != nil {
				return err
			}
			cancelled = append(cancelled, b)
			from = append(from, prev)
		}
		result = listing
		return nil
	})
	if err != nil {
		if apperror.IsConflict(err) {
			metrics.BookingConflicts.WithLabelValues("cancel_listing", string(apperror.CodeOf(err))).Inc()
		}
		return nil, err
	}

	for i, b := range cancelled {
		metrics.BookingTransitions.WithLabelValues(string(from[i]), string(b.Status)).Inc()
	}
	logger.Log.WithFields(logrus.Fields{
		"listing_id":         listingID,
		"owner_id":           ownerID,
		"bookings_cancelled": len(cancelled),
	}).Info("объявление отменено")
	return result, nil
}

// activeBookings собирает все нетерминальные заявки до того, как их статусы начнут меняться.
func (uc *CancelListingUseCase) activeBookings(ctx context.Context, listingID uuid.UUID) ([]*entity.Booking, error) {
	filter := repository.BookingFilter{
		ListingID: &listingID,
		Statuses:  activeBookingStatuses,
		Limit:     bookingPageSize,
	}
	var all []*entity.Booking
	for {
		page, total, err := uc.bookingRepo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			return all, nil
		}
	}
}

const bookingPageSize = 500

var activeBookingStatuses = []valueobject.BookingStatus{
	valueobject.BookingStatusPending,
	valueobject.BookingStatusAccepted,
	valueobject.BookingStatusConfirmed,
	valueobject.BookingStatusInProgress,
	valueobject.BookingStatusCompleted,
	valueobject.BookingStatusApproved,
}

// DeleteListingUseCase удаляет объявление только по явному действию владельца
// и только пока на него нет ни одной заявки.
type DeleteListingUseCase struct {
	uow         repository.UnitOfWork
	listingRepo repository.ListingRepository
	bookingRepo repository.BookingRepository
}

func NewDeleteListingUseCase(uow repository.UnitOfWork, listingRepo repository.ListingRepository, bookingRepo repository.BookingRepository) *DeleteListingUseCase {
	return &DeleteListingUseCase{uow: uow, listingRepo: listingRepo, bookingRepo: bookingRepo}
}

func (uc *DeleteListingUseCase) Execute(ctx context.Context, listingID, ownerID uuid.UUID) error {
	return uc.uow.Do(ctx, func(ctx context.Context) error {
		listing, err := uc.listingRepo.FindByIDForUpdate(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsOwnedBy(ownerID) {
			return apperror.ErrForbidden
		}
		_, total, err := uc.bookingRepo.List(ctx, repository.BookingFilter{ListingID: &listingID, Limit: 1})
		if err != nil {
			return err
		}
		if total > 0 {
			return apperror.New(apperror.ErrCodeConflict, "по объявлению есть заявки, его можно только отменить")
		}
		return uc.listingRepo.Delete(ctx, listingID)
	})
}
