package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

const (
	scanPageSize      = 500
	DefaultCategories = 5
)

type Summary struct {
	StatusCounts  map[valueobject.BookingStatus]int `json:"status_counts"`
	Satisfaction  Satisfaction                      `json:"satisfaction"`
	Revenue       Revenue                           `json:"revenue"`
	TopCategories []CategoryCount                   `json:"top_categories"`
	TotalBookings int                               `json:"total_bookings"`
	TotalListings int                               `json:"total_listings"`
}

// MarketplaceSummaryUseCase пересчитывает статистику на каждый вызов, ничего не кэширует.
// Заявки и объявления читаются постранично без общего снимка.
type MarketplaceSummaryUseCase struct {
	listingRepo repository.ListingRepository
	bookingRepo repository.BookingRepository
	users       repository.UserDirectory
}

func NewMarketplaceSummaryUseCase(listingRepo repository.ListingRepository, bookingRepo repository.BookingRepository, users repository.UserDirectory) *MarketplaceSummaryUseCase {
	return &MarketplaceSummaryUseCase{listingRepo: listingRepo, bookingRepo: bookingRepo, users: users}
}

func (uc *MarketplaceSummaryUseCase) Execute(ctx context.Context, actorID uuid.UUID, topN int) (*Summary, error) {
	role, err := uc.users.GetUserRole(ctx, actorID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.ErrForbidden
		}
		return nil, err
	}
	if role != valueobject.RoleAdmin {
		return nil, apperror.ErrForbidden
	}
	if topN <= 0 {
		topN = DefaultCategories
	}

	bookings, err := uc.allBookings(ctx)
	if err != nil {
		return nil, err
	}
	listings, err := uc.allListings(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		StatusCounts:  StatusCounts(bookings),
		Satisfaction:  AverageSatisfaction(bookings),
		Revenue:       SettledRevenue(bookings),
		TopCategories: CategoryPopularity(listings, topN),
		TotalBookings: len(bookings),
		TotalListings: len(listings),
	}, nil
}

func (uc *MarketplaceSummaryUseCase) allBookings(ctx context.Context) ([]*entity.Booking, error) {
	var all []*entity.Booking
	for offset := 0; ; offset += scanPageSize {
		page, _, err := uc.bookingRepo.List(ctx, repository.BookingFilter{Limit: scanPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < scanPageSize {
			return all, nil
		}
	}
}

// allListings все статусы, включая черновики.
func (uc *MarketplaceSummaryUseCase) allListings(ctx context.Context) ([]*entity.Listing, error) {
	var all []*entity.Listing
	for offset := 0; ; offset += scanPageSize {
		page, _, err := uc.listingRepo.List(ctx, repository.ListingFilter{Limit: scanPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < scanPageSize {
			return all, nil
		}
	}
}
