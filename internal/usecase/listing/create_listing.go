package listing

import (
	"context"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/logger"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/clock"
	"github.com/sirupsen/logrus"
)

type CreateListingInput = entity.NewListingParams

type CreateListingUseCase struct {
	listingRepo repository.ListingRepository
	users       repository.UserDirectory
	clock       clock.Clock
}

func NewCreateListingUseCase(listingRepo repository.ListingRepository, users repository.UserDirectory, clk clock.Clock) *CreateListingUseCase {
	return &CreateListingUseCase{
		listingRepo: listingRepo,
		users:       users,
		clock:       clk,
	}
}

func (uc *CreateListingUseCase) Execute(ctx context.Context, input CreateListingInput) (*entity.Listing, error) {
	role, err := uc.users.GetUserRole(ctx, input.OwnerID)
	if err != nil {
		return nil, err
	}
	if role != valueobject.RoleClient && role != valueobject.RoleAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "размещать объявления могут только клиенты")
	}

	listing, err := entity.NewListing(input, uc.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"listing_id": listing.ID,
		"owner_id":   listing.OwnerID,
		"status":     listing.Status,
	}).Info("объявление создано")

	return listing, nil
}
