package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/metrics"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

type GetListingUseCase struct {
	listingRepo repository.ListingRepository
}

func NewGetListingUseCase(listingRepo repository.ListingRepository) *GetListingUseCase {
	return &GetListingUseCase{listingRepo: listingRepo}
}

// Execute черновик виден только владельцу.
func (uc *GetListingUseCase) Execute(ctx context.Context, listingID, viewerID uuid.UUID) (*entity.Listing, error) {
	listing, err := uc.listingRepo.FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status == valueobject.ListingStatusDraft && !listing.IsOwnedBy(viewerID) {
		return nil, apperror.ErrListingNotFound
	}
	return listing, nil
}

type ListListingsUseCase struct {
	listingRepo repository.ListingRepository
}

func NewListListingsUseCase(listingRepo repository.ListingRepository) *ListListingsUseCase {
	return &ListListingsUseCase{listingRepo: listingRepo}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Execute без явного фильтра по статусу показывает только открытые объявления.
func (uc *ListListingsUseCase) Execute(ctx context.Context, filter repository.ListingFilter) ([]*entity.Listing, int, error) {
	if len(filter.Statuses) == 0 && filter.OwnerID == nil {
		filter.Statuses = []valueobject.ListingStatus{valueobject.ListingStatusOpen}
	}
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.listingRepo.List(ctx, filter)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

type RecordViewUseCase struct {
	listingRepo repository.ListingRepository
}

func NewRecordViewUseCase(listingRepo repository.ListingRepository) *RecordViewUseCase {
	return &RecordViewUseCase{listingRepo: listingRepo}
}

// Execute возвращает новое значение счётчика просмотров.
func (uc *RecordViewUseCase) Execute(ctx context.Context, listingID uuid.UUID) (int64, error) {
	views, err := uc.listingRepo.IncrementViews(ctx, listingID)
	if err != nil {
		return 0, err
	}
	metrics.ListingViews.Inc()
	return views, nil
}
