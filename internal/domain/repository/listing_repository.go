package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	// Update сохраняет объявление, если его версия всё ещё expectedVersion.
	Update(ctx context.Context, listing *entity.Listing, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	// FindByIDForUpdate блокирует строку объявления до конца единицы работы.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]*entity.Listing, int, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int64, error)
	IncrementApplications(ctx context.Context, id uuid.UUID) (int, error)
}

type ListingFilter struct {
	Statuses []valueobject.ListingStatus
	OwnerID  *uuid.UUID
	// Skills объявление должно требовать все перечисленные навыки.
	Skills   []string
	City     string
	Province string
	Category string
	Limit    int
	Offset   int
}
