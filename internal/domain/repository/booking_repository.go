package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	// Update сравнивает версию и увеличивает её; при расхождении возвращает конфликт.
	Update(ctx context.Context, booking *entity.Booking, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate блокирует строку заявки до конца единицы работы.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByListingAndWorker(ctx context.Context, listingID, workerID uuid.UUID) (*entity.Booking, error)
	// FindListingHolder заявка, удерживающая объявление, кроме excludeID; nil если таких нет.
	FindListingHolder(ctx context.Context, listingID, excludeID uuid.UUID) (*entity.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int, error)
}

type BookingFilter struct {
	ListingID *uuid.UUID
	WorkerID  *uuid.UUID
	ClientID  *uuid.UUID
	Statuses  []valueobject.BookingStatus
	Limit     int
	Offset    int
}
