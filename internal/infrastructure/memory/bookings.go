package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) Create(ctx context.Context, b *entity.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[b.ID]; ok {
		return apperror.New(apperror.ErrCodeConflict, "заявка уже существует")
	}
	for _, existing := range r.s.bookings {
		if existing.ListingID == b.ListingID && existing.WorkerID == b.WorkerID {
			return apperror.ErrAlreadyApplied
		}
	}
	r.s.bookings[b.ID] = b.Clone()
	id := b.ID
	onRollback(ctx, func() {
		r.s.mu.Lock()
		delete(r.s.bookings, id)
		r.s.mu.Unlock()
	})
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *entity.Booking, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.bookings[b.ID]
	if !ok {
		return apperror.ErrBookingNotFound
	}
	if prev.Version != expectedVersion {
		return apperror.ErrVersionConflict
	}
	if b.HoldsListing() {
		for _, other := range r.s.bookings {
			if other.ID != b.ID && other.ListingID == b.ListingID && other.HoldsListing() {
				return apperror.ErrListingLocked
			}
		}
	}
	b.Version = expectedVersion + 1
	r.s.bookings[b.ID] = b.Clone()
	onRollback(ctx, func() {
		r.s.mu.Lock()
		r.s.bookings[prev.ID] = prev
		r.s.mu.Unlock()
	})
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.bookings[id]
	if !ok {
		return apperror.ErrBookingNotFound
	}
	delete(r.s.bookings, id)
	onRollback(ctx, func() {
		r.s.mu.Lock()
		r.s.bookings[id] = prev
		r.s.mu.Unlock()
	})
	return nil
}

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, apperror.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *BookingRepository) FindByListingAndWorker(ctx context.Context, listingID, workerID uuid.UUID) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bookings {
		if b.ListingID == listingID && b.WorkerID == workerID {
			return b.Clone(), nil
		}
	}
	return nil, nil
}

func (r *BookingRepository) FindListingHolder(ctx context.Context, listingID, excludeID uuid.UUID) (*entity.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, b := range r.s.bookings {
		if b.ListingID == listingID && b.ID != excludeID && b.HoldsListing() {
			return b.Clone(), nil
		}
	}
	return nil, nil
}

func (r *BookingRepository) List(ctx context.Context, f repository.BookingFilter) ([]*entity.Booking, int, error) {
	r.s.mu.RLock()
	var matched []*entity.Booking
	for _, b := range r.s.bookings {
		if bookingMatches(b, f) {
			matched = append(matched, b.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].AppliedAt.Equal(matched[j].AppliedAt) {
			return matched[i].AppliedAt.After(matched[j].AppliedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func bookingMatches(b *entity.Booking, f repository.BookingFilter) bool {
	if f.ListingID != nil && b.ListingID != *f.ListingID {
		return false
	}
	if f.WorkerID != nil && b.WorkerID != *f.WorkerID {
		return false
	}
	if f.ClientID != nil && b.ClientID != *f.ClientID {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, st := range f.Statuses {
			if b.Status == st {
				return true
			}
		}
		return false
	}
	return true
}
