package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/workmarket-backend/internal/logger"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/clock"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/booking"
)

var start = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type env struct {
	store *memory.Store
	clock *clock.Manual

	client   uuid.UUID
	worker   uuid.UUID
	worker2  uuid.UUID
	admin    uuid.UUID
	stranger uuid.UUID

	listing *entity.Listing

	apply      *booking.ApplyUseCase
	transition *booking.TransitionBookingUseCase
	schedule   *booking.ScheduleBookingUseCase
	finalSum   *booking.SetFinalAmountUseCase
	evidence   *booking.AddEvidenceUseCase
	rate       *booking.RateBookingUseCase
	note       *booking.AddNoteUseCase
	issue      *booking.FlagIssueUseCase
	get        *booking.GetBookingUseCase
	byListing  *booking.ListListingBookingsUseCase
	mine       *booking.ListMyBookingsUseCase
	canCancel  *booking.CanCancelUseCase
	purge      *booking.PurgeBookingUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger.Discard()

	e := &env{
		store:    memory.NewStore(),
		clock:    clock.NewManual(start),
		client:   uuid.New(),
		worker:   uuid.New(),
		worker2:  uuid.New(),
		admin:    uuid.New(),
		stranger: uuid.New(),
	}
	dir := e.store.Directory()
	dir.PutUser(repository.UserPublicProfile{ID: e.client, DisplayName: "Клиент", Role: valueobject.RoleClient})
	dir.PutUser(repository.UserPublicProfile{ID: e.admin, DisplayName: "Админ", Role: valueobject.RoleAdmin})
	dir.PutUser(repository.UserPublicProfile{ID: e.stranger, DisplayName: "Посторонний", Role: valueobject.RoleClient})
	dir.PutWorker(entity.WorkerProfile{UserID: e.worker, Name: "Исполнитель", Skills: []string{"Plumbing"}})
	dir.PutWorker(entity.WorkerProfile{UserID: e.worker2, Name: "Второй", Skills: []string{"Plumbing"}})

	l, err := entity.NewListing(entity.NewListingParams{
		OwnerID:       e.client,
		Title:         "Заменить смеситель",
		Category:      "plumbing",
		Skills:        []string{"Plumbing"},
		BudgetMin:     80000,
		BudgetMax:     120000,
		BudgetMode:    valueobject.BudgetModeFixed,
		DurationHours: 4,
		Location:      entity.Location{City: "Makati", Province: "Metro Manila"},
		Publish:       true,
	}, start)
	require.NoError(t, err)
	require.NoError(t, e.store.Listings().Create(context.Background(), l))
	e.listing = l

	uow, listings, bookings := e.store, e.store.Listings(), e.store.Bookings()
	grace := entity.DefaultCancelGracePeriod
	e.apply = booking.NewApplyUseCase(uow, listings, bookings, dir, e.clock, valueobject.DefaultCommissionRate)
	e.transition = booking.NewTransitionBookingUseCase(uow, listings, bookings, dir, e.clock, grace)
	e.schedule = booking.NewScheduleBookingUseCase(uow, bookings, dir, e.clock)
	e.finalSum = booking.NewSetFinalAmountUseCase(uow, bookings, dir, e.clock)
	e.evidence = booking.NewAddEvidenceUseCase(uow, bookings, dir, e.clock)
	e.rate = booking.NewRateBookingUseCase(uow, bookings, dir, e.clock)
	e.note = booking.NewAddNoteUseCase(uow, bookings, dir, e.clock)
	e.issue = booking.NewFlagIssueUseCase(uow, bookings, dir, e.clock)
	e.get = booking.NewGetBookingUseCase(bookings, dir)
	e.byListing = booking.NewListListingBookingsUseCase(listings, bookings, dir)
	e.mine = booking.NewListMyBookingsUseCase(bookings)
	e.canCancel = booking.NewCanCancelUseCase(e.get, e.clock, grace)
	e.purge = booking.NewPurgeBookingUseCase(uow, bookings, dir)
	return e
}

func (e *env) applyAs(t *testing.T, worker uuid.UUID) *entity.Booking {
	t.Helper()
	b, err := e.apply.Execute(context.Background(), booking.ApplyInput{
		ListingID:      e.listing.ID,
		WorkerID:       worker,
		ProposedRate:   100000,
		EstimatedHours: 4,
		Message:        "Сделаю за полдня",
	})
	require.NoError(t, err)
	return b
}

func (e *env) move(actor uuid.UUID, b *entity.Booking, to valueobject.BookingStatus) (*entity.Booking, error) {
	e.clock.Advance(time.Hour)
	return e.transition.Execute(context.Background(), booking.TransitionInput{
		BookingID: b.ID,
		ActorID:   actor,
		Target:    to,
	})
}

func (e *env) mustMove(t *testing.T, actor uuid.UUID, b *entity.Booking, to valueobject.BookingStatus) *entity.Booking {
	t.Helper()
	got, err := e.move(actor, b, to)
	require.NoError(t, err)
	return got
}

func (e *env) listingStatus(t *testing.T) valueobject.ListingStatus {
	t.Helper()
	l, err := e.store.Listings().FindByID(context.Background(), e.listing.ID)
	require.NoError(t, err)
	return l.Status
}
