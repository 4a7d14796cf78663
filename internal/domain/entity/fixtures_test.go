package entity_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func money(t *testing.T, units float64) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoney(units)
	require.NoError(t, err)
	return m
}

func newListing(t *testing.T, owner uuid.UUID) *entity.Listing {
	t.Helper()
	l, err := entity.NewListing(entity.NewListingParams{
		OwnerID:       owner,
		Title:         "Починить кран",
		Description:   "Течёт смеситель на кухне",
		Category:      "Plumbing",
		Skills:        []string{"Plumbing", "Tiling"},
		BudgetMin:     money(t, 800),
		BudgetMax:     money(t, 1200),
		BudgetMode:    valueobject.BudgetModeFixed,
		DurationHours: 4,
		Location:      entity.Location{City: "Makati", Province: "Metro Manila"},
		Publish:       true,
	}, t0)
	require.NoError(t, err)
	return l
}

func newBooking(t *testing.T) *entity.Booking {
	t.Helper()
	b, err := entity.NewBooking(entity.NewBookingParams{
		ListingID:      uuid.New(),
		WorkerID:       uuid.New(),
		ClientID:       uuid.New(),
		ProposedRate:   money(t, 1000),
		EstimatedHours: 4,
		Message:        "Могу завтра утром",
		CommissionRate: valueobject.DefaultCommissionRate,
	}, t0)
	require.NoError(t, err)
	return b
}

func walk(t *testing.T, b *entity.Booking, steps ...valueobject.BookingStatus) {
	t.Helper()
	at := t0
	for _, s := range steps {
		at = at.Add(time.Hour)
		require.NoError(t, b.Transition(s, "", at))
	}
}
