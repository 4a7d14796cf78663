package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_CanTransitionTo(t *testing.T) {
	allowed := map[BookingStatus][]BookingStatus{
		BookingStatusPending:    {BookingStatusAccepted, BookingStatusRejected, BookingStatusCancelled, BookingStatusDisputed},
		BookingStatusAccepted:   {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusDisputed},
		BookingStatusConfirmed:  {BookingStatusInProgress, BookingStatusCancelled, BookingStatusDisputed},
		BookingStatusInProgress: {BookingStatusCompleted, BookingStatusDisputed},
		BookingStatusCompleted:  {BookingStatusApproved, BookingStatusDisputed},
		BookingStatusApproved:   {BookingStatusPaid, BookingStatusDisputed},
	}

	for _, from := range AllBookingStatuses {
		want := make(map[BookingStatus]bool)
		for _, to := range allowed[from] {
			want[to] = true
		}
		for _, to := range AllBookingStatuses {
			assert.Equal(t, want[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestBookingStatus_TerminalHasNoExits(t *testing.T) {
	for _, s := range []BookingStatus{BookingStatusPaid, BookingStatusRejected, BookingStatusCancelled, BookingStatusDisputed} {
		assert.True(t, s.IsTerminal(), s)
		for _, to := range AllBookingStatuses {
			assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
		}
	}
}

func TestListingStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, ListingStatusDraft.CanTransitionTo(ListingStatusOpen))
	assert.True(t, ListingStatusOpen.CanTransitionTo(ListingStatusAssigned))
	assert.True(t, ListingStatusAssigned.CanTransitionTo(ListingStatusOpen))
	assert.True(t, ListingStatusReview.CanTransitionTo(ListingStatusCompleted))
	assert.True(t, ListingStatusInProgress.CanTransitionTo(ListingStatusCancelled))

	assert.False(t, ListingStatusOpen.CanTransitionTo(ListingStatusDraft))
	assert.False(t, ListingStatusCompleted.CanTransitionTo(ListingStatusCancelled))
	assert.False(t, ListingStatusCancelled.CanTransitionTo(ListingStatusOpen))
	assert.False(t, ListingStatusOpen.CanTransitionTo(ListingStatusDisputed))
}

func TestNewBookingStatus(t *testing.T) {
	s, err := NewBookingStatus("in_progress")
	assert.NoError(t, err)
	assert.Equal(t, BookingStatusInProgress, s)

	_, err = NewBookingStatus("done")
	assert.Error(t, err)
}
