package listing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/listing"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) GetUser(ctx context.Context, id uuid.UUID) (*repository.UserPublicProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.UserPublicProfile), args.Error(1)
}

func (m *mockDirectory) GetUserRole(ctx context.Context, id uuid.UUID) (valueobject.Role, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(valueobject.Role), args.Error(1)
}

func (m *mockDirectory) FindWorkerProfiles(ctx context.Context, filter repository.WorkerFilter) ([]entity.WorkerProfile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.WorkerProfile), args.Error(1)
}

func storedListing(t *testing.T, store *memory.Store) *entity.Listing {
	t.Helper()
	l, err := entity.NewListing(entity.NewListingParams{
		OwnerID:       uuid.New(),
		Title:         "Укладка плитки в ванной",
		Category:      "Tiling",
		Skills:        []string{"Tiling", "Grouting"},
		BudgetMin:     200000,
		BudgetMax:     300000,
		BudgetMode:    valueobject.BudgetModeFixed,
		DurationHours: 10,
		Location:      entity.Location{City: "Quezon City", Province: "Metro Manila"},
		Publish:       true,
	}, start)
	require.NoError(t, err)
	require.NoError(t, store.Listings().Create(context.Background(), l))
	return l
}

func TestRankCandidatesUseCase_LimitsRankedList(t *testing.T) {
	store := memory.NewStore()
	l := storedListing(t, store)
	dir := new(mockDirectory)

	workers := []entity.WorkerProfile{
		{UserID: uuid.New(), Skills: []string{"Tiling"}, City: "Cebu City", Province: "Cebu", HourlyRate: 30000},
		{UserID: uuid.New(), Skills: []string{"tiling", "grouting"}, City: "Quezon City", Province: "Metro Manila", HourlyRate: 25000},
		{UserID: uuid.New(), Skills: []string{"Grouting"}, City: "Pasig", Province: "Metro Manila", HourlyRate: 60000},
	}
	dir.On("FindWorkerProfiles", mock.Anything, repository.WorkerFilter{AnySkill: l.Skills, Limit: 500}).
		Return(workers, nil).Once()

	ranked, err := listing.NewRankCandidatesUseCase(store.Listings(), dir).
		Execute(context.Background(), listing.RankCandidatesInput{ListingID: l.ID, ActorID: l.OwnerID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, workers[1].UserID, ranked[0].Worker.UserID)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9)
	assert.Equal(t, workers[2].UserID, ranked[1].Worker.UserID)

	dir.AssertExpectations(t)
	dir.AssertNotCalled(t, "GetUserRole", mock.Anything, mock.Anything)
}

func TestRankCandidatesUseCase_DirectoryErrors(t *testing.T) {
	store := memory.NewStore()
	l := storedListing(t, store)
	outsider := uuid.New()
	dirErr := apperror.Wrap(errors.New("timeout"), apperror.ErrCodeDatabaseError, "справочник недоступен")

	dir := new(mockDirectory)
	dir.On("GetUserRole", mock.Anything, outsider).Return(valueobject.RoleClient, nil).Once()
	dir.On("FindWorkerProfiles", mock.Anything, mock.Anything).Return(nil, dirErr).Once()
	uc := listing.NewRankCandidatesUseCase(store.Listings(), dir)

	_, err := uc.Execute(context.Background(), listing.RankCandidatesInput{ListingID: l.ID, ActorID: outsider})
	assert.True(t, apperror.IsForbidden(err))

	_, err = uc.Execute(context.Background(), listing.RankCandidatesInput{ListingID: l.ID, ActorID: l.OwnerID})
	assert.ErrorIs(t, err, dirErr)

	_, err = uc.Execute(context.Background(), listing.RankCandidatesInput{ListingID: uuid.New(), ActorID: l.OwnerID})
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)

	dir.AssertExpectations(t)
}
