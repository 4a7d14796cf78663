package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

// candidatePoolSize сколько профилей исполнителей берём из справочника для оценки.
const candidatePoolSize = 500

type RankCandidatesInput struct {
	ListingID uuid.UUID
	ActorID   uuid.UUID
	Limit     int
}

type RankCandidatesUseCase struct {
	listingRepo repository.ListingRepository
	users       repository.UserDirectory
}

func NewRankCandidatesUseCase(listingRepo repository.ListingRepository, users repository.UserDirectory) *RankCandidatesUseCase {
	return &RankCandidatesUseCase{listingRepo: listingRepo, users: users}
}

func (uc *RankCandidatesUseCase) Execute(ctx context.Context, input RankCandidatesInput) ([]entity.CandidateMatch, error) {
	listing, err := uc.listingRepo.FindByID(ctx, input.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsOwnedBy(input.ActorID) {
		role, err := uc.users.GetUserRole(ctx, input.ActorID)
		if err != nil {
			return nil, err
		}
		if role != valueobject.RoleAdmin {
			return nil, apperror.ErrForbidden
		}
	}

	// при пустых требованиях подходит любой исполнитель
	workers, err := uc.users.FindWorkerProfiles(ctx, repository.WorkerFilter{
		AnySkill: listing.Skills,
		Limit:    candidatePoolSize,
	})
	if err != nil {
		return nil, err
	}

	ranked := entity.RankCandidates(listing, workers)
	if input.Limit > 0 && len(ranked) > input.Limit {
		ranked = ranked[:input.Limit]
	}
	return ranked, nil
}
