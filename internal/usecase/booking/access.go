package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

// actor пользователь, выполняющий операцию, с его глобальной ролью.
type actor struct {
	ID    uuid.UUID
	Admin bool
}

func loadActor(ctx context.Context, users repository.UserDirectory, id uuid.UUID) (actor, error) {
	if id == uuid.Nil {
		return actor{}, apperror.ErrUnauthorized
	}
	role, err := users.GetUserRole(ctx, id)
	if err != nil {
		if apperror.IsNotFound(err) {
			return actor{}, apperror.ErrForbidden
		}
		return actor{}, err
	}
	return actor{ID: id, Admin: role == valueobject.RoleAdmin}, nil
}

// canView участник заявки или администратор.
func (a actor) canView(b *entity.Booking) bool {
	return a.Admin || b.IsParticipant(a.ID)
}

// mayTransition проверяет, кто из сторон вправе перевести заявку в next.
// Клиент заявки всегда владелец объявления.
func (a actor) mayTransition(b *entity.Booking, next valueobject.BookingStatus) bool {
	if a.Admin {
		return true
	}
	switch next {
	case valueobject.BookingStatusAccepted,
		valueobject.BookingStatusRejected,
		valueobject.BookingStatusApproved,
		valueobject.BookingStatusPaid:
		return a.ID == b.ClientID
	case valueobject.BookingStatusConfirmed,
		valueobject.BookingStatusInProgress,
		valueobject.BookingStatusCompleted:
		return a.ID == b.WorkerID
	case valueobject.BookingStatusCancelled,
		valueobject.BookingStatusDisputed:
		return b.IsParticipant(a.ID)
	}
	return false
}
