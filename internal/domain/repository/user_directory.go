package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

// UserPublicProfile публичная проекция пользователя из справочника.
type UserPublicProfile struct {
	ID          uuid.UUID
	DisplayName string
	Role        valueobject.Role
	City        string
	Province    string
	Rating      float64
}

// UserDirectory внешний справочник пользователей; только чтение.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*UserPublicProfile, error)
	GetUserRole(ctx context.Context, id uuid.UUID) (valueobject.Role, error)
	FindWorkerProfiles(ctx context.Context, filter WorkerFilter) ([]entity.WorkerProfile, error)
}

type WorkerFilter struct {
	// AnySkill исполнитель должен владеть хотя бы одним навыком из списка.
	AnySkill []string
	Province string
	Limit    int
}
