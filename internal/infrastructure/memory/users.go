package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

type UserDirectory struct {
	s *Store
}

// PutUser добавляет или заменяет пользователя справочника.
func (d *UserDirectory) PutUser(u repository.UserPublicProfile) {
	d.s.mu.Lock()
	d.s.users[u.ID] = u
	d.s.mu.Unlock()
}

// PutWorker добавляет исполнителя вместе с его профилем для подбора.
func (d *UserDirectory) PutWorker(w entity.WorkerProfile) {
	d.s.mu.Lock()
	d.s.users[w.UserID] = repository.UserPublicProfile{
		ID:          w.UserID,
		DisplayName: w.Name,
		Role:        valueobject.RoleWorker,
		City:        w.City,
		Province:    w.Province,
		Rating:      w.Rating,
	}
	w.Skills = append([]string(nil), w.Skills...)
	d.s.workers[w.UserID] = w
	d.s.mu.Unlock()
}

func (d *UserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*repository.UserPublicProfile, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	u, ok := d.s.users[id]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}
	return &u, nil
}

func (d *UserDirectory) GetUserRole(ctx context.Context, id uuid.UUID) (valueobject.Role, error) {
	u, err := d.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (d *UserDirectory) FindWorkerProfiles(ctx context.Context, f repository.WorkerFilter) ([]entity.WorkerProfile, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	var result []entity.WorkerProfile
	for _, w := range d.s.workers {
		if f.Province != "" && !strings.EqualFold(f.Province, w.Province) {
			continue
		}
		if len(f.AnySkill) > 0 && !valueobject.SkillSet(w.Skills).ContainsAny(f.AnySkill) {
			continue
		}
		w.Skills = append([]string(nil), w.Skills...)
		result = append(result, w)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UserID.String() < result[j].UserID.String()
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}
