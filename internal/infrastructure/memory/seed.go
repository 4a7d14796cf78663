package memory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
)

type seedUser struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	City        string    `json:"city"`
	Province    string    `json:"province"`
	Rating      float64   `json:"rating"`
	Skills      []string  `json:"skills"`
	HourlyRate  float64   `json:"hourly_rate"`
}

// LoadDirectory заполняет справочник из JSON-файла: массив пользователей,
// у исполнителей дополнительно skills и hourly_rate в единицах валюты.
func (d *UserDirectory) LoadDirectory(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("memory: не удалось прочитать справочник %s: %w", path, err)
	}
	var users []seedUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return 0, fmt.Errorf("memory: некорректный справочник %s: %w", path, err)
	}

	for i, u := range users {
		role := valueobject.Role(u.Role)
		if u.ID == uuid.Nil || !role.IsValid() {
			return 0, fmt.Errorf("memory: запись %d справочника без id или с неизвестной ролью %q", i, u.Role)
		}
		if role != valueobject.RoleWorker {
			d.PutUser(repository.UserPublicProfile{
				ID:          u.ID,
				DisplayName: u.DisplayName,
				Role:        role,
				City:        u.City,
				Province:    u.Province,
				Rating:      u.Rating,
			})
			continue
		}
		rate, err := valueobject.NewMoney(u.HourlyRate)
		if err != nil {
			return 0, fmt.Errorf("memory: запись %d справочника: %w", i, err)
		}
		d.PutWorker(entity.WorkerProfile{
			UserID:     u.ID,
			Name:       u.DisplayName,
			Skills:     u.Skills,
			City:       u.City,
			Province:   u.Province,
			HourlyRate: rate,
			Rating:     u.Rating,
		})
	}
	return len(users), nil
}
