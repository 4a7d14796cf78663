package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

// UserDirectoryAdapter читает справочник пользователей, которым владеет сервис аккаунтов.
type UserDirectoryAdapter struct {
	db *sqlx.DB
}

func NewUserDirectoryAdapter(db *sqlx.DB) *UserDirectoryAdapter {
	return &UserDirectoryAdapter{db: db}
}

func (r *UserDirectoryAdapter) GetUser(ctx context.Context, id uuid.UUID) (*repository.UserPublicProfile, error) {
	query := `SELECT id, display_name, role, city, province, rating FROM users WHERE id = $1`
	var row userRow
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, mapError(err, "не удалось получить пользователя")
	}
	return &repository.UserPublicProfile{
		ID:          row.ID,
		DisplayName: row.DisplayName,
		Role:        valueobject.Role(row.Role),
		City:        row.City,
		Province:    row.Province,
		Rating:      row.Rating,
	}, nil
}

func (r *UserDirectoryAdapter) GetUserRole(ctx context.Context, id uuid.UUID) (valueobject.Role, error) {
	var role string
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &role, `SELECT role FROM users WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.ErrUserNotFound
		}
		return "", mapError(err, "не удалось получить роль пользователя")
	}
	return valueobject.Role(role), nil
}

func (r *UserDirectoryAdapter) FindWorkerProfiles(ctx context.Context, f repository.WorkerFilter) ([]entity.WorkerProfile, error) {
	query := `
		SELECT u.id, u.display_name, u.city, u.province, u.rating, w.skills, w.hourly_rate
		FROM worker_profiles w
		JOIN users u ON u.id = w.user_id
		WHERE u.role = 'worker'`
	var args []interface{}
	if len(f.AnySkill) > 0 {
		args = append(args, pq.Array(skillKeys(f.AnySkill)))
		query += fmt.Sprintf(" AND w.skill_keys && $%d", len(args))
	}
	if f.Province != "" {
		args = append(args, strings.TrimSpace(f.Province))
		query += fmt.Sprintf(" AND lower(u.province) = lower($%d)", len(args))
	}
	query += " ORDER BY u.id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var rows []workerRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, mapError(err, "не удалось получить профили исполнителей")
	}
	result := make([]entity.WorkerProfile, 0, len(rows))
	for _, row := range rows {
		result = append(result, entity.WorkerProfile{
			UserID:     row.ID,
			Name:       row.DisplayName,
			Skills:     []string(row.Skills),
			City:       row.City,
			Province:   row.Province,
			HourlyRate: valueobject.Money(row.HourlyRate),
			Rating:     row.Rating,
		})
	}
	return result, nil
}

type userRow struct {
	ID          uuid.UUID `db:"id"`
	DisplayName string    `db:"display_name"`
	Role        string    `db:"role"`
	City        string    `db:"city"`
	Province    string    `db:"province"`
	Rating      float64   `db:"rating"`
}

type workerRow struct {
	ID          uuid.UUID      `db:"id"`
	DisplayName string         `db:"display_name"`
	City        string         `db:"city"`
	Province    string         `db:"province"`
	Rating      float64        `db:"rating"`
	Skills      pq.StringArray `db:"skills"`
	HourlyRate  int64          `db:"hourly_rate"`
}
