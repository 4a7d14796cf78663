package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

type ListingRepositoryAdapter struct {
	db *sqlx.DB
}

func NewListingRepositoryAdapter(db *sqlx.DB) *ListingRepositoryAdapter {
	return &ListingRepositoryAdapter{db: db}
}

const listingColumns = `id, owner_id, title, description, category, skills, budget_min, budget_max, budget_mode,
	duration_hours, urgency, city, province, geo_lat, geo_lng, status, application_cap, start_date,
	applications_count, views_count, version, created_at, updated_at`

func (r *ListingRepositoryAdapter) Create(ctx context.Context, l *entity.Listing) error {
	query := `
		INSERT INTO listings (id, owner_id, title, description, category, skills, skill_keys, budget_min, budget_max,
			budget_mode, duration_hours, urgency, city, province, geo_lat, geo_lng, status, application_cap,
			start_date, applications_count, views_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`
	lat, lng := geoColumns(l.Location.Geo)
	_, err := executor(ctx, r.db).ExecContext(ctx, query,
		l.ID, l.OwnerID, l.Title, l.Description, l.Category,
		pq.Array([]string(l.Skills)), pq.Array(skillKeys(l.Skills)),
		int64(l.Budget.Min), int64(l.Budget.Max), string(l.Budget.Mode),
		l.DurationHours, string(l.Urgency), l.Location.City, l.Location.Province, lat, lng,
		string(l.Status), l.ApplicationCap, l.StartDate,
		l.ApplicationsCount, l.ViewsCount, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "не удалось создать объявление")
	}
	return nil
}

// Update не трогает счётчики: они меняются только атомарными инкрементами.
func (r *ListingRepositoryAdapter) Update(ctx context.Context, l *entity.Listing, expectedVersion int64) error {
	query := `
		UPDATE listings
		SET title = $3, description = $4, category = $5, skills = $6, skill_keys = $7,
		    budget_min = $8, budget_max = $9, budget_mode = $10, duration_hours = $11, urgency = $12,
		    city = $13, province = $14, geo_lat = $15, geo_lng = $16, status = $17,
		    application_cap = $18, start_date = $19, version = version + 1, updated_at = $20
		WHERE id = $1 AND version = $2
	`
	lat, lng := geoColumns(l.Location.Geo)
	result, err := executor(ctx, r.db).ExecContext(ctx, query,
		l.ID, expectedVersion, l.Title, l.Description, l.Category,
		pq.Array([]string(l.Skills)), pq.Array(skillKeys(l.Skills)),
		int64(l.Budget.Min), int64(l.Budget.Max), string(l.Budget.Mode), l.DurationHours, string(l.Urgency),
		l.Location.City, l.Location.Province, lat, lng, string(l.Status),
		l.ApplicationCap, l.StartDate, l.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "не удалось обновить объявление")
	}
	if err := r.checkVersioned(ctx, result, l.ID); err != nil {
		return err
	}
	l.Version = expectedVersion + 1
	return nil
}

// checkVersioned отличает отсутствующую строку от проигранной гонки версий.
func (r *ListingRepositoryAdapter) checkVersioned(ctx context.Context, result sql.Result, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат обновления")
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists, `SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`, id); err != nil {
		return mapError(err, "не удалось проверить объявление")
	}
	if !exists {
		return apperror.ErrListingNotFound
	}
	return apperror.ErrVersionConflict
}

func (r *ListingRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "не удалось удалить объявление")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат удаления")
	}
	if rows == 0 {
		return apperror.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return r.findOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
}

func (r *ListingRepositoryAdapter) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return r.findOne(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id)
}

func (r *ListingRepositoryAdapter) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Listing, error) {
	var row listingRow
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrListingNotFound
		}
		return nil, mapError(err, "не удалось получить объявление")
	}
	return row.toEntity()
}

func (r *ListingRepositoryAdapter) List(ctx context.Context, f repository.ListingFilter) ([]*entity.Listing, int, error) {
	where, args := listingWhere(f)

	var total int
	countQuery := `SELECT COUNT(*) FROM listings` + where
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, countQuery, args...); err != nil {
		return nil, 0, mapError(err, "не удалось посчитать объявления")
	}

	query := `SELECT ` + listingColumns + ` FROM listings` + where + ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var rows []listingRow
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rows, query, args...); err != nil {
		return nil, 0, mapError(err, "не удалось получить объявления")
	}

	result := make([]*entity.Listing, 0, len(rows))
	for i := range rows {
		l, err := rows[i].toEntity()
		if err != nil {
			return nil, 0, err
		}
		result = append(result, l)
	}
	return result, total, nil
}

func listingWhere(f repository.ListingFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if f.OwnerID != nil {
		add("owner_id = $%d", *f.OwnerID)
	}
	if len(f.Skills) > 0 {
		add("skill_keys @> $%d", pq.Array(skillKeys(f.Skills)))
	}
	if f.City != "" {
		add("lower(city) = lower($%d)", strings.TrimSpace(f.City))
	}
	if f.Province != "" {
		add("lower(province) = lower($%d)", strings.TrimSpace(f.Province))
	}
	if f.Category != "" {
		add("category = lower($%d)", strings.TrimSpace(f.Category))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// IncrementViews атомарный инкремент в строке, без чтения-изменения-записи.
func (r *ListingRepositoryAdapter) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	var views int64
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &views,
		`UPDATE listings SET views_count = views_count + 1 WHERE id = $1 RETURNING views_count`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.ErrListingNotFound
		}
		return 0, mapError(err, "не удалось увеличить счётчик просмотров")
	}
	return views, nil
}

func (r *ListingRepositoryAdapter) IncrementApplications(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &count,
		`UPDATE listings SET applications_count = applications_count + 1 WHERE id = $1 RETURNING applications_count`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.ErrListingNotFound
		}
		return 0, mapError(err, "не удалось увеличить счётчик откликов")
	}
	return count, nil
}

type listingRow struct {
	ID                uuid.UUID      `db:"id"`
	OwnerID           uuid.UUID      `db:"owner_id"`
	Title             string         `db:"title"`
	Description       string         `db:"description"`
	Category          string         `db:"category"`
	Skills            pq.StringArray `db:"skills"`
	BudgetMin         int64          `db:"budget_min"`
	BudgetMax         int64          `db:"budget_max"`
	BudgetMode        string         `db:"budget_mode"`
	DurationHours     int            `db:"duration_hours"`
	Urgency           string         `db:"urgency"`
	City              string         `db:"city"`
	Province          string         `db:"province"`
	GeoLat            *float64       `db:"geo_lat"`
	GeoLng            *float64       `db:"geo_lng"`
	Status            string         `db:"status"`
	ApplicationCap    *int           `db:"application_cap"`
	StartDate         *time.Time     `db:"start_date"`
	ApplicationsCount int            `db:"applications_count"`
	ViewsCount        int64          `db:"views_count"`
	Version           int64          `db:"version"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (row *listingRow) toEntity() (*entity.Listing, error) {
	status, err := valueobject.NewListingStatus(row.Status)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждённая запись объявления")
	}
	var geo *entity.GeoPoint
	if row.GeoLat != nil && row.GeoLng != nil {
		geo = &entity.GeoPoint{Lat: *row.GeoLat, Lng: *row.GeoLng}
	}
	return &entity.Listing{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Title:       row.Title,
		Description: row.Description,
		Category:    row.Category,
		Skills:      valueobject.SkillSet(row.Skills),
		Budget: valueobject.Budget{
			Min:  valueobject.Money(row.BudgetMin),
			Max:  valueobject.Money(row.BudgetMax),
			Mode: valueobject.BudgetMode(row.BudgetMode),
		},
		DurationHours:     row.DurationHours,
		Urgency:           valueobject.Urgency(row.Urgency),
		Location:          entity.Location{City: row.City, Province: row.Province, Geo: geo},
		Status:            status,
		ApplicationCap:    row.ApplicationCap,
		StartDate:         row.StartDate,
		ApplicationsCount: row.ApplicationsCount,
		ViewsCount:        row.ViewsCount,
		Version:           row.Version,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

func geoColumns(g *entity.GeoPoint) (*float64, *float64) {
	if g == nil {
		return nil, nil
	}
	lat, lng := g.Lat, g.Lng
	return &lat, &lng
}

func skillKeys(skills []string) []string {
	keys := make([]string, 0, len(skills))
	for _, s := range skills {
		keys = append(keys, valueobject.SkillKey(s))
	}
	return keys
}
