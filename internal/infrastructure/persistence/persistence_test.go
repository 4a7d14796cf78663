package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

var now = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func testListing(t *testing.T) *entity.Listing {
	t.Helper()
	l, err := entity.NewListing(entity.NewListingParams{
		OwnerID:       uuid.New(),
		Title:         "Покраска забора",
		Category:      "Painting",
		Skills:        []string{"Painting"},
		BudgetMin:     50000,
		BudgetMax:     90000,
		BudgetMode:    valueobject.BudgetModeFixed,
		DurationHours: 3,
		Location:      entity.Location{City: "Cebu City", Province: "Cebu"},
		Publish:       true,
	}, now)
	require.NoError(t, err)
	return l
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
		code apperror.ErrorCode
	}{
		{
			name: "повторный отклик",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: constraintListingWorker},
			want: apperror.ErrAlreadyApplied,
		},
		{
			name: "второй держатель объявления",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: constraintListingHolder},
			want: apperror.ErrListingLocked,
		},
		{name: "другое ограничение", err: &pq.Error{Code: pqUniqueViolation, Constraint: "x"}, code: apperror.ErrCodeConflict},
		{name: "serialization", err: &pq.Error{Code: pqSerializationFailure}, code: apperror.ErrCodeConflict},
		{name: "foreign key", err: &pq.Error{Code: pqForeignKeyViolation}, code: apperror.ErrCodeConflict},
		{name: "прочее", err: errors.New("connection reset"), code: apperror.ErrCodeDatabaseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err, "ошибка")
			if tt.want != nil {
				assert.ErrorIs(t, got, tt.want)
				return
			}
			assert.Equal(t, tt.code, apperror.CodeOf(got))
		})
	}
	assert.NoError(t, mapError(nil, "ошибка"))
}

func TestUnitOfWork_Do(t *testing.T) {
	db, mock := newMockDB(t)
	uow := NewUnitOfWork(db)
	repo := NewListingRepositoryAdapter(db)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM listings`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	err := uow.Do(context.Background(), func(ctx context.Context) error {
		// вложенный Do переиспользует ту же транзакцию
		return uow.Do(ctx, func(ctx context.Context) error {
			return repo.Delete(ctx, id)
		})
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM listings`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err = uow.Do(context.Background(), func(ctx context.Context) error {
		return repo.Delete(ctx, id)
	})
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryAdapter_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)
	l := testListing(t)
	exists := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM listings WHERE id = $1)`)

	mock.ExpectExec(`UPDATE listings`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), l, 0))
	assert.Equal(t, int64(1), l.Version)

	mock.ExpectExec(`UPDATE listings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs(l.ID).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, repo.Update(context.Background(), l, 0), apperror.ErrVersionConflict)

	mock.ExpectExec(`UPDATE listings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(exists).WithArgs(l.ID).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	assert.ErrorIs(t, repo.Update(context.Background(), l, 1), apperror.ErrListingNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryAdapter_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)
	id, owner := uuid.New(), uuid.New()
	lat, lng := 10.3157, 123.8854

	columns := []string{"id", "owner_id", "title", "description", "category", "skills", "budget_min", "budget_max",
		"budget_mode", "duration_hours", "urgency", "city", "province", "geo_lat", "geo_lng", "status",
		"application_cap", "start_date", "applications_count", "views_count", "version", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM listings WHERE id = \$1$`).WithArgs(id).WillReturnRows(
		sqlmock.NewRows(columns).AddRow(id, owner, "Покраска", "", "painting", "{Painting,Drywall}", 50000, 90000,
			"fixed", 3, "normal", "Cebu City", "Cebu", lat, lng, "open",
			nil, nil, 2, 17, 4, now, now))

	l, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, owner, l.OwnerID)
	assert.Equal(t, valueobject.SkillSet{"Painting", "Drywall"}, l.Skills)
	assert.Equal(t, valueobject.Money(30000), l.BudgetPerHour())
	assert.Equal(t, valueobject.ListingStatusOpen, l.Status)
	require.NotNil(t, l.Location.Geo)
	assert.InDelta(t, lat, l.Location.Geo.Lat, 1e-9)
	assert.Equal(t, int64(17), l.ViewsCount)
	assert.Equal(t, int64(4), l.Version)

	mock.ExpectQuery(`FROM listings WHERE id = \$1$`).WithArgs(id).WillReturnRows(sqlmock.NewRows(columns))
	_, err = repo.FindByID(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryAdapter_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)
	owner := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM listings WHERE status = ANY($1) AND owner_id = $2 AND lower(city) = lower($3)`)).
		WithArgs(sqlmock.AnyArg(), owner, "Makati").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id LIMIT $4 OFFSET $5`)).
		WithArgs(sqlmock.AnyArg(), owner, "Makati", 10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, total, err := repo.List(context.Background(), repository.ListingFilter{
		Statuses: []valueobject.ListingStatus{valueobject.ListingStatusOpen},
		OwnerID:  &owner,
		City:     " Makati ",
		Limit:    10,
		Offset:   20,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryAdapter_Counters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewListingRepositoryAdapter(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE listings SET views_count = views_count + 1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"views_count"}).AddRow(42))
	views, err := repo.IncrementViews(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(42), views)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE listings SET applications_count = applications_count + 1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"applications_count"}))
	_, err = repo.IncrementApplications(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAdapter_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepositoryAdapter(db)
	b, err := entity.NewBooking(entity.NewBookingParams{
		ListingID:      uuid.New(),
		WorkerID:       uuid.New(),
		ClientID:       uuid.New(),
		ProposedRate:   30000,
		EstimatedHours: 3,
		CommissionRate: valueobject.DefaultCommissionRate,
	}, now)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO bookings`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(context.Background(), b))

	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: constraintListingWorker})
	assert.ErrorIs(t, repo.Create(context.Background(), b), apperror.ErrAlreadyApplied)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAdapter_FindListingHolder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepositoryAdapter(db)
	listingID, self := uuid.New(), uuid.New()

	mock.ExpectQuery(`FROM bookings\s+WHERE listing_id = \$1 AND id <> \$2`).
		WithArgs(listingID, self, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	holder, err := repo.FindListingHolder(context.Background(), listingID, self)
	require.NoError(t, err)
	assert.Nil(t, holder)

	mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
		WithArgs(self).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.FindByIDForUpdate(context.Background(), self)
	assert.ErrorIs(t, err, apperror.ErrBookingNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryAdapter_UpdateVersionConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBookingRepositoryAdapter(db)
	b := &entity.Booking{ID: uuid.New(), Status: valueobject.BookingStatusAccepted, PaymentStatus: valueobject.PaymentStatusPending}

	mock.ExpectExec(`UPDATE bookings`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`)).
		WithArgs(b.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	assert.ErrorIs(t, repo.Update(context.Background(), b, 3), apperror.ErrVersionConflict)
	assert.Zero(t, b.Version)

	mock.ExpectExec(`UPDATE bookings`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: constraintListingHolder})
	assert.ErrorIs(t, repo.Update(context.Background(), b, 3), apperror.ErrListingLocked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDirectoryAdapter(t *testing.T) {
	db, mock := newMockDB(t)
	dir := NewUserDirectoryAdapter(db)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM users WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("worker"))
	role, err := dir.GetUserRole(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, valueobject.RoleWorker, role)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM users WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"role"}))
	_, err = dir.GetUserRole(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)

	mock.ExpectQuery(`AND w.skill_keys && \$1 AND lower\(u.province\) = lower\(\$2\) ORDER BY u.id LIMIT \$3`).
		WithArgs(sqlmock.AnyArg(), "Cebu", 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "city", "province", "rating", "skills", "hourly_rate"}).
			AddRow(id, "Ана", "Cebu City", "Cebu", 4.5, "{Painting}", 25000))
	workers, err := dir.FindWorkerProfiles(context.Background(), repository.WorkerFilter{
		AnySkill: []string{"painting"},
		Province: "Cebu",
		Limit:    50,
	})
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, []string{"Painting"}, workers[0].Skills)
	assert.Equal(t, valueobject.Money(25000), workers[0].HourlyRate)

	assert.NoError(t, mock.ExpectationsWereMet())
}
