package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/ignatzorin/workmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

// Store хранилище в памяти процесса с теми же гарантиями, что и Postgres-адаптеры:
// единицы работы выполняются последовательно, записи проверяют версию,
// счётчики просмотров и откликов атомарны.
type Store struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	listings map[uuid.UUID]*entity.Listing
	bookings map[uuid.UUID]*entity.Booking
	users    map[uuid.UUID]repository.UserPublicProfile
	workers  map[uuid.UUID]entity.WorkerProfile

	views        sync.Map // uuid.UUID -> *atomic.Int64
	applications sync.Map // uuid.UUID -> *atomic.Int64
}

func NewStore() *Store {
	return &Store{
		listings: make(map[uuid.UUID]*entity.Listing),
		bookings: make(map[uuid.UUID]*entity.Booking),
		users:    make(map[uuid.UUID]repository.UserPublicProfile),
		workers:  make(map[uuid.UUID]entity.WorkerProfile),
	}
}

type txKey struct{}

type txState struct {
	undo []func()
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// onRollback регистрирует откат записи, если она сделана внутри единицы работы.
func onRollback(ctx context.Context, fn func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, fn)
	}
}

// Do реализует repository.UnitOfWork. Вложенные вызовы выполняются в рамках внешней единицы.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txState{}
	txCtx := context.WithValue(ctx, txKey{}, tx)

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				s.rollback(tx)
				panic(p)
			}
		}()
		return fn(txCtx)
	}()
	if err != nil {
		s.rollback(tx)
		return err
	}
	return nil
}

func (s *Store) rollback(tx *txState) {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
}

func counter(m *sync.Map, id uuid.UUID) *atomic.Int64 {
	v, _ := m.LoadOrStore(id, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Listings возвращает репозиторий объявлений поверх хранилища.
func (s *Store) Listings() *ListingRepository {
	return &ListingRepository{s: s}
}

// Bookings возвращает репозиторий заявок поверх хранилища.
func (s *Store) Bookings() *BookingRepository {
	return &BookingRepository{s: s}
}

// Directory возвращает справочник пользователей поверх хранилища.
func (s *Store) Directory() *UserDirectory {
	return &UserDirectory{s: s}
}

type ListingRepository struct {
	s *Store
}

func (r *ListingRepository) Create(ctx context.Context, l *entity.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[l.ID]; ok {
		return apperror.New(apperror.ErrCodeConflict, "объявление уже существует")
	}
	r.s.listings[l.ID] = cloneListing(l)
	counter(&r.s.views, l.ID).Store(l.ViewsCount)
	counter(&r.s.applications, l.ID).Store(int64(l.ApplicationsCount))
	id := l.ID
	onRollback(ctx, func() {
		r.s.mu.Lock()
		delete(r.s.listings, id)
		r.s.views.Delete(id)
		r.s.applications.Delete(id)
		r.s.mu.Unlock()
	})
	return nil
}

func (r *ListingRepository) Update(ctx context.Context, l *entity.Listing, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.listings[l.ID]
	if !ok {
		return apperror.ErrListingNotFound
	}
	if prev.Version != expectedVersion {
		return apperror.ErrVersionConflict
	}
	l.Version = expectedVersion + 1
	r.s.listings[l.ID] = cloneListing(l)
	onRollback(ctx, func() {
		r.s.mu.Lock()
		r.s.listings[prev.ID] = prev
		r.s.mu.Unlock()
	})
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.listings[id]
	if !ok {
		return apperror.ErrListingNotFound
	}
	delete(r.s.listings, id)
	views, _ := r.s.views.LoadAndDelete(id)
	applications, _ := r.s.applications.LoadAndDelete(id)
	onRollback(ctx, func() {
		r.s.mu.Lock()
		r.s.listings[id] = prev
		if views != nil {
			r.s.views.Store(id, views)
		}
		if applications != nil {
			r.s.applications.Store(id, applications)
		}
		r.s.mu.Unlock()
	})
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	r.s.mu.RLock()
	l, ok := r.s.listings[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, apperror.ErrListingNotFound
	}
	return r.s.hydrateListing(l), nil
}

func (r *ListingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Listing, error) {
	return r.FindByID(ctx, id)
}

func (r *ListingRepository) List(ctx context.Context, f repository.ListingFilter) ([]*entity.Listing, int, error) {
	r.s.mu.RLock()
	var matched []*entity.Listing
	for _, l := range r.s.listings {
		if listingMatches(l, f) {
			matched = append(matched, r.s.hydrateListing(l))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return paginate(matched, f.Limit, f.Offset), len(matched), nil
}

func (r *ListingRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	_, ok := r.s.listings[id]
	r.s.mu.RUnlock()
	if !ok {
		return 0, apperror.ErrListingNotFound
	}
	return counter(&r.s.views, id).Add(1), nil
}

func (r *ListingRepository) IncrementApplications(ctx context.Context, id uuid.UUID) (int, error) {
	r.s.mu.RLock()
	_, ok := r.s.listings[id]
	r.s.mu.RUnlock()
	if !ok {
		return 0, apperror.ErrListingNotFound
	}
	c := counter(&r.s.applications, id)
	n := c.Add(1)
	onRollback(ctx, func() { c.Add(-1) })
	return int(n), nil
}

func (s *Store) hydrateListing(l *entity.Listing) *entity.Listing {
	c := cloneListing(l)
	c.ViewsCount = counter(&s.views, l.ID).Load()
	c.ApplicationsCount = int(counter(&s.applications, l.ID).Load())
	return c
}

func listingMatches(l *entity.Listing, f repository.ListingFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if l.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.OwnerID != nil && l.OwnerID != *f.OwnerID {
		return false
	}
	for _, skill := range f.Skills {
		if !l.Skills.Contains(skill) {
			return false
		}
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(f.City), l.Location.City) {
		return false
	}
	if f.Province != "" && !strings.EqualFold(strings.TrimSpace(f.Province), l.Location.Province) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(f.Category), l.Category) {
		return false
	}
	return true
}

func cloneListing(l *entity.Listing) *entity.Listing {
	c := *l
	c.Skills = append(valueobject.SkillSet(nil), l.Skills...)
	if l.Location.Geo != nil {
		g := *l.Location.Geo
		c.Location.Geo = &g
	}
	if l.ApplicationCap != nil {
		v := *l.ApplicationCap
		c.ApplicationCap = &v
	}
	if l.StartDate != nil {
		v := *l.StartDate
		c.StartDate = &v
	}
	return &c
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
