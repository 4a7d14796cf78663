package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/workmarket-backend/internal/config"
	"github.com/ignatzorin/workmarket-backend/internal/db"
	"github.com/ignatzorin/workmarket-backend/internal/domain/repository"
	"github.com/ignatzorin/workmarket-backend/internal/goroutine"
	"github.com/ignatzorin/workmarket-backend/internal/http/middleware"
	httpRouter "github.com/ignatzorin/workmarket-backend/internal/http/router"
	"github.com/ignatzorin/workmarket-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/workmarket-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/workmarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/workmarket-backend/internal/logger"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/clock"
	"github.com/ignatzorin/workmarket-backend/internal/pkg/token"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/booking"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/listing"
	"github.com/ignatzorin/workmarket-backend/internal/usecase/report"
)

// storage набор портов, поверх которых работают сценарии.
type storage struct {
	uow      repository.UnitOfWork
	listings repository.ListingRepository
	bookings repository.BookingRepository
	users    repository.UserDirectory
	checks   map[string]handler.HealthCheck
	close    func()
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	store, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}
	defer store.close()

	// Redis нужен только для общих лимитов между репликами.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = db.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Log.Fatalf("main: %v", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Log.WithError(err).Warn("main: ошибка закрытия redis")
			}
		}()
		store.checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	limitStore, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		logger.Log.Fatalf("main: %v", err)
	}

	clk := clock.Real()

	// Сценарии объявлений.
	createListingUC := listing.NewCreateListingUseCase(store.listings, store.users, clk)
	publishListingUC := listing.NewPublishListingUseCase(store.uow, store.listings, clk)
	cancelListingUC := listing.NewCancelListingUseCase(store.uow, store.listings, store.bookings, clk)
	deleteListingUC := listing.NewDeleteListingUseCase(store.uow, store.listings, store.bookings)
	getListingUC := listing.NewGetListingUseCase(store.listings)
	listListingsUC := listing.NewListListingsUseCase(store.listings)
	recordViewUC := listing.NewRecordViewUseCase(store.listings)
	rankCandidatesUC := listing.NewRankCandidatesUseCase(store.listings, store.users)

	// Сценарии заявок.
	getBookingUC := booking.NewGetBookingUseCase(store.bookings, store.users)
	bookingUCs := handler.BookingUseCases{
		Apply:          booking.NewApplyUseCase(store.uow, store.listings, store.bookings, store.users, clk, cfg.CommissionRate),
		Transition:     booking.NewTransitionBookingUseCase(store.uow, store.listings, store.bookings, store.users, clk, cfg.CancelGracePeriod),
		Schedule:       booking.NewScheduleBookingUseCase(store.uow, store.bookings, store.users, clk),
		SetFinalAmount: booking.NewSetFinalAmountUseCase(store.uow, store.bookings, store.users, clk),
		AddEvidence:    booking.NewAddEvidenceUseCase(store.uow, store.bookings, store.users, clk),
		Rate:           booking.NewRateBookingUseCase(store.uow, store.bookings, store.users, clk),
		AddNote:        booking.NewAddNoteUseCase(store.uow, store.bookings, store.users, clk),
		FlagIssue:      booking.NewFlagIssueUseCase(store.uow, store.bookings, store.users, clk),
		Get:            getBookingUC,
		ListByListing:  booking.NewListListingBookingsUseCase(store.listings, store.bookings, store.users),
		ListMine:       booking.NewListMyBookingsUseCase(store.bookings),
		CanCancel:      booking.NewCanCancelUseCase(getBookingUC, clk, cfg.CancelGracePeriod),
		Purge:          booking.NewPurgeBookingUseCase(store.uow, store.bookings, store.users),
	}

	summaryUC := report.NewMarketplaceSummaryUseCase(store.listings, store.bookings, store.users)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Listings: handler.NewListingHandler(createListingUC, publishListingUC, cancelListingUC, deleteListingUC,
			getListingUC, listListingsUC, recordViewUC, rankCandidatesUC),
		Bookings: handler.NewBookingHandler(bookingUCs),
		Reports:  handler.NewReportHandler(summaryUC),
		Health:   handler.NewHealthHandler(store.checks),
	}, token.NewVerifier(cfg.JWTSecret), limitStore)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGoWithContext(ctx, "shutdown", func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"port":    cfg.HTTPPort,
		"storage": cfg.Storage,
		"env":     cfg.Env,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		mem := memory.NewStore()
		if cfg.DirectorySeedPath != "" {
			n, err := mem.Directory().LoadDirectory(cfg.DirectorySeedPath)
			if err != nil {
				return nil, err
			}
			logger.Log.WithField("users", n).Info("main: справочник пользователей загружен")
		} else {
			logger.Log.Warn("main: STORAGE=memory без DIRECTORY_SEED_PATH, справочник пользователей пуст")
		}
		return &storage{
			uow:      mem,
			listings: mem.Listings(),
			bookings: mem.Bookings(),
			users:    mem.Directory(),
			checks:   map[string]handler.HealthCheck{},
			close:    func() {},
		}, nil
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		safeClose(dbConn)
		return nil, err
	}
	return &storage{
		uow:      persistence.NewUnitOfWork(dbConn),
		listings: persistence.NewListingRepositoryAdapter(dbConn),
		bookings: persistence.NewBookingRepositoryAdapter(dbConn),
		users:    persistence.NewUserDirectoryAdapter(dbConn),
		checks: map[string]handler.HealthCheck{
			"database": dbConn.PingContext,
		},
		close: func() { safeClose(dbConn) },
	}, nil
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		logger.Log.WithError(err).Warn("main: ошибка закрытия базы")
	}
}
