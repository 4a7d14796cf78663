package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/workmarket-backend/internal/pkg/apperror"
)

type txKey struct{}

// UnitOfWork кладёт транзакцию sqlx в контекст; адаптеры берут её через executor.
type UnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	return withTransaction(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// executor возвращает текущую транзакцию или пул соединений.
func executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// withTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок.
func withTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}

	defer func() {
		if p := recover(); p != nil {
			// При панике откатываем транзакцию
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err, "не удалось зафиксировать транзакцию")
	}
	return nil
}

// Имена ограничений из migrations/0001_init.sql.
const (
	constraintListingWorker = "bookings_listing_worker_key"
	constraintListingHolder = "bookings_one_holder_per_listing"
	pqUniqueViolation       = "23505"
	pqSerializationFailure  = "40001"
	pqDeadlockDetected      = "40P01"
	pqForeignKeyViolation   = "23503"
)

// mapError переводит ошибки драйвера в ошибки приложения.
func mapError(err error, message string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			switch pqErr.Constraint {
			case constraintListingWorker:
				return apperror.ErrAlreadyApplied
			case constraintListingHolder:
				return apperror.ErrListingLocked
			}
			return apperror.Wrap(err, apperror.ErrCodeConflict, message)
		case pqSerializationFailure, pqDeadlockDetected:
			return apperror.Wrap(err, apperror.ErrCodeConflict, "параллельное изменение, повторите запрос")
		case pqForeignKeyViolation:
			return apperror.Wrap(err, apperror.ErrCodeConflict, "на запись есть ссылки")
		}
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
