package repository

import "context"

// UnitOfWork выполняет fn атомарно: все записи внутри фиксируются вместе или откатываются.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
