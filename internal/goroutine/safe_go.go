package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/ignatzorin/workmarket-backend/internal/logger"
)

// SafeGo запускает горутину; panic логируется со стеком и не роняет процесс.
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverPanic(name)
		fn()
	}()
}

// SafeGoWithContext то же, что SafeGo, но передаёт ctx в fn.
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer recoverPanic(name)
		fn(ctx)
	}()
}

func recoverPanic(name string) {
	if r := recover(); r != nil {
		logger.Log.WithField("goroutine", name).Errorf("panic в горутине: %v\n%s", r, debug.Stack())
	}
}
