package idempotency

import (
	"context"

	"campus-eats/internal/logger"

	"go.uber.org/zap"
)

// Guard runs a create operation at most once per (scope, key). A nil store
// or an empty key disables the check.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Do returns the remembered id with replayed=true when the key was already
// used, ErrInFlight while another request holds the key, and otherwise the
// id produced by create. A failed create releases the key so the client can
// retry with it. When the id cannot be remembered the key is released as well,
// so a retry is not stuck behind the lock until it expires.
func (g *Guard) Do(ctx context.Context, scope, key string, create func() (string, error)) (string, bool, error) {
	if g == nil || g.store == nil || key == "" {
		id, err := create()
		return id, false, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("scope", scope),
		zap.String("idempotency_key", key),
	)

	if id, ok, err := g.store.Recall(ctx, scope, key); err != nil {
		return "", false, err
	} else if ok {
		log.Info("idempotent replay", zap.String("id", id))
		return id, true, nil
	}

	locked, err := g.store.TryLock(ctx, scope, key)
	if err != nil {
		return "", false, err
	}
	if !locked {
		return "", false, ErrInFlight
	}

	id, err := create()
	if err != nil {
		if relErr := g.store.Release(ctx, scope, key); relErr != nil {
			log.Warn("failed to release idempotency key", zap.Error(relErr))
		}
		return "", false, err
	}

	if err := g.store.Remember(ctx, scope, key, id); err != nil {
		log.Warn("failed to remember idempotency key", zap.String("id", id), zap.Error(err))
		if relErr := g.store.Release(ctx, scope, key); relErr != nil {
			log.Warn("failed to release idempotency key", zap.Error(relErr))
		}
	}
	return id, false, nil
}
