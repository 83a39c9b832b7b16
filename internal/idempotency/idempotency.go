// Package idempotency replays the stored response of a retried request that
// carries the same Idempotency-Key and payload.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/resume-rag/internal/types"
)

// DefaultTTL is how long a stored response is replayable.
const DefaultTTL = 24 * time.Hour

// claimTTL bounds how long a crashed request keeps its key claimed.
const claimTTL = 5 * time.Minute

// Record is the stored outcome of a keyed request. A pending record claims
// the key while the first request runs.
type Record struct {
	PayloadHash string    `json:"payloadHash"`
	Body        []byte    `json:"body,omitempty"`
	Pending     bool      `json:"pending,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store keeps records. Get returns nil, nil for an unknown key. Save only
// writes when the key is absent and reports whether it did. Put overwrites.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) (bool, error)
	Put(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Guard runs a keyed operation at most once per payload. Concurrent calls
// with the same key and payload share one execution.
type Guard struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewGuard wraps store. A non-positive ttl means DefaultTTL.
func NewGuard(store Store, ttl time.Duration, logger *zap.Logger) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{store: store, ttl: ttl, logger: logger}
}

// HashPayload returns the hex sha256 of a request payload.
func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type outcome struct {
	body     []byte
	replayed bool
}

// Do returns the stored body for (scope, key) when one exists for the same
// payload, and otherwise runs fn and stores its body. The key is claimed
// before fn runs, so a second request under the same key never runs fn
// while the first is in flight: a different payload is a ConflictError, and
// so is the same payload while another instance still holds the claim.
// Concurrent calls in one process with the same key and payload share one
// execution. Failed runs release the claim. An empty key disables the guard.
func (g *Guard) Do(ctx context.Context, scope, key string, payload []byte, fn func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if key == "" {
		body, err := fn(ctx)
		return body, false, err
	}

	storeKey := scope + ":" + key
	hash := HashPayload(payload)

	v, err, _ := g.group.Do(storeKey+"|"+hash, func() (any, error) {
		claimed, err := g.claim(ctx, storeKey, hash)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return g.replay(ctx, storeKey, hash)
		}

		body, err := fn(ctx)
		if err != nil {
			if derr := g.store.Delete(context.WithoutCancel(ctx), storeKey); derr != nil {
				g.logger.Warn("failed to release idempotency claim", zap.String("key", storeKey), zap.Error(derr))
			}
			return nil, err
		}

		rec := Record{PayloadHash: hash, Body: body, CreatedAt: time.Now().UTC()}
		if err := g.store.Put(context.WithoutCancel(ctx), storeKey, rec, g.ttl); err != nil {
			// The work is done; failing to remember it only loses replay.
			g.logger.Warn("failed to store idempotent response", zap.String("key", storeKey), zap.Error(err))
		}
		return &outcome{body: body}, nil
	})
	if err != nil {
		return nil, false, err
	}
	out := v.(*outcome)
	return out.body, out.replayed, nil
}

// claim writes a pending record for storeKey. It reports false when a
// record already exists. A store that cannot be written leaves the request
// unguarded rather than failing it.
func (g *Guard) claim(ctx context.Context, storeKey, hash string) (bool, error) {
	pending := Record{PayloadHash: hash, Pending: true, CreatedAt: time.Now().UTC()}
	saved, err := g.store.Save(ctx, storeKey, pending, min(claimTTL, g.ttl))
	if err != nil {
		g.logger.Warn("failed to claim idempotency key", zap.String("key", storeKey), zap.Error(err))
		return true, nil
	}
	return saved, nil
}

// replay returns the stored body for storeKey. It is only called after a
// failed claim, so a vanished record means the claim holder failed or the
// record expired in between.
func (g *Guard) replay(ctx context.Context, storeKey, hash string) (*outcome, error) {
	rec, err := g.store.Get(ctx, storeKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency record: %w", err)
	}
	if rec == nil {
		return nil, &types.ConflictError{Message: "a request with this idempotency key did not complete; retry"}
	}
	if rec.PayloadHash != hash {
		return nil, &types.ConflictError{Message: "idempotency key was already used with a different payload"}
	}
	if rec.Pending {
		return nil, &types.ConflictError{Message: "a request with this idempotency key is still in progress"}
	}
	return &outcome{body: rec.Body, replayed: true}, nil
}
