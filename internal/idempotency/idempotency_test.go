package idempotency

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/types"
)

func counting(calls *int32, body string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(body), nil
	}
}

func TestGuard_ReplaysSamePayload(t *testing.T) {
	g := NewGuard(NewMemory(), 0, zap.NewNop())
	ctx := context.Background()
	var calls int32

	body, replayed, err := g.Do(ctx, "u1", "k1", []byte("payload"), counting(&calls, `{"n":1}`))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, `{"n":1}`, string(body))

	body, replayed, err = g.Do(ctx, "u1", "k1", []byte("payload"), counting(&calls, `{"n":2}`))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, `{"n":1}`, string(body))
	assert.Equal(t, int32(1), calls)
}

func TestGuard_ConflictOnDifferentPayload(t *testing.T) {
	g := NewGuard(NewMemory(), 0, zap.NewNop())
	ctx := context.Background()
	var calls int32

	_, _, err := g.Do(ctx, "u1", "k1", []byte("a"), counting(&calls, "x"))
	require.NoError(t, err)

	_, _, err = g.Do(ctx, "u1", "k1", []byte("b"), counting(&calls, "y"))
	var ce *types.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int32(1), calls)
}

func TestGuard_ScopesAreIndependent(t *testing.T) {
	g := NewGuard(NewMemory(), 0, zap.NewNop())
	ctx := context.Background()
	var calls int32

	_, _, err := g.Do(ctx, "u1", "k1", []byte("a"), counting(&calls, "x"))
	require.NoError(t, err)
	_, replayed, err := g.Do(ctx, "u2", "k1", []byte("b"), counting(&calls, "y"))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int32(2), calls)
}

func TestGuard_EmptyKeyAlwaysRuns(t *testing.T) {
	g := NewGuard(NewMemory(), 0, zap.NewNop())
	var calls int32
	for i := 0; i < 3; i++ {
		_, replayed, err := g.Do(context.Background(), "u1", "", []byte("a"), counting(&calls, "x"))
		require.NoError(t, err)
		assert.False(t, replayed)
	}
	assert.Equal(t, int32(3), calls)
}

func TestGuard_FailuresAreNotStored(t *testing.T) {
	g := NewGuard(NewMemory(), 0, zap.NewNop())
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := g.Do(ctx, "u1", "k1", []byte("a"), func(context.Context) ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	var calls int32
	_, replayed, err := g.Do(ctx, "u1", "k1", []byte("a"), counting(&calls, "ok"))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int32(1), calls)
}

func TestGuard_CoalescesConcurrentCalls(t *testing.T) {
	g := NewGuard(NewMemory(), 0, zap.NewNop())
	var calls int32
	release := make(chan struct{})
	fn := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("done"), nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _, err := g.Do(context.Background(), "u1", "k1", []byte("a"), fn)
			assert.NoError(t, err)
			results[i] = string(body)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "done", r)
	}
	// Late arrivals replay from the store instead of running again.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// blocking returns an fn that signals started and waits for release.
func blocking(calls *int32, started chan<- struct{}, release <-chan struct{}, body string) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		close(started)
		<-release
		return []byte(body), nil
	}
}

func TestGuard_InFlightKeyRejectsSecondRequest(t *testing.T) {
	tests := []struct {
		name       string
		sameGuard  bool
		payload    string
		wantReason string
	}{
		{name: "different payload same instance", sameGuard: true, payload: "b", wantReason: "different payload"},
		{name: "different payload other instance", sameGuard: false, payload: "b", wantReason: "different payload"},
		{name: "same payload other instance", sameGuard: false, payload: "a", wantReason: "in progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := NewMemory()
			first := NewGuard(shared, 0, zap.NewNop())
			second := first
			if !tt.sameGuard {
				second = NewGuard(shared, 0, zap.NewNop())
			}

			var firstCalls, secondCalls int32
			started := make(chan struct{})
			release := make(chan struct{})
			done := make(chan error, 1)
			go func() {
				_, _, err := first.Do(context.Background(), "u1", "k1", []byte("a"), blocking(&firstCalls, started, release, "first"))
				done <- err
			}()
			<-started

			_, _, err := second.Do(context.Background(), "u1", "k1", []byte(tt.payload), counting(&secondCalls, "second"))
			var ce *types.ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, ce.Message, tt.wantReason)
			assert.Equal(t, int32(0), atomic.LoadInt32(&secondCalls))

			close(release)
			require.NoError(t, <-done)

			body, replayed, err := second.Do(context.Background(), "u1", "k1", []byte("a"), counting(&secondCalls, "second"))
			require.NoError(t, err)
			assert.True(t, replayed)
			assert.Equal(t, "first", string(body))
			assert.Equal(t, int32(1), atomic.LoadInt32(&firstCalls))
			assert.Equal(t, int32(0), atomic.LoadInt32(&secondCalls))
		})
	}
}

type failingStore struct{ *Memory }

func (f *failingStore) Save(context.Context, string, Record, time.Duration) (bool, error) {
	return false, fmt.Errorf("store down")
}

func TestGuard_SaveFailureStillReturnsBody(t *testing.T) {
	g := NewGuard(&failingStore{Memory: NewMemory()}, 0, zap.NewNop())
	var calls int32
	body, replayed, err := g.Do(context.Background(), "u1", "k1", []byte("a"), counting(&calls, "x"))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, "x", string(body))
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	saved, err := m.Save(ctx, "k", Record{PayloadHash: "h"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = m.Save(ctx, "k", Record{PayloadHash: "other"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, saved)

	now = now.Add(2 * time.Minute)
	rec, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, rec)

	saved, err = m.Save(ctx, "k", Record{PayloadHash: "other"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, saved)

	require.NoError(t, m.Put(ctx, "k", Record{PayloadHash: "final"}, time.Minute))
	rec, err = m.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "final", rec.PayloadHash)

	require.NoError(t, m.Delete(ctx, "k"))
	rec, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	saved, err := r.Save(ctx, key, Record{PayloadHash: "h", Body: []byte("b")}, time.Minute)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = r.Save(ctx, key, Record{PayloadHash: "h2"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, saved)

	rec, err := r.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "h", rec.PayloadHash)
	assert.Equal(t, []byte("b"), rec.Body)

	require.NoError(t, r.Put(ctx, key, Record{PayloadHash: "h3"}, time.Minute))
	rec, err = r.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "h3", rec.PayloadHash)

	require.NoError(t, r.Delete(ctx, key))
	rec, err = r.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
