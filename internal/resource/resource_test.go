package resource

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_IdleUntilStarted(t *testing.T) {
	r := New(func(context.Context) (int, error) { return 1, nil })

	snap, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.State)
}

func TestResource_LoadingThenReady(t *testing.T) {
	release := make(chan struct{})
	r := New(func(context.Context) (string, error) {
		<-release
		return "products", nil
	})

	r.Start(context.Background())
	assert.Equal(t, Loading, r.Snapshot().State)

	close(release)
	snap, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, "products", snap.Value)
	assert.NoError(t, snap.Err)
}

func TestResource_Failed(t *testing.T) {
	boom := errors.New("boom")
	r := New(func(context.Context) ([]int, error) { return nil, boom })

	_, err := r.Load(context.Background())
	assert.ErrorIs(t, err, boom)

	snap := r.Snapshot()
	assert.Equal(t, Failed, snap.State)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Equal(t, "failed", snap.State.String())
}

func TestResource_ReloadKeepsValueWhileLoading(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{}, 1)
	r := New(func(context.Context) (int32, error) {
		n := calls.Add(1)
		if n > 1 {
			<-release
		}
		return n, nil
	})

	v, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	r.Start(context.Background())
	snap := r.Snapshot()
	assert.Equal(t, Loading, snap.State)
	assert.Equal(t, int32(1), snap.Value)

	release <- struct{}{}
	snap, err = r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), snap.Value)
}

func TestResource_NewerLoadSupersedes(t *testing.T) {
	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})
	var calls atomic.Int32

	r := New(func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(slowStarted)
			<-slowRelease
			return "stale", nil
		}
		return "fresh", nil
	})

	r.Start(context.Background())
	<-slowStarted
	r.Start(context.Background())

	snap, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", snap.Value)

	close(slowRelease)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh", r.Snapshot().Value)
}

func TestResource_SupersededLoadIsCanceled(t *testing.T) {
	canceled := make(chan struct{})
	var calls atomic.Int32
	r := New(func(ctx context.Context) (int, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			close(canceled)
			return 0, ctx.Err()
		}
		return 2, nil
	})

	r.Start(context.Background())
	r.Start(context.Background())

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("first load was not canceled")
	}
	v, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestResource_CloseDiscardsResult(t *testing.T) {
	started := make(chan struct{})
	r := New(func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "late", nil
	})

	r.Start(context.Background())
	<-started
	r.Close()

	_, err := r.Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	time.Sleep(20 * time.Millisecond)
	snap := r.Snapshot()
	assert.Equal(t, Loading, snap.State)
	assert.Empty(t, snap.Value)

	r.Start(context.Background())
	assert.Equal(t, Loading, r.Snapshot().State, "start after close is a no-op")
	assert.False(t, r.Mutate(func(s string) string { return "x" }))
}

func TestResource_Mutate(t *testing.T) {
	r := New(func(context.Context) ([]string, error) { return []string{"A", "B", "C"}, nil })

	assert.False(t, r.Mutate(func(v []string) []string { return nil }), "not ready yet")

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	ok := r.Mutate(func(v []string) []string {
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "B" {
				out = append(out, s)
			}
		}
		return out
	})
	assert.True(t, ok)
	assert.Equal(t, []string{"A", "C"}, r.Snapshot().Value)
}

func TestResource_WaitHonorsContext(t *testing.T) {
	r := New(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	r.Start(context.Background())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap, err := r.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Loading, snap.State)
}
