package kis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTokenCache_ExpiryMargin(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	var issued atomic.Int32
	issue := func(context.Context) (string, time.Duration, error) {
		issued.Add(1)
		return "abc", 100 * time.Second, nil
	}

	var saved string
	var savedAt time.Time
	persist := func(tok string, exp time.Time) error {
		saved, savedAt = tok, exp
		return nil
	}

	c := newTokenCache(issue, persist, clock.Now, zerolog.Nop())
	ctx := context.Background()

	tok, err := c.EnsureValid(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", tok)
	assert.Equal(t, "Bearer abc", saved)
	assert.Equal(t, clock.Now().Add(70*time.Second), savedAt)

	clock.Advance(69 * time.Second)
	_, err = c.EnsureValid(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), issued.Load())

	clock.Advance(2 * time.Second)
	_, err = c.EnsureValid(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), issued.Load())
}

func TestTokenCache_ConcurrentCallersShareOneIssue(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	issue := func(context.Context) (string, time.Duration, error) {
		issued.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "Bearer shared", time.Hour, nil
	}
	c := newTokenCache(issue, nil, time.Now, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.EnsureValid(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "Bearer shared", tok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), issued.Load())
}

func TestTokenCache_SeedAndInvalidate(t *testing.T) {
	t.Parallel()

	var issued atomic.Int32
	issue := func(context.Context) (string, time.Duration, error) {
		issued.Add(1)
		return "new", time.Hour, nil
	}
	c := newTokenCache(issue, nil, time.Now, zerolog.Nop())

	c.seed("raw-without-prefix", time.Now().Add(time.Hour))
	tok, err := c.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer new", tok)

	c.seed("Bearer persisted", time.Now().Add(time.Hour))
	tok, err = c.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer persisted", tok)
	assert.Equal(t, int32(1), issued.Load())

	c.Invalidate()
	tok, err = c.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer new", tok)
	assert.Equal(t, int32(2), issued.Load())
}

func TestTokenCache_IssueErrorClearsToken(t *testing.T) {
	t.Parallel()

	fail := true
	issue := func(context.Context) (string, time.Duration, error) {
		if fail {
			return "", 0, errors.New("boom")
		}
		return "ok", time.Hour, nil
	}
	c := newTokenCache(issue, nil, time.Now, zerolog.Nop())

	_, err := c.EnsureValid(context.Background())
	assert.Error(t, err)

	fail = false
	tok, err := c.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer ok", tok)
}
