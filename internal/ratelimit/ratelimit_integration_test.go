//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/marshallshelly/pebble-apps/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Redis(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, testdb.StartRedis(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	l := New(client)
	require.True(t, l.Enabled())

	ok, _, err := l.Allow(ctx, "quiz.generateQuiz:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first call claims the window")

	ok, retry, err := l.Allow(ctx, "quiz.generateQuiz:a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second call inside the window is refused")
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	ok, _, err = l.Allow(ctx, "quiz.generateQuiz:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "keys are independent")

	require.NoError(t, l.Reset(ctx, "quiz.generateQuiz:a"))
	ok, _, err = l.Allow(ctx, "quiz.generateQuiz:a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "reset frees the window")
}
