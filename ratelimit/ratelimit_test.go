package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sx120609/Nishikigi/db"
)

func newLimiter(t *testing.T) *Limiter {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewLimiter(store, 3, 1)
}

func TestCheckNormalLimit(t *testing.T) {
	l := newLimiter(t)
	today := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Check(10001, false, today))
		require.NoError(t, l.Record(10001, false, today))
	}

	err := l.Check(10001, false, today)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.False(t, denied.Anonymous)
	assert.Equal(t, 3, denied.Limit)
}

func TestAnonymousBucketIndependent(t *testing.T) {
	l := newLimiter(t)
	today := time.Now()

	// 普通额度用完, 匿名仍然可用
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(10001, false, today))
	}
	require.Error(t, l.Check(10001, false, today))
	require.NoError(t, l.Check(10001, true, today))

	require.NoError(t, l.Record(10001, true, today))
	err := l.Check(10001, true, today)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.True(t, denied.Anonymous)
	assert.Equal(t, 1, denied.Limit)
}

func TestOtherUsersUnaffected(t *testing.T) {
	l := newLimiter(t)
	today := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(10001, false, today))
	}
	assert.NoError(t, l.Check(10002, false, today))
}

func TestNextDayResets(t *testing.T) {
	l := newLimiter(t)
	today := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.Record(10001, false, today))
	}
	assert.NoError(t, l.Check(10001, false, today.Add(24*time.Hour)))
}

func TestAdminReset(t *testing.T) {
	l := newLimiter(t)
	today := time.Now()

	require.NoError(t, l.Record(10001, true, today))
	require.Error(t, l.Check(10001, true, today))

	require.NoError(t, l.Reset(10001, today))
	assert.NoError(t, l.Check(10001, true, today))
}
