package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_BeginAcquires(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	payload, err := encodeRecord(newInFlight("user-1|k", "fp", fixedTime, time.Hour))
	require.NoError(t, err)
	mock.ExpectSetNX(store.redisKey("user-1|k"), payload, time.Hour).SetVal(true)

	outcome, record, err := store.Begin(context.Background(), "user-1|k", "fp", fixedTime, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAcquired, outcome)
	assert.Equal(t, StateInFlight, record.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_BeginReplaysCompleted(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	fresh, err := encodeRecord(newInFlight("k", "fp", fixedTime, time.Hour))
	require.NoError(t, err)
	stored, err := encodeRecord(completed(newInFlight("k", "fp", fixedTime, time.Hour), Response{Status: 201, Body: []byte(`{}`)}, fixedTime, time.Hour))
	require.NoError(t, err)

	mock.ExpectSetNX(store.redisKey("k"), fresh, time.Hour).SetVal(false)
	mock.ExpectGet(store.redisKey("k")).SetVal(stored)

	outcome, record, err := store.Begin(context.Background(), "k", "fp", fixedTime, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplay, outcome)
	assert.Equal(t, 201, record.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_BeginFingerprintMismatch(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	fresh, _ := encodeRecord(newInFlight("k", "other", fixedTime, time.Hour))
	existing, _ := encodeRecord(newInFlight("k", "fp", fixedTime, time.Hour))
	mock.ExpectSetNX(store.redisKey("k"), fresh, time.Hour).SetVal(false)
	mock.ExpectGet(store.redisKey("k")).SetVal(existing)

	_, _, err := store.Begin(context.Background(), "k", "other", fixedTime, time.Hour)
	assert.ErrorIs(t, err, ErrFingerprintMismatch)
}

func TestRedisStore_BeginSurfacesErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)

	fresh, _ := encodeRecord(newInFlight("k", "fp", fixedTime, time.Hour))
	mock.ExpectSetNX(store.redisKey("k"), fresh, time.Hour).SetErr(errors.New("connection refused"))

	_, _, err := store.Begin(context.Background(), "k", "fp", fixedTime, time.Hour)
	assert.ErrorContains(t, err, "connection refused")
}

func TestRedisStore_Abandon(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client)
	mock.ExpectDel(store.redisKey("k")).SetVal(1)

	require.NoError(t, store.Abandon(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
