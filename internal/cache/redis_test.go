package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestConnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())
}

func TestConnectFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}

func TestPublishGameAction(t *testing.T) {
	rdb, mr := newTestClient(t)
	pub := NewPublisher(rdb, "")
	assert.Equal(t, DefaultQueueName, pub.Queue())

	rec := GameActionRecord{
		GameID:        uuid.New(),
		ActionIndex:   3,
		ActorID:       uuid.New(),
		ActorName:     "alice",
		ActionType:    "play",
		ActionPayload: map[string]interface{}{"card": "8 of Hearts"},
		Timestamp:     1700000000000,
	}
	require.NoError(t, pub.PublishGameAction(context.Background(), rec))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 1)

	decoded, err := DecodeGameAction(items[0])
	require.NoError(t, err)
	assert.Equal(t, rec, decoded)
}

func TestDecodeGameActionRejectsGarbage(t *testing.T) {
	_, err := DecodeGameAction("{not json")
	assert.Error(t, err)
}
