//go:build integration

package ledger

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type RedisStoreSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *goredis.Client
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcredis.Run(s.ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	uri, err := container.ConnectionString(s.ctx)
	s.Require().NoError(err)

	opts, err := goredis.ParseURL(uri)
	s.Require().NoError(err)
	s.client = goredis.NewClient(opts)
	s.Require().NoError(s.client.Ping(s.ctx).Err())
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		require.NoError(s.T(), s.client.Close())
	}
	if s.container != nil {
		require.NoError(s.T(), s.container.Terminate(s.ctx))
	}
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(s.ctx).Err())
}

func (s *RedisStoreSuite) TestLoadWithoutSnapshotReturnsNil() {
	store := NewRedisStore(s.client, "")

	records, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.Nil(records)
}

func (s *RedisStoreSuite) TestSaveAndLoadRoundTrip() {
	store := NewRedisStore(s.client, "vcgw:ledger:test")

	saved := []Record{
		{TransactionID: "tx-1", CID: "abc-123", Status: "ACCEPTED", Collected: true},
		{TransactionID: "tx-2", LookupPending: true, LookupHint: "try again"},
	}
	s.Require().NoError(store.Save(s.ctx, saved))

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal(saved, loaded)
}

func (s *RedisStoreSuite) TestSaveReplacesSnapshot() {
	store := NewRedisStore(s.client, "")

	s.Require().NoError(store.Save(s.ctx, []Record{{TransactionID: "tx-1"}}))
	s.Require().NoError(store.Save(s.ctx, []Record{}))

	loaded, err := store.Load(s.ctx)
	s.Require().NoError(err)
	s.Empty(loaded)
}

func (s *RedisStoreSuite) TestLedgerRehydratesFromRedis() {
	store := NewRedisStore(s.client, "")

	first, err := New(s.ctx, store)
	s.Require().NoError(err)
	_, err = first.Append(s.ctx, Record{TransactionID: "tx-1", CID: "abc-123"})
	s.Require().NoError(err)

	second, err := New(s.ctx, store)
	s.Require().NoError(err)

	records := second.Records()
	s.Require().Len(records, 1)
	s.Equal("tx-1", records[0].TransactionID)
	s.Equal("abc-123", records[0].CID)
}
