//go:build integration

package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	addr, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

// instance runs a hub and its relay until the returned stop is called.
func instance(t *testing.T, rdb *redis.Client) (*Hub, *Relay, func()) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	relay := NewRelay(rdb, hub, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { _ = hub.Run(ctx); done <- struct{}{} }()
	go func() { _ = relay.Run(ctx); done <- struct{}{} }()

	stopped := false
	stop := func() {
		if stopped {
			return
		}
		stopped = true
		cancel()
		<-done
		<-done
	}
	t.Cleanup(stop)
	return hub, relay, stop
}

func TestRelay_DeliversAcrossInstances(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()

	_, relayA, _ := instance(t, rdb)
	hubB, _, stopB := instance(t, rdb)

	conn := newFakeConn("c1")
	require.True(t, hubB.Register(conn))
	require.True(t, hubB.Announce("c1", "u1"))

	assert.Eventually(t, func() bool {
		online, err := relayA.Online(ctx, "u1")
		return err == nil && online
	}, 5*time.Second, 20*time.Millisecond)

	// The subscription may still be settling; publish until delivered.
	assert.Eventually(t, func() bool {
		_ = relayA.Publish(ctx, "u1", Event{Name: EventNotification, Data: map[string]string{"type": "new_answer"}})
		return len(conn.named(EventNotification)) > 0
	}, 5*time.Second, 50*time.Millisecond)

	stopB()
	online, err := relayA.Online(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestRelay_IgnoresOwnMessages(t *testing.T) {
	rdb := newRedis(t)
	ctx := context.Background()

	hub, relay, _ := instance(t, rdb)
	conn := newFakeConn("c1")
	require.True(t, hub.Register(conn))
	require.True(t, hub.Announce("c1", "u1"))

	require.NoError(t, relay.Publish(ctx, "u1", Event{Name: EventNotification, Data: "x"}))
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, conn.named(EventNotification))
}
