package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool
}

func (f *fakeClient) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeClient) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.messages...)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub, _ := startHub(t)
	good := &fakeClient{}
	bad := &fakeClient{failing: true}
	hub.Register <- good
	hub.Register <- bad

	hub.Publish(Event{Type: EventStockUpdate, Action: "stock_item_created"})

	require.Eventually(t, func() bool { return len(good.received()) == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	var got Event
	require.NoError(t, json.Unmarshal(good.received()[0], &got))
	require.Equal(t, EventStockUpdate, got.Type)
	require.False(t, got.Timestamp.IsZero())
}

func TestHubClosesClientsOnStop(t *testing.T) {
	hub, cancel := startHub(t)
	c := &fakeClient{}
	hub.Register <- c
	cancel()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.closed
	}, time.Second, 10*time.Millisecond)
}

func TestRelayForwardsEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hub, _ := startHub(t)
	c := &fakeClient{}
	hub.Register <- c

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	relay := NewRelay(client, "test.alerts", nil)
	require.NoError(t, relay.Forward(ctx, hub))

	require.NoError(t, relay.Publish(ctx, Event{Type: EventExpirationAlert, Data: map[string]int{"critical_items": 2}}))
	require.NoError(t, client.Publish(ctx, "test.alerts", "not json").Err())

	require.Eventually(t, func() bool { return len(c.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	var got Event
	require.NoError(t, json.Unmarshal(c.received()[0], &got))
	require.Equal(t, EventExpirationAlert, got.Type)
}

type fakeConn struct {
	fakeClient
	gone chan struct{}
	once sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{gone: make(chan struct{})} }

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.gone) })
	return f.fakeClient.Close()
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.gone
	return 0, nil, io.EOF
}

func serveAsync(hub *Hub, c Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.ServeConn(c)
	}()
	return done
}

func TestServeConnAfterHubStopped(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	<-hub.Done()

	c := newFakeConn()
	select {
	case <-serveAsync(hub, c):
	case <-time.After(time.Second):
		t.Fatal("ServeConn blocked on a stopped hub")
	}
	require.True(t, c.isClosed())
	require.Zero(t, hub.ClientCount())
}

func TestServeConnReturnsWhenHubStops(t *testing.T) {
	hub, cancel := startHub(t)
	c := newFakeConn()
	served := serveAsync(hub, c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("ServeConn still running after hub stopped")
	}
	require.True(t, c.isClosed())
}

func TestServeConnLeavesOnDisconnect(t *testing.T) {
	hub, _ := startHub(t)
	c := newFakeConn()
	served := serveAsync(hub, c)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	c.once.Do(func() { close(c.gone) })
	<-served
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}
