package domain_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebwray/interest-radar/internal/domain"
)

type fakeConn struct {
	mu       sync.Mutex
	received []*domain.Notification
	err      error
}

func (c *fakeConn) Deliver(n *domain.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.received = append(c.received, n)
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.received)
}

func TestRegistryRegisterUnregisterRoundTrip(t *testing.T) {
	r := domain.NewRegistry()
	conn := &fakeConn{}

	require.Empty(t, r.ConnectionsFor("alice"))

	r.Register("alice", conn)
	require.Len(t, r.ConnectionsFor("alice"), 1)

	r.Unregister("alice", conn)
	assert.Empty(t, r.ConnectionsFor("alice"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistryMultipleConnectionsAreAdditive(t *testing.T) {
	r := domain.NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	r.Register("alice", first)
	r.Register("alice", second)
	require.Len(t, r.ConnectionsFor("alice"), 2)

	// Re-registering an existing connection must not duplicate it.
	r.Register("alice", first)
	assert.Len(t, r.ConnectionsFor("alice"), 2)

	r.Unregister("alice", first)
	conns := r.ConnectionsFor("alice")
	require.Len(t, conns, 1)
	assert.Same(t, second, conns[0].(*fakeConn))
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := domain.NewRegistry()
	conn := &fakeConn{}

	// Late or duplicate close events must be harmless.
	r.Unregister("alice", conn)

	r.Register("alice", conn)
	r.Unregister("alice", conn)
	r.Unregister("alice", conn)
	assert.Empty(t, r.ConnectionsFor("alice"))
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := domain.NewRegistry()
	conn := &fakeConn{}
	r.Register("alice", conn)

	snapshot := r.ConnectionsFor("alice")
	r.Unregister("alice", conn)

	// The snapshot taken before the unregister is unaffected.
	assert.Len(t, snapshot, 1)
	assert.Empty(t, r.ConnectionsFor("alice"))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := domain.NewRegistry()
	users := []string{"alice", "bob", "carol", "dave"}

	var wg sync.WaitGroup
	for _, userID := range users {
		for range 25 {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				conn := &fakeConn{}
				r.Register(id, conn)
				r.ConnectionsFor(id)
				r.Unregister(id, conn)
			}(userID)
		}
	}
	wg.Wait()

	for _, userID := range users {
		assert.Empty(t, r.ConnectionsFor(userID))
	}
	assert.Equal(t, 0, r.Len())
}
