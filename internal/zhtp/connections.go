package zhtp

// connections.go holds the two bounded caches the mesh dispatcher consults
// on every handshake: a replay cache keyed by client nonce, and a table of
// already-authenticated sessions keyed by node id. Both are hashicorp's
// golang-lru/v2, the eviction policy the wider example corpus reaches for
// whenever an in-memory cache needs a hard cap instead of unbounded growth.

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	nonceCacheCapacity      = 100_000
	nonceCacheTTL           = time.Hour
	authConnectionCapacity  = 10_000
)

// NonceCache rejects a handshake nonce that has already been seen within
// nonceCacheTTL, defeating handshake replay.
type NonceCache struct {
	mu    sync.Mutex
	cache *lru.Cache[[16]byte, time.Time]
}

// NewNonceCache returns a nonce-replay cache capped at nonceCacheCapacity
// entries.
func NewNonceCache() *NonceCache {
	c, _ := lru.New[[16]byte, time.Time](nonceCacheCapacity)
	return &NonceCache{cache: c}
}

// SeenRecently records nonce and reports whether it was already present and
// still within the TTL window (a replay). A nonce outside the TTL window is
// treated as fresh and re-recorded with the current timestamp.
func (n *NonceCache) SeenRecently(nonce [16]byte) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if at, ok := n.cache.Get(nonce); ok {
		if time.Since(at) < nonceCacheTTL {
			return true
		}
	}
	n.cache.Add(nonce, time.Now())
	return false
}

// AuthenticatedSession is what the connection table remembers about a peer
// that has completed the handshake.
type AuthenticatedSession struct {
	NodeID      Hash
	SessionID   [16]byte
	MasterKey   []byte
	EstablishedAt time.Time
}

// ConnectionTable maps an authenticated node id to its live session,
// capped so a flood of short-lived handshakes cannot grow it unboundedly.
type ConnectionTable struct {
	mu    sync.Mutex
	cache *lru.Cache[Hash, *AuthenticatedSession]
}

// NewConnectionTable returns an authenticated-connection table capped at
// authConnectionCapacity entries.
func NewConnectionTable() *ConnectionTable {
	c, _ := lru.New[Hash, *AuthenticatedSession](authConnectionCapacity)
	return &ConnectionTable{cache: c}
}

// Put records a freshly authenticated session, evicting the
// least-recently-used entry if the table is full.
func (c *ConnectionTable) Put(nodeID Hash, s *AuthenticatedSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(nodeID, s)
}

// Get looks up an authenticated session by node id.
func (c *ConnectionTable) Get(nodeID Hash) (*AuthenticatedSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Get(nodeID)
}

// Remove drops a session, e.g. on disconnect or session expiry.
func (c *ConnectionTable) Remove(nodeID Hash) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Remove(nodeID)
}

// Len reports the number of live authenticated sessions.
func (c *ConnectionTable) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Len()
}
