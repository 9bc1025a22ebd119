package zhtp

// reputation.go tracks per-peer gossip behaviour: block/transaction rate
// limits and a violation counter that escalates to a ban. Grounded on
// core/virtual_machine.go's rate.NewLimiter(...) idiom, generalised from one
// global limiter to one limiter pair per peer.

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBlockRatePerMinute = 10
	defaultTxRatePerMinute    = 100
	banViolationThreshold     = 10
)

// PeerReputation holds the rate limiters and violation count for one peer.
type PeerReputation struct {
	blockLimiter *rate.Limiter
	txLimiter    *rate.Limiter
	violations   int
	banned       bool
	lastSeen     time.Time
}

func newPeerReputation() *PeerReputation {
	return &PeerReputation{
		blockLimiter: rate.NewLimiter(rate.Limit(defaultBlockRatePerMinute)/60, defaultBlockRatePerMinute),
		txLimiter:    rate.NewLimiter(rate.Limit(defaultTxRatePerMinute)/60, defaultTxRatePerMinute),
	}
}

// ReputationTable is the dispatcher's per-peer gossip-behaviour registry.
type ReputationTable struct {
	mu    sync.Mutex
	peers map[string]*PeerReputation
}

// NewReputationTable returns an empty reputation table.
func NewReputationTable() *ReputationTable {
	return &ReputationTable{peers: make(map[string]*PeerReputation)}
}

func (t *ReputationTable) peer(peerID string) *PeerReputation {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[peerID]
	if !ok {
		p = newPeerReputation()
		t.peers[peerID] = p
	}
	p.lastSeen = time.Now()
	return p
}

// IsBanned reports whether peerID has crossed the violation threshold.
func (t *ReputationTable) IsBanned(peerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[peerID]
	return ok && p.banned
}

// AllowBlock reports whether peerID may send another block gossip message
// right now, recording a violation (and possibly a ban) if not.
func (t *ReputationTable) AllowBlock(peerID string) bool {
	p := t.peer(peerID)
	if p.banned {
		return false
	}
	if p.blockLimiter.Allow() {
		return true
	}
	t.recordViolation(peerID)
	return false
}

// AllowTransaction reports whether peerID may send another transaction
// gossip message right now, recording a violation (and possibly a ban) if
// not.
func (t *ReputationTable) AllowTransaction(peerID string) bool {
	p := t.peer(peerID)
	if p.banned {
		return false
	}
	if p.txLimiter.Allow() {
		return true
	}
	t.recordViolation(peerID)
	return false
}

func (t *ReputationTable) recordViolation(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[peerID]
	if !ok {
		return
	}
	p.violations++
	if p.violations > banViolationThreshold {
		p.banned = true
	}
}

// Forget drops a peer's reputation state entirely, e.g. on disconnect.
func (t *ReputationTable) Forget(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, peerID)
}
