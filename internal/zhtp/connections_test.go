package zhtp

import "testing"

func TestNonceCacheDetectsReplay(t *testing.T) {
	nc := NewNonceCache()
	var nonce [16]byte
	nonce[0] = 7
	if nc.SeenRecently(nonce) {
		t.Fatalf("expected first sighting to be fresh")
	}
	if !nc.SeenRecently(nonce) {
		t.Fatalf("expected second sighting within TTL to be a replay")
	}
}

func TestConnectionTablePutGetRemove(t *testing.T) {
	ct := NewConnectionTable()
	node := Hash{1}
	sess := &AuthenticatedSession{NodeID: node, SessionID: [16]byte{1}}
	ct.Put(node, sess)
	got, ok := ct.Get(node)
	if !ok || got.SessionID != sess.SessionID {
		t.Fatalf("expected session to round trip")
	}
	ct.Remove(node)
	if _, ok := ct.Get(node); ok {
		t.Fatalf("expected removed session to be gone")
	}
}

func TestConnectionTableLen(t *testing.T) {
	ct := NewConnectionTable()
	for i := 0; i < 5; i++ {
		var h Hash
		h[0] = byte(i)
		ct.Put(h, &AuthenticatedSession{NodeID: h})
	}
	if ct.Len() != 5 {
		t.Fatalf("expected 5 entries, got %d", ct.Len())
	}
}
