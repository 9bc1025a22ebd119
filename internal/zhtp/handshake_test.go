package zhtp

import (
	"testing"
	"time"
)

func TestClientHelloBuildAndVerify(t *testing.T) {
	kyberPub, _, err := KyberGenerateKeyPair()
	if err != nil {
		t.Fatalf("kyber keypair: %v", err)
	}
	dilPub, dilPriv, err := DilithiumKeypair(AlgDilithium2)
	if err != nil {
		t.Fatalf("dilithium keypair: %v", err)
	}
	var nonce [16]byte
	nonce[0] = 1

	ch, err := BuildClientHello("did:zhtp:client", "device-a", kyberPub, dilPub, dilPriv, AlgDilithium2, nonce, time.Now())
	if err != nil {
		t.Fatalf("build client hello: %v", err)
	}
	nonces := NewNonceCache()
	if err := VerifyClientHello(ch, nonces, time.Now()); err != nil {
		t.Fatalf("expected client hello to verify, got %v", err)
	}
}

func TestVerifyClientHelloRejectsReplay(t *testing.T) {
	kyberPub, _, _ := KyberGenerateKeyPair()
	dilPub, dilPriv, _ := DilithiumKeypair(AlgDilithium2)
	var nonce [16]byte
	nonce[1] = 9

	ch, err := BuildClientHello("did:zhtp:client", "device-a", kyberPub, dilPub, dilPriv, AlgDilithium2, nonce, time.Now())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	nonces := NewNonceCache()
	if err := VerifyClientHello(ch, nonces, time.Now()); err != nil {
		t.Fatalf("first verification should pass: %v", err)
	}
	if err := VerifyClientHello(ch, nonces, time.Now()); err != ErrHandshakeNonceReplay {
		t.Fatalf("expected replay rejection, got %v", err)
	}
}

func TestVerifyClientHelloRejectsStale(t *testing.T) {
	kyberPub, _, _ := KyberGenerateKeyPair()
	dilPub, dilPriv, _ := DilithiumKeypair(AlgDilithium2)
	var nonce [16]byte
	ch, err := BuildClientHello("did:zhtp:client", "device-a", kyberPub, dilPub, dilPriv, AlgDilithium2, nonce, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	nonces := NewNonceCache()
	if err := VerifyClientHello(ch, nonces, time.Now()); err != ErrHandshakeStale {
		t.Fatalf("expected stale rejection, got %v", err)
	}
}

func TestFullHandshakeDerivesMatchingMasterKey(t *testing.T) {
	clientKyberPub, clientKyberPriv, _ := KyberGenerateKeyPair()
	clientDilPub, clientDilPriv, _ := DilithiumKeypair(AlgDilithium2)
	serverDilPub, serverDilPriv, _ := DilithiumKeypair(AlgDilithium2)

	var clientNonce, serverNonce [16]byte
	clientNonce[0] = 1
	serverNonce[0] = 2

	ch, err := BuildClientHello("did:zhtp:client", "device-a", clientKyberPub, clientDilPub, clientDilPriv, AlgDilithium2, clientNonce, time.Now())
	if err != nil {
		t.Fatalf("build client hello: %v", err)
	}

	sh, serverSharedSecret, err := BuildServerHello("did:zhtp:server", "device-b", ch.KyberPublic, serverDilPub, serverDilPriv, AlgDilithium2, serverNonce, time.Now())
	if err != nil {
		t.Fatalf("build server hello: %v", err)
	}
	if err := VerifyServerHello(sh, time.Now()); err != nil {
		t.Fatalf("verify server hello: %v", err)
	}

	clientSharedSecret, err := KyberDecapsulate(clientKyberPriv, sh.KyberCiphertext)
	if err != nil {
		t.Fatalf("client decapsulate: %v", err)
	}

	clientMasterKey := DeriveMasterKey(clientSharedSecret, clientNonce, serverNonce)
	serverMasterKey := DeriveMasterKey(serverSharedSecret, clientNonce, serverNonce)
	if string(clientMasterKey) != string(serverMasterKey) {
		t.Fatalf("expected client and server to derive the same master key")
	}

	sessionID := NewRequestID()
	cf, err := BuildClientFinished(sessionID, clientMasterKey)
	if err != nil {
		t.Fatalf("build client finished: %v", err)
	}
	if err := VerifyClientFinished(cf, serverMasterKey); err != nil {
		t.Fatalf("expected server to accept client finished, got %v", err)
	}
}

func TestNodeIDFromDIDDeterministic(t *testing.T) {
	a := nodeIDFromDID("did:zhtp:abc", "device")
	b := nodeIDFromDID("did:zhtp:abc", "device")
	if a != b {
		t.Fatalf("expected deterministic node id derivation")
	}
	c := nodeIDFromDID("did:zhtp:abc", "other-device")
	if a == c {
		t.Fatalf("expected different device names to produce different node ids")
	}
}
