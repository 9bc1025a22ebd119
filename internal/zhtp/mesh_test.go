package zhtp

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestConnectionModeFromALPN(t *testing.T) {
	cases := map[string]ConnectionMode{
		ALPNUHP:        ModeControlPlane,
		ALPNMesh:       ModePeerMesh,
		ALPNHTTP:       ModeHTTPCompat,
		ALPNHTTPLegacy: ModeHTTPCompat,
		ALPNH3:         ModeHTTPCompat,
		ALPNPublic:     ModePublic,
		"bogus/1":      ModePublic,
	}
	for alpn, want := range cases {
		if got := ConnectionModeFromALPN(alpn); got != want {
			t.Fatalf("ALPN %q: expected mode %v, got %v", alpn, want, got)
		}
	}
}

func TestConnectionModeRequiresHandshake(t *testing.T) {
	if !ModeControlPlane.RequiresHandshake() {
		t.Fatalf("expected control-plane mode to require handshake")
	}
	if !ModePeerMesh.RequiresHandshake() {
		t.Fatalf("expected peer-mesh mode to require handshake")
	}
	if ModePublic.RequiresHandshake() {
		t.Fatalf("expected public mode not to require handshake")
	}
	if ModeHTTPCompat.RequiresHandshake() {
		t.Fatalf("expected http-compat mode not to require handshake")
	}
}

func TestClassifyStreamZhtpMagic(t *testing.T) {
	prefix := append([]byte{'Z', 'H', 'T', 'P'}, []byte{0, 0, 0, 1}...)
	if got := ClassifyStream(prefix, false, false); got != ProtocolZhtpAPI {
		t.Fatalf("expected ProtocolZhtpAPI, got %v", got)
	}
}

func TestClassifyStreamHTTPMethods(t *testing.T) {
	for _, method := range []string{"GET ", "POST ", "PUT ", "DELETE ", "PATCH "} {
		prefix := []byte(method + "/path HTTP/1.1\r\n")
		if got := ClassifyStream(prefix, false, false); got != ProtocolHTTPCompat {
			t.Fatalf("method %q: expected ProtocolHTTPCompat, got %v", method, got)
		}
	}
}

func TestClassifyStreamHandshakeInitOnlyWhenAllowed(t *testing.T) {
	kyberPub, _, _ := KyberGenerateKeyPair()
	dilPub, dilPriv, _ := DilithiumKeypair(AlgDilithium2)
	var nonce [16]byte
	ch, err := BuildClientHello("did:zhtp:client", "device-a", kyberPub, dilPub, dilPriv, AlgDilithium2, nonce, time.Now())
	if err != nil {
		t.Fatalf("build client hello: %v", err)
	}
	encoded, err := cborMarshal(ch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if got := ClassifyStream(encoded, true, false); got != ProtocolHandshakeInit {
		t.Fatalf("expected ProtocolHandshakeInit when allowed, got %v", got)
	}
	if got := ClassifyStream(encoded, false, false); got == ProtocolHandshakeInit {
		t.Fatalf("expected handshake classification to be gated by allowHandshake")
	}
}

func TestClassifyStreamMeshMessagePostHandshake(t *testing.T) {
	prefix := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if got := ClassifyStream(prefix, false, true); got != ProtocolMeshMessage {
		t.Fatalf("expected ProtocolMeshMessage when postHandshake is set, got %v", got)
	}
	if got := ClassifyStream(prefix, false, false); got != ProtocolUnknown {
		t.Fatalf("expected ProtocolUnknown without any matching rule, got %v", got)
	}
}

func TestAllowPublicRequest(t *testing.T) {
	if !AllowPublicRequest(MethodGet, "/anything") {
		t.Fatalf("expected GET to always be allowed on public connections")
	}
	if !AllowPublicRequest(MethodPost, "/identity/register") {
		t.Fatalf("expected whitelisted POST to be allowed")
	}
	if AllowPublicRequest(MethodPost, "/admin/shutdown") {
		t.Fatalf("expected non-whitelisted POST to be denied")
	}
	if AllowPublicRequest(MethodDelete, "/tx") {
		t.Fatalf("expected DELETE to be denied on public connections")
	}
}

func TestPeekStreamReplaysBytes(t *testing.T) {
	src := bytes.NewReader([]byte("hello world"))
	prefix, reader, err := peekStream(src, 5)
	if err != nil {
		t.Fatalf("peekStream: %v", err)
	}
	if string(prefix) != "hello" {
		t.Fatalf("expected prefix %q, got %q", "hello", prefix)
	}
	rest, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if string(rest) != "hello world" {
		t.Fatalf("expected peeked bytes to be replayed, got %q", rest)
	}
}

func TestPeekStreamShortSource(t *testing.T) {
	src := bytes.NewReader([]byte("ab"))
	prefix, reader, err := peekStream(src, 10)
	if err != nil {
		t.Fatalf("peekStream on short source: %v", err)
	}
	if string(prefix) != "ab" {
		t.Fatalf("expected short prefix %q, got %q", "ab", prefix)
	}
	rest, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if string(rest) != "ab" {
		t.Fatalf("expected replay of the short prefix, got %q", rest)
	}
}
