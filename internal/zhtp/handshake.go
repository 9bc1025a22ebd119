package zhtp

// handshake.go implements the Unified Handshake Protocol: a three-message
// mutually authenticated key exchange run once per QUIC connection before
// any control-plane or mesh stream is trusted. Kyber768 supplies the shared
// secret; Dilithium signs each party's contribution so a man-in-the-middle
// cannot substitute their own Kyber public key.
//
// The node-id derivation (Blake3 of DID || device name) and the
// nonce/session-id/master-key shape follow the reference node's
// quantum_resistant_node.go key-derivation convention, generalised from a
// single local identity into a two-party exchange.

import (
	"errors"
	"time"
)

var (
	ErrHandshakeNonceReplay   = errors.New("handshake nonce replay")
	ErrHandshakeBadSignature  = errors.New("handshake signature invalid")
	ErrHandshakeNodeIDMismatch = errors.New("handshake node id mismatch")
	ErrHandshakeStale         = errors.New("handshake message too old")
)

const handshakeMaxAge = int64(30) // seconds

// ClientHello is the first UHP message: the client's identity, its Kyber
// public key, a fresh nonce, and a Dilithium signature over all of it.
type ClientHello struct {
	ClientDID    string `cbor:"client_did"`
	DeviceName   string `cbor:"device_name"`
	KyberPublic  []byte `cbor:"kyber_public"`
	Nonce        [16]byte `cbor:"nonce"`
	TimestampMs  int64  `cbor:"timestamp_ms"`
	DilPublicKey []byte `cbor:"dil_public_key"`
	Algorithm    Algorithm `cbor:"algorithm"`
	Signature    []byte `cbor:"signature"`
}

// ServerHello is the second UHP message: the server's identity, the Kyber
// encapsulation against the client's public key, a fresh server nonce, and
// a signature over all of it. The client's nonce is not part of the signed
// payload.
type ServerHello struct {
	ServerDID     string `cbor:"server_did"`
	DeviceName    string `cbor:"device_name"`
	KyberCiphertext []byte `cbor:"kyber_ciphertext"`
	Nonce         [16]byte `cbor:"nonce"`
	TimestampMs   int64  `cbor:"timestamp_ms"`
	DilPublicKey  []byte `cbor:"dil_public_key"`
	Algorithm     Algorithm `cbor:"algorithm"`
	Signature     []byte `cbor:"signature"`
}

// ClientFinished is the third UHP message: proof the client derived the
// same master key, authenticating the whole exchange.
type ClientFinished struct {
	SessionID [16]byte `cbor:"session_id"`
	MAC       []byte   `cbor:"mac"`
}

func nodeIDFromDID(did, deviceName string) Hash {
	return BlakeHash([]byte(did), []byte(deviceName))
}

func signHelloPayload(alg Algorithm, priv []byte, parts ...[]byte) ([]byte, error) {
	h := BlakeHash(parts...)
	return DilithiumSign(alg, priv, h[:])
}

// BuildClientHello constructs and signs the first handshake message.
func BuildClientHello(clientDID, deviceName string, kyberPub []byte, dilPub, dilPriv []byte, alg Algorithm, nonce [16]byte, now time.Time) (*ClientHello, error) {
	ch := &ClientHello{
		ClientDID:    clientDID,
		DeviceName:   deviceName,
		KyberPublic:  kyberPub,
		Nonce:        nonce,
		TimestampMs:  now.UnixMilli(),
		DilPublicKey: dilPub,
		Algorithm:    alg,
	}
	sig, err := signHelloPayload(alg, dilPriv,
		[]byte(ch.ClientDID), []byte(ch.DeviceName), ch.KyberPublic, ch.Nonce[:], putU64(nil, uint64(ch.TimestampMs)), ch.DilPublicKey)
	if err != nil {
		return nil, err
	}
	ch.Signature = sig
	return ch, nil
}

// VerifyClientHello checks signature freshness and signature validity, and
// rejects a replayed nonce. It checks no node id: ClientHello carries none,
// and the server derives it from the DID and device name (nodeIDFromDID).
func VerifyClientHello(ch *ClientHello, nonces *NonceCache, now time.Time) error {
	if ch.TimestampMs/1000+handshakeMaxAge < now.Unix() {
		return ErrHandshakeStale
	}
	if !IsSupportedAlgorithm(ch.Algorithm) {
		return ErrHandshakeBadSignature
	}
	if nonces.SeenRecently(ch.Nonce) {
		return ErrHandshakeNonceReplay
	}
	h := BlakeHash([]byte(ch.ClientDID), []byte(ch.DeviceName), ch.KyberPublic, ch.Nonce[:], putU64(nil, uint64(ch.TimestampMs)), ch.DilPublicKey)
	ok, err := DilithiumVerify(ch.Algorithm, ch.DilPublicKey, h[:], ch.Signature)
	if err != nil || !ok {
		return ErrHandshakeBadSignature
	}
	return nil
}

// BuildServerHello encapsulates against the client's Kyber key, returning
// the signed ServerHello to send back and the raw shared secret to mix into
// the master key.
func BuildServerHello(serverDID, deviceName string, clientKyberPub []byte, dilPub, dilPriv []byte, alg Algorithm, nonce [16]byte, now time.Time) (*ServerHello, []byte, error) {
	ciphertext, sharedSecret, err := KyberEncapsulate(clientKyberPub)
	if err != nil {
		return nil, nil, err
	}
	sh := &ServerHello{
		ServerDID:       serverDID,
		DeviceName:      deviceName,
		KyberCiphertext: ciphertext,
		Nonce:           nonce,
		TimestampMs:     now.UnixMilli(),
		DilPublicKey:    dilPub,
		Algorithm:       alg,
	}
	sig, err := signHelloPayload(alg, dilPriv,
		[]byte(sh.ServerDID), []byte(sh.DeviceName), sh.KyberCiphertext, sh.Nonce[:], putU64(nil, uint64(sh.TimestampMs)), sh.DilPublicKey)
	if err != nil {
		return nil, nil, err
	}
	sh.Signature = sig
	return sh, sharedSecret, nil
}

// VerifyServerHello checks signature freshness and validity.
func VerifyServerHello(sh *ServerHello, now time.Time) error {
	if sh.TimestampMs/1000+handshakeMaxAge < now.Unix() {
		return ErrHandshakeStale
	}
	if !IsSupportedAlgorithm(sh.Algorithm) {
		return ErrHandshakeBadSignature
	}
	h := BlakeHash([]byte(sh.ServerDID), []byte(sh.DeviceName), sh.KyberCiphertext, sh.Nonce[:], putU64(nil, uint64(sh.TimestampMs)), sh.DilPublicKey)
	ok, err := DilithiumVerify(sh.Algorithm, sh.DilPublicKey, h[:], sh.Signature)
	if err != nil || !ok {
		return ErrHandshakeBadSignature
	}
	return nil
}

// DeriveMasterKey mixes the Kyber shared secret with both nonces to produce
// the 32-byte symmetric key used for all subsequent sealed traffic.
func DeriveMasterKey(sharedSecret []byte, clientNonce, serverNonce [16]byte) []byte {
	h := BlakeHash(sharedSecret, clientNonce[:], serverNonce[:])
	return h[:]
}

// BuildClientFinished computes the client's proof-of-key-derivation MAC.
func BuildClientFinished(sessionID [16]byte, masterKey []byte) (*ClientFinished, error) {
	mac, err := Seal(masterKey, sessionID[:], []byte("uhp-finished"))
	if err != nil {
		return nil, err
	}
	return &ClientFinished{SessionID: sessionID, MAC: mac}, nil
}

// VerifyClientFinished checks the client's finished MAC against the
// server's independently derived master key.
func VerifyClientFinished(cf *ClientFinished, masterKey []byte) error {
	pt, err := Open(masterKey, cf.MAC, []byte("uhp-finished"))
	if err != nil {
		return ErrHandshakeBadSignature
	}
	if len(pt) != 16 {
		return ErrHandshakeBadSignature
	}
	var got [16]byte
	copy(got[:], pt)
	if got != cf.SessionID {
		return ErrHandshakeBadSignature
	}
	return nil
}
