package zhtp

// crypto.go adapts the reference node's Dilithium/XChaCha20-Poly1305 helpers
// in core/security.go (there imported but never promoted to a direct module
// dependency) to the two recognised signature algorithm tags, and adds
// Kyber768 for the handshake's key encapsulation.

import (
	"crypto"
	"crypto/rand"
	"errors"

	mode2 "github.com/cloudflare/circl/sign/dilithium/mode2"
	mode5 "github.com/cloudflare/circl/sign/dilithium/mode5"

	"github.com/cloudflare/circl/kem/kyber/kyber768"
	"golang.org/x/crypto/chacha20poly1305"
	"lukechampine.com/blake3"
)

// BlakeHash returns the Blake3-256 digest of the concatenation of parts.
func BlakeHash(parts ...[]byte) Hash {
	h := blake3.New(32, nil)
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// DilithiumKeypair generates a keypair for the given algorithm tag.
func DilithiumKeypair(alg Algorithm) (pub, priv []byte, err error) {
	switch alg {
	case AlgDilithium2:
		pk, sk, err := mode2.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return pk.Bytes(), sk.Bytes(), nil
	case AlgDilithium5:
		pk, sk, err := mode5.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, err
		}
		return pk.Bytes(), sk.Bytes(), nil
	default:
		return nil, nil, errors.New("unsupported dilithium algorithm")
	}
}

// DilithiumSign signs msg with a packed private key under the given algorithm.
func DilithiumSign(alg Algorithm, priv, msg []byte) ([]byte, error) {
	switch alg {
	case AlgDilithium2:
		var sk mode2.PrivateKey
		if err := sk.UnmarshalBinary(priv); err != nil {
			return nil, err
		}
		return sk.Sign(rand.Reader, msg, crypto.Hash(0))
	case AlgDilithium5:
		var sk mode5.PrivateKey
		if err := sk.UnmarshalBinary(priv); err != nil {
			return nil, err
		}
		return sk.Sign(rand.Reader, msg, crypto.Hash(0))
	default:
		return nil, errors.New("unsupported dilithium algorithm")
	}
}

// DilithiumVerify verifies a signature produced by DilithiumSign.
func DilithiumVerify(alg Algorithm, pub, msg, sig []byte) (bool, error) {
	switch alg {
	case AlgDilithium2:
		var pk mode2.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false, err
		}
		return mode2.Verify(&pk, msg, sig), nil
	case AlgDilithium5:
		var pk mode5.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return false, err
		}
		return mode5.Verify(&pk, msg, sig), nil
	default:
		return false, errors.New("unsupported dilithium algorithm")
	}
}

// IsSupportedAlgorithm reports whether alg is one of the two recognised tags.
func IsSupportedAlgorithm(alg Algorithm) bool {
	return alg == AlgDilithium2 || alg == AlgDilithium5
}

// Seal encrypts plaintext with XChaCha20-Poly1305, returning nonce||ciphertext||tag.
// Grounded on core/security.go's Encrypt, which uses the same construction.
func Seal(key, plaintext, aad []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("key must be 32 bytes")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, plaintext, aad)
	return append(nonce, ct...), nil
}

// Open verifies and decrypts a blob produced by Seal.
func Open(key, blob, aad []byte) ([]byte, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.New("key must be 32 bytes")
	}
	minLen := chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead
	if len(blob) < minLen {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, aad)
}

// KyberGenerateKeyPair produces a Kyber768 keypair for the UHP handshake.
func KyberGenerateKeyPair() (pub, priv []byte, err error) {
	pk, sk, err := kyber768.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, err
	}
	return pubBytes, privBytes, nil
}

// KyberEncapsulate derives a shared secret and the ciphertext to send to the
// key owner, given their packed public key.
func KyberEncapsulate(pub []byte) (ciphertext, sharedSecret []byte, err error) {
	var pk kyber768.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return nil, nil, err
	}
	ct := make([]byte, kyber768.CiphertextSize)
	ss := make([]byte, kyber768.SharedKeySize)
	seed := make([]byte, kyber768.EncapsulationSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, nil, err
	}
	pk.EncapsulateTo(ct, ss, seed)
	return ct, ss, nil
}

// KyberDecapsulate recovers the shared secret from a ciphertext using the
// packed private key.
func KyberDecapsulate(priv, ciphertext []byte) (sharedSecret []byte, err error) {
	var sk kyber768.PrivateKey
	if err := sk.UnmarshalBinary(priv); err != nil {
		return nil, err
	}
	ss := make([]byte, kyber768.SharedKeySize)
	sk.DecapsulateTo(ss, ciphertext)
	return ss, nil
}
