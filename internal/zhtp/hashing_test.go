package zhtp

import "testing"

func sampleTransaction() *Transaction {
	return &Transaction{
		Version: 1,
		Type:    TxTransfer,
		Outputs: []TxOutput{{Commitment: Hash{1}, NoteHash: Hash{2}, RecipientDilPK: []byte{9, 9}}},
		Fee:     500,
		Signature: SignatureRecord{
			Signature: []byte{1, 2, 3},
			PublicKey: []byte{4, 5, 6},
			Algorithm: AlgDilithium2,
			Timestamp: 1000,
		},
	}
}

func TestHashStableAcrossSignatureBytes(t *testing.T) {
	tx := sampleTransaction()
	h1 := tx.Hash()
	tx.Signature.Signature = []byte{9, 9, 9, 9}
	h2 := tx.Hash()
	if h1 != h2 {
		t.Fatalf("expected hash to stay stable when only the raw signature bytes change")
	}
}

func TestHashChangesWithPublicKeyOrTimestamp(t *testing.T) {
	tx := sampleTransaction()
	h1 := tx.Hash()
	tx.Signature.PublicKey = []byte{8, 8}
	h2 := tx.Hash()
	if h1 == h2 {
		t.Fatalf("expected hash to change when the signer public key changes")
	}
	tx.Signature.PublicKey = []byte{4, 5, 6}
	tx.Signature.Timestamp = 42
	h3 := tx.Hash()
	if h1 == h3 {
		t.Fatalf("expected hash to change when the timestamp changes")
	}
}

func TestHashForVerificationIgnoresSignatureAndPublicKeyAndTimestamp(t *testing.T) {
	tx := sampleTransaction()
	h1 := HashForVerification(tx)
	tx.Signature.Signature = []byte{9, 9, 9, 9}
	tx.Signature.PublicKey = []byte{8, 8}
	tx.Signature.Timestamp = 42
	h2 := HashForVerification(tx)
	if h1 != h2 {
		t.Fatalf("expected verification hash to be independent of signature/public-key/timestamp bytes")
	}
}

func TestHashForVerificationDependsOnAlgorithm(t *testing.T) {
	tx := sampleTransaction()
	h1 := HashForVerification(tx)
	tx.Signature.Algorithm = AlgDilithium5
	h2 := HashForVerification(tx)
	if h1 == h2 {
		t.Fatalf("expected verification hash to depend on the preserved algorithm tag")
	}
}

func TestVerificationKeyLength(t *testing.T) {
	constraints := []byte("some-constraint-bytes")
	vk := VerificationKey("circuit-x", constraints)
	if len(vk) != 64+len(constraints) {
		t.Fatalf("expected verification key length 64+%d, got %d", len(constraints), len(vk))
	}
}

func TestVerificationKeyHashDeterministic(t *testing.T) {
	a := VerificationKeyHash("circuit", []byte("c1"))
	b := VerificationKeyHash("circuit", []byte("c1"))
	if a != b {
		t.Fatalf("expected deterministic verification-key hash")
	}
	c := VerificationKeyHash("circuit", []byte("c2"))
	if a == c {
		t.Fatalf("expected different constraints to produce different hashes")
	}
}
