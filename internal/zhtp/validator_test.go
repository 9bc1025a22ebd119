package zhtp

import (
	"testing"
	"time"
)

func signedTestTransaction(t *testing.T, alg Algorithm) *Transaction {
	t.Helper()
	pub, priv, err := DilithiumKeypair(alg)
	if err != nil {
		t.Fatalf("keypair: %v", err)
	}
	tx := &Transaction{
		Version: 1,
		Type:    TxTransfer,
		Inputs: []TxInput{{
			PreviousOutput: Hash{1},
			Nullifier:      Hash{2},
		}},
		Outputs: []TxOutput{{Commitment: Hash{3}, NoteHash: Hash{4}, RecipientDilPK: []byte{5, 6}}},
		Fee:     10000,
	}
	v := NewVerifier()
	if err := v.Init(); err != nil {
		t.Fatalf("verifier init: %v", err)
	}
	nullifierProof, err := v.ProveRange(1, 0, 1)
	if err != nil {
		t.Fatalf("nullifier proof: %v", err)
	}
	amountProof, err := v.ProveRange(100, 0, 1000)
	if err != nil {
		t.Fatalf("amount proof: %v", err)
	}
	tx.Inputs[0].ZKProof = InputZKProof{NullifierProof: nullifierProof, AmountProof: amountProof}

	tx.Signature = SignatureRecord{PublicKey: pub, Algorithm: alg, Timestamp: time.Now().Unix()}
	hash := HashForVerification(tx)
	sig, err := DilithiumSign(alg, priv, hash[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	tx.Signature.Signature = sig
	return tx
}

func TestValidateAcceptsWellFormedTransaction(t *testing.T) {
	tx := signedTestTransaction(t, AlgDilithium2)
	if err := Validate(tx); err != nil {
		t.Fatalf("expected valid transaction to pass, got %v", err)
	}
}

func TestValidateRejectsTamperedFee(t *testing.T) {
	tx := signedTestTransaction(t, AlgDilithium2)
	tx.Fee = 0
	if err := Validate(tx); err != ErrInvalidFee {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	tx := signedTestTransaction(t, AlgDilithium2)
	tx.Signature.Signature[0] ^= 0xFF
	if err := Validate(tx); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestValidateRejectsOversizedMemo(t *testing.T) {
	tx := signedTestTransaction(t, AlgDilithium2)
	tx.Memo = make([]byte, MaxMemoSize+1)
	if err := Validate(tx); err != ErrInvalidMemo {
		t.Fatalf("expected ErrInvalidMemo, got %v", err)
	}
}

func TestMinFeeMonotoneInSize(t *testing.T) {
	if MinFee(100) > MinFee(200) {
		t.Fatalf("expected MinFee to be non-decreasing in size")
	}
}

func TestMempoolFeeRate(t *testing.T) {
	if !MempoolFeeRate(100, 100) {
		t.Fatalf("expected fee/size == 1.0 to satisfy the mempool rate")
	}
	if MempoolFeeRate(50, 100) {
		t.Fatalf("expected fee/size < 1.0 to fail the mempool rate")
	}
	if MempoolFeeRate(10, 0) {
		t.Fatalf("expected zero size to fail safely")
	}
}

func TestQuickValidateStructuralOnly(t *testing.T) {
	tx := &Transaction{Version: 0}
	if err := QuickValidate(tx); err != ErrInvalidTransaction {
		t.Fatalf("expected ErrInvalidTransaction for zero version, got %v", err)
	}
}

type fakeChainView struct {
	wallets    map[string]*WalletData
	identities map[Hash]*IdentityData
}

func (f fakeChainView) WalletByPublicKey(pub []byte) (*WalletData, bool) {
	w, ok := f.wallets[string(pub)]
	return w, ok
}
func (f fakeChainView) IdentityByID(id Hash) (*IdentityData, bool) {
	idt, ok := f.identities[id]
	return idt, ok
}
func (f fakeChainView) IdentityByPublicKey(pub []byte) (*IdentityData, bool) {
	for _, idt := range f.identities {
		if string(idt.PublicKey) == string(pub) {
			return idt, true
		}
	}
	return nil, false
}

func TestValidateWithStateRejectsUnregisteredSender(t *testing.T) {
	tx := signedTestTransaction(t, AlgDilithium2)
	view := fakeChainView{wallets: map[string]*WalletData{}, identities: map[Hash]*IdentityData{}}
	if err := ValidateWithState(tx, view); err != ErrUnregisteredSender {
		t.Fatalf("expected ErrUnregisteredSender, got %v", err)
	}
}

func TestValidateWithStateAcceptsRegisteredSender(t *testing.T) {
	tx := signedTestTransaction(t, AlgDilithium2)
	identityID := Hash{42}
	view := fakeChainView{
		wallets: map[string]*WalletData{},
		identities: map[Hash]*IdentityData{
			identityID: {DID: "did:zhtp:" + stringRepeat("a", 64), PublicKey: tx.Signature.PublicKey, IdentityType: "individual"},
		},
	}
	if err := ValidateWithState(tx, view); err != nil {
		t.Fatalf("expected registered sender to pass, got %v", err)
	}
}

func stringRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
