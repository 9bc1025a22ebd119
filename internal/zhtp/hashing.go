package zhtp

// hashing.go implements the canonical transaction hash and the
// zero-knowledge verification-key hash, plus the exact placeholder used when
// "zeroing" the signature before re-hashing for verification.
//
// Verification hashing clones the transaction, empties the signature bytes
// and public-key bytes, zeroes the timestamp, but preserves the algorithm
// tag, then runs the ordinary canonical hash on that copy.

import "encoding/binary"

func putU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// canonicalBytes serializes all fields of tx that participate in the
// transaction hash. The signature's raw bytes are never included;
// everything else in the SignatureRecord, including the algorithm tag, is
// included exactly as it stands on tx — callers that need the
// verification-time hash first zero the appropriate SignatureRecord fields
// on a copy (see HashForVerification).
func canonicalBytes(tx *Transaction) []byte {
	buf := make([]byte, 0, 256)
	buf = putU32(buf, tx.Version)
	buf = append(buf, byte(tx.Type))

	buf = putU32(buf, uint32(len(tx.Inputs)))
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		buf = append(buf, in.PreviousOutput[:]...)
		buf = putU32(buf, in.OutputIndex)
		buf = append(buf, in.Nullifier[:]...)
	}

	buf = putU32(buf, uint32(len(tx.Outputs)))
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		buf = append(buf, out.Commitment[:]...)
		buf = append(buf, out.NoteHash[:]...)
		buf = append(buf, out.RecipientDilPK...)
	}

	buf = putU32(buf, uint32(len(tx.Memo)))
	buf = append(buf, tx.Memo...)
	buf = putU64(buf, tx.Fee)

	if tx.Identity != nil {
		buf = append(buf, 1)
		buf = append(buf, []byte(tx.Identity.DID)...)
		buf = append(buf, []byte(tx.Identity.DisplayName)...)
		buf = append(buf, tx.Identity.PublicKey...)
		buf = append(buf, tx.Identity.OwnershipProof...)
		buf = append(buf, []byte(tx.Identity.IdentityType)...)
		buf = putU64(buf, tx.Identity.RegistrationFee)
	} else {
		buf = append(buf, 0)
	}

	if tx.Wallet != nil {
		buf = append(buf, 1)
		buf = append(buf, tx.Wallet.WalletID[:]...)
		if tx.Wallet.OwnerIdentityID != nil {
			buf = append(buf, 1)
			buf = append(buf, tx.Wallet.OwnerIdentityID[:]...)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, tx.Wallet.PublicKey...)
		buf = append(buf, tx.Wallet.SeedCommitment[:]...)
		buf = append(buf, []byte(tx.Wallet.WalletType)...)
	} else {
		buf = append(buf, 0)
	}

	if tx.Validator != nil {
		buf = append(buf, 1)
		buf = append(buf, tx.Validator.NodeID[:]...)
		buf = append(buf, tx.Validator.PublicKey...)
		buf = putU64(buf, tx.Validator.Stake)
	} else {
		buf = append(buf, 0)
	}

	// Signature record: algorithm tag, timestamp, and public key are part of
	// the canonical hash; the raw signature bytes never are.
	buf = append(buf, []byte(tx.Signature.Algorithm)...)
	buf = putU64(buf, uint64(tx.Signature.Timestamp))
	buf = append(buf, tx.Signature.PublicKey...)

	return buf
}

// Hash returns the transaction's canonical Blake3 hash (the transaction id).
func (tx *Transaction) Hash() Hash {
	return BlakeHash(canonicalBytes(tx))
}

// HashForVerification returns the hash that a signature is computed and
// checked over: the canonical hash of tx with the signature bytes, the
// public-key bytes, and the timestamp all zeroed, but the algorithm tag
// preserved.
func HashForVerification(tx *Transaction) Hash {
	cp := *tx
	cp.Signature = SignatureRecord{
		Signature: nil,
		PublicKey: nil,
		Algorithm: tx.Signature.Algorithm,
		Timestamp: 0,
	}
	return BlakeHash(canonicalBytes(&cp))
}

var verificationKeyPrefix = []byte("ZHTP_VERIFICATION_KEY:")

// VerificationKeyHash computes Blake3(prefix || circuit || ":" || constraints).
func VerificationKeyHash(circuit string, constraints []byte) Hash {
	return BlakeHash(verificationKeyPrefix, []byte(circuit), []byte(":"), constraints)
}

// VerificationKey builds the on-disk verification key material for a
// circuit: the verification-key hash duplicated, followed by the
// constraint bytes (total length 64 + len(constraints)).
func VerificationKey(circuit string, constraints []byte) []byte {
	h := VerificationKeyHash(circuit, constraints)
	out := make([]byte, 0, 64+len(constraints))
	out = append(out, h[:]...)
	out = append(out, h[:]...)
	out = append(out, constraints...)
	return out
}
