package zhtp

// validatorset.go computes the BLS-aggregated validator-set hash the chain
// evaluator compares to decide whether two summaries describe the same
// validator set without a byte-for-byte list comparison.
//
// Grounded on core/security.go's bls.Init(bls.BLS12_381) setup and its BLS
// public-key handling; here the aggregate public key (not a signature) is
// what gets hashed, since the evaluator only needs a stable fingerprint of
// set membership, not a verifiable aggregate signature.

import (
	"sync"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

var blsInitOnce sync.Once

func ensureBLSInit() {
	blsInitOnce.Do(func() {
		_ = bls.Init(bls.BLS12_381)
	})
}

// ComputeValidatorSetHash aggregates a validator set's BLS public keys into
// a single point and returns its Blake3 fingerprint. Validators are sorted
// by node id first so the result is independent of input order.
func ComputeValidatorSetHash(validators []ValidatorData) (string, error) {
	ensureBLSInit()
	if len(validators) == 0 {
		return BlakeHash([]byte("empty-validator-set")).String(), nil
	}

	sorted := make([]ValidatorData, len(validators))
	copy(sorted, validators)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && lessHash(sorted[j].NodeID, sorted[j-1].NodeID); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	var agg bls.PublicKey
	for i := range sorted {
		var pk bls.PublicKey
		if err := pk.Deserialize(sorted[i].PublicKey); err != nil {
			return "", err
		}
		agg.Add(&pk)
	}

	h := BlakeHash(agg.Serialize())
	return h.String(), nil
}

func lessHash(a, b Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
