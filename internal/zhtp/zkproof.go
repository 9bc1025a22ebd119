package zhtp

// zkproof.go implements a six-circuit zero-knowledge proof system: a
// verifier with an explicit uninitialized/initialized state machine,
// per-circuit verification keys, and deterministic prove/verify contracts
// over fixed-arity public inputs.
//
// The generic circuit-config/builder scaffold of a Plonky2-style proof
// system is adapted (not transliterated) into a small Go verifier keyed by
// circuit name; the circuit-specific byte offsets, arities, and
// preconditions below, including the dual short/long transaction-proof
// layout, are fixed points of the contract.
//
// core/zkp_node.go in the reference node is the placeholder this module
// replaces: its GenerateProof/VerifyProof are a bare sha256 equality check.
// This file is the real per-circuit contract.

import (
	"encoding/binary"
	"errors"
	"time"
)

// Circuit names.
const (
	CircuitTransaction   = "ZHTP-Optimized-Transaction"
	CircuitRange         = "ZHTP-Optimized-Range"
	CircuitIdentity      = "ZHTP-Optimized-Identity"
	CircuitStorageAccess = "ZHTP-Optimized-StorageAccess"
	CircuitRouting       = "ZHTP-Optimized-Routing"
	CircuitDataIntegrity = "ZHTP-Optimized-DataIntegrity"

	// legacyPlonky2 is accepted as an alias for CircuitTransaction in the
	// amount-range-proof dispatch, matching the original implementation's
	// backward-compatibility branch.
	legacyPlonky2 = "Plonky2"
)

var circuitArity = map[string]int{
	CircuitTransaction:   3,
	CircuitRange:         2,
	CircuitIdentity:      4,
	CircuitStorageAccess: 1,
	CircuitRouting:       2,
	CircuitDataIntegrity: 2,
}

// ErrVerifierUninitialized is returned by Verify calls before Init succeeds.
var ErrVerifierUninitialized = errors.New("zk verifier not initialized")

// ErrPreconditionFailed is returned by a Prove* call whose private/public
// inputs violate the circuit's generation precondition.
var ErrPreconditionFailed = errors.New("zk proof precondition failed")

// Verifier holds per-circuit verification-key material. Its zero value is
// uninitialized: all Verify calls return false until Init succeeds.
type Verifier struct {
	initialized bool
	vkHash      map[string]Hash
}

// NewVerifier returns an uninitialized verifier.
func NewVerifier() *Verifier {
	return &Verifier{vkHash: make(map[string]Hash)}
}

// Init compiles per-circuit constraints into verification-key material and
// caches it keyed by circuit name. No teardown is required once initialized.
func (v *Verifier) Init() error {
	for name := range circuitArity {
		constraints := []byte(name + "-constraints-v1")
		v.vkHash[name] = VerificationKeyHash(name, constraints)
	}
	v.initialized = true
	return nil
}

func (v *Verifier) Initialized() bool { return v.initialized }

func (v *Verifier) vkFor(circuit string) (Hash, bool) {
	h, ok := v.vkHash[circuit]
	return h, ok
}

// IsValidProofStructure performs the structural check the validator runs
// before circuit-specific verification: the proof-system id is recognised,
// the public-input count matches that system's schema arity, proof bytes
// are non-empty, and a verification-key hash is present.
func IsValidProofStructure(p *ZKProofObject) bool {
	if p == nil {
		return false
	}
	arity, ok := circuitArity[p.ProofSystem]
	if !ok {
		if p.ProofSystem == legacyPlonky2 {
			arity = circuitArity[CircuitTransaction]
		} else {
			return false
		}
	}
	if len(p.PublicInputs) != arity {
		return false
	}
	if len(p.ProofBytes) == 0 {
		return false
	}
	if p.VerificationKeyHash.IsZero() {
		return false
	}
	return true
}

func putU64At(buf []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:off+8], v)
}

func getU64At(buf []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(buf[off : off+8])
}

// --- Transaction circuit ---------------------------------------------------

// ProveTransaction produces a transaction proof in the short ZK-native
// layout (balance@0, amount@8, fee@16, nullifier_seed@24), total length 40.
func (v *Verifier) ProveTransaction(senderBalance, amount, fee, nullifierSeed uint64) (*ZKProofObject, error) {
	if !v.initialized {
		return nil, ErrVerifierUninitialized
	}
	if amount == 0 || amount+fee > senderBalance {
		return nil, ErrPreconditionFailed
	}
	buf := make([]byte, 40)
	putU64At(buf, 0, senderBalance)
	putU64At(buf, 8, amount)
	putU64At(buf, 16, fee)
	putU64At(buf, 24, nullifierSeed)
	return v.finish(CircuitTransaction, buf, []uint64{amount, fee, nullifierSeed})
}

// shortLongBoundary is the proof length below which a transaction proof is
// interpreted in the short ZK-native layout, and at/above which it is
// interpreted in the long transaction-circuit layout.
const shortLongBoundary = 2048

// VerifyTransaction verifies a transaction proof in either the short or the
// long layout, failing closed on any inconsistency.
func (v *Verifier) VerifyTransaction(p *ZKProofObject) bool {
	if !v.initialized || p == nil {
		return false
	}
	if p.ProofSystem != CircuitTransaction && p.ProofSystem != legacyPlonky2 {
		return false
	}
	if len(p.PublicInputs) != circuitArity[CircuitTransaction] {
		return false
	}
	if len(p.ProofBytes) < 40 {
		return false
	}
	if !v.vkMatches(CircuitTransaction, p) {
		return false
	}

	var balance, amount, fee uint64
	if len(p.ProofBytes) < shortLongBoundary {
		// short ZK-native layout: balance@0, amount@8, fee@16
		balance = getU64At(p.ProofBytes, 0)
		amount = getU64At(p.ProofBytes, 8)
		fee = getU64At(p.ProofBytes, 16)
	} else {
		// long transaction-circuit layout: balance@0, (receiver_balance@8 unused), amount@16, fee@24
		if len(p.ProofBytes) < 32 {
			return false
		}
		balance = getU64At(p.ProofBytes, 0)
		amount = getU64At(p.ProofBytes, 16)
		fee = getU64At(p.ProofBytes, 24)
	}

	if amount != p.PublicInputs[0] || fee != p.PublicInputs[1] {
		return false
	}
	if amount == 0 || amount+fee > balance {
		return false
	}
	return true
}

// --- Range circuit -----------------------------------------------------------

// ProveRange produces a range proof for value against [min, max].
func (v *Verifier) ProveRange(value, min, max uint64) (*ZKProofObject, error) {
	if !v.initialized {
		return nil, ErrVerifierUninitialized
	}
	if value < min || value > max {
		return nil, ErrPreconditionFailed
	}
	buf := make([]byte, 24)
	putU64At(buf, 0, value)
	putU64At(buf, 8, min)
	putU64At(buf, 16, max)
	return v.finish(CircuitRange, buf, []uint64{min, max})
}

// VerifyRange checks that the embedded value lies in [min, max].
func (v *Verifier) VerifyRange(p *ZKProofObject) bool {
	if !v.initialized || p == nil || p.ProofSystem != CircuitRange {
		return false
	}
	if len(p.PublicInputs) != circuitArity[CircuitRange] || len(p.ProofBytes) < 24 {
		return false
	}
	if !v.vkMatches(CircuitRange, p) {
		return false
	}
	value := getU64At(p.ProofBytes, 0)
	min, max := p.PublicInputs[0], p.PublicInputs[1]
	return value >= min && value <= max
}

// --- Identity circuit ---------------------------------------------------------

// ProveIdentity produces an identity proof. requiredJurisdiction == 0 means
// no jurisdiction constraint is imposed.
func (v *Verifier) ProveIdentity(identitySecret []byte, age uint64, jurisdictionHash, credentialHash Hash, minAge uint64, requiredJurisdiction Hash, verificationLevel uint64) (*ZKProofObject, error) {
	if !v.initialized {
		return nil, ErrVerifierUninitialized
	}
	if age < minAge {
		return nil, ErrPreconditionFailed
	}
	if !requiredJurisdiction.IsZero() && jurisdictionHash != requiredJurisdiction {
		return nil, ErrPreconditionFailed
	}
	if verificationLevel < 1 {
		return nil, ErrPreconditionFailed
	}
	ageValid := uint64(1)
	jurisdictionValid := uint64(1)
	proofTimestamp := uint64(time.Now().Unix())

	buf := make([]byte, 32)
	putU64At(buf, 0, ageValid)
	putU64At(buf, 8, jurisdictionValid)
	putU64At(buf, 16, verificationLevel)
	putU64At(buf, 24, proofTimestamp)

	publicInputs := []uint64{ageValid, jurisdictionValid, verificationLevel, proofTimestamp}
	proof, err := v.finish(CircuitIdentity, buf, publicInputs)
	if err != nil {
		return nil, err
	}
	proof.PrivateInputCommitment = BlakeHash(identitySecret, credentialHash[:])
	return proof, nil
}

// VerifyIdentity checks the embedded age/jurisdiction validity flags and
// public-input consistency.
func (v *Verifier) VerifyIdentity(p *ZKProofObject) bool {
	if !v.initialized || p == nil || p.ProofSystem != CircuitIdentity {
		return false
	}
	if len(p.PublicInputs) != circuitArity[CircuitIdentity] || len(p.ProofBytes) < 32 {
		return false
	}
	if !v.vkMatches(CircuitIdentity, p) {
		return false
	}
	ageValid := getU64At(p.ProofBytes, 0)
	jurisdictionValid := getU64At(p.ProofBytes, 8)
	verificationLevel := getU64At(p.ProofBytes, 16)
	proofTimestamp := getU64At(p.ProofBytes, 24)

	if ageValid != 1 || jurisdictionValid != 1 {
		return false
	}
	if verificationLevel < 1 || proofTimestamp == 0 {
		return false
	}
	if p.PublicInputs[0] != ageValid || p.PublicInputs[1] != jurisdictionValid ||
		p.PublicInputs[2] != verificationLevel || p.PublicInputs[3] != proofTimestamp {
		return false
	}
	return true
}

// --- Storage-access circuit ---------------------------------------------------

// ProveStorageAccess produces a proof that permissionLevel >= requiredPermission.
func (v *Verifier) ProveStorageAccess(permissionLevel, requiredPermission uint64) (*ZKProofObject, error) {
	if !v.initialized {
		return nil, ErrVerifierUninitialized
	}
	if permissionLevel < requiredPermission {
		return nil, ErrPreconditionFailed
	}
	buf := make([]byte, 32)
	putU64At(buf, 0, permissionLevel)
	return v.finish(CircuitStorageAccess, buf, []uint64{requiredPermission})
}

func (v *Verifier) VerifyStorageAccess(p *ZKProofObject) bool {
	if !v.initialized || p == nil || p.ProofSystem != CircuitStorageAccess {
		return false
	}
	if len(p.PublicInputs) != circuitArity[CircuitStorageAccess] || len(p.ProofBytes) < 32 {
		return false
	}
	if !v.vkMatches(CircuitStorageAccess, p) {
		return false
	}
	permissionLevel := getU64At(p.ProofBytes, 0)
	return permissionLevel >= p.PublicInputs[0]
}

// --- Routing circuit ------------------------------------------------------------

// ProveRouting produces a proof that hopCount <= maxHops, bandwidth >=
// minBandwidth, and source != destination.
func (v *Verifier) ProveRouting(hopCount, bandwidth, maxHops, minBandwidth uint64, source, destination Hash) (*ZKProofObject, error) {
	if !v.initialized {
		return nil, ErrVerifierUninitialized
	}
	if hopCount > maxHops || bandwidth < minBandwidth {
		return nil, ErrPreconditionFailed
	}
	if source == destination {
		return nil, ErrPreconditionFailed
	}
	buf := make([]byte, 48)
	putU64At(buf, 0, hopCount)
	putU64At(buf, 8, bandwidth)
	copy(buf[16:32], source[:])
	copy(buf[32:48], destination[:16])
	return v.finish(CircuitRouting, buf, []uint64{maxHops, minBandwidth})
}

func (v *Verifier) VerifyRouting(p *ZKProofObject) bool {
	if !v.initialized || p == nil || p.ProofSystem != CircuitRouting {
		return false
	}
	if len(p.PublicInputs) != circuitArity[CircuitRouting] || len(p.ProofBytes) < 48 {
		return false
	}
	if !v.vkMatches(CircuitRouting, p) {
		return false
	}
	hopCount := getU64At(p.ProofBytes, 0)
	bandwidth := getU64At(p.ProofBytes, 8)
	maxHops, minBandwidth := p.PublicInputs[0], p.PublicInputs[1]
	if hopCount > maxHops || bandwidth < minBandwidth {
		return false
	}
	source := p.ProofBytes[16:32]
	destination := p.ProofBytes[32:48]
	allZeroEqual := true
	for i := range source {
		if source[i] != destination[i] {
			allZeroEqual = false
			break
		}
	}
	return !allZeroEqual
}

// --- Data-integrity circuit ----------------------------------------------------

// ProveDataIntegrity produces a proof that 0 < chunkCount <= maxChunkCount
// and 0 < size <= maxSize.
func (v *Verifier) ProveDataIntegrity(chunkCount, size, maxChunkCount, maxSize uint64) (*ZKProofObject, error) {
	if !v.initialized {
		return nil, ErrVerifierUninitialized
	}
	if chunkCount == 0 || chunkCount > maxChunkCount || size == 0 || size > maxSize {
		return nil, ErrPreconditionFailed
	}
	buf := make([]byte, 48)
	putU64At(buf, 0, chunkCount)
	putU64At(buf, 8, size)
	return v.finish(CircuitDataIntegrity, buf, []uint64{maxChunkCount, maxSize})
}

func (v *Verifier) VerifyDataIntegrity(p *ZKProofObject) bool {
	if !v.initialized || p == nil || p.ProofSystem != CircuitDataIntegrity {
		return false
	}
	if len(p.PublicInputs) != circuitArity[CircuitDataIntegrity] || len(p.ProofBytes) < 48 {
		return false
	}
	if !v.vkMatches(CircuitDataIntegrity, p) {
		return false
	}
	chunkCount := getU64At(p.ProofBytes, 0)
	size := getU64At(p.ProofBytes, 8)
	maxChunkCount, maxSize := p.PublicInputs[0], p.PublicInputs[1]
	if chunkCount == 0 || chunkCount > maxChunkCount {
		return false
	}
	if size == 0 || size > maxSize {
		return false
	}
	return true
}

// --- shared helpers --------------------------------------------------------------

func (v *Verifier) finish(circuit string, proofBytes []byte, publicInputs []uint64) (*ZKProofObject, error) {
	vk, ok := v.vkFor(circuit)
	if !ok {
		return nil, errors.New("unknown circuit")
	}
	return &ZKProofObject{
		ProofSystem:            circuit,
		ProofBytes:             proofBytes,
		PublicInputs:           publicInputs,
		VerificationKeyHash:    vk,
		GeneratedAt:            time.Now().Unix(),
		CircuitID:              circuit,
		PrivateInputCommitment: BlakeHash(proofBytes),
	}, nil
}

func (v *Verifier) vkMatches(circuit string, p *ZKProofObject) bool {
	vk, ok := v.vkFor(circuit)
	if !ok {
		return false
	}
	return p.VerificationKeyHash == vk
}

// VerifyAny dispatches to the circuit-specific verifier named by
// p.ProofSystem, returning false for an unrecognised or uninitialized state.
func (v *Verifier) VerifyAny(p *ZKProofObject) bool {
	if !v.initialized || p == nil {
		return false
	}
	switch p.ProofSystem {
	case CircuitTransaction, legacyPlonky2:
		return v.VerifyTransaction(p)
	case CircuitRange:
		return v.VerifyRange(p)
	case CircuitIdentity:
		return v.VerifyIdentity(p)
	case CircuitStorageAccess:
		return v.VerifyStorageAccess(p)
	case CircuitRouting:
		return v.VerifyRouting(p)
	case CircuitDataIntegrity:
		return v.VerifyDataIntegrity(p)
	default:
		return false
	}
}
