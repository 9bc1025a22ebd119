package zhtp

// validator.go implements the transaction validation pipeline: a stateless
// Validate and a stateful ValidateWithState, both returning ValidationError,
// plus QuickValidate/MempoolFeeRate utility helpers carried over from the
// original implementation's mempool-admission checks.
//
// The pipeline ordering, all 20 ValidationError variants, the per-type
// checks, the is-system detection rule, and the sender-identity lookup
// fallback chain (wallet -> owner identity, else direct identity-by-key
// match) are fixed points of the pipeline.
// core/transactions.go's TxPool.ValidateTx is the Go idiom source: a
// validator that returns a plain error and runs once before pool insertion.

import (
	"strings"
	"time"
)

const (
	signatureMaxAge    = int64(60 * 60) // 1 hour
	signatureMaxFuture = int64(5 * 60)  // 5 minutes
)

var validator = NewVerifier()

func init() {
	_ = validator.Init()
}

// MinFee is a monotone non-decreasing minimum fee function. The original's
// exact constants were not available, so a simple linear schedule is used: a
// flat base plus a per-byte rate, which satisfies monotonicity in size by
// construction.
func MinFee(size uint64) uint64 {
	const base = 100
	const perByte = 1
	return base + size*perByte
}

// MempoolFeeRate implements the original's validate_mempool_rules check:
// fee/size must be at least 1.0. Distinct from MinFee, which bounds the
// absolute fee; this bounds the fee density for mempool admission.
func MempoolFeeRate(fee, size uint64) bool {
	if size == 0 {
		return false
	}
	return float64(fee)/float64(size) >= 1.0
}

// QuickValidate is a cheap structural-only pass usable before the full
// pipeline: version, size, and memo bounds only.
func QuickValidate(tx *Transaction) error {
	if tx.Version == 0 {
		return ErrInvalidTransaction
	}
	size, err := serializedSize(tx)
	if err != nil {
		return ErrInvalidTransaction
	}
	if size > MaxTransactionSize {
		return ErrInvalidTransaction
	}
	if len(tx.Memo) > MaxMemoSize {
		return ErrInvalidMemo
	}
	return nil
}

func serializedSize(tx *Transaction) (int, error) {
	b, err := cborMarshal(tx)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// ChainView is the narrow read interface the stateful validator consults to
// resolve a signer's public key to a registered, non-revoked identity.
// Implemented by whatever component owns chain state; the validator itself
// holds no state.
type ChainView interface {
	WalletByPublicKey(pubKey []byte) (*WalletData, bool)
	IdentityByID(id Hash) (*IdentityData, bool)
	IdentityByPublicKey(pubKey []byte) (*IdentityData, bool)
}

// Validate runs the stateless pipeline: structural, type-specific,
// signature, ZK-proof, and fee checks. It is a pure function of tx.
func Validate(tx *Transaction) error {
	if err := validateStructure(tx); err != nil {
		return err
	}
	if err := validateTypeSpecific(tx); err != nil {
		return err
	}
	if err := validateSignature(tx); err != nil {
		return err
	}
	isSystem := tx.IsSystem()
	if !isSystem {
		if err := validateZKProofs(tx); err != nil {
			return err
		}
	}
	if err := validateEconomics(tx, isSystem); err != nil {
		return err
	}
	return nil
}

// ValidateWithState runs the stateless pipeline plus the sender-identity
// existence check, which requires a view onto the chain.
func ValidateWithState(tx *Transaction, view ChainView) error {
	if err := validateStructure(tx); err != nil {
		return err
	}
	if err := validateTypeSpecific(tx); err != nil {
		return err
	}
	isSystem := tx.IsSystem()
	if !isSystem && tx.Type != TxIdentityRegistration {
		if err := validateSenderIdentityExists(tx, view); err != nil {
			return err
		}
	}
	if err := validateSignature(tx); err != nil {
		return err
	}
	if !isSystem {
		if err := validateZKProofs(tx); err != nil {
			return err
		}
	}
	if err := validateEconomics(tx, isSystem); err != nil {
		return err
	}
	return nil
}

func validateStructure(tx *Transaction) error {
	if tx.Version == 0 {
		return ErrInvalidTransaction
	}
	size, err := serializedSize(tx)
	if err != nil {
		return ErrInvalidTransaction
	}
	if size > MaxTransactionSize {
		return ErrInvalidTransaction
	}
	if len(tx.Memo) > MaxMemoSize {
		return ErrInvalidMemo
	}
	return nil
}

func validateTypeSpecific(tx *Transaction) error {
	isSystem := tx.IsSystem()
	switch tx.Type {
	case TxTransfer, TxUbiDistribution:
		if err := validateTransferShape(tx, isSystem); err != nil {
			return err
		}
		if tx.Type == TxUbiDistribution && len(tx.Memo) == 0 {
			return ErrInvalidMemo
		}
	case TxIdentityRegistration, TxIdentityUpdate, TxIdentityRevocation:
		if err := validateIdentityData(tx.Identity, isSystem); err != nil {
			return err
		}
	case TxContractDeployment, TxContractExecution:
		if !isSystem && len(tx.Inputs) == 0 {
			return ErrInvalidInputs
		}
		if len(tx.Outputs) == 0 {
			return ErrInvalidOutputs
		}
	case TxSessionCreation, TxSessionTermination, TxContentUpload:
		if len(tx.Memo) == 0 {
			return ErrInvalidMemo
		}
	case TxWalletRegistration:
		if tx.Wallet == nil {
			return ErrMissingWalletData
		}
		if err := validateWalletData(tx.Wallet); err != nil {
			return err
		}
	case TxValidatorRegistration, TxValidatorUpdate, TxValidatorUnregister:
		if tx.Validator == nil {
			return ErrInvalidValidatorData
		}
	case TxDaoProposal, TxDaoVote, TxDaoExecution:
		// deferred to a consensus-layer check; accepted structurally here.
	default:
		return ErrInvalidTransactionType
	}
	return nil
}

func validateTransferShape(tx *Transaction, isSystem bool) error {
	if len(tx.Outputs) == 0 {
		return ErrInvalidOutputs
	}
	for i := range tx.Outputs {
		if err := validateOutput(&tx.Outputs[i]); err != nil {
			return err
		}
	}
	if isSystem {
		return nil
	}
	if len(tx.Inputs) == 0 {
		return ErrInvalidInputs
	}
	for i := range tx.Inputs {
		if err := validateInput(&tx.Inputs[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateInput(in *TxInput) error {
	if in.Nullifier.IsZero() {
		return ErrInvalidInputs
	}
	if in.PreviousOutput.IsZero() && !in.Nullifier.IsZero() {
		return nil // system input
	}
	if in.PreviousOutput.IsZero() {
		return ErrInvalidInputs
	}
	return nil
}

func validateOutput(out *TxOutput) error {
	if out.Commitment.IsZero() || out.NoteHash.IsZero() || len(out.RecipientDilPK) == 0 {
		return ErrInvalidOutputs
	}
	return nil
}

func validateIdentityData(id *IdentityData, isSystem bool) error {
	if id == nil {
		return ErrMissingRequiredData
	}
	if !strings.HasPrefix(id.DID, "did:zhtp:") {
		return ErrInvalidIdentityData
	}
	if len(id.DisplayName) == 0 || len(id.DisplayName) > 64 {
		return ErrInvalidIdentityData
	}
	if len(id.PublicKey) == 0 {
		return ErrInvalidIdentityData
	}
	if len(id.OwnershipProof) == 0 && !isSystem {
		return ErrInvalidIdentityData
	}
	if !validIdentityTypes[id.IdentityType] {
		return ErrInvalidIdentityData
	}
	if id.RegistrationFee == 0 && !isSystem {
		return ErrInvalidFee
	}
	return nil
}

func validateWalletData(w *WalletData) error {
	if w.WalletID.IsZero() {
		return ErrInvalidWalletId
	}
	if w.OwnerIdentityID != nil && w.OwnerIdentityID.IsZero() {
		return ErrInvalidOwnerIdentity
	}
	if len(w.PublicKey) == 0 {
		return ErrInvalidPublicKey
	}
	if w.SeedCommitment.IsZero() {
		return ErrInvalidSeedCommitment
	}
	if !validWalletTypes[w.WalletType] {
		return ErrInvalidWalletType
	}
	return nil
}

func validateSignature(tx *Transaction) error {
	sig := tx.Signature
	if len(sig.Signature) == 0 || len(sig.PublicKey) == 0 {
		return ErrInvalidSignature
	}
	if !IsSupportedAlgorithm(sig.Algorithm) {
		return ErrInvalidSignature
	}
	now := time.Now().Unix()
	if sig.Timestamp+signatureMaxAge < now {
		return ErrInvalidSignature
	}
	if sig.Timestamp > now+signatureMaxFuture {
		return ErrInvalidSignature
	}
	hash := HashForVerification(tx)
	ok, err := DilithiumVerify(sig.Algorithm, sig.PublicKey, hash[:], sig.Signature)
	if err != nil || !ok {
		return ErrInvalidSignature
	}
	return nil
}

func validateZKProofs(tx *Transaction) error {
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if in.ZKProof.NullifierProof == nil {
			return ErrInvalidZkProof
		}
		if !IsValidProofStructure(in.ZKProof.NullifierProof) {
			return ErrInvalidZkProof
		}
		if !validator.VerifyAny(in.ZKProof.NullifierProof) {
			return ErrInvalidZkProof
		}
		if in.ZKProof.AmountProof == nil {
			return ErrInvalidZkProof
		}
		if !IsValidProofStructure(in.ZKProof.AmountProof) {
			return ErrInvalidZkProof
		}
		switch in.ZKProof.AmountProof.ProofSystem {
		case CircuitRange:
			if !validator.VerifyRange(in.ZKProof.AmountProof) {
				return ErrInvalidZkProof
			}
		case CircuitTransaction, legacyPlonky2:
			if !validator.VerifyTransaction(in.ZKProof.AmountProof) {
				return ErrInvalidZkProof
			}
		default:
			return ErrInvalidZkProof
		}
	}
	return nil
}

func validateEconomics(tx *Transaction, isSystem bool) error {
	if isSystem {
		if tx.Fee != 0 {
			return ErrInvalidFee
		}
		return nil
	}
	size, err := serializedSize(tx)
	if err != nil {
		return ErrInvalidTransaction
	}
	if tx.Fee < MinFee(uint64(size)) {
		return ErrInvalidFee
	}
	return nil
}

// validateSenderIdentityExists resolves the signer's public key to a
// wallet's owner identity, falling back to a direct identity-by-key match
// (legacy identity-key-signed transactions), then rejects revoked
// identities.
func validateSenderIdentityExists(tx *Transaction, view ChainView) error {
	pub := tx.Signature.PublicKey
	if len(pub) == 0 {
		return ErrInvalidSignature
	}

	var identity *IdentityData
	if wallet, ok := view.WalletByPublicKey(pub); ok && wallet.OwnerIdentityID != nil {
		if id, ok := view.IdentityByID(*wallet.OwnerIdentityID); ok {
			identity = id
		}
	}
	if identity == nil {
		if id, ok := view.IdentityByPublicKey(pub); ok {
			identity = id
		}
	}
	if identity == nil {
		return ErrUnregisteredSender
	}
	if identity.IdentityType == "revoked" {
		return ErrInvalidTransaction
	}
	return nil
}
