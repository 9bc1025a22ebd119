package zhtp

// types.go declares the shared data model only, mirroring the reference
// node's convention in core/common_structs.go of keeping structs apart from
// behaviour to avoid cyclic imports between validator, evaluator and mesh
// packages.

import "encoding/hex"

// Hash is a 32-byte Blake3 digest used throughout the transaction and
// identity data model.
type Hash [32]byte

// IsZero reports whether h is the all-zero hash, the sentinel used
// throughout for "unset" / "system" references.
func (h Hash) IsZero() bool { return h == Hash{} }

// String renders h as lowercase hex.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// TransactionType is the closed tag on Transaction.Type.
type TransactionType uint8

const (
	TxTransfer TransactionType = iota + 1
	TxIdentityRegistration
	TxIdentityUpdate
	TxIdentityRevocation
	TxContractDeployment
	TxContractExecution
	TxSessionCreation
	TxSessionTermination
	TxContentUpload
	TxUbiDistribution
	TxWalletRegistration
	TxValidatorRegistration
	TxValidatorUpdate
	TxValidatorUnregister
	TxDaoProposal
	TxDaoVote
	TxDaoExecution
)

// Algorithm restricts SignatureRecord.Algorithm to the two recognised
// lattice-based parameter sets.
type Algorithm string

const (
	AlgDilithium2 Algorithm = "Dilithium2"
	AlgDilithium5 Algorithm = "Dilithium5"
)

// SignatureRecord carries a signer's signature over a transaction hash.
type SignatureRecord struct {
	Signature []byte    `json:"signature"`
	PublicKey []byte    `json:"public_key"`
	Algorithm Algorithm `json:"algorithm"`
	Timestamp int64     `json:"timestamp"` // seconds since Unix epoch
}

// ZKProofObject bundles a proof of a single circuit kind with its public
// inputs and binding metadata.
type ZKProofObject struct {
	ProofSystem           string   `json:"proof_system"`
	ProofBytes            []byte   `json:"proof_bytes"`
	PublicInputs          []uint64 `json:"public_inputs"`
	VerificationKeyHash   Hash     `json:"verification_key_hash"`
	GeneratedAt           int64    `json:"generated_at"`
	CircuitID             string   `json:"circuit_id"`
	PrivateInputCommitment Hash    `json:"private_input_commitment"`
}

// InputZKProof is the bundle a transaction input carries: the per-input
// nullifier-validity proof and the amount-range proof, each independently
// verified independently by the validator.
type InputZKProof struct {
	NullifierProof *ZKProofObject `json:"nullifier_proof"`
	AmountProof    *ZKProofObject `json:"amount_proof"`
}

// TxInput references a prior output being spent.
type TxInput struct {
	PreviousOutput Hash         `json:"previous_output"`
	OutputIndex    uint32       `json:"output_index"`
	Nullifier      Hash         `json:"nullifier"`
	ZKProof        InputZKProof `json:"zk_proof"`
}

// IsSystem reports whether this input is a system (minting) input: a zero
// previous-output reference paired with a non-zero nullifier.
func (in *TxInput) IsSystem() bool {
	return in.PreviousOutput.IsZero() && !in.Nullifier.IsZero()
}

// TxOutput is a shielded output: a commitment hiding the amount, a note
// hash linking it to spending metadata, and the recipient's public key.
type TxOutput struct {
	Commitment       Hash   `json:"commitment"`
	NoteHash         Hash   `json:"note_hash"`
	RecipientDilPK   []byte `json:"recipient_dilithium_pk"`
}

// IdentityData is the type-specific payload of identity transactions.
type IdentityData struct {
	DID              string `json:"did"`
	DisplayName      string `json:"display_name"`
	PublicKey        []byte `json:"public_key"`
	OwnershipProof   []byte `json:"ownership_proof"`
	IdentityType     string `json:"identity_type"`
	RegistrationFee  uint64 `json:"registration_fee"`
}

var validIdentityTypes = map[string]bool{
	"human": true, "organization": true, "device": true,
	"service": true, "validator": true, "revoked": true,
}

// WalletData is the type-specific payload of wallet-registration transactions.
type WalletData struct {
	WalletID         Hash   `json:"wallet_id"`
	OwnerIdentityID  *Hash  `json:"owner_identity_id,omitempty"`
	PublicKey        []byte `json:"public_key"`
	SeedCommitment   Hash   `json:"seed_commitment"`
	WalletType       string `json:"wallet_type"`
}

var validWalletTypes = map[string]bool{
	"Primary": true, "UBI": true, "Savings": true, "DAO": true,
}

// ValidatorData is the type-specific payload of validator lifecycle
// transactions. Only its presence is checked by the validator; its
// internal shape is otherwise opaque to the core validation pipeline.
type ValidatorData struct {
	NodeID    Hash   `json:"node_id"`
	PublicKey []byte `json:"public_key"`
	Stake     uint64 `json:"stake"`
}

// Transaction is the atomic ledger record.
type Transaction struct {
	Version       uint32           `json:"version"`
	Type          TransactionType  `json:"type"`
	Inputs        []TxInput        `json:"inputs"`
	Outputs       []TxOutput       `json:"outputs"`
	Memo          []byte           `json:"memo"`
	Fee           uint64           `json:"fee"`
	Identity      *IdentityData    `json:"identity,omitempty"`
	Wallet        *WalletData      `json:"wallet,omitempty"`
	Validator     *ValidatorData   `json:"validator,omitempty"`
	Signature     SignatureRecord  `json:"signature"`
}

const (
	MaxTransactionSize = 1 << 20 // 1 MiB
	MaxMemoSize        = 1024    // 1 KiB
)

// IsSystem reports whether tx is a system transaction: either it has no
// inputs at all, or every input is a system input.
func (tx *Transaction) IsSystem() bool {
	if len(tx.Inputs) == 0 {
		return true
	}
	for i := range tx.Inputs {
		if !tx.Inputs[i].IsSystem() {
			return false
		}
	}
	return true
}

// ChainSummary aggregates the metrics the chain evaluator compares.
type ChainSummary struct {
	Height               uint64
	TotalWork            uint64 // modeled as u128 upstream; uint64 suffices for Go arithmetic here
	TotalTransactions    uint64
	TotalIdentities       uint64
	TotalUTXOs           uint64
	TotalContracts       uint64
	GenesisTimestamp     int64
	LatestTimestamp      int64
	GenesisHash          string
	ValidatorCount       uint32
	TotalValidatorStake  uint64
	ValidatorSetHash     string
	BridgeNodeCount      uint32
	ExpectedTPS          uint64
	NetworkSize          uint32
}

// IsGenesisOnly reports whether the chain is indistinguishable from a
// freshly bootstrapped node holding only its genesis state.
func (s ChainSummary) IsGenesisOnly() bool {
	return s.Height <= 1 && s.TotalIdentities <= 1 && s.TotalTransactions <= 2
}

// ChainDecision is the closed result set of Evaluate.
type ChainDecision string

const (
	DecisionKeepLocal         ChainDecision = "KeepLocal"
	DecisionAdoptImported     ChainDecision = "AdoptImported"
	DecisionAdoptLocal        ChainDecision = "AdoptLocal"
	DecisionMerge             ChainDecision = "Merge"
	DecisionMergeContentOnly  ChainDecision = "MergeContentOnly"
	DecisionConflict          ChainDecision = "Conflict"
	DecisionReject            ChainDecision = "Reject"
)
