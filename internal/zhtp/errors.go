package zhtp

// ValidationError is the closed taxonomy of transaction validation failures.
// It is a string-backed error type so callers can compare with == or errors.Is
// without a type switch, mirroring the reference node's sentinel-error style.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrInvalidSignature       ValidationError = "invalid_signature"
	ErrInvalidZkProof         ValidationError = "invalid_zk_proof"
	ErrDoubleSpend            ValidationError = "double_spend"
	ErrInvalidAmount          ValidationError = "invalid_amount"
	ErrInvalidFee             ValidationError = "invalid_fee"
	ErrInvalidTransaction     ValidationError = "invalid_transaction"
	ErrInvalidIdentityData    ValidationError = "invalid_identity_data"
	ErrInvalidInputs          ValidationError = "invalid_inputs"
	ErrInvalidOutputs         ValidationError = "invalid_outputs"
	ErrMissingRequiredData    ValidationError = "missing_required_data"
	ErrInvalidTransactionType ValidationError = "invalid_transaction_type"
	ErrUnregisteredSender     ValidationError = "unregistered_sender"
	ErrInvalidMemo            ValidationError = "invalid_memo"
	ErrMissingWalletData      ValidationError = "missing_wallet_data"
	ErrInvalidWalletId        ValidationError = "invalid_wallet_id"
	ErrInvalidOwnerIdentity   ValidationError = "invalid_owner_identity"
	ErrInvalidPublicKey       ValidationError = "invalid_public_key"
	ErrInvalidSeedCommitment  ValidationError = "invalid_seed_commitment"
	ErrInvalidWalletType      ValidationError = "invalid_wallet_type"
	ErrInvalidValidatorData   ValidationError = "invalid_validator_data"
)

// DispatchError is the closed taxonomy of mesh-dispatcher failures.
type DispatchError string

func (e DispatchError) Error() string { return string(e) }

const (
	ErrRateLimited              DispatchError = "rate_limited"
	ErrBanned                   DispatchError = "banned"
	ErrProtocolDetectionTimeout DispatchError = "protocol_detection_timeout"
	ErrUnknownProtocol          DispatchError = "unknown_protocol"
	ErrHandshakeFailed          DispatchError = "handshake_failed"
	ErrNonceReplay              DispatchError = "nonce_replay"
	ErrNodeIdMismatch           DispatchError = "node_id_mismatch"
	ErrSignatureMismatch        DispatchError = "signature_mismatch"
	ErrSessionExpired           DispatchError = "session_expired"
	ErrMacInvalid               DispatchError = "mac_invalid"
)
