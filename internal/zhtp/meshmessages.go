package zhtp

// meshmessages.go implements the ZhtpMeshMessage envelope: one AEAD-sealed,
// CBOR-serialised message per post-handshake mesh stream. A closed interface
// with an unexported marker method stands in for a closed tagged variant with
// an exhaustive match: adding a new message kind means implementing meshKind
// and adding a case to DecodeMeshMessage, which errors on an unhandled kind
// rather than silently ignoring it.
//
// The envelope/kind-discriminator shape follows the reference node's own
// wire convention in core/transactions.go and core/network.go of
// json.Marshal-ing a typed payload for Node.Broadcast, here generalised to
// CBOR per DESIGN.md's wire format decision.

import (
	"fmt"
)

// MeshMessage is the sealed interface every mesh message variant implements.
type MeshMessage interface {
	meshKind() string
}

type PeerAnnouncement struct {
	Sender    Hash   `cbor:"sender"`
	Timestamp int64  `cbor:"timestamp"`
	Signature []byte `cbor:"signature"`
}

func (PeerAnnouncement) meshKind() string { return "PeerAnnouncement" }

type BlockchainRequest struct {
	Requester   Hash   `cbor:"requester"`
	RequestID   [16]byte `cbor:"request_id"`
	RequestType string `cbor:"request_type"`
}

func (BlockchainRequest) meshKind() string { return "BlockchainRequest" }

type BlockchainData struct {
	Sender           Hash   `cbor:"sender"`
	RequestID        [16]byte `cbor:"request_id"`
	ChunkIndex       uint32 `cbor:"chunk_index"`
	TotalChunks      uint32 `cbor:"total_chunks"`
	Data             []byte `cbor:"data"`
	CompleteDataHash Hash   `cbor:"complete_data_hash"`
}

func (BlockchainData) meshKind() string { return "BlockchainData" }

type NewBlock struct {
	Block     []byte `cbor:"block"`
	Sender    Hash   `cbor:"sender"`
	Height    uint64 `cbor:"height"`
	Timestamp int64  `cbor:"timestamp"`
}

func (NewBlock) meshKind() string { return "NewBlock" }

type NewTransaction struct {
	Transaction []byte `cbor:"transaction"`
	Sender      Hash   `cbor:"sender"`
	TxHash      Hash   `cbor:"tx_hash"`
	Fee         uint64 `cbor:"fee"`
}

func (NewTransaction) meshKind() string { return "NewTransaction" }

type DhtStore struct {
	Key   []byte `cbor:"key"`
	Value []byte `cbor:"value"`
}

func (DhtStore) meshKind() string { return "DhtStore" }

type DhtFindValue struct {
	Key []byte `cbor:"key"`
}

func (DhtFindValue) meshKind() string { return "DhtFindValue" }

type DhtFindValueResponse struct {
	Key   []byte `cbor:"key"`
	Value []byte `cbor:"value"`
	Found bool   `cbor:"found"`
}

func (DhtFindValueResponse) meshKind() string { return "DhtFindValueResponse" }

type DhtFindNode struct {
	Target Hash `cbor:"target"`
}

func (DhtFindNode) meshKind() string { return "DhtFindNode" }

type DhtPing struct {
	Nonce uint64 `cbor:"nonce"`
}

func (DhtPing) meshKind() string { return "DhtPing" }

type WrappedRequest struct {
	Request ZhtpRequestWire `cbor:"request"`
}

func (WrappedRequest) meshKind() string { return "ZhtpRequest" }

// meshEnvelope is the over-the-wire shape: a kind discriminator plus the
// CBOR-encoded payload for that kind.
type meshEnvelope struct {
	Kind    string `cbor:"kind"`
	Payload []byte `cbor:"payload"`
}

// EncodeMeshMessage serialises a MeshMessage into its envelope form.
func EncodeMeshMessage(msg MeshMessage) ([]byte, error) {
	payload, err := cborMarshal(msg)
	if err != nil {
		return nil, err
	}
	return cborMarshal(meshEnvelope{Kind: msg.meshKind(), Payload: payload})
}

// DecodeMeshMessage parses an envelope and dispatches to the concrete
// variant by kind. An unrecognised kind is an error, not a silent drop.
func DecodeMeshMessage(data []byte) (MeshMessage, error) {
	var env meshEnvelope
	if err := cborUnmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case "PeerAnnouncement":
		var m PeerAnnouncement
		return m, cborUnmarshal(env.Payload, &m)
	case "BlockchainRequest":
		var m BlockchainRequest
		return m, cborUnmarshal(env.Payload, &m)
	case "BlockchainData":
		var m BlockchainData
		return m, cborUnmarshal(env.Payload, &m)
	case "NewBlock":
		var m NewBlock
		return m, cborUnmarshal(env.Payload, &m)
	case "NewTransaction":
		var m NewTransaction
		return m, cborUnmarshal(env.Payload, &m)
	case "DhtStore":
		var m DhtStore
		return m, cborUnmarshal(env.Payload, &m)
	case "DhtFindValue":
		var m DhtFindValue
		return m, cborUnmarshal(env.Payload, &m)
	case "DhtFindValueResponse":
		var m DhtFindValueResponse
		return m, cborUnmarshal(env.Payload, &m)
	case "DhtFindNode":
		var m DhtFindNode
		return m, cborUnmarshal(env.Payload, &m)
	case "DhtPing":
		var m DhtPing
		return m, cborUnmarshal(env.Payload, &m)
	case "ZhtpRequest":
		var m WrappedRequest
		return m, cborUnmarshal(env.Payload, &m)
	default:
		return nil, fmt.Errorf("unrecognised mesh message kind %q", env.Kind)
	}
}

// maxMeshMessageSize bounds a sealed mesh message.
const maxMeshMessageSize = 1 << 20
