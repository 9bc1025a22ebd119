package zhtp

// wire.go implements the control-plane wire format: a length-prefixed CBOR
// ZhtpRequestWire followed by a length-prefixed CBOR ZhtpResponseWire on the
// same stream, with an optional AuthContext and the canonical request hash
// the MAC is computed over.
//
// No Go "bincode" library exists anywhere in the retrieved corpus; CBOR
// (github.com/fxamacker/cbor/v2, found in the wider example corpus) is used
// uniformly for both this control-plane format and the mesh-message
// envelope in meshmessages.go — see DESIGN.md's wire-format decision.

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

func cborMarshal(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

func cborUnmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// HTTPMethod is the closed set of methods a ZhtpRequestWire may carry.
type HTTPMethod string

const (
	MethodGet     HTTPMethod = "Get"
	MethodPost    HTTPMethod = "Post"
	MethodPut     HTTPMethod = "Put"
	MethodDelete  HTTPMethod = "Delete"
	MethodHead    HTTPMethod = "Head"
	MethodOptions HTTPMethod = "Options"
	MethodPatch   HTTPMethod = "Patch"
	MethodConnect HTTPMethod = "Connect"
	MethodTrace   HTTPMethod = "Trace"
)

// AuthContext carries the session/DID/MAC triple an authenticated
// control-plane request must present.
type AuthContext struct {
	SessionID    [16]byte `cbor:"session_id"`
	ClientDID    string   `cbor:"client_did"`
	MAC          []byte   `cbor:"mac"`
	IssuedAtMs   int64    `cbor:"issued_at_ms"`
}

// ZhtpRequestWire is the request half of the control-plane wire format.
type ZhtpRequestWire struct {
	RequestID   [16]byte          `cbor:"request_id"`
	TimestampMs int64             `cbor:"timestamp_ms"`
	Method      HTTPMethod        `cbor:"method"`
	URI         string            `cbor:"uri"`
	Headers     map[string]string `cbor:"headers"`
	Body        []byte            `cbor:"body"`
	Auth        *AuthContext      `cbor:"auth,omitempty"`
}

// ZhtpResponseWire is the response half of the control-plane wire format.
type ZhtpResponseWire struct {
	RequestID [16]byte          `cbor:"request_id"`
	Status    int               `cbor:"status"`
	Headers   map[string]string `cbor:"headers"`
	Body      []byte            `cbor:"body"`
}

// NewRequestID returns a fresh 16-byte request id.
func NewRequestID() [16]byte {
	id := uuid.New()
	var out [16]byte
	copy(out[:], id[:])
	return out
}

// orderedHeaderBytes renders headers in a canonical (sorted-key) order so
// the request hash is stable regardless of map iteration order.
func orderedHeaderBytes(headers map[string]string) []byte {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	// simple insertion sort: header counts are small and this avoids an
	// extra stdlib import for what is already a short, bounded slice.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	buf := make([]byte, 0, 64)
	for _, k := range keys {
		buf = append(buf, []byte(k)...)
		buf = append(buf, ':')
		buf = append(buf, []byte(headers[k])...)
		buf = append(buf, '\n')
	}
	return buf
}

// CanonicalRequestHash computes the Blake3 digest a control-plane MAC is
// taken over: request_id || timestamp_ms || method || uri || ordered_headers
// || body.
func CanonicalRequestHash(req *ZhtpRequestWire) Hash {
	buf := make([]byte, 0, 128)
	buf = append(buf, req.RequestID[:]...)
	buf = putU64(buf, uint64(req.TimestampMs))
	buf = append(buf, []byte(req.Method)...)
	buf = append(buf, []byte(req.URI)...)
	buf = append(buf, orderedHeaderBytes(req.Headers)...)
	buf = append(buf, req.Body...)
	return BlakeHash(buf)
}

// WriteFrame writes a length-prefixed (uint32 big-endian) CBOR-encoded
// value.
func WriteFrame(w io.Writer, v interface{}) error {
	b, err := cborMarshal(v)
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// maxFrameSize bounds a single control-plane/mesh frame: mesh messages and
// control-plane requests share the same 1 MiB ceiling.
const maxFrameSize = 1 << 20

// ReadFrame reads one length-prefixed CBOR-encoded value into v.
func ReadFrame(r io.Reader, v interface{}) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n == 0 || n > maxFrameSize {
		return errors.New("frame size out of bounds")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return err
	}
	return cborUnmarshal(body, v)
}
