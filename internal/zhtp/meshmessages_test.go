package zhtp

import "testing"

func TestEncodeDecodeMeshMessageRoundTrip(t *testing.T) {
	orig := NewBlock{Block: []byte{1, 2, 3}, Sender: Hash{9}, Height: 42, Timestamp: 555}
	enc, err := EncodeMeshMessage(orig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeMeshMessage(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, ok := decoded.(NewBlock)
	if !ok {
		t.Fatalf("expected NewBlock, got %T", decoded)
	}
	if got.Height != orig.Height || string(got.Block) != string(orig.Block) {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestDecodeMeshMessageUnknownKindErrors(t *testing.T) {
	env := meshEnvelope{Kind: "NotARealKind", Payload: []byte{}}
	data, err := cborMarshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := DecodeMeshMessage(data); err == nil {
		t.Fatalf("expected unrecognised kind to error")
	}
}

func TestAllVariantsRoundTrip(t *testing.T) {
	variants := []MeshMessage{
		PeerAnnouncement{Sender: Hash{1}, Timestamp: 1},
		BlockchainRequest{Requester: Hash{2}, RequestType: "headers"},
		BlockchainData{Sender: Hash{3}, ChunkIndex: 1, TotalChunks: 2},
		NewBlock{Block: []byte{1}, Sender: Hash{6}, Height: 3},
		NewTransaction{Transaction: []byte{1}, Sender: Hash{4}, Fee: 10},
		DhtStore{Key: []byte("k"), Value: []byte("v")},
		DhtFindValue{Key: []byte("k")},
		DhtFindValueResponse{Key: []byte("k"), Found: true},
		DhtFindNode{Target: Hash{5}},
		DhtPing{Nonce: 7},
		WrappedRequest{Request: ZhtpRequestWire{Method: MethodGet, URI: "/x"}},
	}
	for _, v := range variants {
		enc, err := EncodeMeshMessage(v)
		if err != nil {
			t.Fatalf("encode %T: %v", v, err)
		}
		if _, err := DecodeMeshMessage(enc); err != nil {
			t.Fatalf("decode %T: %v", v, err)
		}
	}
}
