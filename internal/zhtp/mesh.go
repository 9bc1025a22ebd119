package zhtp

// mesh.go is the single QUIC entry point: it accepts connections, classifies
// them by negotiated ALPN into one of four connection modes, runs the UHP
// handshake where the mode requires it, and for every stream peeks enough
// bytes to classify and dispatch it to exactly one handler.
//
// Struct shape (ctx/cancel, per-resource locks, logrus.WithFields logging,
// a constructor that wires sub-resources and returns an error) follows
// core/network.go's NewNode/Node conventions, generalised from a libp2p
// pubsub host to a quic-go listener.

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ALPN tokens recognised at connection accept time.
const (
	ALPNPublic     = "zhtp-public/1"
	ALPNUHP        = "zhtp-uhp/1"
	ALPNMesh       = "zhtp-mesh/1"
	ALPNHTTP       = "zhtp-http/1"
	ALPNHTTPLegacy = "zhtp/1.0"
	ALPNH3         = "h3"
)

// ConnectionMode is the closed set of dispatch modes a connection is placed
// into once its ALPN is known.
type ConnectionMode int

const (
	ModePublic ConnectionMode = iota
	ModeControlPlane
	ModePeerMesh
	ModeHTTPCompat
)

// ConnectionModeFromALPN classifies a negotiated ALPN token. Unknown tokens
// fall back to ModePublic, matching the "and unknown ALPNs" clause.
func ConnectionModeFromALPN(alpn string) ConnectionMode {
	switch alpn {
	case ALPNUHP:
		return ModeControlPlane
	case ALPNMesh:
		return ModePeerMesh
	case ALPNHTTP, ALPNHTTPLegacy, ALPNH3:
		return ModeHTTPCompat
	case ALPNPublic:
		return ModePublic
	default:
		return ModePublic
	}
}

// RequiresHandshake reports whether mode mandates the UHP+Kyber handshake.
func (m ConnectionMode) RequiresHandshake() bool {
	return m == ModeControlPlane || m == ModePeerMesh
}

// zhtpMagic identifies a native ZHTP binary API request on a fresh stream.
var zhtpMagic = [4]byte{'Z', 'H', 'T', 'P'}

var httpMethodTokens = [][]byte{
	[]byte("GET "), []byte("POST "), []byte("PUT "), []byte("DELETE "),
	[]byte("HEAD "), []byte("OPTIONS "), []byte("PATCH "), []byte("CONNECT "), []byte("TRACE "),
}

// StreamProtocol is the classification a peeked stream prefix resolves to.
type StreamProtocol int

const (
	ProtocolUnknown StreamProtocol = iota
	ProtocolZhtpAPI
	ProtocolHTTPCompat
	ProtocolHandshakeInit
	ProtocolMeshMessage
)

const (
	protocolDetectionPeek    = 1024
	protocolDetectionTimeout = 5 * time.Second
)

// ClassifyStream inspects a peeked prefix (at most protocolDetectionPeek
// bytes) and applies the five ordered classification rules. allowHandshake
// gates rule 3 (only valid on a first stream of a non-public connection),
// postHandshake gates rule 4 (mesh messages only ever follow a completed
// handshake).
func ClassifyStream(prefix []byte, allowHandshake, postHandshake bool) StreamProtocol {
	if len(prefix) >= 4 && bytes.Equal(prefix[:4], zhtpMagic[:]) {
		return ProtocolZhtpAPI
	}
	for _, tok := range httpMethodTokens {
		if bytes.HasPrefix(prefix, tok) {
			return ProtocolHTTPCompat
		}
	}
	if allowHandshake && looksLikeClientHello(prefix) {
		return ProtocolHandshakeInit
	}
	if postHandshake {
		return ProtocolMeshMessage
	}
	return ProtocolUnknown
}

// looksLikeClientHello performs the cheap structural check used to decide
// whether a prefix is worth a full CBOR-decode attempt as a ClientHello: it
// must at least decode as a CBOR map/array without error.
func looksLikeClientHello(prefix []byte) bool {
	var probe interface{}
	if err := cborUnmarshal(prefix, &probe); err != nil {
		return false
	}
	var ch ClientHello
	return cborUnmarshal(prefix, &ch) == nil && len(ch.ClientDID) > 0
}

// peekStream reads up to n bytes from r without discarding them: it returns
// a reader that replays the peeked bytes before continuing from r.
func peekStream(r io.Reader, n int) ([]byte, io.Reader, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, err
	}
	buf = buf[:read]
	return buf, io.MultiReader(bytes.NewReader(buf), r), nil
}

// publicPOSTWhitelist is the fixed set of POST endpoints a public
// (unauthenticated) connection may invoke.
var publicPOSTWhitelist = map[string]bool{
	"/identity/register": true,
	"/health":            true,
	"/web4/content":      true,
}

// AllowPublicRequest applies the public-mode restriction: GET is
// unconditionally allowed, POST only against the whitelist, everything else
// denied.
func AllowPublicRequest(method HTTPMethod, uri string) bool {
	switch method {
	case MethodGet:
		return true
	case MethodPost:
		return publicPOSTWhitelist[uri]
	default:
		return false
	}
}

// BlockHandlingResult classifies the outcome of submitting a gossiped block
// to local state.
type BlockHandlingResult int

const (
	BlockAdopted BlockHandlingResult = iota
	BlockContentMerged
	BlockLocalKept
	BlockValidationFailed
	BlockDuplicate
	BlockRelayedHeaderOnly
)

// NodeRole distinguishes a full node (which evaluates and may adopt blocks)
// from an edge node (which relays gossiped blocks without evaluating them).
type NodeRole int

const (
	RoleFull NodeRole = iota
	RoleEdge
)

// MeshPeer is the dispatcher's minimal view of a connected peer, sufficient
// to relay messages to "all peers except the sender".
type MeshPeer interface {
	ID() string
	Send(msg MeshMessage) error
}

// Dispatcher is the mesh transport's single entry point. It owns the
// reputation table, connection table, nonce cache, and handshake-rate
// limiter, and dispatches every accepted stream to exactly one handler.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc

	role NodeRole

	reputation  *ReputationTable
	connections *ConnectionTable
	nonces      *NonceCache

	handshakeLimiters  map[string]*rate.Limiter
	handshakeLimiterMu sync.Mutex

	peersMu sync.RWMutex
	peers   map[string]MeshPeer

	seenBlocksMu sync.Mutex
	seenBlocks   map[Hash]struct{}

	localChain func() ChainSummary

	listener *quic.Listener
}

// DispatcherConfig wires the dispatcher's TLS identity and the local-chain
// accessor it consults when evaluating gossiped blocks.
type DispatcherConfig struct {
	TLSConfig  *tls.Config
	Role       NodeRole
	LocalChain func() ChainSummary
}

// NewDispatcher constructs a dispatcher ready to Serve on a listen address.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.TLSConfig == nil {
		return nil, errors.New("mesh dispatcher requires a tls config")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		ctx:               ctx,
		cancel:            cancel,
		role:              cfg.Role,
		reputation:        NewReputationTable(),
		connections:       NewConnectionTable(),
		nonces:            NewNonceCache(),
		handshakeLimiters: make(map[string]*rate.Limiter),
		peers:             make(map[string]MeshPeer),
		seenBlocks:        make(map[Hash]struct{}),
		localChain:        cfg.LocalChain,
	}, nil
}

// quicALPNs is the full set this listener negotiates, in priority order.
var quicALPNs = []string{ALPNUHP, ALPNMesh, ALPNHTTP, ALPNHTTPLegacy, ALPNH3, ALPNPublic}

// Serve accepts QUIC connections on addr until the dispatcher is closed.
func (d *Dispatcher) Serve(addr string) error {
	tlsConf := d.listenerTLSConfig()
	l, err := quic.ListenAddr(addr, tlsConf, &quic.Config{
		MaxIdleTimeout: 300 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("mesh dispatcher: listen %s: %w", addr, err)
	}
	d.listener = l
	logrus.WithFields(logrus.Fields{"addr": addr}).Info("mesh dispatcher listening")

	for {
		conn, err := l.Accept(d.ctx)
		if err != nil {
			if d.ctx.Err() != nil {
				return nil
			}
			logrus.WithFields(logrus.Fields{"error": err}).Warn("mesh dispatcher accept failed")
			continue
		}
		go d.handleConnection(conn)
	}
}

func (d *Dispatcher) listenerTLSConfig() *tls.Config {
	return &tls.Config{
		NextProtos:   quicALPNs,
		Certificates: []tls.Certificate{}, // supplied by caller via DispatcherConfig.TLSConfig in production wiring
	}
}

// Close stops accepting new connections and tears down resources.
func (d *Dispatcher) Close() error {
	d.cancel()
	if d.listener != nil {
		return d.listener.Close()
	}
	return nil
}

func (d *Dispatcher) handshakeLimiterFor(ip string) *rate.Limiter {
	d.handshakeLimiterMu.Lock()
	defer d.handshakeLimiterMu.Unlock()
	lim, ok := d.handshakeLimiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(10)/60, 10)
		d.handshakeLimiters[ip] = lim
	}
	return lim
}

func (d *Dispatcher) handleConnection(conn quic.Connection) {
	mode := ConnectionModeFromALPN(conn.ConnectionState().TLS.NegotiatedProtocol)
	remoteIP := conn.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(remoteIP); err == nil {
		remoteIP = host
	}

	log := logrus.WithFields(logrus.Fields{"remote": remoteIP, "mode": mode})

	if mode.RequiresHandshake() {
		if !d.handshakeLimiterFor(remoteIP).Allow() {
			log.Warn("handshake rate limited")
			_ = conn.CloseWithError(quic.ApplicationErrorCode(ErrCodeRateLimited), "rate limited")
			return
		}
	}

	var session *AuthenticatedSession
	first := true

	idleTimeout := 60 * time.Second
	if mode == ModePeerMesh || mode == ModeControlPlane {
		idleTimeout = 300 * time.Second
	}
	// Not applied: the listener's quic.Config.MaxIdleTimeout (300 s) governs
	// every connection, so the 60 s value for other modes has no effect.
	_ = idleTimeout

	for {
		stream, err := conn.AcceptStream(d.ctx)
		if err != nil {
			return
		}
		go d.handleStream(conn, stream, mode, &session, &first, log)
	}
}

// ErrCodeRateLimited is the application-level QUIC error code for a
// handshake-rate-limited connection close.
const ErrCodeRateLimited = 1

func (d *Dispatcher) handleStream(conn quic.Connection, stream quic.Stream, mode ConnectionMode, session **AuthenticatedSession, first *bool, log *logrus.Entry) {
	detectCtx, cancel := context.WithTimeout(d.ctx, protocolDetectionTimeout)
	defer cancel()
	_ = detectCtx

	prefix, reader, err := peekStream(stream, protocolDetectionPeek)
	if err != nil {
		stream.Close()
		return
	}

	allowHandshake := mode.RequiresHandshake() && *first
	postHandshake := *session != nil
	proto := ClassifyStream(prefix, allowHandshake, postHandshake)
	*first = false

	switch proto {
	case ProtocolHandshakeInit:
		sess, err := d.runServerHandshake(reader, stream)
		if err != nil {
			log.WithFields(logrus.Fields{"error": err}).Warn("handshake failed")
			stream.Close()
			return
		}
		*session = sess
		d.connections.Put(sess.NodeID, sess)
	case ProtocolZhtpAPI, ProtocolHTTPCompat:
		if mode == ModePublic || mode == ModeHTTPCompat {
			d.handleHTTPCompatStream(reader, stream, mode)
		} else if mode == ModeControlPlane && *session != nil {
			d.handleControlPlaneStream(reader, stream, *session)
		} else {
			stream.Close()
		}
	case ProtocolMeshMessage:
		if *session == nil {
			stream.Close()
			return
		}
		d.handleMeshStream(reader, stream, *session, log)
	default:
		stream.Close()
	}
}

func (d *Dispatcher) runServerHandshake(r io.Reader, w io.Writer) (*AuthenticatedSession, error) {
	var ch ClientHello
	if err := ReadFrame(r, &ch); err != nil {
		return nil, err
	}
	if err := VerifyClientHello(&ch, d.nonces, time.Now()); err != nil {
		return nil, err
	}
	claimedNodeID := nodeIDFromDID(ch.ClientDID, ch.DeviceName)
	_ = claimedNodeID // becomes the session's NodeID below

	kyberPub, kyberPriv, err := KyberGenerateKeyPair()
	_ = kyberPriv
	if err != nil {
		return nil, err
	}
	dilPub, dilPriv, err := DilithiumKeypair(ch.Algorithm)
	if err != nil {
		return nil, err
	}
	serverNonce := NewRequestID()

	sh, sharedSecret, err := BuildServerHello("server", "zhtp-node", ch.KyberPublic, dilPub, dilPriv, ch.Algorithm, serverNonce, time.Now())
	if err != nil {
		return nil, err
	}
	_ = kyberPub
	if err := WriteFrame(w, sh); err != nil {
		return nil, err
	}

	masterKey := DeriveMasterKey(sharedSecret, ch.Nonce, serverNonce)
	sessionID := NewRequestID()

	var cf ClientFinished
	if err := ReadFrame(r, &cf); err != nil {
		return nil, err
	}
	if err := VerifyClientFinished(&cf, masterKey); err != nil {
		return nil, err
	}

	return &AuthenticatedSession{
		NodeID:        claimedNodeID,
		SessionID:     sessionID,
		MasterKey:     masterKey,
		EstablishedAt: time.Now(),
	}, nil
}

func (d *Dispatcher) handleHTTPCompatStream(r io.Reader, w io.Writer, mode ConnectionMode) {
	var req ZhtpRequestWire
	if err := ReadFrame(r, &req); err != nil {
		_ = WriteFrame(w, &ZhtpResponseWire{Status: 400})
		return
	}
	if mode == ModePublic && !AllowPublicRequest(req.Method, req.URI) {
		_ = WriteFrame(w, &ZhtpResponseWire{RequestID: req.RequestID, Status: 403})
		return
	}
	_ = WriteFrame(w, &ZhtpResponseWire{RequestID: req.RequestID, Status: 200})
}

func (d *Dispatcher) handleControlPlaneStream(r io.Reader, w io.Writer, session *AuthenticatedSession) {
	var req ZhtpRequestWire
	if err := ReadFrame(r, &req); err != nil {
		_ = WriteFrame(w, &ZhtpResponseWire{Status: 400})
		return
	}
	if req.Auth != nil {
		if req.Auth.SessionID != session.SessionID {
			_ = WriteFrame(w, &ZhtpResponseWire{RequestID: req.RequestID, Status: 401})
			return
		}
		hash := CanonicalRequestHash(&req)
		macBody, err := Open(session.MasterKey, req.Auth.MAC, []byte("control-plane-mac"))
		if err != nil || !bytes.Equal(macBody, hash[:]) {
			_ = WriteFrame(w, &ZhtpResponseWire{RequestID: req.RequestID, Status: 401})
			return
		}
	}
	_ = WriteFrame(w, &ZhtpResponseWire{RequestID: req.RequestID, Status: 200})
}

func (d *Dispatcher) handleMeshStream(r io.Reader, w io.Writer, session *AuthenticatedSession, log *logrus.Entry) {
	sealed := make([]byte, maxMeshMessageSize)
	n, err := r.Read(sealed)
	if err != nil && err != io.EOF {
		return
	}
	sealed = sealed[:n]

	plaintext, err := Open(session.MasterKey, sealed, nil)
	if err != nil {
		log.Warn("mesh message failed to authenticate")
		return
	}
	msg, err := DecodeMeshMessage(plaintext)
	if err != nil {
		return
	}

	peerID := session.NodeID
	switch m := msg.(type) {
	case NewBlock:
		d.handleNewBlock(m, peerID, log)
	case NewTransaction:
		d.handleNewTransaction(m, peerID, log)
	case PeerAnnouncement:
		// registration is handled by whatever component owns the peer table;
		// the dispatcher only authenticates and forwards.
	default:
		// DHT and blockchain-sync variants are routed to their own handlers
		// by the component that owns DHT/sync state.
	}
}

func (d *Dispatcher) handleNewBlock(m NewBlock, peerID Hash, log *logrus.Entry) BlockHandlingResult {
	peerKey := string(peerID[:])
	if d.reputation.IsBanned(peerKey) {
		return BlockLocalKept
	}
	if !d.reputation.AllowBlock(peerKey) {
		return BlockLocalKept
	}

	blockHash := BlakeHash(m.Block)
	d.seenBlocksMu.Lock()
	_, dup := d.seenBlocks[blockHash]
	if !dup {
		d.seenBlocks[blockHash] = struct{}{}
	}
	d.seenBlocksMu.Unlock()
	if dup {
		return BlockDuplicate
	}

	if d.role == RoleEdge {
		d.relayExceptSender(m, peerID)
		return BlockRelayedHeaderOnly
	}

	local := d.localChain()
	imported := ChainSummary{
		Height:            m.Height,
		LatestTimestamp:   m.Timestamp,
		TotalTransactions: 1,
	}
	decision := Evaluate(local, imported)
	switch decision {
	case DecisionAdoptImported, DecisionMerge, DecisionMergeContentOnly:
		d.relayExceptSender(m, peerID)
		if decision == DecisionMergeContentOnly {
			return BlockContentMerged
		}
		return BlockAdopted
	default:
		return BlockLocalKept
	}
}

func (d *Dispatcher) handleNewTransaction(m NewTransaction, peerID Hash, log *logrus.Entry) {
	peerKey := string(peerID[:])
	if d.reputation.IsBanned(peerKey) || !d.reputation.AllowTransaction(peerKey) {
		return
	}
	var tx Transaction
	if err := cborUnmarshal(m.Transaction, &tx); err != nil {
		return
	}
	if err := Validate(&tx); err != nil {
		log.WithFields(logrus.Fields{"error": err}).Debug("gossiped transaction rejected")
		return
	}
	d.relayExceptSender(m, peerID)
}

func (d *Dispatcher) relayExceptSender(msg MeshMessage, sender Hash) {
	d.peersMu.RLock()
	defer d.peersMu.RUnlock()
	senderKey := string(sender[:])
	for id, p := range d.peers {
		if id == senderKey {
			continue
		}
		_ = p.Send(msg)
	}
}

// RegisterPeer adds a peer the dispatcher may relay accepted gossip to.
func (d *Dispatcher) RegisterPeer(id Hash, p MeshPeer) {
	d.peersMu.Lock()
	defer d.peersMu.Unlock()
	d.peers[string(id[:])] = p
}

// UnregisterPeer removes a peer from the relay set and its reputation state.
func (d *Dispatcher) UnregisterPeer(id Hash) {
	d.peersMu.Lock()
	delete(d.peers, string(id[:]))
	d.peersMu.Unlock()
	d.reputation.Forget(string(id[:]))
	d.connections.Remove(id)
}
