package server

import (
	"fmt"
	"mesh_relay/internal/config"
	"mesh_relay/internal/dataType"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	pingTTL          = 4
	rateWindowSec    = 5
	rateBucketShards = 8
)

type peer struct {
	label string
	addr  *net.UDPAddr
}

type inboundDatagram struct {
	data   []byte
	sender *net.UDPAddr
}

type localSend struct {
	body string
	dst  string
}

// MeshNode is one relay in the mesh: a bound UDP endpoint, a static peer
// list and the seen-set that breaks flood loops. All state mutation happens
// on the Run loop; Say only enqueues.
type MeshNode struct {
	cfg    *config.MainConfig
	label  string
	logger *zap.Logger

	conn  *net.UDPConn
	peers []peer
	seen  *dataType.SeenSet
	rate  *dataType.RateCounter

	display func(dataType.Message)

	datagrams chan inboundDatagram
	outbound  chan localSend
	quit      chan struct{}
	quitOnce  sync.Once
}

// NewMeshNode builds a node from a validated configuration. Peer addresses
// that do not resolve are a construction-time failure; nothing is bound yet.
func NewMeshNode(cfg *config.MainConfig, logger *zap.Logger) (*MeshNode, error) {
	n := &MeshNode{
		cfg:       cfg,
		label:     cfg.Label(),
		logger:    logger,
		seen:      dataType.NewSeenSet(),
		rate:      dataType.NewRateCounter(rateBucketShards, rateWindowSec),
		datagrams: make(chan inboundDatagram, 1024),
		outbound:  make(chan localSend, 64),
		quit:      make(chan struct{}),
	}
	n.display = func(msg dataType.Message) {
		fmt.Fprintf(os.Stdout, "<%s> %s\n", msg.Src, msg.Body)
	}
	if err := n.setPeers(cfg.Peers); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *MeshNode) setPeers(labels []string) error {
	peers := make([]peer, 0, len(labels))
	for _, label := range labels {
		addr, err := net.ResolveUDPAddr("udp", label)
		if err != nil {
			return fmt.Errorf("invalid peer address %q: %w", label, err)
		}
		peers = append(peers, peer{label: label, addr: addr})
	}
	n.peers = peers
	return nil
}

// Label returns the canonical host:port identity of this node.
func (n *MeshNode) Label() string {
	return n.label
}

// SetDisplay replaces the display sink. Must be called before Start.
func (n *MeshNode) SetDisplay(fn func(dataType.Message)) {
	n.display = fn
}

// Say enqueues a locally originated chat message. dst is empty for
// broadcast or a peer label for addressed delivery. Safe to call from any
// goroutine; processing happens on the Run loop.
func (n *MeshNode) Say(body, dst string) {
	select {
	case n.outbound <- localSend{body: body, dst: dst}:
	case <-n.quit:
	}
}

// RequestStop asks the Run loop to shut down. Idempotent.
func (n *MeshNode) RequestStop() {
	n.quitOnce.Do(func() { close(n.quit) })
}

// handleDatagram runs the inbound operation: decode, mark, display
// decision, forward decision. Malformed or duplicate datagrams are dropped
// without side effects; nothing here may take the node down.
func (n *MeshNode) handleDatagram(data []byte, sender *net.UDPAddr) {
	senderLabel := sender.String()

	if !n.rate.Allow(senderLabel, n.cfg.RateLimitPerSec) {
		n.logger.Warn("rate limit exceeded, dropping datagram",
			zap.String("sender", senderLabel))
		return
	}

	msg, err := dataType.DecodeMessage(data)
	if err != nil {
		n.logger.Warn("dropping malformed datagram",
			zap.String("sender", senderLabel), zap.Error(err))
		return
	}

	// Loop prevention. Must happen before any display or forward side
	// effect; concurrent duplicates race on this single check-and-insert.
	if !n.seen.Mark(msg.ID, time.Now()) {
		return
	}

	if n.shouldDisplay(msg) {
		n.display(msg)
	}

	// TTL is checked on the received value, before decrement. Exhausted
	// messages were still marked and possibly displayed above.
	if msg.TTL <= 0 {
		return
	}
	n.forward(msg.Forwarded(), senderLabel)
}

// shouldDisplay applies the addressing rules: broadcasts show everywhere,
// addressed messages only at the node whose label matches dst. Pings are
// never shown.
func (n *MeshNode) shouldDisplay(msg dataType.Message) bool {
	if msg.Kind == dataType.KindPing {
		return false
	}
	return msg.IsBroadcast() || msg.Dst == n.label
}

// forward fans the message out to every peer except the one it just came
// from. Skipping the sender is an optimization against the most likely
// immediate duplicate; the seen-set remains the loop-breaking guarantee.
func (n *MeshNode) forward(msg dataType.Message, senderLabel string) {
	data, err := msg.Encode()
	if err != nil {
		n.logger.Error("failed to encode forwarded message", zap.Error(err))
		return
	}
	for _, p := range n.peers {
		if p.addr.String() == senderLabel {
			continue
		}
		n.sendTo(data, p)
	}
}

// sendLocal runs the outbound operation for one line of user input. The
// fresh message is marked as seen first so copies flooded back by peers are
// dropped instead of re-displayed.
func (n *MeshNode) sendLocal(body, dst string) {
	msg := dataType.NewChat(n.label, dst, body, n.cfg.TTLDefault)
	n.seen.Mark(msg.ID, time.Now())

	// Local echo.
	if n.shouldDisplay(msg) {
		n.display(msg)
	}

	data, err := msg.Encode()
	if err != nil {
		n.logger.Error("failed to encode message", zap.Error(err))
		return
	}
	for _, p := range n.peers {
		n.sendTo(data, p)
	}
}

// heartbeat broadcasts a ping to every peer.
func (n *MeshNode) heartbeat() {
	if len(n.peers) == 0 {
		return
	}
	msg := dataType.NewPing(n.label, pingTTL)
	n.seen.Mark(msg.ID, time.Now())
	data, err := msg.Encode()
	if err != nil {
		n.logger.Error("failed to encode ping", zap.Error(err))
		return
	}
	for _, p := range n.peers {
		n.sendTo(data, p)
	}
}

// sendTo writes one datagram to one peer. Send failures are isolated per
// peer: log and move on, UDP gives no delivery promise anyway.
func (n *MeshNode) sendTo(data []byte, p peer) {
	if _, err := n.conn.WriteToUDP(data, p.addr); err != nil {
		n.logger.Warn("failed to send to peer",
			zap.String("peer", p.label), zap.Error(err))
	}
}

// sweep ages out seen entries older than the retention window and collects
// idle rate windows.
func (n *MeshNode) sweep() {
	retention := time.Duration(n.cfg.SeenTTLSec) * time.Second
	if removed := n.seen.Sweep(time.Now(), retention); removed > 0 {
		n.logger.Info("swept seen message ids", zap.Int("removed", removed))
	}
	n.rate.GC()
}
