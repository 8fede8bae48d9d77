package server

import (
	"context"
	"errors"
	"fmt"
	"mesh_relay/internal/config"
	"mesh_relay/internal/utils"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
)

const datagramBufferSize = 64 * 1024 // single UDP datagram upper bound

// Start binds the UDP endpoint and launches the socket reader. The reader
// only moves raw datagrams onto the node's channel; all processing stays on
// the Run loop.
func (n *MeshNode) Start() error {
	udpAddr, err := net.ResolveUDPAddr("udp", n.label)
	if err != nil {
		return fmt.Errorf("invalid bind address %q: %w", n.label, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", n.label, err)
	}
	n.conn = conn

	// Port 0 means the OS picked one; the label must reflect reality since
	// peers address this node by it.
	n.label = conn.LocalAddr().String()

	n.logger.Info("node started",
		zap.String("label", n.label),
		zap.String("node", n.cfg.NodeName),
		zap.Strings("peers", n.cfg.Peers))

	go n.readLoop()
	return nil
}

func (n *MeshNode) readLoop() {
	buf := make([]byte, datagramBufferSize)
	for {
		size, sender, err := n.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			n.logger.Warn("error reading datagram", zap.Error(err))
			continue
		}
		data := make([]byte, size)
		copy(data, buf[:size])

		select {
		case n.datagrams <- inboundDatagram{data: data, sender: sender}:
		default:
			// Channel full. UDP promises nothing, dropping is fine.
		}
	}
}

// Run is the single event loop multiplexing the three input sources:
// inbound datagrams, locally originated messages and the periodic sweep
// (plus the optional heartbeat). Because everything is serialized here, the
// mark+forward sequence is one unit per message. Returns after ctx is
// cancelled or RequestStop is called.
func (n *MeshNode) Run(ctx context.Context) error {
	sweepTicker := time.NewTicker(time.Duration(n.cfg.SweepIntervalSec) * time.Second)
	defer sweepTicker.Stop()

	var heartbeatC <-chan time.Time
	if n.cfg.HeartbeatIntervalSec > 0 {
		heartbeatTicker := time.NewTicker(time.Duration(n.cfg.HeartbeatIntervalSec) * time.Second)
		defer heartbeatTicker.Stop()
		heartbeatC = heartbeatTicker.C
	}

	defer func() {
		if err := n.conn.Close(); err != nil {
			n.logger.Warn("error closing socket", zap.Error(err))
		}
		n.logger.Info("node stopped", zap.String("label", n.label))
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.quit:
			return nil
		case d := <-n.datagrams:
			n.handleDatagram(d.data, d.sender)
		case s := <-n.outbound:
			n.sendLocal(s.body, s.dst)
		case <-sweepTicker.C:
			n.sweep()
		case <-heartbeatC:
			n.heartbeat()
		}
	}
}

// StartNode wires up a full node process: logger, relay core, console input
// on stdin, and the event loop. Blocks until shutdown.
func StartNode(ctx context.Context, cfg *config.MainConfig) error {
	logger := utils.NewNodeLogger(cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	node, err := NewMeshNode(cfg, logger)
	if err != nil {
		return err
	}
	if err := node.Start(); err != nil {
		return err
	}

	go RunConsole(node, os.Stdin)

	return node.Run(ctx)
}
