// Copyright 2025-2026 Aiku AI

package bridge

import (
	"context"
	"fmt"
)

// NodeID is the fixed 32-bit identifier the mesh network assigns to a
// radio node.
type NodeID uint32

// String renders the id as 8 hex digits, the same form Meshtastic tools
// use for unnamed nodes.
func (id NodeID) String() string {
	return fmt.Sprintf("%08x", uint32(id))
}

// MeshEventType discriminates the variants of MeshEvent.
type MeshEventType int

const (
	// MeshEventText is a text message received from the mesh.
	MeshEventText MeshEventType = iota
	// MeshEventNodeInfo is a node identity advertisement.
	MeshEventNodeInfo
)

// MeshEvent is one decoded event produced by a mesh transport. The
// meaningful fields depend on Type: text messages carry From, Channel,
// Text, WantAck and PacketID; node-info events carry From and ShortName.
type MeshEvent struct {
	Type MeshEventType

	From     NodeID
	Channel  uint32
	Text     string
	WantAck  bool
	PacketID uint32

	ShortName string
}

// IRCEvent is one plain channel message received from IRC. Server
// notices, joins and other protocol traffic never surface here.
type IRCEvent struct {
	Nick string
	Text string
}

// MeshTransport is the contract both mesh variants satisfy. The Router
// depends only on this interface, never on the variant behind it.
type MeshTransport interface {
	// Events returns the inbound event stream. The channel is closed when
	// the transport hits a terminal fault or is closed; Err reports the
	// fault cause. The stream is not restartable.
	Events() <-chan MeshEvent
	// SendText broadcasts a text message on the given mesh channel.
	SendText(ctx context.Context, channel uint32, text string) error
	// SendAck sends a protocol-level delivery acknowledgment for the
	// packet identified by packetID back to its sender.
	SendAck(ctx context.Context, to NodeID, channel uint32, packetID uint32) error
	// MaxTextLen returns the largest text payload in bytes the transport
	// can carry in one message.
	MaxTextLen() int
	// Err returns the terminal fault that closed the event stream, if any.
	Err() error
	Close() error
}

// IRCSession is the contract the IRC side satisfies.
type IRCSession interface {
	// Events returns the inbound channel-message stream, closed on
	// terminal fault.
	Events() <-chan IRCEvent
	// Send posts a message to the configured IRC channel.
	Send(ctx context.Context, text string) error
	// MaxTextLen returns the largest message in bytes that fits in one
	// IRC line for the configured channel.
	MaxTextLen() int
	Err() error
	Close() error
}
