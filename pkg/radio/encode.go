// Copyright 2025-2026 Aiku AI

package radio

import (
	pb "github.com/meshnet-gophers/meshtastic-go/meshtastic"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
)

// broadcastAddr is the mesh-wide broadcast destination.
const broadcastAddr = 0xFFFFFFFF

// maxTextLen is the largest text payload one mesh data frame can carry.
func maxTextLen() int {
	return int(pb.Constants_DATA_PAYLOAD_LEN)
}

// newTextPacket builds a broadcast text message for the given mesh
// channel. From and Id are left zero for the device or gateway to fill.
func newTextPacket(channel uint32, text string) *pb.MeshPacket {
	return &pb.MeshPacket{
		To:       broadcastAddr,
		Channel:  channel,
		Priority: pb.MeshPacket_DEFAULT,
		PayloadVariant: &pb.MeshPacket_Decoded{
			Decoded: &pb.Data{
				Portnum: pb.PortNum_TEXT_MESSAGE_APP,
				Payload: []byte(text),
			},
		},
	}
}

// newAckPacket builds a protocol-level delivery acknowledgment for the
// packet identified by packetID, addressed back to its sender on the same
// channel. It is a routing payload, not a text reply, and never requests
// an ack itself.
func newAckPacket(to bridge.NodeID, channel uint32, packetID uint32) *pb.MeshPacket {
	return &pb.MeshPacket{
		To:       uint32(to),
		Channel:  channel,
		Priority: pb.MeshPacket_ACK,
		WantAck:  false,
		PayloadVariant: &pb.MeshPacket_Decoded{
			Decoded: &pb.Data{
				Portnum:   pb.PortNum_ROUTING_APP,
				RequestId: packetID,
			},
		},
	}
}
