// Copyright 2025-2026 Aiku AI

package radio

import (
	"strings"
	"unicode/utf8"

	pb "github.com/meshnet-gophers/meshtastic-go/meshtastic"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
)

// eventFromMeshPacket converts a decoded MeshPacket into a bridge text
// event. Encrypted packets and non-text ports yield ok=false; they are
// regular mesh traffic, not decode failures.
func eventFromMeshPacket(p *pb.MeshPacket) (bridge.MeshEvent, bool) {
	data := p.GetDecoded()
	if data == nil {
		return bridge.MeshEvent{}, false
	}
	if data.GetPortnum() != pb.PortNum_TEXT_MESSAGE_APP {
		return bridge.MeshEvent{}, false
	}
	payload := data.GetPayload()
	if !utf8.Valid(payload) {
		return bridge.MeshEvent{}, false
	}
	return bridge.MeshEvent{
		Type:     bridge.MeshEventText,
		From:     bridge.NodeID(p.GetFrom()),
		Channel:  p.GetChannel(),
		Text:     string(payload),
		WantAck:  p.GetWantAck(),
		PacketID: p.GetId(),
	}, true
}

// eventFromNodeInfo converts a node identity advertisement. Nodes without
// a user record or short name yield ok=false.
func eventFromNodeInfo(info *pb.NodeInfo) (bridge.MeshEvent, bool) {
	user := info.GetUser()
	if user == nil || user.GetShortName() == "" {
		return bridge.MeshEvent{}, false
	}
	return bridge.MeshEvent{
		Type:      bridge.MeshEventNodeInfo,
		From:      bridge.NodeID(info.GetNum()),
		ShortName: user.GetShortName(),
	}, true
}

// isOwnEcho reports whether a mesh text message is one of the bridge's
// own sends looped back, recognizable by the IRC origin prefix. The MQTT
// gateway reflects the bridge's publishes on the subscribed topic, so the
// MQTT variant filters these before they reach the Router.
func isOwnEcho(text string) bool {
	return strings.HasPrefix(text, "[IRC-")
}
