// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package radio

import (
	"testing"

	pb "github.com/meshnet-gophers/meshtastic-go/meshtastic"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
)

func textPacket(from, channel uint32, text string, wantAck bool, id uint32) *pb.MeshPacket {
	return &pb.MeshPacket{
		From:    from,
		Channel: channel,
		Id:      id,
		WantAck: wantAck,
		PayloadVariant: &pb.MeshPacket_Decoded{
			Decoded: &pb.Data{
				Portnum: pb.PortNum_TEXT_MESSAGE_APP,
				Payload: []byte(text),
			},
		},
	}
}

func TestEventFromMeshPacketText(t *testing.T) {
	evt, ok := eventFromMeshPacket(textPacket(0x1234, 2, "hello", true, 77))
	if !ok {
		t.Fatal("eventFromMeshPacket: expected ok")
	}
	if evt.Type != bridge.MeshEventText {
		t.Errorf("Type: got %v, want MeshEventText", evt.Type)
	}
	if evt.From != 0x1234 {
		t.Errorf("From: got %08x, want 00001234", uint32(evt.From))
	}
	if evt.Channel != 2 {
		t.Errorf("Channel: got %d, want 2", evt.Channel)
	}
	if evt.Text != "hello" {
		t.Errorf("Text: got %q, want %q", evt.Text, "hello")
	}
	if !evt.WantAck {
		t.Error("WantAck: got false, want true")
	}
	if evt.PacketID != 77 {
		t.Errorf("PacketID: got %d, want 77", evt.PacketID)
	}
}

func TestEventFromMeshPacketEmptyTextStillDecodes(t *testing.T) {
	evt, ok := eventFromMeshPacket(textPacket(1, 0, "", false, 1))
	if !ok {
		t.Fatal("eventFromMeshPacket: empty text must still decode")
	}
	if evt.Text != "" {
		t.Errorf("Text: got %q, want empty", evt.Text)
	}
}

func TestEventFromMeshPacketSkipsEncrypted(t *testing.T) {
	packet := &pb.MeshPacket{
		From: 1,
		PayloadVariant: &pb.MeshPacket_Encrypted{
			Encrypted: []byte{0xDE, 0xAD},
		},
	}
	if _, ok := eventFromMeshPacket(packet); ok {
		t.Error("eventFromMeshPacket: encrypted packet must not decode")
	}
}

func TestEventFromMeshPacketSkipsNonTextPorts(t *testing.T) {
	packet := &pb.MeshPacket{
		From: 1,
		PayloadVariant: &pb.MeshPacket_Decoded{
			Decoded: &pb.Data{
				Portnum: pb.PortNum_POSITION_APP,
				Payload: []byte{0x01},
			},
		},
	}
	if _, ok := eventFromMeshPacket(packet); ok {
		t.Error("eventFromMeshPacket: position packet must not decode")
	}
}

func TestEventFromMeshPacketSkipsInvalidUTF8(t *testing.T) {
	packet := &pb.MeshPacket{
		From: 1,
		PayloadVariant: &pb.MeshPacket_Decoded{
			Decoded: &pb.Data{
				Portnum: pb.PortNum_TEXT_MESSAGE_APP,
				Payload: []byte{0xFF, 0xFE},
			},
		},
	}
	if _, ok := eventFromMeshPacket(packet); ok {
		t.Error("eventFromMeshPacket: invalid UTF-8 must not decode")
	}
}

func TestEventFromNodeInfo(t *testing.T) {
	evt, ok := eventFromNodeInfo(&pb.NodeInfo{
		Num:  0xABCD,
		User: &pb.User{ShortName: "ALCE", LongName: "Alice's node"},
	})
	if !ok {
		t.Fatal("eventFromNodeInfo: expected ok")
	}
	if evt.Type != bridge.MeshEventNodeInfo {
		t.Errorf("Type: got %v, want MeshEventNodeInfo", evt.Type)
	}
	if evt.From != 0xABCD {
		t.Errorf("From: got %08x, want 0000abcd", uint32(evt.From))
	}
	if evt.ShortName != "ALCE" {
		t.Errorf("ShortName: got %q, want %q", evt.ShortName, "ALCE")
	}
}

func TestEventFromNodeInfoSkipsAnonymousNodes(t *testing.T) {
	if _, ok := eventFromNodeInfo(&pb.NodeInfo{Num: 1}); ok {
		t.Error("eventFromNodeInfo: node without user must not decode")
	}
	if _, ok := eventFromNodeInfo(&pb.NodeInfo{Num: 1, User: &pb.User{}}); ok {
		t.Error("eventFromNodeInfo: empty short name must not decode")
	}
}

func TestIsOwnEcho(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"[IRC-bob] hi", true},
		{"[IRC-] ", true},
		{"[mesh-Alice]: hello", false},
		{"plain text", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isOwnEcho(tt.text); got != tt.want {
			t.Errorf("isOwnEcho(%q): got %v, want %v", tt.text, got, tt.want)
		}
	}
}
