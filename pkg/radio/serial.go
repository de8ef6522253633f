// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package radio

import (
	"bytes"
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	pb "github.com/meshnet-gophers/meshtastic-go/meshtastic"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
	"google.golang.org/protobuf/proto"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
)

const serialBaudRate = 115200

// Serial is the mesh transport variant that owns a framed serial link to
// a locally attached radio. Connection loss is a terminal fault; the
// transport does not reconnect.
type Serial struct {
	port   serial.Port
	reader *frameReader
	events chan bridge.MeshEvent
	log    zerolog.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error

	myNodeNum uint32
}

var _ bridge.MeshTransport = (*Serial)(nil)

// OpenSerial opens the radio at path, wakes it, and requests its config
// so the device starts streaming packets. The returned transport's event
// stream is live immediately.
func OpenSerial(path string, log zerolog.Logger) (*Serial, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: serialBaudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	// Meshtastic boards expect DTR/RTS asserted; some reset without them.
	if err := port.SetDTR(true); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set DTR on %s: %w", path, err)
	}
	if err := port.SetRTS(true); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set RTS on %s: %w", path, err)
	}

	s := &Serial{
		port:   port,
		reader: newFrameReader(port),
		events: make(chan bridge.MeshEvent, 64),
		done:   make(chan struct{}),
		log:    log.With().Str("component", "serial").Str("port", path).Logger(),
	}

	// Wake the device out of any interactive console mode, then ask for
	// its config. The config stream ends with our id echoed back, which
	// marks the session ready.
	if _, err := port.Write(bytes.Repeat([]byte{frameStart2}, 32)); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to wake device: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	configID := rand.Uint32()
	if err := s.writeToRadio(&pb.ToRadio{
		PayloadVariant: &pb.ToRadio_WantConfigId{WantConfigId: configID},
	}); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to request config: %w", err)
	}
	s.log.Info().Msg("Connected to Meshtastic device")

	go s.readLoop()
	return s, nil
}

// Events implements bridge.MeshTransport.
func (s *Serial) Events() <-chan bridge.MeshEvent {
	return s.events
}

// SendText implements bridge.MeshTransport.
func (s *Serial) SendText(ctx context.Context, channel uint32, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Debug().Uint32("channel", channel).Msg("Sending text to radio")
	return s.writeToRadio(&pb.ToRadio{
		PayloadVariant: &pb.ToRadio_Packet{Packet: newTextPacket(channel, text)},
	})
}

// SendAck implements bridge.MeshTransport.
func (s *Serial) SendAck(ctx context.Context, to bridge.NodeID, channel uint32, packetID uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Debug().
		Str("node_id", to.String()).
		Uint32("packet_id", packetID).
		Msg("Sending ack to radio")
	return s.writeToRadio(&pb.ToRadio{
		PayloadVariant: &pb.ToRadio_Packet{Packet: newAckPacket(to, channel, packetID)},
	})
}

// MaxTextLen implements bridge.MeshTransport.
func (s *Serial) MaxTextLen() int {
	return maxTextLen()
}

// Err implements bridge.MeshTransport.
func (s *Serial) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close releases the serial port. The event stream closes shortly after.
func (s *Serial) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.port.Close()
}

func (s *Serial) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *Serial) writeToRadio(msg *pb.ToRadio) error {
	payload, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal ToRadio: %w", err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := writeFrame(s.port, payload); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

func (s *Serial) readLoop() {
	defer close(s.events)
	for {
		raw, err := s.reader.next()
		if err != nil {
			select {
			case <-s.done:
				// Closed locally; not a fault.
			default:
				s.setErr(fmt.Errorf("serial read failed: %w", err))
				s.log.Error().Err(err).Msg("Serial connection lost")
			}
			return
		}
		var fromRadio pb.FromRadio
		if err := proto.Unmarshal(raw, &fromRadio); err != nil {
			// Only this frame is lost; the stream continues.
			s.log.Debug().Err(err).Int("len", len(raw)).Msg("Dropping undecodable frame")
			continue
		}
		if !s.handleFromRadio(&fromRadio) {
			return
		}
	}
}

// handleFromRadio dispatches one decoded radio frame. It returns false
// when the transport is shutting down.
func (s *Serial) handleFromRadio(fromRadio *pb.FromRadio) bool {
	if packet := fromRadio.GetPacket(); packet != nil {
		evt, ok := eventFromMeshPacket(packet)
		if !ok {
			return true
		}
		return s.deliver(evt)
	}
	if info := fromRadio.GetNodeInfo(); info != nil {
		evt, ok := eventFromNodeInfo(info)
		if !ok {
			return true
		}
		return s.deliver(evt)
	}
	if myInfo := fromRadio.GetMyInfo(); myInfo != nil {
		s.myNodeNum = myInfo.GetMyNodeNum()
		s.log.Info().
			Str("node_id", bridge.NodeID(s.myNodeNum).String()).
			Msg("Connected to Meshtastic node")
		return true
	}
	if id := fromRadio.GetConfigCompleteId(); id != 0 {
		s.log.Info().Msg("Radio config complete")
		return true
	}
	return true
}

func (s *Serial) deliver(evt bridge.MeshEvent) bool {
	select {
	case s.events <- evt:
		return true
	case <-s.done:
		return false
	}
}
