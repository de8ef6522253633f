// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package radio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	pb "github.com/meshnet-gophers/meshtastic-go/meshtastic"
	"github.com/rs/zerolog"
	"go.mau.fi/util/random"
	"google.golang.org/protobuf/proto"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
)

const (
	mqttKeepAlive      = 30 * time.Second
	mqttConnectTimeout = 15 * time.Second
	mqttQoS            = 1

	// envelopeGatewayID identifies the bridge in published envelopes.
	envelopeGatewayID = "irc-bridge"
	envelopeChannelID = "LongFast"
)

// MQTT is the mesh transport variant that subscribes to a Meshtastic
// gateway topic on an MQTT broker. Broker disconnects are a terminal
// fault, the same policy as the serial variant.
type MQTT struct {
	client       mqtt.Client
	topic        string
	publishTopic string
	events       chan bridge.MeshEvent
	incoming     chan bridge.MeshEvent
	log          zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

var _ bridge.MeshTransport = (*MQTT)(nil)

// ConnectMQTT connects to the broker and subscribes to the configured
// topic. The connection attempt is bounded by mqttConnectTimeout.
func ConnectMQTT(cfg *bridge.MQTTConfig, log zerolog.Logger) (*MQTT, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "meshtastic-irc-" + random.String(8)
	}

	m := &MQTT{
		topic:        cfg.Topic,
		publishTopic: publishTopicFor(cfg.Topic),
		events:       make(chan bridge.MeshEvent, 64),
		incoming:     make(chan bridge.MeshEvent),
		done:         make(chan struct{}),
		log: log.With().
			Str("component", "mqtt").
			Str("broker", cfg.Broker).
			Logger(),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(clientID).
		SetKeepAlive(mqttKeepAlive).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(false).
		SetConnectionLostHandler(m.onConnectionLost)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	m.client = mqtt.NewClient(opts)
	if tok := m.client.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", tok.Error())
	}
	if tok := m.client.Subscribe(cfg.Topic, mqttQoS, m.onMessage); tok.Wait() && tok.Error() != nil {
		m.client.Disconnect(250)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", cfg.Topic, tok.Error())
	}
	m.log.Info().Str("topic", cfg.Topic).Msg("Subscribed to MQTT topic")

	go m.forward()
	return m, nil
}

// publishTopicFor strips a trailing subscription wildcard so outbound
// envelopes go to a concrete topic under the subscribed tree.
func publishTopicFor(topic string) string {
	topic = strings.TrimSuffix(topic, "#")
	return strings.TrimSuffix(topic, "/") + "/" + envelopeGatewayID
}

// Events implements bridge.MeshTransport.
func (m *MQTT) Events() <-chan bridge.MeshEvent {
	return m.events
}

// SendText implements bridge.MeshTransport. The packet is wrapped in a
// ServiceEnvelope the way gateway nodes publish mesh traffic.
func (m *MQTT) SendText(ctx context.Context, channel uint32, text string) error {
	return m.publish(ctx, newTextPacket(channel, text))
}

// SendAck implements bridge.MeshTransport.
func (m *MQTT) SendAck(ctx context.Context, to bridge.NodeID, channel uint32, packetID uint32) error {
	return m.publish(ctx, newAckPacket(to, channel, packetID))
}

// MaxTextLen implements bridge.MeshTransport.
func (m *MQTT) MaxTextLen() int {
	return maxTextLen()
}

// Err implements bridge.MeshTransport.
func (m *MQTT) Err() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.err
}

// Close unsubscribes and disconnects from the broker.
func (m *MQTT) Close() error {
	m.stop()
	if m.client.IsConnected() {
		m.client.Unsubscribe(m.topic)
		m.client.Disconnect(250)
	}
	return nil
}

func (m *MQTT) stop() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}

func (m *MQTT) setErr(err error) {
	m.errMu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.errMu.Unlock()
}

func (m *MQTT) onConnectionLost(_ mqtt.Client, err error) {
	m.setErr(fmt.Errorf("mqtt connection lost: %w", err))
	m.log.Error().Err(err).Msg("MQTT connection lost")
	m.stop()
}

// onMessage decodes one gateway envelope into a mesh event. Undecodable
// payloads cost only themselves; the subscription continues.
func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	var envelope pb.ServiceEnvelope
	if err := proto.Unmarshal(msg.Payload(), &envelope); err != nil {
		m.log.Debug().Err(err).Str("topic", msg.Topic()).Msg("Dropping undecodable envelope")
		return
	}
	packet := envelope.GetPacket()
	if packet == nil {
		return
	}
	evt, ok := eventFromMeshPacket(packet)
	if !ok {
		return
	}
	if evt.Type == bridge.MeshEventText && isOwnEcho(evt.Text) {
		// Echo prevention: the gateway reflects our own publishes.
		m.log.Debug().Msg("Ignoring own message echoed by gateway")
		return
	}
	select {
	case m.incoming <- evt:
	case <-m.done:
	}
}

// forward owns the event channel: it moves events from the subscription
// callback to the Router and closes the stream exactly once on fault or
// shutdown.
func (m *MQTT) forward() {
	defer close(m.events)
	for {
		select {
		case evt := <-m.incoming:
			select {
			case m.events <- evt:
			case <-m.done:
				return
			}
		case <-m.done:
			return
		}
	}
}

func (m *MQTT) publish(ctx context.Context, packet *pb.MeshPacket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := proto.Marshal(&pb.ServiceEnvelope{
		Packet:    packet,
		ChannelId: envelopeChannelID,
		GatewayId: envelopeGatewayID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	if tok := m.client.Publish(m.publishTopic, mqttQoS, false, payload); tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("mqtt publish failed: %w", tok.Error())
	}
	return nil
}
