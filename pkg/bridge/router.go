// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Side identifies which network an event or fault came from.
type Side int

const (
	SideNone Side = iota
	SideMesh
	SideIRC
)

func (s Side) String() string {
	switch s {
	case SideMesh:
		return "mesh"
	case SideIRC:
		return "irc"
	default:
		return "none"
	}
}

// State is the Router's lifecycle state.
type State int

const (
	// StateRunning means both event streams are being drained.
	StateRunning State = iota
	// StateFaulted means one transport's event stream ended.
	StateFaulted
	// StateStopped means the Router has returned from Run.
	StateStopped
)

// ErrStreamEnded is returned by Run (wrapped with the faulted side) when a
// transport's event stream closes without reporting a more specific cause.
var ErrStreamEnded = errors.New("event stream ended")

// Router is the orchestrating core of the bridge. It consumes both
// transports' event streams, applies filtering, formatting and directory
// lookups, and drives each transport's outbound path.
//
// All directory mutations and outbound sends happen on the single
// goroutine running Run, which is the bridge's one serialization point.
type Router struct {
	cfg  *Config
	mesh MeshTransport
	irc  IRCSession
	dir  *NodeDirectory
	log  zerolog.Logger

	mu        sync.Mutex
	state     State
	faultSide Side
}

// NewRouter wires a Router to its two transports. The directory starts
// empty; names are learned from node-info events as they arrive.
func NewRouter(cfg *Config, mesh MeshTransport, irc IRCSession, log zerolog.Logger) *Router {
	return &Router{
		cfg:  cfg,
		mesh: mesh,
		irc:  irc,
		dir:  NewNodeDirectory(),
		log:  log.With().Str("component", "router").Logger(),
	}
}

// State returns the Router's current lifecycle state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// FaultSide returns which transport faulted, or SideNone.
func (r *Router) FaultSide() Side {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.faultSide
}

func (r *Router) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Router) setFault(side Side) {
	r.mu.Lock()
	r.state = StateFaulted
	r.faultSide = side
	r.mu.Unlock()
}

// Run drains both transports until ctx is cancelled or one of the event
// streams ends, whichever comes first. A send failure on either side is
// logged and processing continues; only a closed event stream is terminal.
func (r *Router) Run(ctx context.Context) error {
	defer r.setState(StateStopped)

	meshEvents := r.mesh.Events()
	ircEvents := r.irc.Events()

	r.log.Info().
		Uint32("mesh_channel", r.cfg.Meshtastic.Channel).
		Str("irc_channel", r.cfg.IRC.Channel).
		Msg("Bridge running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-meshEvents:
			if !ok {
				r.setFault(SideMesh)
				return fmt.Errorf("mesh transport: %w", r.streamErr(r.mesh.Err()))
			}
			r.handleMeshEvent(ctx, evt)
		case evt, ok := <-ircEvents:
			if !ok {
				r.setFault(SideIRC)
				return fmt.Errorf("irc session: %w", r.streamErr(r.irc.Err()))
			}
			r.handleIRCEvent(ctx, evt)
		}
	}
}

func (r *Router) streamErr(err error) error {
	if err != nil {
		return err
	}
	return ErrStreamEnded
}

func (r *Router) handleMeshEvent(ctx context.Context, evt MeshEvent) {
	switch evt.Type {
	case MeshEventNodeInfo:
		r.dir.ObserveName(evt.From, evt.ShortName)
		r.log.Debug().
			Str("node_id", evt.From.String()).
			Str("short_name", evt.ShortName).
			Msg("Discovered node")
	case MeshEventText:
		if evt.Channel != r.cfg.Meshtastic.Channel {
			// Not a fault: other channels carry separate conversations.
			r.log.Trace().
				Uint32("channel", evt.Channel).
				Msg("Ignoring message on non-configured channel")
			return
		}
		name := r.dir.Resolve(evt.From)
		payload := TruncateBytes(FormatMeshToIRC(name, evt.Text), r.irc.MaxTextLen())
		r.log.Info().
			Str("node_id", evt.From.String()).
			Str("sender", name).
			Msg("Relaying mesh message to IRC")
		if err := r.irc.Send(ctx, payload); err != nil {
			r.log.Error().Err(err).Msg("Failed to send to IRC")
		}
		if evt.WantAck && evt.PacketID != 0 {
			if err := r.mesh.SendAck(ctx, evt.From, evt.Channel, evt.PacketID); err != nil {
				r.log.Error().Err(err).
					Uint32("packet_id", evt.PacketID).
					Msg("Failed to send mesh ack")
			}
		}
	default:
		r.log.Trace().Int("type", int(evt.Type)).Msg("Unhandled mesh event type")
	}
}

func (r *Router) handleIRCEvent(ctx context.Context, evt IRCEvent) {
	// Echo prevention: the session filters the bridge's own nickname, but
	// the check is repeated here so no transport can loop a message back.
	if evt.Nick == r.cfg.IRC.Nickname {
		r.log.Debug().Msg("Ignoring own IRC message")
		return
	}
	payload := TruncateBytes(FormatIRCToMesh(evt.Nick, evt.Text), r.mesh.MaxTextLen())
	r.log.Info().Str("nick", evt.Nick).Msg("Relaying IRC message to mesh")
	if err := r.mesh.SendText(ctx, r.cfg.Meshtastic.Channel, payload); err != nil {
		r.log.Error().Err(err).Msg("Failed to send to mesh")
	}
}
