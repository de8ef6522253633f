// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ircx maintains the bridge's single IRC connection and surfaces
// plain channel messages as bridge events.
package ircx

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	stdlog "log"
	"sync"
	"time"

	"github.com/rs/zerolog"
	irc "github.com/thoj/go-ircevent"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
)

// ircLineBudget is the classic 512-byte IRC line limit minus CRLF.
const ircLineBudget = 510

// ErrNotConnected is returned by Send when the connection is down.
var ErrNotConnected = errors.New("irc connection is down")

// Session is one connection to an IRC server, joined to exactly one
// channel. Only channel PRIVMSGs from other users surface as events;
// notices, joins and the bridge's own messages never do. Loss of the
// connection is a terminal fault; the session does not reconnect.
type Session struct {
	conn    *irc.Connection
	channel string
	// incoming buffers callback deliveries; forward alone moves them to
	// events and closes the stream. The PRIVMSG callback must never touch
	// events directly: the library's read loop can still dispatch after
	// the session has faulted.
	incoming chan bridge.IRCEvent
	events   chan bridge.IRCEvent
	log      zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

var _ bridge.IRCSession = (*Session)(nil)

// Connect dials the server, identifies, and joins the configured channel.
func Connect(cfg *bridge.IRCConfig, log zerolog.Logger) (*Session, error) {
	username := cfg.Username
	if username == "" {
		username = cfg.Nickname
	}

	conn := irc.IRC(cfg.Nickname, username)
	conn.UseTLS = cfg.UseTLS
	if cfg.UseTLS {
		conn.TLSConfig = &tls.Config{ServerName: cfg.Server}
	}
	if cfg.Password != "" {
		conn.Password = cfg.Password
	}
	conn.Timeout = 30 * time.Second
	conn.QuitMessage = "bridge shutting down"

	s := &Session{
		conn:     conn,
		channel:  cfg.Channel,
		incoming: make(chan bridge.IRCEvent, 64),
		events:   make(chan bridge.IRCEvent, 64),
		done:     make(chan struct{}),
		log:      log.With().Str("component", "irc").Str("server", cfg.Server).Logger(),
	}
	conn.Log = stdlog.New(s.log, "", 0)

	conn.AddCallback("001", func(*irc.Event) {
		s.log.Info().Str("channel", cfg.Channel).Msg("Connected, joining channel")
		conn.Join(cfg.Channel)
	})
	conn.AddCallback("366", func(*irc.Event) {
		s.log.Info().Str("channel", cfg.Channel).Msg("Joined channel")
	})
	conn.AddCallback("PRIVMSG", s.onPrivmsg)

	addr := fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	s.log.Info().Str("addr", addr).Bool("tls", cfg.UseTLS).Msg("Connecting to IRC server")
	if err := conn.Connect(addr); err != nil {
		return nil, fmt.Errorf("failed to connect to IRC server %s: %w", addr, err)
	}

	go s.watch()
	go s.forward()
	return s, nil
}

// Events implements bridge.IRCSession.
func (s *Session) Events() <-chan bridge.IRCEvent {
	return s.events
}

// Send implements bridge.IRCSession.
func (s *Session) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.conn.Connected() {
		return ErrNotConnected
	}
	s.conn.Privmsg(s.channel, text)
	return nil
}

// MaxTextLen implements bridge.IRCSession. It accounts for the PRIVMSG
// command and channel name sharing the line budget with the message.
func (s *Session) MaxTextLen() int {
	return ircLineBudget - len("PRIVMSG ") - len(s.channel) - len(" :")
}

// Err implements bridge.IRCSession.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close quits the server and disconnects.
func (s *Session) Close() error {
	s.stop()
	s.conn.Quit()
	return nil
}

func (s *Session) stop() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// watch turns a connection error into a terminal stop. The underlying
// library can reconnect on its own, but only inside Loop, which the
// session deliberately never calls: reconnection policy belongs to the
// process orchestrator.
func (s *Session) watch() {
	select {
	case err := <-s.conn.ErrorChan():
		s.errMu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.errMu.Unlock()
		s.log.Error().Err(err).Msg("IRC connection lost")
		s.conn.Disconnect()
		s.stop()
	case <-s.done:
	}
}

// forward owns the event channel: it moves events from the PRIVMSG
// callback to the Router and closes the stream exactly once on fault or
// shutdown.
func (s *Session) forward() {
	defer close(s.events)
	for {
		select {
		case evt := <-s.incoming:
			select {
			case s.events <- evt:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) onPrivmsg(e *irc.Event) {
	target := ""
	if len(e.Arguments) > 0 {
		target = e.Arguments[0]
	}
	if target != s.channel {
		return
	}
	// Echo prevention: never surface our own messages.
	if e.Nick == s.conn.GetNick() {
		return
	}
	evt := bridge.IRCEvent{Nick: e.Nick, Text: e.Message()}
	select {
	case s.incoming <- evt:
	case <-s.done:
	}
}
