// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// sentText records one outbound mesh text send.
type sentText struct {
	Channel uint32
	Text    string
}

// sentAck records one outbound mesh acknowledgment.
type sentAck struct {
	To       NodeID
	Channel  uint32
	PacketID uint32
}

// fakeMesh implements MeshTransport with recorded sends so tests can
// assert on the Router's outbound behavior.
type fakeMesh struct {
	events chan MeshEvent

	mu      sync.Mutex
	texts   []sentText
	acks    []sentAck
	sendErr error
	err     error
}

func newFakeMesh() *fakeMesh {
	return &fakeMesh{events: make(chan MeshEvent, 16)}
}

func (f *fakeMesh) Events() <-chan MeshEvent { return f.events }

func (f *fakeMesh) SendText(_ context.Context, channel uint32, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.texts = append(f.texts, sentText{Channel: channel, Text: text})
	return nil
}

func (f *fakeMesh) SendAck(_ context.Context, to NodeID, channel uint32, packetID uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.acks = append(f.acks, sentAck{To: to, Channel: channel, PacketID: packetID})
	return nil
}

func (f *fakeMesh) MaxTextLen() int { return 237 }
func (f *fakeMesh) Err() error      { return f.err }
func (f *fakeMesh) Close() error    { return nil }

func (f *fakeMesh) failSends(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeMesh) sentTexts() []sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentText(nil), f.texts...)
}

func (f *fakeMesh) sentAcks() []sentAck {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentAck(nil), f.acks...)
}

// fakeIRC implements IRCSession with recorded sends.
type fakeIRC struct {
	events chan IRCEvent

	mu      sync.Mutex
	sent    []string
	sendErr error
	err     error
	maxText int
}

func newFakeIRC() *fakeIRC {
	return &fakeIRC{events: make(chan IRCEvent, 16), maxText: 400}
}

func (f *fakeIRC) Events() <-chan IRCEvent { return f.events }

func (f *fakeIRC) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeIRC) MaxTextLen() int { return f.maxText }
func (f *fakeIRC) Err() error      { return f.err }
func (f *fakeIRC) Close() error    { return nil }

func (f *fakeIRC) failSends(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeIRC) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// testRouter wires a Router to fresh fakes and starts Run on a background
// goroutine. The returned stop function cancels Run and waits for it.
func testRouter(t *testing.T, cfg *Config) (*Router, *fakeMesh, *fakeIRC, func() error) {
	t.Helper()
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	mesh := newFakeMesh()
	irc := newFakeIRC()
	router := NewRouter(cfg, mesh, irc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- router.Run(ctx)
	}()
	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("router did not stop")
			return nil
		}
	}
	return router, mesh, irc, stop
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

var errSendBoom = errors.New("send failed")
