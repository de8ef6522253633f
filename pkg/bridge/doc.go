// Copyright 2025-2026 Aiku AI

// Package bridge relays text messages between a Meshtastic mesh network
// and an IRC channel, in both directions.
//
// # Core Types
//
// [Router] is the orchestrating core. It drains the event streams of one
// [MeshTransport] and one [IRCSession], applies channel filtering and
// prefix formatting, resolves sender names through a [NodeDirectory], and
// drives each transport's outbound path. It owns no transport details.
//
// [MeshTransport] is the contract shared by the two mesh variants, a
// framed serial link to a locally attached radio and an MQTT subscription
// to a remote gateway (both in pkg/radio). [IRCSession] is satisfied by
// pkg/ircx.
//
// [NodeDirectory] maps mesh node identifiers to the short display names
// nodes advertise. It is owned and mutated exclusively by the Router.
//
// # Echo Prevention
//
// Every relayed message carries exactly one of the two fixed prefixes,
// "[mesh-<name>]: " or "[IRC-<nick>] ", and a message is never relayed
// back into the network it came from. The IRC side filters messages from
// the bridge's own nickname; the MQTT mesh variant additionally drops its
// own publishes when the gateway loops them back. These layers must not
// be simplified or removed.
package bridge
