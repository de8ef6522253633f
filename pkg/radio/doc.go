// Copyright 2025-2026 Aiku AI

// Package radio provides the two Meshtastic transport variants behind the
// bridge.MeshTransport contract: a framed serial link to a locally
// attached radio ([Serial]) and a subscription to a gateway topic on an
// MQTT broker ([MQTT]). [DetectPort] finds a plugged-in radio when no
// transport is configured explicitly.
package radio
