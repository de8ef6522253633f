// Copyright 2025-2026 Aiku AI

package bridge

import "unicode/utf8"

// FormatMeshToIRC builds the IRC payload for a mesh text message. The
// prefix marks the message's origin so IRC users can tell bridged traffic
// apart, and the MQTT mesh variant relies on the counterpart prefix for
// echo prevention.
func FormatMeshToIRC(name, text string) string {
	return "[mesh-" + name + "]: " + text
}

// FormatIRCToMesh builds the mesh payload for an IRC channel message.
func FormatIRCToMesh(nick, text string) string {
	return "[IRC-" + nick + "] " + text
}

// TruncateBytes trims s to at most max bytes without splitting a UTF-8
// sequence. Mesh frames and IRC lines are both byte-budgeted, so relayed
// messages are cut to fit rather than refused.
func TruncateBytes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
