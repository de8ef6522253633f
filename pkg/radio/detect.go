// Copyright 2025-2026 Aiku AI

package radio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.bug.st/serial/enumerator"
)

// usbID is a USB vendor/product pair, hex-encoded the way the port
// enumerator reports them.
type usbID struct {
	vid, pid string
}

// Known vendor/product pairs for boards Meshtastic firmware ships on.
var meshtasticUSBIDs = []usbID{
	{"239A", "4000"}, // RAK4631 (Adafruit)
	{"239A", "8029"}, // RAK4631 (Adafruit) alternate
	{"303A", "1001"}, // ESP32-S3
	{"10C4", "EA60"}, // CP210x UART bridge (many boards)
	{"0403", "6001"}, // FTDI FT232
	{"0403", "6015"}, // FTDI FT-X series
	{"1A86", "55D4"}, // CH9102 (many boards)
	{"2E8A", "000A"}, // Raspberry Pi Pico
}

// Product-description substrings that indicate Meshtastic hardware.
var meshtasticProductHints = []string{
	"RAK4631",
	"LILYGO",
	"T-Beam",
	"T-Echo",
	"Heltec",
	"Nano G1",
	"Station G1",
	"CP210",
	"CH910",
	"FT232",
	"Meshtastic",
	"WisBlock",
}

// ErrNoDeviceFound is returned when no serial port looks like a
// Meshtastic radio.
var ErrNoDeviceFound = errors.New("no Meshtastic device found")

// DetectPort scans the USB serial ports for a likely Meshtastic radio.
// Ports matching a known vendor/product pair or product hint are tried
// first, then any remaining USB serial port.
func DetectPort(log zerolog.Logger) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}

	var likely, possible []string
	for _, port := range ports {
		if !isPortCandidate(port) {
			continue
		}
		if isLikelyMeshtastic(port) {
			log.Info().
				Str("port", port.Name).
				Str("product", port.Product).
				Msg("Found likely Meshtastic device")
			likely = append(likely, port.Name)
		} else {
			log.Debug().
				Str("port", port.Name).
				Str("product", port.Product).
				Msg("Found possible Meshtastic device")
			possible = append(possible, port.Name)
		}
	}

	if len(likely) > 0 {
		return likely[0], nil
	}
	if len(possible) > 0 {
		return possible[0], nil
	}
	return "", ErrNoDeviceFound
}

// ListPorts returns a description line per serial port, for --list-ports.
func ListPorts() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	lines := make([]string, 0, len(ports))
	for _, port := range ports {
		lines = append(lines, describePort(port))
	}
	return lines, nil
}

func describePort(port *enumerator.PortDetails) string {
	if !port.IsUSB {
		return fmt.Sprintf("%s - not a USB device", port.Name)
	}
	product := port.Product
	if product == "" {
		product = "Unknown"
	}
	return fmt.Sprintf("%s - %s (VID:%s PID:%s)", port.Name, product, port.VID, port.PID)
}

func isPortCandidate(port *enumerator.PortDetails) bool {
	if strings.Contains(port.Name, "Bluetooth") {
		return false
	}
	return port.IsUSB
}

func isLikelyMeshtastic(port *enumerator.PortDetails) bool {
	for _, id := range meshtasticUSBIDs {
		if strings.EqualFold(port.VID, id.vid) && strings.EqualFold(port.PID, id.pid) {
			return true
		}
	}
	product := strings.ToLower(port.Product)
	for _, hint := range meshtasticProductHints {
		if strings.Contains(product, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}
