// Copyright 2025-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command meshtastic-irc bridges text messages between a Meshtastic mesh
// network and an IRC channel, in both directions. The mesh side talks
// either to a locally attached radio over serial or to a remote gateway
// over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/meshtastic-irc/pkg/bridge"
	"github.com/aiku/meshtastic-irc/pkg/ircx"
	"github.com/aiku/meshtastic-irc/pkg/radio"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath  = flag.StringP("config", "c", "config.yaml", "Configuration file path")
	ircServer   = flag.String("irc-server", "", "IRC server address")
	ircPort     = flag.Uint16("irc-port", 0, "IRC server port")
	ircChannel  = flag.String("irc-channel", "", "IRC channel to join")
	ircNick     = flag.String("irc-nick", "", "IRC nickname")
	ircTLS      = flag.Bool("irc-tls", true, "Use TLS for the IRC connection")
	serialPort  = flag.String("serial-port", "", "Meshtastic serial port")
	meshChannel = flag.Uint32("meshtastic-channel", 0, "Meshtastic channel number")
	mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker address")
	mqttPort    = flag.Uint16("mqtt-port", 1883, "MQTT broker port")
	mqttTopic   = flag.String("mqtt-topic", "msh/US/2/e/#", "MQTT topic")
	mqttUser    = flag.String("mqtt-username", "", "MQTT username")
	mqttPass    = flag.String("mqtt-password", "", "MQTT password")
	logLevel    = flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	listPorts   = flag.Bool("list-ports", false, "List available serial ports and exit")
	version     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("meshtastic-irc %s (%s, built %s)\n", Tag, Commit, BuildTime)
		return
	}

	log := setupLogging(*logLevel)

	if *listPorts {
		lines, err := radio.ListPorts()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list serial ports")
		}
		fmt.Println("Available serial ports:")
		if len(lines) == 0 {
			fmt.Println("  No serial ports found")
		}
		for _, line := range lines {
			fmt.Println("  " + line)
		}
		return
	}

	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	applyFlagOverrides(&cfg)

	// Auto-detect a radio when neither transport is configured.
	if cfg.Meshtastic.SerialPort == "" && cfg.Meshtastic.MQTT == nil {
		port, err := radio.DetectPort(log)
		if err != nil {
			log.Fatal().Err(err).
				Msg("No transport configured and auto-detection failed; use --serial-port or --mqtt-broker")
		}
		log.Info().Str("port", port).Msg("Auto-detected serial port")
		cfg.Meshtastic.SerialPort = port
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("irc", fmt.Sprintf("%s:%d %s as %s", cfg.IRC.Server, cfg.IRC.Port, cfg.IRC.Channel, cfg.IRC.Nickname)).
		Uint32("mesh_channel", cfg.Meshtastic.Channel).
		Msg("Starting Meshtastic-IRC bridge")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mesh, err := openMeshTransport(&cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open mesh transport")
	}
	defer mesh.Close()

	session, err := ircx.Connect(&cfg.IRC, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to IRC")
	}
	defer session.Close()

	router := bridge.NewRouter(&cfg, mesh, session, log)
	err = router.Run(ctx)
	if ctx.Err() != nil {
		log.Info().Msg("Shutting down")
		return
	}
	// A transport faulted. Reconnection policy is left to the process
	// supervisor, so exit non-zero and let it restart us.
	log.Error().Err(err).Stringer("side", router.FaultSide()).Msg("Bridge terminated")
	mesh.Close()
	session.Close()
	os.Exit(1)
}

func setupLogging(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}
	log := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	exzerolog.SetupDefaults(&log)
	return log
}

func applyFlagOverrides(cfg *bridge.Config) {
	if *ircServer != "" {
		cfg.IRC.Server = *ircServer
	}
	if *ircPort != 0 {
		cfg.IRC.Port = *ircPort
	}
	if *ircChannel != "" {
		cfg.IRC.Channel = *ircChannel
	}
	if *ircNick != "" {
		cfg.IRC.Nickname = *ircNick
	}
	if flag.CommandLine.Changed("irc-tls") {
		cfg.IRC.UseTLS = *ircTLS
	}
	if *serialPort != "" {
		cfg.Meshtastic.SerialPort = *serialPort
		cfg.Meshtastic.MQTT = nil
	}
	if flag.CommandLine.Changed("meshtastic-channel") {
		cfg.Meshtastic.Channel = *meshChannel
	}
	if *mqttBroker != "" {
		cfg.Meshtastic.MQTT = &bridge.MQTTConfig{
			Broker:   *mqttBroker,
			Port:     *mqttPort,
			Topic:    *mqttTopic,
			Username: *mqttUser,
			Password: *mqttPass,
		}
	}
}

func openMeshTransport(cfg *bridge.Config, log zerolog.Logger) (bridge.MeshTransport, error) {
	if cfg.Meshtastic.MQTT != nil {
		log.Info().
			Str("broker", cfg.Meshtastic.MQTT.Broker).
			Str("topic", cfg.Meshtastic.MQTT.Topic).
			Msg("Using MQTT mesh transport")
		return radio.ConnectMQTT(cfg.Meshtastic.MQTT, log)
	}
	log.Info().Str("port", cfg.Meshtastic.SerialPort).Msg("Using serial mesh transport")
	return radio.OpenSerial(cfg.Meshtastic.SerialPort, log)
}
