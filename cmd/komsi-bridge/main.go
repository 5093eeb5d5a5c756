package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/shaunagostinho/komsi-bridge/internal/link"
	"github.com/shaunagostinho/komsi-bridge/internal/logging"
	"github.com/shaunagostinho/komsi-bridge/internal/server"
	"github.com/shaunagostinho/komsi-bridge/internal/source"
	"github.com/shaunagostinho/komsi-bridge/web"
)

func main() {
	configPath := flag.String("config", "/etc/komsi-bridge/config.yaml", "Path to config file")
	demo := flag.Bool("demo", false, "Run with the simulated bus instead of pushed state")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8080)")
	serialPort := flag.String("serial", "", "Enable the serial receiver on this port")
	dump := flag.Bool("dump", false, "Print every snapshot to stdout")
	flag.Parse()

	// Bootstrap logger until the configured one exists
	boot := logging.New(logging.Config{Level: "info"}, os.Stderr)
	cfg := server.LoadConfig(*configPath, boot)

	if *demo {
		cfg.Source.Type = "demo"
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *serialPort != "" {
		cfg.Serial.Enabled = true
		cfg.Serial.PortPath = *serialPort
	}
	if *dump {
		cfg.Bridge.Dump = true
	}

	log := logging.New(cfg.Logging, os.Stderr)
	log.Info().Str("source", cfg.Source.Type).Msg("komsi-bridge starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	var src source.Provider
	switch cfg.Source.Type {
	case "push":
		src = source.NewPushProvider()
	default:
		src = source.NewDemoProvider()
	}
	if err := src.Connect(); err != nil {
		log.Fatal().Err(err).Str("source", src.Name()).Msg("source connect failed")
	}
	defer src.Close()

	// Receivers connect in the background; the bridge starts regardless and
	// sends a full batch once each one is up.
	var sinks []link.Sink
	if cfg.Serial.Enabled {
		ser := link.NewSerial(cfg.Serial.SerialConfig, logging.Component(log, "serial"))
		sinks = append(sinks, ser)
		go supervise(ctx, logging.Component(log, "serial"), ser, 10)
		defer ser.Close()
	}
	if cfg.MQTT.Enabled {
		mq := link.NewMQTT(cfg.MQTT.MQTTConfig, logging.Component(log, "mqtt"))
		sinks = append(sinks, mq)
		go connectWithRetry(ctx, logging.Component(log, "mqtt"), mq, 10)
		defer mq.Close()
	}
	if len(sinks) == 0 {
		log.Warn().Msg("no receivers enabled, batches are only shown in the web UI")
	}

	srv := server.New(cfg, src, sinks, web.FS, log, os.Stdout)
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited")
	}
}

type connectable interface {
	Connect() error
	IsConnected() bool
}

// supervise keeps c connected, reconnecting whenever it drops.
func supervise(ctx context.Context, log zerolog.Logger, c connectable, maxAttempts int) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if !c.IsConnected() {
			connectWithRetry(ctx, log, c, maxAttempts)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// connectWithRetry attempts to connect with exponential backoff.
// Starts at 1s, doubles each attempt up to 60s, retries up to maxAttempts
// then continues at max interval indefinitely.
func connectWithRetry(ctx context.Context, log zerolog.Logger, c connectable, maxAttempts int) {
	delay := 1 * time.Second
	maxDelay := 60 * time.Second
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.Connect(); err != nil {
			attempt++
			var ev *zerolog.Event
			if attempt <= maxAttempts {
				ev = log.Warn()
			} else {
				ev = log.Debug()
			}
			ev.Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("connect failed")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		} else {
			log.Info().Int("attempt", attempt+1).Msg("connected")
			return
		}
	}
}
