// ThingSpeak Listener
//
// Subscribes to a fixed set of ThingSpeak channels over MQTT and prints every
// channel feed update to the console. Connection loss is detected by a
// monitoring loop that reconnects after a fixed backoff.
//
// Optional extras, all off by default:
//   - periodic counter reports to the log and to InfluxDB
//   - a SQLite journal of connection events per session
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nerrad567/thingspeak-listener/internal/channel"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/config"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/influxdb"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/logging"
	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/mqtt"
	"github.com/nerrad567/thingspeak-listener/internal/journal"
	"github.com/nerrad567/thingspeak-listener/internal/reading"
	"github.com/nerrad567/thingspeak-listener/internal/stats"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration and runs the listener until ctx is cancelled.
// Separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting ThingSpeak listener",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, source, err := loadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "source", source)

	sessionID := journal.NewSessionID()
	log = logging.New(cfg.Logging, version).With("session_id", sessionID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	return listen(ctx, cfg, sessionID, log, os.Stdout)
}

// listen wires the listener components and blocks in the monitoring loop.
// Readings and the banner go to out; diagnostics go to log.
func listen(ctx context.Context, cfg *config.Config, sessionID string, log *logging.Logger, out io.Writer) error {
	registry := channel.NewRegistry(channelsFromConfig(cfg.Channels))
	if err := registry.PrintBanner(out); err != nil {
		return fmt.Errorf("printing banner: %w", err)
	}

	counters := stats.NewCounters()

	// Session journal (optional)
	var rec *journal.Recorder
	if cfg.Journal.Enabled {
		var err error
		rec, err = journal.Open(ctx, cfg.Journal, sessionID, log.With("component", "journal"))
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer func() {
			log.Info("closing journal")
			if closeErr := rec.Close(); closeErr != nil {
				log.Error("error closing journal", "error", closeErr)
			}
		}()
		log.Info("journal opened", "path", cfg.Journal.Path)
	} else {
		log.Info("journal disabled")
	}

	// Counter export to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		var err error
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetChannelNames(registry.Name)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	handler, err := reading.NewHandler(reading.HandlerOptions{
		Registry: registry,
		Printer:  reading.NewPrinter(out),
		Logger:   log.With("component", "handler"),
		Stats:    counters,
	})
	if err != nil {
		return fmt.Errorf("creating handler: %w", err)
	}

	client, err := mqtt.New(mqtt.OptionsFromConfig(cfg), registry.All(), handler.MessageHandler())
	if err != nil {
		return fmt.Errorf("creating MQTT client: %w", err)
	}
	client.SetLogger(log.With("component", "mqtt"))
	client.SetOnEvent(func(e mqtt.Event) {
		counters.ObserveEvent(e)
		if rec != nil {
			rec.Record(e)
		}
	})

	// The reporter outlives the loop by one final snapshot; InfluxDB closes after it.
	reportCtx, stopReports := context.WithCancel(ctx)
	var reporters sync.WaitGroup
	if sinks := reportSinks(cfg, log, influxClient); len(sinks) > 0 {
		reporter := stats.NewReporter(counters, cfg.GetStatsInterval(), sinks...)
		reporters.Add(1)
		go func() {
			defer reporters.Done()
			reporter.Run(reportCtx)
		}()
	}
	defer func() {
		stopReports()
		reporters.Wait()
	}()

	log.Info("connecting to broker",
		"broker", cfg.BrokerAddress(),
		"client_id", cfg.MQTT.Broker.ClientID,
		"channels", registry.Len(),
	)

	if err := client.Run(ctx); err != nil {
		return fmt.Errorf("running listener: %w", err)
	}

	log.Info("ThingSpeak listener stopped")
	return nil
}

// reportSinks returns the configured stats destinations. Stats reporting must
// be enabled for either sink; InfluxDB additionally needs a live client.
func reportSinks(cfg *config.Config, log *logging.Logger, influxClient *influxdb.Client) []stats.Sink {
	if !cfg.Stats.Enabled {
		return nil
	}
	sinks := []stats.Sink{stats.LogSink{Logger: log.With("component", "stats").Logger}}
	if influxClient != nil {
		sinks = append(sinks, influxClient)
	}
	return sinks
}

// loadConfig reads path. When path is the built-in default and the file does
// not exist, the built-in configuration is used instead.
// Returns the config and a description of where it came from.
func loadConfig(path string) (*config.Config, string, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
		return nil, "", err
	}

	cfg, err = config.Default()
	if err != nil {
		return nil, "", err
	}
	return cfg, "defaults", nil
}

// getConfigPath returns the configuration file path.
// Uses LISTENER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LISTENER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func channelsFromConfig(in []config.ChannelConfig) []channel.Channel {
	out := make([]channel.Channel, 0, len(in))
	for _, c := range in {
		out = append(out, channel.Channel{ID: c.ID, Name: c.Name})
	}
	return out
}
