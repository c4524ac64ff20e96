package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/thingspeak-listener/internal/infrastructure/config"
)

// Connection constants.
const (
	// protocolVersion pins the session to MQTT 3.1.1 (no fallback to 3.1).
	protocolVersion = 4

	// defaultConnectTimeout is the maximum time to wait for a CONNACK.
	defaultConnectTimeout = 10 * time.Second

	// defaultSubscribeTimeout is the maximum time to wait for a SUBACK.
	defaultSubscribeTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending work on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// defaultPollInterval is how often the monitoring loop checks the connection.
	defaultPollInterval = time.Second

	// defaultBackoff is the wait before a reconnect attempt.
	defaultBackoff = 5 * time.Second

	// defaultQueueSize bounds messages waiting for the dispatch goroutine.
	defaultQueueSize = 256

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Options controls a Client. Durations are real durations so tests can shrink them.
type Options struct {
	Host     string
	Port     int
	TLS      bool
	ClientID string
	Username string
	Password string
	QoS      byte

	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	Backoff        time.Duration
	QueueSize      int
}

// OptionsFromConfig converts the loaded configuration into Options.
func OptionsFromConfig(cfg *config.Config) Options {
	m := cfg.MQTT
	return Options{
		Host:           m.Broker.Host,
		Port:           m.Broker.Port,
		TLS:            m.Broker.TLS,
		ClientID:       m.Broker.ClientID,
		Username:       m.Auth.Username,
		Password:       m.Auth.Password,
		QoS:            byte(m.QoS), // #nosec G115 -- validated 0..2 by config.Validate
		KeepAlive:      cfg.GetKeepAlive(),
		ConnectTimeout: cfg.GetConnectTimeout(),
		PollInterval:   cfg.GetPollInterval(),
		Backoff:        cfg.GetBackoff(),
		QueueSize:      m.QueueSize,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.KeepAlive <= 0 {
		o.KeepAlive = defaultKeepAlive
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.Backoff < 0 {
		o.Backoff = defaultBackoff
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	return o
}

// BrokerURL returns tcp://host:port, or ssl://host:port when TLS is set.
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.TLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port)
}

// buildClientOptions creates paho MQTT options.
//
// This configures:
//   - Broker URL (plaintext tcp:// unless TLS is requested)
//   - Client ID and static credentials
//   - MQTT 3.1.1 with a clean session, so every reconnect re-subscribes
//   - Keepalive and handshake timeout
//   - No paho auto-reconnect: the monitoring loop owns reconnection
//   - Ordered message delivery
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(o.BrokerURL())
	opts.SetClientID(o.ClientID)

	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetProtocolVersion(protocolVersion)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(o.ConnectTimeout)
	opts.SetKeepAlive(o.KeepAlive)
	opts.SetOrderMatters(true)

	if o.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}
