package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	corebus "github.com/pitwall/vtms/core/bus"
	"github.com/pitwall/vtms/infra/logger"
	"github.com/pitwall/vtms/internal/eventbus"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker          string      `json:"broker"`
	ClientID        string      `json:"client_id"`
	Username        string      `json:"username"`
	Password        string      `json:"password"`
	UseTLS          bool        `json:"use_tls"`
	ClientCert      string      `json:"client_cert"`
	ClientKey       string      `json:"client_key"`
	CABundle        string      `json:"ca_bundle"`
	AuthMethod      string      `json:"auth_method"`
	LWTTopic        string      `json:"lwt_topic"`
	LWTPayload      string      `json:"lwt_payload"`
	LWTQoS          byte        `json:"lwt_qos"`
	LWTRetain       bool        `json:"lwt_retain"`
	ConnectTimeoutS int         `json:"connect_timeout_s"`
	TLSConfig       *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults. An empty client ID gets a random suffix so
// two gateways on the same broker never steal each other's session.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "vtms-" + uuid.NewString()[:8]
	}
	if c.ConnectTimeoutS <= 0 {
		c.ConnectTimeoutS = 5
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	return nil
}

// pahoClient is the subset of the paho client used by the transport.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// eventBufferSize bounds the transport event channel. A consumer that falls
// behind loses events rather than blocking the paho callbacks.
const eventBufferSize = 64

// PahoTransport implements bus.Transport using Eclipse Paho.
type PahoTransport struct {
	cli    pahoClient
	events *eventbus.TypedBus[corebus.Event]
	out    <-chan corebus.Event
	log    logger.Logger

	mu   sync.Mutex
	subs map[string]byte
}

// NewPahoTransport builds the transport without connecting. The connection
// monitor decides when to connect and when to retry.
func NewPahoTransport(cfg Config) (*PahoTransport, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_transport")
	events := eventbus.NewTyped[corebus.Event](eventBufferSize)
	t := &PahoTransport{
		events: events,
		out:    events.Subscribe(),
		log:    log,
		subs:   make(map[string]byte),
	}

	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
		t.resubscribe()
		t.events.Publish(corebus.Connected{})
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
		t.events.Publish(corebus.Disconnected{Err: err})
	}
	t.cli = newMQTTClient(opts)
	return t, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	// Reconnection policy belongs to the connection monitor, not to paho.
	opts.AutoReconnect = false
	opts.ConnectRetry = false
	if cfg.ConnectTimeoutS > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeoutS) * time.Second)
	}
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// Connect attempts a single broker connection. The paho connect timeout bounds
// the attempt; the context covers caller cancellation.
func (t *PahoTransport) Connect(ctx context.Context) error {
	token := t.cli.Connect()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect closes the broker connection and the event channel.
func (t *PahoTransport) Disconnect() {
	if t.cli != nil && t.cli.IsConnected() {
		t.cli.Disconnect(250)
	}
	t.events.Close()
}

// Publish sends a message and reports the outcome synchronously. Every attempt
// also emits a PublishAck event for observers.
func (t *PahoTransport) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if !t.cli.IsConnected() {
		return corebus.ErrNotConnected
	}
	token := t.cli.Publish(topic, qos, retain, payload)
	token.Wait()
	err := token.Error()
	t.events.Publish(corebus.PublishAck{ID: uuid.NewString(), OK: err == nil})
	return err
}

// Subscribe registers a topic filter. The subscription is applied immediately
// when connected and replayed on every reconnect, so it is safe to subscribe
// before the first Connect.
func (t *PahoTransport) Subscribe(filter string, qos byte) error {
	t.mu.Lock()
	t.subs[filter] = qos
	connected := t.cli != nil && t.cli.IsConnected()
	t.mu.Unlock()
	if !connected {
		return nil
	}
	if token := t.cli.Subscribe(filter, qos, t.onMessage); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// IsConnected reports the live link state.
func (t *PahoTransport) IsConnected() bool {
	return t.cli != nil && t.cli.IsConnected()
}

// Events returns the transport event channel.
func (t *PahoTransport) Events() <-chan corebus.Event {
	return t.out
}

func (t *PahoTransport) resubscribe() {
	t.mu.Lock()
	subs := make(map[string]byte, len(t.subs))
	for f, q := range t.subs {
		subs[f] = q
	}
	t.mu.Unlock()
	for f, q := range subs {
		if token := t.cli.Subscribe(f, q, t.onMessage); token.Wait() && token.Error() != nil {
			t.log.Errorf("subscribe %s: %v", f, token.Error())
		}
	}
}

func (t *PahoTransport) onMessage(_ paho.Client, msg paho.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())
	t.events.Publish(corebus.MessageReceived{Topic: msg.Topic(), Payload: payload})
}
