package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	corebus "github.com/pitwall/vtms/core/bus"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	if opts.AutoReconnect {
		t.Fatalf("paho auto reconnect must stay off")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883"}
	cfg.SetDefaults()
	if !strings.HasPrefix(cfg.ClientID, "vtms-") || len(cfg.ClientID) != len("vtms-")+8 {
		t.Fatalf("unexpected client id %q", cfg.ClientID)
	}
	if cfg.ConnectTimeoutS != 5 {
		t.Fatalf("unexpected connect timeout %d", cfg.ConnectTimeoutS)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected broker validation error")
	}
}

func withMock(t *testing.T, mc *mockClient) *PahoTransport {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
	tr, err := NewPahoTransport(Config{Broker: "tcp://localhost:1883", ClientID: "id"})
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	return tr
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	defer func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } }()
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	if _, err := NewPahoTransport(cfg); err != nil {
		t.Fatalf("transport: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
}

func TestConnectEmitsEventAndResubscribes(t *testing.T) {
	mc := &mockClient{}
	tr := withMock(t, mc)
	if err := tr.Subscribe("avl/#", 0); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(mc.subscribed) != 0 {
		t.Fatalf("subscription applied before connect")
	}
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(mc.subscribed) != 1 || mc.subscribed[0].topic != "avl/#" {
		t.Fatalf("subscription not replayed: %+v", mc.subscribed)
	}
	select {
	case ev := <-tr.Events():
		if _, ok := ev.(corebus.Connected); !ok {
			t.Fatalf("expected Connected event, got %T", ev)
		}
	default:
		t.Fatalf("no event emitted on connect")
	}
}

func TestConnectCancelledByContext(t *testing.T) {
	mc := &mockClient{hangConnect: true}
	tr := withMock(t, mc)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := tr.Connect(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	mc := &mockClient{connectErr: errors.New("refused")}
	tr := withMock(t, mc)
	if err := tr.Connect(context.Background()); err == nil {
		t.Fatalf("expected connect error")
	}
	if mc.connected {
		t.Fatalf("mock marked connected")
	}
}

func TestPublishWhenDisconnected(t *testing.T) {
	mc := &mockClient{}
	tr := withMock(t, mc)
	if err := tr.Publish("avl/x", []byte("1"), 0, false); !errors.Is(err, corebus.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish while disconnected")
	}
}

func TestPublishEmitsAck(t *testing.T) {
	mc := &mockClient{connected: true, publishErrs: []error{nil, errors.New("net fail")}}
	tr := withMock(t, mc)

	if err := tr.Publish("avl/x", []byte("1"), 1, true); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(mc.published) != 1 || mc.published[0].qos != 1 || !mc.published[0].retain {
		t.Fatalf("publish options lost: %+v", mc.published)
	}
	ev := <-tr.Events()
	ack, ok := ev.(corebus.PublishAck)
	if !ok || !ack.OK || ack.ID == "" {
		t.Fatalf("expected successful ack, got %#v", ev)
	}

	if err := tr.Publish("avl/x", []byte("2"), 0, false); err == nil {
		t.Fatalf("expected publish error")
	}
	ev = <-tr.Events()
	if ack, ok := ev.(corebus.PublishAck); !ok || ack.OK {
		t.Fatalf("expected failed ack, got %#v", ev)
	}
}

func TestInboundMessageEvent(t *testing.T) {
	mc := &mockClient{}
	tr := withMock(t, mc)
	tr.onMessage(nil, mockMessage{topic: "avl/debug", p: []byte("true")})
	ev := <-tr.Events()
	msg, ok := ev.(corebus.MessageReceived)
	if !ok {
		t.Fatalf("expected MessageReceived, got %T", ev)
	}
	if msg.Topic != "avl/debug" || string(msg.Payload) != "true" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestDisconnectClosesEvents(t *testing.T) {
	mc := &mockClient{connected: true}
	tr := withMock(t, mc)
	tr.Disconnect()
	if !mc.disconnected {
		t.Fatalf("paho disconnect not called")
	}
	if _, ok := <-tr.Events(); ok {
		t.Fatalf("event channel not closed")
	}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts         *paho.ClientOptions
	connected    bool
	hangConnect  bool
	connectErr   error
	disconnected bool
	subscribed   []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic   string
		qos     byte
		retain  bool
		payload []byte
	}
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return m.connected }
func (m *mockClient) Connect() paho.Token {
	if m.hangConnect {
		return blockingToken{done: make(chan struct{})}
	}
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	m.connected = true
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {
	m.connected = false
	m.disconnected = true
}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic   string
		qos     byte
		retain  bool
		payload []byte
	}{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type blockingToken struct{ done chan struct{} }

func (b blockingToken) Wait() bool                     { <-b.done; return true }
func (b blockingToken) WaitTimeout(time.Duration) bool { return false }
func (b blockingToken) Done() <-chan struct{}          { return b.done }
func (b blockingToken) Error() error                   { return nil }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
