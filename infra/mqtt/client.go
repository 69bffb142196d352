// Package mqtt publishes ingestion results to an MQTT broker so that other
// systems can follow simulation runs without polling the viewer.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/evload/core/chart"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/monitoring"
	"github.com/kilianp07/evload/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	AuthMethod  string      `json:"auth_method" validate:"omitempty,oneof=username_password certificate both"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos" validate:"lte=2"`
	Retain      bool        `json:"retain"`
	LWTTopic    string      `json:"lwt_topic"`
	LWTPayload  string      `json:"lwt_payload"`
	LWTQoS      byte        `json:"lwt_qos" validate:"lte=2"`
	LWTRetain   bool        `json:"lwt_retain"`
	MaxRetries  int         `json:"max_retries" validate:"gte=0"`
	BackoffMS   int         `json:"backoff_ms" validate:"gte=0"`
	TLSConfig   *tls.Config `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults fills in the topic prefix, client id and retry policy.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "evload"
	}
	if c.ClientID == "" {
		c.ClientID = "evload-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// DatasetTopic is where published datasets go.
func (c Config) DatasetTopic() string { return c.TopicPrefix + "/results/dataset" }

// StatusTopic is where cycle outcomes go.
func (c Config) StatusTopic() string { return c.TopicPrefix + "/results/status" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient publishes datasets and cycle outcomes using Eclipse Paho.
type PahoClient struct {
	cli        pahoClient
	cfg        Config
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewPahoClient connects to the MQTT broker.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	logger := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:        cfg,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(paho.Client) {
		logger.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		logger.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	switch cfg.AuthMethod {
	case "", "username_password", "both":
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	case "certificate":
	default:
		return nil, fmt.Errorf("unknown auth method %q", cfg.AuthMethod)
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

// LoadTLSConfig builds the TLS settings from the configured files. Without
// a CA bundle the system roots are used; a client certificate is optional
// but its key must come with it.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return nil, errors.New("client_cert and client_key must be set together")
	}
	if c.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	if c.CABundle != "" {
		pem, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", c.CABundle)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// DatasetMessage is the JSON document published for each dataset.
type DatasetMessage struct {
	RunID     string                `json:"run_id"`
	CreatedAt time.Time             `json:"created_at"`
	Records   []model.AlignedRecord `json:"records"`
	Summary   chart.Summary         `json:"summary"`
}

// StatusMessage is the JSON document published for each cycle outcome.
type StatusMessage struct {
	RunID   string    `json:"run_id"`
	State   string    `json:"state"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// PublishDataset sends ds to the dataset topic.
func (p *PahoClient) PublishDataset(ds model.ChartDataset) error {
	msg := DatasetMessage{RunID: ds.RunID, CreatedAt: ds.CreatedAt, Records: ds.Records, Summary: chart.Summarize(ds)}
	return p.publish(p.cfg.DatasetTopic(), ds.RunID, msg)
}

// PublishStatus sends st to the status topic.
func (p *PahoClient) PublishStatus(st StatusMessage) error {
	return p.publish(p.cfg.StatusTopic(), st.RunID, st)
}

func (p *PahoClient) publish(topic, runID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, p.cfg.Retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("published run %s to %s", runID, topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	monitoring.CaptureException(publishErr, map[string]string{"module": "mqtt", "topic": topic, "run_id": runID})
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
