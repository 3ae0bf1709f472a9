package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultVoteGracePeriod is used when notifier.voteGracePeriod is not set.
const DefaultVoteGracePeriod = time.Second

// Config contains all top-level configuration settings for the application, accessible for reading.
type Config struct {
	Notifier *NotifierConfig
	Server   *ServerConfig
	Node     *NodeConfig
	// DB is nil when the delivery log is disabled.
	DB  *DBConfig
	Log *LogConfig
}

// NotifierConfig contains the webhook subscriptions and delivery settings.
type NotifierConfig struct {
	enabled         bool
	explorerTx      string
	voteGracePeriod time.Duration
	deliveryTimeout int
	retryAttempts   int
	webhooks        []*WebhookConfig
}

// WebhookConfig is one configured notification target.
type WebhookConfig struct {
	endpoint     string
	events       []string
	delegates    []string
	messageField string
	payload      map[string]interface{}
}

// ServerConfig contains configuration details for the server, with fields unexported for encapsulation.
type ServerConfig struct {
	host        string
	port        int
	metricsPort int
}

// NodeConfig contains configuration details for the node public API.
type NodeConfig struct {
	url           string
	timeout       int
	retryAttempts int
}

// DBConfig contains database connection settings with sensitive details unexported.
type DBConfig struct {
	user     string
	dbname   string
	password string
	host     string
	port     int
}

// LogConfig contains configuration settings for logging.
type LogConfig struct {
	level string
}

// messageFieldKey names the payload entry holding the name of the message field.
const messageFieldKey = "msg"

var (
	validate = validator.New()

	cfg     *Config
	once    sync.Once
	loadErr error
)

// LoadConfig reads configuration from the given file once and returns the same result on every call.
func LoadConfig(configFile string) (*Config, error) {
	once.Do(func() {
		cfg, loadErr = ReadConfig(configFile)
	})
	return cfg, loadErr
}

// ConfigFileFromEnv returns the configuration file path, NOTIFIER_CONFIG or config.yaml.
func ConfigFileFromEnv() (string, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return "", fmt.Errorf("error parsing environment: %w", err)
	}
	return e.ConfigFile, nil
}

// ReadConfig reads and validates the given file without caching. Used at boot and on reload.
func ReadConfig(configFile string) (*Config, error) {
	absPath, err := filepath.Abs(configFile)
	if err != nil {
		return nil, fmt.Errorf("error finding absolute path for the configuration file: %w", err)
	}

	yamlFile, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("error reading YAML file: %w", err)
	}

	var raw configYAML
	if err := yaml.Unmarshal(yamlFile, &raw); err != nil {
		return nil, fmt.Errorf("error parsing YAML file: %w", err)
	}

	var e envConfig
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if raw.DB != nil && e.DBPassword != "" {
		raw.DB.Password = e.DBPassword
	}

	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	notifier, err := newNotifierConfig(raw.Notifier)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	c := &Config{
		Notifier: notifier,
		Server: &ServerConfig{
			host:        raw.Server.Host,
			port:        raw.Server.Port,
			metricsPort: raw.Server.MetricsPort,
		},
		Node: &NodeConfig{
			url:           raw.Node.URL,
			timeout:       raw.Node.Timeout,
			retryAttempts: raw.Node.RetryAttempts,
		},
		Log: &LogConfig{
			level: raw.Log.Level,
		},
	}
	if raw.DB != nil {
		c.DB = &DBConfig{
			user:     raw.DB.User,
			dbname:   raw.DB.DBName,
			password: raw.DB.Password,
			host:     raw.DB.Host,
			port:     raw.DB.Port,
		}
	}
	return c, nil
}

func newNotifierConfig(raw notifierConfigYAML) (*NotifierConfig, error) {
	n := &NotifierConfig{
		enabled:         raw.Enabled,
		explorerTx:      raw.ExplorerTx,
		voteGracePeriod: DefaultVoteGracePeriod,
		deliveryTimeout: raw.DeliveryTimeout,
		retryAttempts:   raw.RetryAttempts,
	}
	if raw.VoteGracePeriod != nil {
		if *raw.VoteGracePeriod < 0 {
			return nil, errors.New("notifier.voteGracePeriod must not be negative")
		}
		n.voteGracePeriod = *raw.VoteGracePeriod
	}

	for i, w := range raw.Webhooks {
		webhook, err := NewWebhookConfig(w.Endpoint, w.Events, w.Delegates, w.Payload)
		if err != nil {
			return nil, fmt.Errorf("webhook %d: %w", i, err)
		}
		n.webhooks = append(n.webhooks, webhook)
	}
	return n, nil
}

// NewWebhookConfig builds a webhook from its raw payload template, which must name the message
// field under the "msg" key.
func NewWebhookConfig(endpoint string, events, delegates []string, rawPayload map[string]interface{}) (*WebhookConfig, error) {
	field, ok := rawPayload[messageFieldKey].(string)
	if !ok || field == "" {
		return nil, fmt.Errorf("%s: payload.%s must name the message field", endpoint, messageFieldKey)
	}
	payload := make(map[string]interface{}, len(rawPayload))
	for k, v := range rawPayload {
		if k != messageFieldKey {
			payload[k] = v
		}
	}
	return &WebhookConfig{
		endpoint:     endpoint,
		events:       events,
		delegates:    delegates,
		messageField: field,
		payload:      payload,
	}, nil
}

// IsEnabled reports whether the notifier should start at all.
func (n *NotifierConfig) IsEnabled() bool {
	return n.enabled
}

// GetExplorerTx returns the explorer base URL transaction ids are appended to.
func (n *NotifierConfig) GetExplorerTx() string {
	return n.explorerTx
}

// GetVoteGracePeriod returns the pause before awaiting vote-cast deliveries.
func (n *NotifierConfig) GetVoteGracePeriod() time.Duration {
	return n.voteGracePeriod
}

// GetDeliveryTimeout returns the outbound request timeout in seconds, 0 for none.
func (n *NotifierConfig) GetDeliveryTimeout() int {
	return n.deliveryTimeout
}

// GetRetryAttempts returns the number of delivery attempts per notification, at least 1.
func (n *NotifierConfig) GetRetryAttempts() int {
	return max(n.retryAttempts, 1)
}

// GetWebhooks returns the configured webhooks in file order.
func (n *NotifierConfig) GetWebhooks() []*WebhookConfig {
	return n.webhooks
}

func (w *WebhookConfig) GetEndpoint() string {
	return w.endpoint
}

func (w *WebhookConfig) GetEvents() []string {
	return w.events
}

func (w *WebhookConfig) GetDelegates() []string {
	return w.delegates
}

// GetMessageField returns the payload key the rendered message is written to.
func (w *WebhookConfig) GetMessageField() string {
	return w.messageField
}

// GetPayload returns the payload template without the message field designator.
func (w *WebhookConfig) GetPayload() map[string]interface{} {
	return w.payload
}

// GetHost returns the host configuration from the ServerConfig.
func (s *ServerConfig) GetHost() string {
	return s.host
}

// GetPort returns the port configuration from the ServerConfig.
func (s *ServerConfig) GetPort() int {
	return s.port
}

// GetMetricsPort returns the metrics port configuration from the ServerConfig.
func (s *ServerConfig) GetMetricsPort() int {
	return s.metricsPort
}

// GetListenAddress constructs the listenning address from the ServerConfig.
func (s *ServerConfig) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// GetURL returns the node API base URL.
func (n *NodeConfig) GetURL() string {
	return n.url
}

// GetTimeout returns the request timeout in seconds.
func (n *NodeConfig) GetTimeout() int {
	return n.timeout
}

// GetRetryAttempts returns the maximum attempts per wallet lookup, at least 1.
func (n *NodeConfig) GetRetryAttempts() int {
	return max(n.retryAttempts, 1)
}

// GetLevel returns the level configuration from LogConfig.
func (l *LogConfig) GetLevel() string {
	if l.level == "" {
		return "info"
	}
	return l.level
}

// GetPostgresqlDSN constructs a PostgreSQL DSN from the DBConfig.
func (d *DBConfig) GetPostgresqlDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", d.user, d.password, d.host, d.port, d.dbname)
}
