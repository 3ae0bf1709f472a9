package config

import "time"

// configYAML is a transitional struct that contains all the configuration settings, mirroring the structure of the Config struct.
type configYAML struct {
	Notifier notifierConfigYAML `yaml:"notifier"`
	Server   serverConfigYAML   `yaml:"server"`
	Node     nodeConfigYAML     `yaml:"node"`
	DB       *dbConfigYAML      `yaml:"db"`
	Log      logConfigYAML      `yaml:"log"`
}

// notifierConfigYAML is a transitional struct used for unmarshaling the notifier configuration from YAML.
type notifierConfigYAML struct {
	Enabled         bool                `yaml:"enabled"`
	ExplorerTx      string              `yaml:"explorerTx" validate:"required,url"`
	VoteGracePeriod *time.Duration      `yaml:"voteGracePeriod"`
	DeliveryTimeout int                 `yaml:"deliveryTimeout" validate:"gte=0"`
	RetryAttempts   int                 `yaml:"retryAttempts" validate:"gte=0"`
	Webhooks        []webhookConfigYAML `yaml:"webhooks" validate:"dive"`
}

// webhookConfigYAML is a transitional struct used for unmarshaling a single webhook from YAML.
type webhookConfigYAML struct {
	Endpoint  string                 `yaml:"endpoint" validate:"required,url"`
	Events    []string               `yaml:"events"`
	Delegates []string               `yaml:"delegates"`
	Payload   map[string]interface{} `yaml:"payload" validate:"required"`
}

// serverConfigYAML is a transitional struct used for unmarshaling the server configuration from YAML.
type serverConfigYAML struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port" validate:"required,gt=0"`
	MetricsPort int    `yaml:"metricsPort" validate:"required,gt=0"`
}

// nodeConfigYAML is a transitional struct used for unmarshaling the node API configuration from YAML.
type nodeConfigYAML struct {
	URL           string `yaml:"url" validate:"required,url"`
	Timeout       int    `yaml:"timeout" validate:"gte=0"`
	RetryAttempts int    `yaml:"retryAttempts" validate:"gte=0"`
}

// dbConfigYAML is a transitional struct used for unmarshaling the database configuration from YAML.
type dbConfigYAML struct {
	User     string `yaml:"user" validate:"required"`
	DBName   string `yaml:"dbname" validate:"required"`
	Password string `yaml:"password"`
	Host     string `yaml:"host" validate:"required"`
	Port     int    `yaml:"port" validate:"required,gt=0"`
}

// logConfigYAML is a transitional struct used for unmarshaling the log configuration from YAML.
type logConfigYAML struct {
	Level string `yaml:"level"`
}

// envConfig holds the settings that may only come from the environment.
type envConfig struct {
	ConfigFile string `env:"NOTIFIER_CONFIG" envDefault:"config.yaml"`
	DBPassword string `env:"NOTIFIER_DB_PASSWORD"`
}
