package poller_config

import (
	"time"

	"github.com/NordCoder/Replypush/internal/obs"
	"github.com/NordCoder/Replypush/internal/outbox"
	kafkax "github.com/NordCoder/Replypush/internal/repository/kafka"
	pginfra "github.com/NordCoder/Replypush/internal/repository/postgres"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// PollerCfg drives the pool supervisor and its per-origin workers.
type PollerCfg struct {
	SupervisorTick time.Duration `mapstructure:"supervisor_tick"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	RefillInterval time.Duration `mapstructure:"refill_interval"`
}

type Lemmy struct {
	Scheme          string        `mapstructure:"scheme"`
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host"`
}

type Push struct {
	DryRun          bool          `mapstructure:"dry_run"`
	ProjectID       string        `mapstructure:"project_id"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	Topic           string        `mapstructure:"topic"`
	Sound           string        `mapstructure:"sound"`
	Badge           int           `mapstructure:"badge"`
	Expiry          time.Duration `mapstructure:"expiry"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type KafkaOut struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func (k KafkaOut) AsProducerConfig() kafkax.ProducerConfig {
	return kafkax.ProducerConfig{Brokers: k.Brokers, Topic: k.Topic}
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App    App                 `mapstructure:"app"`
	DB     pginfra.Config      `mapstructure:"db"`
	Poller PollerCfg           `mapstructure:"poller"`
	Lemmy  Lemmy               `mapstructure:"lemmy"`
	Push   Push                `mapstructure:"push"`
	Kafka  KafkaOut            `mapstructure:"kafka_out"`
	Outbox outbox.RunnerConfig `mapstructure:"outbox"`
	Server Server              `mapstructure:"server"`
	OTEL   OTEL                `mapstructure:"otel"`
	Log    Log                 `mapstructure:"log"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:         c.OTEL.Enable,
		Endpoint:       c.OTEL.OTLPEndpoint,
		ServiceName:    c.OTEL.ServiceName,
		ServiceVersion: c.App.Version,
		SampleRatio:    c.OTEL.SampleRatio,
	}
}
