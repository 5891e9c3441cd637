package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"relentless-autoscout/common"
)

const (
	SinkKafka    = "kafka"
	SinkPostgres = "postgres"

	// MaxConcurrency bounds in-flight page requests.
	MaxConcurrency = 5
)

// Runtime is the process configuration read from the environment.
type Runtime struct {
	KafkaBroker   string
	ListingsTopic string
	DLQTopic      string
	Sinks         []string
	DatabaseURL   string

	RedisAddr string
	StatusTTL time.Duration

	Concurrency int
	BatchSize   int

	RetryMax          int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	SessionPoolSize   int
	ProxyURL          string
	ProxyPool         []string
	RespectRobotsTxt  bool

	MetricsAddr string
	APIAddr     string

	LogLevel  string
	LogFormat string
}

// LoadRuntime reads the runtime configuration and validates it.
func LoadRuntime() (Runtime, error) {
	rt := Runtime{
		KafkaBroker:   common.GetEnv("KAFKA_BROKER", "localhost:9092"),
		ListingsTopic: common.GetEnv("KAFKA_LISTINGS_TOPIC", "autoscout.listings"),
		DLQTopic:      common.GetEnv("KAFKA_DLQ_TOPIC", "autoscout.crawl.dlq"),
		Sinks:         common.SplitList(common.GetEnv("SINKS", SinkKafka)),
		DatabaseURL:   common.GetEnv("DATABASE_URL", ""),

		RedisAddr: common.GetEnv("REDIS_ADDR", ""),
		StatusTTL: common.ParseDuration(common.GetEnv("STATUS_TTL", ""), 24*time.Hour),

		Concurrency: common.Clamp(common.ParseInt(common.GetEnv("CONCURRENCY", ""), MaxConcurrency), 1, MaxConcurrency),
		BatchSize:   common.ParseInt(common.GetEnv("BATCH_SIZE", ""), 10),

		RetryMax:          common.ParseInt(common.GetEnv("RETRY_MAX", ""), 3),
		RetryBaseDelay:    common.ParseDuration(common.GetEnv("RETRY_BASE_DELAY", ""), 500*time.Millisecond),
		RetryMaxDelay:     common.ParseDuration(common.GetEnv("RETRY_MAX_DELAY", ""), 10*time.Second),
		RequestTimeout:    common.ParseDuration(common.GetEnv("REQUEST_TIMEOUT", ""), 30*time.Second),
		RequestsPerSecond: common.ParseFloat(common.GetEnv("REQUESTS_PER_SECOND", ""), 2),
		SessionPoolSize:   common.ParseInt(common.GetEnv("SESSION_POOL_SIZE", ""), 5),
		ProxyURL:          common.GetEnv("PROXY_URL", ""),
		ProxyPool:         common.SplitList(common.GetEnv("PROXY_POOL", "")),
		RespectRobotsTxt:  common.ParseBool(common.GetEnv("RESPECT_ROBOTS_TXT", ""), false),

		MetricsAddr: common.GetEnv("METRICS_ADDR", ""),
		APIAddr:     common.GetEnv("API_ADDR", ":8080"),

		LogLevel:  common.GetEnv("LOG_LEVEL", "info"),
		LogFormat: common.GetEnv("LOG_FORMAT", "text"),
	}
	return rt, rt.validate()
}

func (rt *Runtime) validate() error {
	var err error

	if len(rt.Sinks) == 0 {
		err = multierror.Append(err, fmt.Errorf("no sinks configured"))
	}
	for _, s := range rt.Sinks {
		switch s {
		case SinkKafka:
			if rt.KafkaBroker == "" || rt.ListingsTopic == "" {
				err = multierror.Append(err, fmt.Errorf("kafka sink requires KAFKA_BROKER and KAFKA_LISTINGS_TOPIC"))
			}
		case SinkPostgres:
			if rt.DatabaseURL == "" {
				err = multierror.Append(err, fmt.Errorf("postgres sink requires DATABASE_URL"))
			}
		default:
			err = multierror.Append(err, fmt.Errorf("unknown sink %q", s))
		}
	}

	if rt.BatchSize <= 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for batch size, must be > 0"))
	}

	if rt.RetryMax < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for retry max, must be >= 0"))
	}

	if rt.RetryMaxDelay < rt.RetryBaseDelay {
		err = multierror.Append(err, fmt.Errorf("retry max delay must not be below retry base delay"))
	}

	if rt.RequestsPerSecond < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for requests per second, must be >= 0"))
	}

	if rt.SessionPoolSize <= 0 {
		rt.SessionPoolSize = 1
	}

	if _, perr := logrus.ParseLevel(rt.LogLevel); perr != nil {
		err = multierror.Append(err, fmt.Errorf("invalid log level: %w", perr))
	}

	return err
}

// HasSink reports whether name is among the configured sinks.
func (rt Runtime) HasSink(name string) bool {
	for _, s := range rt.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

// Logger builds the root logger for a binary.
func (rt Runtime) Logger(app string) *logrus.Entry {
	root := logrus.New()
	if level, err := logrus.ParseLevel(rt.LogLevel); err == nil {
		root.SetLevel(level)
	}
	if rt.LogFormat == "json" {
		root.SetFormatter(&logrus.JSONFormatter{})
	}
	host, _ := os.Hostname()
	return root.WithFields(logrus.Fields{
		"app":  app,
		"host": host,
	})
}
