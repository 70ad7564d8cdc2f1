package engine

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/croessner/echoprobe/client/definitions"
	errors2 "github.com/croessner/echoprobe/client/errors"
	"github.com/croessner/echoprobe/client/log"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all parameters for the test client.
type Config struct {
	Host          string        `mapstructure:"host" validate:"required"`
	Port          int           `mapstructure:"port" validate:"min=1,max=65535"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
	BufferSize    int           `mapstructure:"buffer-size" validate:"gt=0"`
	ProxyProtocol bool          `mapstructure:"proxy-protocol"`
	Mode          string        `mapstructure:"mode" validate:"oneof=suite ping"`

	BurstClients       int           `mapstructure:"burst-clients" validate:"gte=0"`
	BurstBatchSize     int           `mapstructure:"burst-batch-size" validate:"gt=0"`
	BurstBatchInterval time.Duration `mapstructure:"burst-batch-interval" validate:"gt=0"`

	SustainedDuration  time.Duration `mapstructure:"sustained-duration" validate:"gte=0"`
	SustainedRate      int           `mapstructure:"sustained-rate" validate:"gt=0"`
	MessagesPerSession int           `mapstructure:"messages-per-session" validate:"gt=0"`
	MessagePause       time.Duration `mapstructure:"message-pause" validate:"gte=0"`
	MessageSizes       []int         `mapstructure:"message-sizes" validate:"required,min=1,dive,min=1,fits_buffer"`
	GracePeriod        time.Duration `mapstructure:"grace-period" validate:"gte=0"`
	StatusEvery        time.Duration `mapstructure:"status-interval" validate:"gt=0"`

	PingInterval time.Duration `mapstructure:"ping-interval" validate:"gt=0"`
	PingCount    int           `mapstructure:"ping-count" validate:"gte=0"`
	PingMessage  string        `mapstructure:"ping-message" validate:"required_if=Mode ping,fits_buffer"`

	LogFile   string `mapstructure:"log-file" validate:"required"`
	LogLevel  string `mapstructure:"log-level" validate:"log_level"`
	LogFormat string `mapstructure:"log-format" validate:"oneof=text json"`
	ColorMode string `mapstructure:"color" validate:"oneof=auto always never"`

	ReportJSON string `mapstructure:"report-json"`

	MetricsListen         string        `mapstructure:"metrics-listen"`
	TargetMetricsURL      string        `mapstructure:"target-metrics-url" validate:"omitempty,url"`
	TargetMetrics         []string      `mapstructure:"target-metrics" validate:"required_with=TargetMetricsURL,dive,required"`
	TargetMetricsInterval time.Duration `mapstructure:"target-metrics-interval" validate:"gt=0"`
	TargetMetricsTimeout  time.Duration `mapstructure:"target-metrics-timeout" validate:"gte=0"`

	RedisAddr      string        `mapstructure:"redis-addr" validate:"omitempty,hostname_port"`
	RedisPassword  string        `mapstructure:"redis-password"`
	RedisDB        int           `mapstructure:"redis-db" validate:"gte=0"`
	RedisKeyPrefix string        `mapstructure:"redis-key-prefix" validate:"required_with=RedisAddr"`
	RedisTTL       time.Duration `mapstructure:"redis-ttl" validate:"gte=0"`

	Debug bool `mapstructure:"debug"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:                  "127.0.0.1",
		Port:                  8888,
		Timeout:               5 * time.Second,
		BufferSize:            definitions.DefaultReceiveBufferSize,
		Mode:                  definitions.ModeSuite,
		BurstClients:          50,
		BurstBatchSize:        10,
		BurstBatchInterval:    100 * time.Millisecond,
		SustainedDuration:     30 * time.Second,
		SustainedRate:         3,
		MessagesPerSession:    3,
		MessagePause:          100 * time.Millisecond,
		MessageSizes:          []int{100, 500, 1000},
		GracePeriod:           3 * time.Second,
		StatusEvery:           time.Second,
		PingInterval:          time.Second,
		PingMessage:           "Hello, server!",
		LogFile:               "results/echoprobe.log",
		LogLevel:              definitions.LogLevelNameWarn,
		LogFormat:             "text",
		ColorMode:             "auto",
		TargetMetricsInterval: 5 * time.Second,
		TargetMetricsTimeout:  2 * time.Second,
		RedisKeyPrefix:        definitions.InstanceName,
		RedisTTL:              7 * 24 * time.Hour,
	}
}

// RegisterFlags declares one flag per Config field, defaulting to the values in cfg.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("config", "", "Optional config file (yaml, toml or json)")

	fs.StringVar(&cfg.Host, "host", cfg.Host, "Echo server host")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Echo server port")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Connect, send and receive timeout (0=none)")
	fs.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "Receive buffer size in bytes")
	fs.BoolVar(&cfg.ProxyProtocol, "proxy-protocol", cfg.ProxyProtocol, "Send a PROXY protocol v2 header after connecting")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: suite|ping")

	fs.IntVar(&cfg.BurstClients, "burst-clients", cfg.BurstClients, "Number of clients in the burst test")
	fs.IntVar(&cfg.BurstBatchSize, "burst-batch-size", cfg.BurstBatchSize, "Clients launched per burst batch")
	fs.DurationVar(&cfg.BurstBatchInterval, "burst-batch-interval", cfg.BurstBatchInterval, "Pause between burst batches")

	fs.DurationVar(&cfg.SustainedDuration, "sustained-duration", cfg.SustainedDuration, "Duration of the sustained load test")
	fs.IntVar(&cfg.SustainedRate, "sustained-rate", cfg.SustainedRate, "New sessions per second in the sustained test")
	fs.IntVar(&cfg.MessagesPerSession, "messages-per-session", cfg.MessagesPerSession, "Messages sent by every sustained session")
	fs.DurationVar(&cfg.MessagePause, "message-pause", cfg.MessagePause, "Pause between messages of a sustained session")
	fs.IntSliceVar(&cfg.MessageSizes, "message-sizes", cfg.MessageSizes, "Message sizes in bytes, picked at random")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "Wait after the sustained test for in-flight sessions")
	fs.DurationVar(&cfg.StatusEvery, "status-interval", cfg.StatusEvery, "Status line interval of the sustained test")

	fs.DurationVar(&cfg.PingInterval, "ping-interval", cfg.PingInterval, "Interval between ping messages")
	fs.IntVar(&cfg.PingCount, "ping-count", cfg.PingCount, "Stop after this many pings (0=until interrupted)")
	fs.StringVar(&cfg.PingMessage, "ping-message", cfg.PingMessage, "Message sent in ping mode")

	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Journal file, appended to on every run")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: none|error|warn|info|debug")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text|json")
	fs.StringVar(&cfg.ColorMode, "color", cfg.ColorMode, "Color output: auto|always|never")

	fs.StringVar(&cfg.ReportJSON, "report-json", cfg.ReportJSON, "Write the final report as JSON to this file")

	fs.StringVar(&cfg.MetricsListen, "metrics-listen", cfg.MetricsListen, "Serve Prometheus metrics on this address (empty=off)")
	fs.StringVar(&cfg.TargetMetricsURL, "target-metrics-url", cfg.TargetMetricsURL, "Prometheus endpoint of the server under test (empty=off)")
	fs.StringSliceVar(&cfg.TargetMetrics, "target-metrics", cfg.TargetMetrics, "Metric names from the server to show on the status line")
	fs.DurationVar(&cfg.TargetMetricsInterval, "target-metrics-interval", cfg.TargetMetricsInterval, "Polling interval for server metrics")
	fs.DurationVar(&cfg.TargetMetricsTimeout, "target-metrics-timeout", cfg.TargetMetricsTimeout, "HTTP timeout for server metrics")

	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Store the final report in this Redis (empty=off)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database")
	fs.StringVar(&cfg.RedisKeyPrefix, "redis-key-prefix", cfg.RedisKeyPrefix, "Key prefix for stored reports")
	fs.DurationVar(&cfg.RedisTTL, "redis-ttl", cfg.RedisTTL, "Expiry of stored reports (0=never)")

	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug output (including FX logs)")
}

// LoadConfig parses args into a fresh Config. Precedence is flag, then
// ECHOPROBE_* environment variable, then config file, then default.
func LoadConfig(name string, args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	RegisterFlags(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(definitions.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", errors2.ErrInvalidConfig, path, err)
		}
	}

	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToWeakSliceHookFunc(","),
		trimStringsHook(),
	)

	if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("%w: %w", errors2.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// trimStringsHook removes blanks around the elements of comma separated lists
// before they are converted to the element type. An empty list becomes nil.
func trimStringsHook() mapstructure.DecodeHookFuncType {
	return func(_ reflect.Type, _ reflect.Type, data any) (any, error) {
		list, ok := data.([]string)
		if !ok {
			return data, nil
		}

		trimmed := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				trimmed = append(trimmed, item)
			}
		}

		if len(trimmed) == 0 {
			return nil, nil
		}

		return trimmed, nil
	}
}

var configValidator = sync.OnceValue(func() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}

		return name
	})

	_ = validate.RegisterValidation("fits_buffer", validateFitsBuffer)
	_ = validate.RegisterValidation("log_level", validateLogLevel)

	return validate
})

// validateFitsBuffer ensures a message (or message size) is not larger than the receive buffer.
func validateFitsBuffer(fl validator.FieldLevel) bool {
	var conf Config

	switch parent := fl.Parent().Interface().(type) {
	case Config:
		conf = parent
	case *Config:
		conf = *parent
	default:
		return false
	}

	field := fl.Field()

	switch field.Kind() {
	case reflect.String:
		return field.Len() <= conf.BufferSize
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int() <= int64(conf.BufferSize)
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := log.ParseLogLevel(fl.Field().String())

	return err == nil
}

// Validate rejects values that would make a run meaningless. Every failure
// wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	err := configValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %w", errors2.ErrInvalidConfig, err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, describeFieldError(fe))
	}

	return fmt.Errorf("%w: %s", errors2.ErrInvalidConfig, strings.Join(messages, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")

	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return fmt.Sprintf("%s must be set", field)
	case "fits_buffer":
		return fmt.Sprintf("%s=%v does not fit into the receive buffer", field, fe.Value())
	case "log_level":
		return fmt.Sprintf("%s: unknown log level %q", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s=%v must be one of [%s]", field, fe.Value(), fe.Param())
	}

	if fe.Param() != "" {
		return fmt.Sprintf("%s=%v fails %s=%s", field, fe.Value(), fe.Tag(), fe.Param())
	}

	return fmt.Sprintf("%s=%v fails %s", field, fe.Value(), fe.Tag())
}

// Target returns the echo server address.
func (c *Config) Target() Target {
	return Target{Host: c.Host, Port: c.Port}
}

// SessionOptions returns the per-session settings.
func (c *Config) SessionOptions() SessionOptions {
	return SessionOptions{Timeout: c.Timeout, BufferSize: c.BufferSize, ProxyProtocol: c.ProxyProtocol}
}

// BasicParams configures the single-session functional check.
type BasicParams struct {
	Target   Target
	Session  SessionOptions
	Payloads []string
}

// BurstParams configures the burst scenario.
type BurstParams struct {
	Target        Target
	Session       SessionOptions
	Clients       int
	BatchSize     int
	BatchInterval time.Duration
}

// SustainedParams configures the sustained load scenario.
type SustainedParams struct {
	Target             Target
	Session            SessionOptions
	Duration           time.Duration
	Rate               int
	MessagesPerSession int
	MessagePause       time.Duration
	MessageSizes       []int
	GracePeriod        time.Duration
	StatusEvery        time.Duration
}

func (c *Config) BasicParams() BasicParams {
	return BasicParams{Target: c.Target(), Session: c.SessionOptions(), Payloads: BasicPayloads(c.BufferSize)}
}

func (c *Config) BurstParams() BurstParams {
	return BurstParams{
		Target:        c.Target(),
		Session:       c.SessionOptions(),
		Clients:       c.BurstClients,
		BatchSize:     c.BurstBatchSize,
		BatchInterval: c.BurstBatchInterval,
	}
}

func (c *Config) SustainedParams() SustainedParams {
	return SustainedParams{
		Target:             c.Target(),
		Session:            c.SessionOptions(),
		Duration:           c.SustainedDuration,
		Rate:               c.SustainedRate,
		MessagesPerSession: c.MessagesPerSession,
		MessagePause:       c.MessagePause,
		MessageSizes:       slices.Clone(c.MessageSizes),
		GracePeriod:        c.GracePeriod,
		StatusEvery:        c.StatusEvery,
	}
}
