package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "PRODMNG"
	configFileEnvName = "PRODMNG_CONFIG_FILE"
)

var ErrInvalidConfig = errors.New("invalid config")

var (
	overlayBackends = []string{"file", "sql", "memory"}
	idGenerators    = []string{"clock", "uuid"}
)

type remote struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Deadline       time.Duration `mapstructure:"deadline"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Token          string        `mapstructure:"token"`
	TempToken      string        `mapstructure:"temp_token"`
	RefreshOnStart bool          `mapstructure:"refresh_on_start"`
}

type overlay struct {
	Backend string `mapstructure:"backend"`
	Key     string `mapstructure:"key"`
	Dir     string `mapstructure:"dir"`
	SQLDSN  string `mapstructure:"sql_dsn"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

type events struct {
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	Topic              string   `mapstructure:"topic"`
	TLS                tlsFiles `mapstructure:"tls"`
}

// Enabled reports whether product events are published.
func (e events) Enabled() bool {
	return len(e.SeedBrokers) != 0
}

type Config struct {
	LogLevel       slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr string        `mapstructure:"http_server_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	IDGenerator    string        `mapstructure:"id_generator"`
	Remote         remote        `mapstructure:"remote"`
	Overlay        overlay       `mapstructure:"overlay"`
	Events         events        `mapstructure:"events"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("request_timeout", 5*time.Second)
	v.SetDefault("id_generator", "clock")

	v.SetDefault("remote.base_url", "https://fakestoreapi.com")
	v.SetDefault("remote.timeout", 2*time.Second)
	v.SetDefault("remote.deadline", 4*time.Second)
	v.SetDefault("remote.retry_attempts", 3)
	v.SetDefault("remote.retry_delay", 200*time.Millisecond)
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.temp_token", "")
	v.SetDefault("remote.refresh_on_start", true)

	v.SetDefault("overlay.backend", "file")
	v.SetDefault("overlay.key", "prodMngData")
	v.SetDefault("overlay.dir", "data")
	v.SetDefault("overlay.sql_dsn", "")

	v.SetDefault("events.seed_brokers", []string{})
	v.SetDefault("events.schema_registry_urls", []string{})
	v.SetDefault("events.topic", "product-events")
	v.SetDefault("events.tls.ca", "")
	v.SetDefault("events.tls.cert", "")
	v.SetDefault("events.tls.key", "")
}

// Load reads the config file named by the --config flag or the
// PRODMNG_CONFIG_FILE variable. A .env file in the working directory is
// loaded into the environment first. The process exits on failure.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		die(err)
	}

	cfg, err := Read(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// Read builds the config from defaults, the optional YAML file at path and
// PRODMNG_* environment variables, in increasing priority.
func Read(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !slices.Contains(overlayBackends, c.Overlay.Backend) {
		return fmt.Errorf("%w: overlay.backend %q, want one of %q",
			ErrInvalidConfig, c.Overlay.Backend, overlayBackends)
	}
	if c.Overlay.Backend == "sql" && c.Overlay.SQLDSN == "" {
		return fmt.Errorf("%w: overlay.sql_dsn is required for the sql backend",
			ErrInvalidConfig)
	}
	if !slices.Contains(idGenerators, c.IDGenerator) {
		return fmt.Errorf("%w: id_generator %q, want one of %q",
			ErrInvalidConfig, c.IDGenerator, idGenerators)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	// The deadline covers every remote attempt of a request, so the
	// response is written before the request timeout fires.
	if c.Remote.Deadline <= 0 || c.Remote.Deadline >= c.RequestTimeout {
		return fmt.Errorf("%w: remote.deadline %s must be positive and below request_timeout %s",
			ErrInvalidConfig, c.Remote.Deadline, c.RequestTimeout)
	}
	if c.Remote.RetryAttempts < 1 {
		return fmt.Errorf("%w: remote.retry_attempts must be positive",
			ErrInvalidConfig)
	}
	if c.Events.Enabled() && len(c.Events.SchemaRegistryURLs) == 0 {
		return fmt.Errorf("%w: events.schema_registry_urls is required with seed brokers",
			ErrInvalidConfig)
	}
	return nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	RequestTimeout=%s
	IDGenerator=%q

	Remote:
	BaseURL=%q
	Timeout=%s
	Deadline=%s
	RetryAttempts=%d
	RetryDelay=%s
	Token=%q
	TempToken=%q
	RefreshOnStart=%t

	Overlay:
	Backend=%q
	Key=%q
	Dir=%q
	SQLDSN=%q

	Events:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topic=%q
	TLS:
		CA=%q
		Cert=%q
		Key=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.RequestTimeout,
		c.IDGenerator,
		c.Remote.BaseURL,
		c.Remote.Timeout,
		c.Remote.Deadline,
		c.Remote.RetryAttempts,
		c.Remote.RetryDelay,
		mask(c.Remote.Token),
		mask(c.Remote.TempToken),
		c.Remote.RefreshOnStart,
		c.Overlay.Backend,
		c.Overlay.Key,
		c.Overlay.Dir,
		maskDSN(c.Overlay.SQLDSN),
		c.Events.SeedBrokers,
		c.Events.SchemaRegistryURLs,
		c.Events.Topic,
		c.Events.TLS.CA,
		c.Events.TLS.Cert,
		c.Events.TLS.Key,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// maskDSN hides the password of a URL style DSN and the whole value of
// any other non-empty DSN.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return mask(dsn)
	}
	return u.Redacted()
}
