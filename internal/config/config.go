package config

import (
	"fmt"
	"math"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/ArkLabsHQ/lnwatch/internal/core/domain"
	"github.com/ArkLabsHQ/lnwatch/utils"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	envPrefix = "LNWATCH"
	envFile   = ".env"

	badgerDb = "badger"
	boltDb   = "bolt"
	sqliteDb = "sqlite"
	pgDb     = "postgres"

	MemoryLedger = "memory"
	LndLedger    = "lnd"
)

// Keys of the environment variables, without the LNWATCH_ prefix.
const (
	Datadir             = "DATADIR"
	DbType              = "DB_TYPE"
	DbDsn               = "DB_DSN"
	HTTPPort            = "HTTP_PORT"
	LogLevel            = "LOG_LEVEL"
	Ledger              = "LEDGER"
	Network             = "NETWORK"
	Mnemonic            = "MNEMONIC"
	ApiKey              = "API_KEY"
	LndHost             = "LND_HOST"
	LndTlsCertPath      = "LND_TLS_CERT_PATH"
	AutoConnect         = "AUTO_CONNECT"
	AutoMonitorPayments = "AUTO_MONITOR_PAYMENTS"
	CheckInterval       = "CHECK_INTERVAL"
	PayTimeout          = "PAY_TIMEOUT"
	DisableMetrics      = "DISABLE_METRICS"
	RedisUrl            = "REDIS_URL"
)

const (
	DefaultDatadir             = "lnwatch"
	DefaultDbType              = badgerDb
	DefaultHTTPPort            = 7001
	DefaultLogLevel            = 4
	DefaultLedger              = MemoryLedger
	DefaultNetwork             = "regtest"
	DefaultAutoConnect         = false
	DefaultAutoMonitorPayments = domain.DefaultAutoMonitorPayments
	DefaultCheckInterval       = 2.0
	DefaultPayTimeout          = 60
	DefaultDisableMetrics      = false
)

type Config struct {
	Datadir    string `mapstructure:"DATADIR" envDefault:"lnwatch" envInfo:"Data directory for the event journal"`
	DbType     string `mapstructure:"DB_TYPE" envDefault:"badger" envInfo:"Journal backend: badger | bolt | sqlite | postgres"`
	DbDsn      string `mapstructure:"DB_DSN" envDefault:"" envInfo:"Postgres connection string, required when DB_TYPE=postgres"`
	HTTPPort   uint32 `mapstructure:"HTTP_PORT" envDefault:"7001" envInfo:"HTTP server port"`
	LogLevel   uint32 `mapstructure:"LOG_LEVEL" envDefault:"4" envInfo:"Log verbosity (higher = more verbose)"`
	Ledger     string `mapstructure:"LEDGER" envDefault:"memory" envInfo:"Ledger backend: memory | lnd"`
	NetworkStr string `mapstructure:"NETWORK" envDefault:"regtest" envInfo:"Bitcoin network"`
	Mnemonic   string `mapstructure:"MNEMONIC" envDefault:"" envInfo:"Wallet mnemonic used by auto connect"`
	ApiKey     string `mapstructure:"API_KEY" envDefault:"" envInfo:"Ledger api key, the hex macaroon for lnd"`

	LndHost        string `mapstructure:"LND_HOST" envDefault:"" envInfo:"LND gRPC address (e.g., localhost:10009)"`
	LndTlsCertPath string `mapstructure:"LND_TLS_CERT_PATH" envDefault:"" envInfo:"Path to the LND tls.cert"`

	AutoConnect         bool    `mapstructure:"AUTO_CONNECT" envDefault:"false" envInfo:"Connect at startup with MNEMONIC and API_KEY"`
	AutoMonitorPayments bool    `mapstructure:"AUTO_MONITOR_PAYMENTS" envDefault:"true" envInfo:"Start payment monitoring on connect"`
	CheckInterval       float64 `mapstructure:"CHECK_INTERVAL" envDefault:"2" envInfo:"Balance check interval in seconds"`
	PayTimeout          uint32  `mapstructure:"PAY_TIMEOUT" envDefault:"60" envInfo:"Default payment timeout in seconds"`
	DisableMetrics      bool    `mapstructure:"DISABLE_METRICS" envDefault:"false" envInfo:"Disable the Prometheus endpoint"`
	RedisUrl            string  `mapstructure:"REDIS_URL" envDefault:"" envInfo:"Redis url events are published to, disabled if unset"`

	network domain.Network
}

// LoadConfig reads the configuration from the environment. Variables found in
// an optional .env file in the working directory do not override the ones
// already set.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warnf("failed to load %s file", envFile)
	}

	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := setDefaultConfig(v); err != nil {
		return nil, fmt.Errorf("error setting default config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %v", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	if err := config.initDatadir(); err != nil {
		return nil, fmt.Errorf("error initializing data directory: %w", err)
	}

	return &config, nil
}

func (c *Config) validate() error {
	network, err := domain.ParseNetwork(c.NetworkStr)
	if err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}
	c.network = network

	switch c.DbType {
	case badgerDb, boltDb, sqliteDb:
	case pgDb:
		if c.DbDsn == "" {
			return fmt.Errorf("postgres db requires a dsn")
		}
	default:
		return fmt.Errorf("unsupported db type: %s", c.DbType)
	}

	switch c.Ledger {
	case MemoryLedger:
	case LndLedger:
		if c.LndHost == "" {
			return fmt.Errorf("missing LND host")
		}
		if !utils.IsValidURL(c.LndHost) {
			return fmt.Errorf("invalid LND host %s", c.LndHost)
		}
		c.LndTlsCertPath = cleanAndExpandPath(c.LndTlsCertPath)
	default:
		return fmt.Errorf("unsupported ledger: %s", c.Ledger)
	}

	if c.RedisUrl != "" &&
		!strings.HasPrefix(c.RedisUrl, "redis://") && !strings.HasPrefix(c.RedisUrl, "rediss://") {
		return fmt.Errorf("invalid redis url %s", c.RedisUrl)
	}

	if c.CheckInterval <= 0 || math.IsNaN(c.CheckInterval) || math.IsInf(c.CheckInterval, 0) {
		return fmt.Errorf("check interval must be a positive number of seconds")
	}

	if c.AutoConnect {
		if c.ApiKey == "" {
			return fmt.Errorf("auto connect requires an api key")
		}
		if c.Ledger == MemoryLedger {
			if err := utils.IsValidMnemonic(c.Mnemonic); err != nil {
				return fmt.Errorf("auto connect requires a valid mnemonic: %w", err)
			}
		}
	}
	return nil
}

func (c *Config) initDatadir() error {
	if c.Datadir == DefaultDatadir {
		c.Datadir = appDatadir(DefaultDatadir, false)
	} else {
		c.Datadir = cleanAndExpandPath(c.Datadir)
	}
	return makeDirectoryIfNotExists(c.Datadir)
}

func (c *Config) Network() domain.Network {
	return c.network
}

func (c *Config) CheckIntervalDuration() time.Duration {
	return time.Duration(c.CheckInterval * float64(time.Second))
}

func (c *Config) PayTimeoutDuration() time.Duration {
	return time.Duration(c.PayTimeout) * time.Second
}

func (c *Config) MonitorOptions() domain.MonitorOptions {
	return domain.MonitorOptions{
		AutoMonitorPayments: c.AutoMonitorPayments,
		CheckInterval:       c.CheckIntervalDuration(),
	}
}

func (c *Config) ConnectionConfig() domain.ConnectionConfig {
	return domain.ConnectionConfig{
		Mnemonic:   c.Mnemonic,
		ApiKey:     c.ApiKey,
		Network:    c.network,
		StorageDir: c.Datadir,
	}
}

func setDefaultConfig(v *viper.Viper) error {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := f.Tag.Get("mapstructure")
		def := f.Tag.Get("envDefault")
		if def != "" {
			v.SetDefault(key, def)
		}
		err := v.BindEnv(key)
		if err != nil {
			return fmt.Errorf("error binding env variable for key %s: %w", key, err)
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// appDatadir returns an operating system specific directory to be used for
// storing application data.
func appDatadir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := string(unicode.ToUpper(rune(appName[0]))) + appName[1:]
	appNameLower := string(unicode.ToLower(rune(appName[0]))) + appName[1:]

	var homeDir string
	usr, err := user.Current()
	if err == nil {
		homeDir = usr.HomeDir
	}
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}

	switch runtime.GOOS {
	case "windows":
		// LOCALAPPDATA does not exist before Vista
		appData := os.Getenv("LOCALAPPDATA")
		if roaming || appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}

	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
		}

	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appNameLower)
		}

	default:
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appNameLower)
		}
	}

	return "."
}

func cleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// os.ExpandEnv only understands POSIX-style $VARIABLE
	return filepath.Clean(os.ExpandEnv(path))
}
