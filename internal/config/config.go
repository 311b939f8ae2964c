package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-holder-indexer/internal/domain"
	"github.com/feral-file/ff-holder-indexer/internal/providers/ethereum"
	"github.com/feral-file/ff-holder-indexer/internal/scanner"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // e.g. "5m", "1h"
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // e.g. "10m"
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
}

// RedisConfig holds the snapshot cache configuration
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds the shared eth_getLogs quota. It needs redis.addr.
type RateLimitConfig struct {
	Distributed             bool          `mapstructure:"distributed"`
	KeyPrefix               string        `mapstructure:"key_prefix"`
	LocalFallbackMultiplier float64       `mapstructure:"local_fallback_multiplier"`
	RecheckAfter            time.Duration `mapstructure:"recheck_after"`
}

// Key returns the Redis key of a chain's quota
func (c *RateLimitConfig) Key(chain domain.Chain) string {
	return c.KeyPrefix + string(chain)
}

// EthereumConfig holds Ethereum-specific configuration
type EthereumConfig struct {
	RPCURL               string        `mapstructure:"rpc_url"`
	ChainID              domain.Chain  `mapstructure:"chain_id"`
	StartBlock           uint64        `mapstructure:"start_block"`
	BlockHeadTTL         time.Duration `mapstructure:"block_head_ttl"`
	BlockHeadStaleWindow time.Duration `mapstructure:"block_head_stale_window"`
	Confirmations        uint64        `mapstructure:"confirmations"`

	Logs ethereum.QuerierConfig `mapstructure:"logs"`
}

// HoldersConfig holds the holder scan defaults
type HoldersConfig struct {
	DefaultTopN      int `mapstructure:"default_top_n"`
	BatchConcurrency int `mapstructure:"batch_concurrency"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys      []string `mapstructure:"api_keys"`
	JWTPublicKey string   `mapstructure:"jwt_public_key"` // PEM encoded RSA public key
}

// CLIConfig holds configuration for the holders command
type CLIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Ethereum   EthereumConfig `mapstructure:"ethereum"`
	Scan       scanner.Config `mapstructure:"scan"`
	Holders    HoldersConfig  `mapstructure:"holders"`
	Database   DatabaseConfig `mapstructure:"database"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig    `mapstructure:"server"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Ethereum   EthereumConfig  `mapstructure:"ethereum"`
	Scan       scanner.Config  `mapstructure:"scan"`
	Holders    HoldersConfig   `mapstructure:"holders"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Redis      RedisConfig     `mapstructure:"redis"`
	NATS       NATSConfig      `mapstructure:"nats"`
	RateLimit  RateLimitConfig `mapstructure:"ratelimit"`
}

// LoadCLIConfig loads configuration for the holders command.
// The database section is optional; without a host no store is used.
func LoadCLIConfig(configFile string, envPath string) (*CLIConfig, error) {
	v := configureViper("holders", configFile, envPath)

	// Set defaults
	setEthereumDefaults(v)
	setScanDefaults(v)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config CLIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Ethereum.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.idle_timeout", 120)
	setEthereumDefaults(v)
	setScanDefaults(v)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "10m")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "HOLDERS")
	v.SetDefault("nats.connection_name", "holders-api")
	v.SetDefault("ratelimit.distributed", false)
	v.SetDefault("ratelimit.key_prefix", "ratelimit:getlogs:")
	v.SetDefault("ratelimit.local_fallback_multiplier", 0.5)
	v.SetDefault("ratelimit.recheck_after", "10s")

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Ethereum.validate(); err != nil {
		return nil, err
	}
	if config.RateLimit.Distributed && config.Redis.Addr == "" {
		return nil, errors.New("ratelimit.distributed requires redis.addr")
	}

	return &config, nil
}

func setEthereumDefaults(v *viper.Viper) {
	v.SetDefault("ethereum.chain_id", string(domain.ChainEthereumMainnet))
	v.SetDefault("ethereum.block_head_ttl", "12s")
	v.SetDefault("ethereum.block_head_stale_window", "60s")
	v.SetDefault("ethereum.confirmations", 0)
	v.SetDefault("ethereum.logs.query_timeout", "20s")
	v.SetDefault("ethereum.logs.requests_per_second", 10)
	v.SetDefault("ethereum.logs.burst", 1)
	v.SetDefault("ethereum.logs.retry_initial_interval", "500ms")
	v.SetDefault("ethereum.logs.retry_max_elapsed", "30s")
}

func setScanDefaults(v *viper.Viper) {
	v.SetDefault("scan.default_chunk_size", domain.DEFAULT_CHUNK_SIZE)
	v.SetDefault("scan.min_chunk_size", domain.DEFAULT_MIN_CHUNK_SIZE)
	v.SetDefault("scan.max_chunk_size", domain.DEFAULT_MAX_CHUNK_SIZE)
	v.SetDefault("scan.grow_after", domain.DEFAULT_GROW_AFTER)
	v.SetDefault("scan.direction", string(domain.ScanDirectionDesc))
	v.SetDefault("holders.default_top_n", domain.DEFAULT_TOP_N)
	v.SetDefault("holders.batch_concurrency", 4)
}

// readConfig reads the config file, falling back to environment variables when it does not exist
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func (c *EthereumConfig) validate() error {
	if c.RPCURL == "" {
		return errors.New("ethereum.rpc_url is required")
	}
	if !domain.IsValidChain(c.ChainID) {
		return fmt.Errorf("unsupported ethereum.chain_id: %s", c.ChainID)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("HOLDERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars binds every key so env-only deployments unmarshal without a config file
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		// Ethereum
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.start_block",
		"ethereum.block_head_ttl",
		"ethereum.block_head_stale_window",
		"ethereum.confirmations",
		"ethereum.logs.query_timeout",
		"ethereum.logs.requests_per_second",
		"ethereum.logs.burst",
		"ethereum.logs.retry_initial_interval",
		"ethereum.logs.retry_max_elapsed",
		// Scan
		"scan.default_chunk_size",
		"scan.min_chunk_size",
		"scan.max_chunk_size",
		"scan.grow_after",
		"scan.direction",
		"holders.default_top_n",
		"holders.batch_concurrency",
		// Database
		"database.host",
		"database.port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// Redis
		"redis.addr",
		"redis.password",
		"redis.db",
		"redis.ttl",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		// Rate limit
		"ratelimit.distributed",
		"ratelimit.key_prefix",
		"ratelimit.local_fallback_multiplier",
		"ratelimit.recheck_after",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.api_keys",
		"auth.jwt_public_key",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// shared base first, then local, then the per-service local file
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		_ = godotenv.Overload(filepath.Join(envPath, envFile))
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// Enabled reports whether a database host is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
