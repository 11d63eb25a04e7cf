package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env     string        `yaml:"env" env:"ENV" env-default:"prod"`
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Storage StorageConfig `yaml:"storage"`
	DB      DBConfig      `yaml:"db"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Redis   RedisConfig   `yaml:"redis"`
	S3      S3Config      `yaml:"s3"`
	Chain   ChainConfig   `yaml:"chain"`
	Auth    AuthConfig    `yaml:"auth"`
	NATS    NATSConfig    `yaml:"nats"`
	Chat    ChatConfig    `yaml:"chat"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR" env-default:"0.0.0.0:5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"20s"`
}

type GRPCConfig struct {
	Port int `yaml:"port" env:"GRPC_PORT" env-default:"50030"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type DBConfig struct {
	Host           string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password       string `yaml:"password" env:"DB_PASSWORD"`
	Name           string `yaml:"name" env:"DB_NAME" env-default:"chat"`
	MinPools       int    `yaml:"min_pools" env:"DB_MIN_POOLS" env-default:"3"`
	MaxPools       int    `yaml:"max_pools" env:"DB_MAX_POOLS" env-default:"5"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"./data/chat.db"`
}

type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"REDIS_ADDR"`
	User       string        `yaml:"user" env:"REDIS_USER"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Expiration time.Duration `yaml:"expiration" env:"REDIS_EXPIRATION" env-default:"10m"`
}

type S3Config struct {
	Endpoint   string        `yaml:"endpoint" env:"S3_ENDPOINT"`
	User       string        `yaml:"user" env:"S3_USER"`
	Password   string        `yaml:"password" env:"S3_PASSWORD"`
	BucketName string        `yaml:"bucket_name" env:"S3_BUCKET_NAME" env-default:"message-images"`
	IsUseSsl   bool          `yaml:"is_use_ssl" env:"S3_IS_USE_SSL" env-default:"false"`
	Expiration time.Duration `yaml:"expiration" env:"S3_EXPIRATION" env-default:"24h"`
}

type ChainConfig struct {
	RPCURL      string        `yaml:"rpc_url" env:"RPC_URL" env-required:"true"`
	CallTimeout time.Duration `yaml:"call_timeout" env:"CHAIN_CALL_TIMEOUT" env-default:"5s"`
	Tag         string        `yaml:"tag" env:"CHAIN_ROOM_TAG" env-default:"Exo-Terra-Chat-Contract"`
}

type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret" env:"TOKEN_SECRET_KEY" env-required:"true"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"1h"`
}

type NATSConfig struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX" env-default:"exoterra"`
}

type ChatConfig struct {
	RecallWindow time.Duration `yaml:"recall_window" env:"CHAT_RECALL_WINDOW" env-default:"120s"`
	MaxPageSize  int           `yaml:"max_page_size" env:"CHAT_MAX_PAGE_SIZE" env-default:"100"`
}

func MustLoad() *Config {
	path := fetchPath()
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads the config file at path, letting the environment override it.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read env: %w", err)
		}
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func fetchPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
