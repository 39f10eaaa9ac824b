package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/tomfuertes/murmur/pkg/config"
	"github.com/tomfuertes/murmur/pkg/database"
)

type Config struct {
	Server    ServerConfig
	Room      RoomConfig
	WebSocket WebSocketConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Prefilter PrefilterConfig
	Oracle    OracleConfig
	Verify    VerifyConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RoomConfig struct {
	ID            string
	MaxListeners  int `mapstructure:"max_listeners"`
	RecentPrompts int `mapstructure:"recent_prompts"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type RateLimitConfig struct {
	Backend      string        // database, redis
	GlobalLimit  int           `mapstructure:"global_limit"`
	GlobalWindow time.Duration `mapstructure:"global_window"`
	SourceLimit  int           `mapstructure:"source_limit"`
	SourceWindow time.Duration `mapstructure:"source_window"`
}

type PrefilterConfig struct {
	ExtraPatterns []string `mapstructure:"extra_patterns"`
}

type OracleConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	ModerationTimeout time.Duration `mapstructure:"moderation_timeout"`
	InterpretTimeout  time.Duration `mapstructure:"interpret_timeout"`
}

type VerifyConfig struct {
	Enabled  bool
	Endpoint string
	Secret   string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// Database converts the section into the shared opener's config.
func (c DatabaseConfig) Database() *database.Config {
	return &database.Config{
		Driver:          c.Driver,
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		DBName:          c.DBName,
		SSLMode:         c.SSLMode,
		FilePath:        c.FilePath,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("room.id", "main")
	v.SetDefault("room.max_listeners", 100)
	v.SetDefault("room.recent_prompts", 20)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("rate_limit.backend", "database")
	v.SetDefault("rate_limit.global_limit", 12)
	v.SetDefault("rate_limit.global_window", "1m")
	v.SetDefault("rate_limit.source_limit", 3)
	v.SetDefault("rate_limit.source_window", "1m")
	v.SetDefault("prefilter.extra_patterns", []string{})
	v.SetDefault("oracle.base_url", "https://api.openai.com/v1")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.moderation_timeout", "10s")
	v.SetDefault("oracle.interpret_timeout", "30s")
	v.SetDefault("verify.enabled", false)
	v.SetDefault("verify.endpoint", "")
	v.SetDefault("verify.secret", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "murmur")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "murmur")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "murmur.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "murmur")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "murmur.updates")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("room.id", "ROOM_ID")
	v.BindEnv("oracle.base_url", "ORACLE_BASE_URL")
	v.BindEnv("oracle.api_key", "ORACLE_API_KEY")
	v.BindEnv("oracle.model", "ORACLE_MODEL")
	v.BindEnv("verify.secret", "VERIFY_SECRET")
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.RateLimit.GlobalWindow = parseDuration(v, "rate_limit.global_window", time.Minute)
	cfg.RateLimit.SourceWindow = parseDuration(v, "rate_limit.source_window", time.Minute)
	cfg.Oracle.ModerationTimeout = parseDuration(v, "oracle.moderation_timeout", 10*time.Second)
	cfg.Oracle.InterpretTimeout = parseDuration(v, "oracle.interpret_timeout", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
