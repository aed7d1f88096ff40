// config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	MySQL         DatabaseConfiguration
	Redis         RedisConfiguration
	Auth          AuthConfiguration
	RateLimit     RateLimitConfiguration
	Cache         CacheConfiguration
	Elasticsearch ElasticsearchConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfiguration stores data for the MySQL connection
type DatabaseConfiguration struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfiguration stores data for the Redis connection
type RedisConfiguration struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// AuthConfiguration stores token verification settings
type AuthConfiguration struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// RouteLimit is the admission budget for a single route identity.
type RouteLimit struct {
	Limit  int
	Window time.Duration
}

// RateLimitConfiguration enumerates per-route budgets and the degradation
// policy applied when the shared store is unreachable. FailOpenReads and
// FailOpenWrites are explicit so the fail-open/fail-closed choice is
// configuration, never an assumption baked into code.
type RateLimitConfiguration struct {
	DefaultLimit   int
	DefaultWindow  time.Duration
	Routes         map[string]RouteLimit
	FailOpenReads  bool
	FailOpenWrites bool
}

// CacheConfiguration stores response cache settings
type CacheConfiguration struct {
	DefaultTTL        time.Duration
	ResourceTTL       map[string]time.Duration
	InvalidateRetries int
	InvalidateBackoff time.Duration
}

// ElasticsearchConfiguration stores data for the audit trail connection
type ElasticsearchConfiguration struct {
	URL string
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdownTimeout", "5s")
	viper.SetDefault("mysql.dsn", "vanguard:vanguard@tcp(localhost:3306)/vanguard?parseTime=true")
	viper.SetDefault("mysql.maxOpenConns", 25)
	viper.SetDefault("mysql.maxIdleConns", 5)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.dialTimeout", "2s")
	viper.SetDefault("redis.readTimeout", "500ms")
	viper.SetDefault("redis.writeTimeout", "500ms")
	viper.SetDefault("redis.poolSize", 20)
	viper.SetDefault("auth.issuer", "vanguard")
	viper.SetDefault("auth.tokenTTL", "30m")
	viper.SetDefault("ratelimit.defaultLimit", 100)
	viper.SetDefault("ratelimit.defaultWindow", "60s")
	viper.SetDefault("ratelimit.failOpenReads", true)
	viper.SetDefault("ratelimit.failOpenWrites", false)
	viper.SetDefault("cache.defaultTTL", "5m")
	viper.SetDefault("cache.invalidateRetries", 3)
	viper.SetDefault("cache.invalidateBackoff", "50ms")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("log.dir", "logging")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	if err := viper.Unmarshal(&config); err != nil {
		return err
	}

	return validate(config)
}

// validate rejects configurations the pipeline cannot run with.
func validate(c *Configuration) error {
	if c.RateLimit.DefaultLimit <= 0 {
		return fmt.Errorf("ratelimit.defaultLimit must be positive, got %d", c.RateLimit.DefaultLimit)
	}
	if c.RateLimit.DefaultWindow <= 0 {
		return fmt.Errorf("ratelimit.defaultWindow must be positive, got %s", c.RateLimit.DefaultWindow)
	}
	for route, rl := range c.RateLimit.Routes {
		if rl.Limit <= 0 || rl.Window <= 0 {
			return fmt.Errorf("invalid rate limit for route %q: limit=%d window=%s", route, rl.Limit, rl.Window)
		}
	}
	if c.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.defaultTTL must be positive, got %s", c.Cache.DefaultTTL)
	}
	if c.Cache.InvalidateRetries < 0 {
		return fmt.Errorf("cache.invalidateRetries must not be negative, got %d", c.Cache.InvalidateRetries)
	}
	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
