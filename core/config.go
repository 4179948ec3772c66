package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		DisableReqLogs     bool
	}

	DatabaseConfig struct {
		Engine     string // memory | postgres
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	ProgressConfig struct {
		MaxRetries  int
		BaseBackoff time.Duration
	}

	CacheConfig struct {
		TTL               time.Duration
		MaxSize           int
		CleanupInterval   time.Duration
		BackgroundCleanup bool
	}

	RateLimitConfig struct {
		PerSecond float64
		Burst     int
		IdleTTL   time.Duration
		MaxKeys   int
	}

	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		Progress  ProgressConfig
		Cache     CacheConfig
		RateLimit RateLimitConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dbc.Host, dbc.Port)
}

func (dbc DatabaseConfig) InMemory() bool {
	return dbc.Engine == "" || dbc.Engine == "memory"
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Masomo")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8080")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "masomo")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("progress.maxRetries", 3)
	v.SetDefault("progress.baseBackoff", 10*time.Millisecond)

	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.maxSize", 1000)
	v.SetDefault("cache.cleanupInterval", time.Minute)
	v.SetDefault("cache.backgroundCleanup", true)

	v.SetDefault("rateLimit.perSecond", 5.0)
	v.SetDefault("rateLimit.burst", 10)
	v.SetDefault("rateLimit.idleTTL", 10*time.Minute)
	v.SetDefault("rateLimit.maxKeys", 10000)
}

// NewConfig loads the app configuration: defaults, then `config/.env.<env>` (if any), then the environment.
// Env variables are prefixed with the env name, eg: PROD_CACHE_TTL=1m
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return fromViper(env, v)
}

func fromViper(env string, v *viper.Viper) *Config {
	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     env == "TEST",
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Progress: ProgressConfig{
			MaxRetries:  v.GetInt("progress.maxRetries"),
			BaseBackoff: v.GetDuration("progress.baseBackoff"),
		},
		Cache: CacheConfig{
			TTL:               v.GetDuration("cache.ttl"),
			MaxSize:           v.GetInt("cache.maxSize"),
			CleanupInterval:   v.GetDuration("cache.cleanupInterval"),
			BackgroundCleanup: v.GetBool("cache.backgroundCleanup"),
		},
		RateLimit: RateLimitConfig{
			PerSecond: v.GetFloat64("rateLimit.perSecond"),
			Burst:     v.GetInt("rateLimit.burst"),
			IdleTTL:   v.GetDuration("rateLimit.idleTTL"),
			MaxKeys:   v.GetInt("rateLimit.maxKeys"),
		},
	}
}

// NewTestConfig returns the default configuration in TEST mode, without reading the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	conf := fromViper("TEST", v)
	conf.SecretKey = "secret"
	conf.Server.DisableReqLogs = true
	conf.Cache.BackgroundCleanup = false
	conf.Progress.BaseBackoff = time.Millisecond
	return conf
}
