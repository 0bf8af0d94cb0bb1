package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// App holds the runtime configuration loaded from environment variables
// and an optional config file.
type App struct {
	Env      string
	HTTPPort string

	DatabaseURL       string
	RemoteBackend     string
	RemoteTimeout     time.Duration
	BackendConfigured bool
	ProvisionTables   []string
	RefetchAfterWrite []string

	RedisAddr    string
	QueueBackend string
	QueueKey     string
	NATSURL      string
	KafkaBrokers []string

	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RateLimitPerMin int
	CORSOrigins     []string

	// AcademySeeds are registered at startup if their key is free.
	AcademySeeds []AcademySeed
}

// AcademySeed is one ACADEMY_SEEDS entry, written KEY:Name:password.
type AcademySeed struct {
	Key      string
	Name     string
	Password string
}

// placeholderDatabaseURL is what fresh checkouts ship with; it counts as unconfigured.
const placeholderDatabaseURL = "postgres://placeholder"

// Load returns application config populated from the environment with sensible defaults.
func Load() App {
	return load(viper.New())
}

func load(v *viper.Viper) App {
	v.SetDefault("app_env", "dev")
	v.SetDefault("http_port", "8081")
	v.SetDefault("database_url", "")
	v.SetDefault("remote_backend", "postgres")
	v.SetDefault("remote_timeout", 5*time.Second)
	v.SetDefault("provision_tables", "")
	v.SetDefault("refetch_after_write", "batches")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("queue_backend", "memory")
	v.SetDefault("queue_key", "classcaptain:unsynced")
	v.SetDefault("nats_url", "nats://localhost:4222")
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("jwt_issuer", "classcaptain")
	v.SetDefault("jwt_signing_key", "dev-signing-secret-change")
	v.SetDefault("access_ttl", 12*time.Hour)
	v.SetDefault("rate_limit_per_min", 120)
	v.SetDefault("cors_origins", "*")
	v.SetDefault("academy_seeds", "")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("config file ignored: %v", err)
		}
	}
	v.AutomaticEnv()

	cfg := App{
		Env:               v.GetString("app_env"),
		HTTPPort:          v.GetString("http_port"),
		DatabaseURL:       v.GetString("database_url"),
		RemoteBackend:     strings.ToLower(v.GetString("remote_backend")),
		RemoteTimeout:     durationOr(v, "remote_timeout", 5*time.Second),
		ProvisionTables:   splitList(v.GetString("provision_tables")),
		RefetchAfterWrite: splitList(v.GetString("refetch_after_write")),
		RedisAddr:         v.GetString("redis_addr"),
		QueueBackend:      strings.ToLower(v.GetString("queue_backend")),
		QueueKey:          v.GetString("queue_key"),
		NATSURL:           v.GetString("nats_url"),
		KafkaBrokers:      splitList(v.GetString("kafka_brokers")),
		JWTIssuer:         v.GetString("jwt_issuer"),
		JWTSigningKey:     v.GetString("jwt_signing_key"),
		AccessTTL:         durationOr(v, "access_ttl", 12*time.Hour),
		RateLimitPerMin:   v.GetInt("rate_limit_per_min"),
		CORSOrigins:       splitList(v.GetString("cors_origins")),
		AcademySeeds:      parseSeeds(v.GetString("academy_seeds")),
	}
	cfg.BackendConfigured = backendConfigured(cfg)
	return cfg
}

// backendConfigured mirrors the dashboard's startup check: the in-memory backend is
// always available, postgres needs a real connection string.
func backendConfigured(cfg App) bool {
	switch cfg.RemoteBackend {
	case "memory":
		return true
	case "postgres":
		url := strings.TrimSpace(cfg.DatabaseURL)
		return url != "" && !strings.HasPrefix(url, placeholderDatabaseURL)
	default:
		log.Printf("unknown REMOTE_BACKEND %q, treating backend as unconfigured", cfg.RemoteBackend)
		return false
	}
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		log.Printf("invalid duration for %s, using fallback %s", key, fallback)
		return fallback
	}
	return d
}

func parseSeeds(raw string) []AcademySeed {
	var out []AcademySeed
	for _, entry := range splitList(raw) {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" || parts[2] == "" {
			log.Printf("academy seed ignored: want KEY:Name:password")
			continue
		}
		out = append(out, AcademySeed{
			Key:      strings.TrimSpace(parts[0]),
			Name:     strings.TrimSpace(parts[1]),
			Password: parts[2],
		})
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
