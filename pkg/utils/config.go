package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Booking  BookingConfig
}

type AppConfig struct {
	Name            string
	Port            string
	Debug           bool
	LogPath         string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
	Migrate  bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type RabbitMQConfig struct {
	URL string
}

type RefundPolicy string

const (
	RefundPolicyFull RefundPolicy = "full"
	RefundPolicyNone RefundPolicy = "none"
)

type BookingConfig struct {
	HoldDuration           time.Duration
	SweepInterval          time.Duration
	LockTimeout            time.Duration
	MaxSeatsPerHold        int
	MaxHoldsPerVisitor     int
	AllowCrossSessionHolds bool
	RefundPolicy           RefundPolicy
	CleaningBuffer         time.Duration
	ArchiveAfter           time.Duration
	TicketSigningKey       string
}

func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("user=%s password=%s dbname=%s sslmode=disable host=%s port=%s",
		c.User, c.Password, c.Name, c.Host, c.Port)
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	viper.SetDefault("APP_NAME", "cinema-ticketing")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:4200")
	viper.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("DB_MIGRATE", true)

	// Redis and RabbitMQ stay off until an address is configured.
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("AVAILABILITY_CACHE_TTL", "2s")

	viper.SetDefault("HOLD_DURATION", "10m")
	viper.SetDefault("SWEEP_INTERVAL", "5s")
	viper.SetDefault("LEDGER_LOCK_TIMEOUT", "2s")
	viper.SetDefault("MAX_SEATS_PER_HOLD", 10)
	viper.SetDefault("MAX_HOLDS_PER_VISITOR", 0)
	viper.SetDefault("ALLOW_CROSS_SESSION_HOLDS", true)
	viper.SetDefault("REFUND_POLICY", string(RefundPolicyFull))
	viper.SetDefault("SESSION_CLEANING_MINUTES", 15)
	viper.SetDefault("ARCHIVE_AFTER", "24h")

	viper.AutomaticEnv()

	// The .env file is optional; the environment alone is enough.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{
		App: AppConfig{
			Name:            viper.GetString("APP_NAME"),
			Port:            viper.GetString("PORT"),
			Debug:           viper.GetBool("DEBUG"),
			LogPath:         viper.GetString("LOG_PATH"),
			AllowedOrigins:  splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
			ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
			Migrate:  viper.GetBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			CacheTTL: viper.GetDuration("AVAILABILITY_CACHE_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: viper.GetString("RABBITMQ_URL"),
		},
		Booking: BookingConfig{
			HoldDuration:           viper.GetDuration("HOLD_DURATION"),
			SweepInterval:          viper.GetDuration("SWEEP_INTERVAL"),
			LockTimeout:            viper.GetDuration("LEDGER_LOCK_TIMEOUT"),
			MaxSeatsPerHold:        viper.GetInt("MAX_SEATS_PER_HOLD"),
			MaxHoldsPerVisitor:     viper.GetInt("MAX_HOLDS_PER_VISITOR"),
			AllowCrossSessionHolds: viper.GetBool("ALLOW_CROSS_SESSION_HOLDS"),
			RefundPolicy:           RefundPolicy(strings.ToLower(viper.GetString("REFUND_POLICY"))),
			CleaningBuffer:         time.Duration(viper.GetInt("SESSION_CLEANING_MINUTES")) * time.Minute,
			ArchiveAfter:           viper.GetDuration("ARCHIVE_AFTER"),
			TicketSigningKey:       viper.GetString("TICKET_SIGNING_KEY"),
		},
	}

	if err := config.Booking.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c BookingConfig) Validate() error {
	switch {
	case c.HoldDuration <= 0:
		return fmt.Errorf("HOLD_DURATION must be positive, got %s", c.HoldDuration)
	case c.SweepInterval <= 0:
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	case c.MaxSeatsPerHold < 1:
		return fmt.Errorf("MAX_SEATS_PER_HOLD must be at least 1, got %d", c.MaxSeatsPerHold)
	case c.RefundPolicy != RefundPolicyFull && c.RefundPolicy != RefundPolicyNone:
		return fmt.Errorf("REFUND_POLICY must be one of full, none; got %q", c.RefundPolicy)
	case c.TicketSigningKey == "":
		return errors.New("TICKET_SIGNING_KEY is required")
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
