package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Clinic   ClinicConfig   `mapstructure:"clinic"`
	Email    EmailConfig    `mapstructure:"email"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// AlertsConfig holds the expiry windows in days and the scan schedule.
type AlertsConfig struct {
	ExpiryCriticalDays int           `mapstructure:"expiry_critical_days"`
	ExpiryWarningDays  int           `mapstructure:"expiry_warning_days"`
	ExpiryNoticeDays   int           `mapstructure:"expiry_notice_days"`
	ScanInterval       time.Duration `mapstructure:"scan_interval"`
	DailyScanAt        string        `mapstructure:"daily_scan_at"`
}

type ClinicConfig struct {
	Name     string `mapstructure:"name"`
	Address  string `mapstructure:"address"`
	Phone    string `mapstructure:"phone"`
	Currency string `mapstructure:"currency"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads .env, an optional config.yaml and the environment, in that order
// of increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("jwt.issuer", "clinic-ops")

	v.SetDefault("alerts.expiry_critical_days", 30)
	v.SetDefault("alerts.expiry_warning_days", 60)
	v.SetDefault("alerts.expiry_notice_days", 90)
	v.SetDefault("alerts.scan_interval", time.Hour)
	v.SetDefault("alerts.daily_scan_at", "01:00")

	v.SetDefault("clinic.name", "Medical Clinic")
	v.SetDefault("clinic.currency", "NGN")

	v.SetDefault("email.port", 587)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// bindEnvVariables maps the flat variable names used in deployment .env files.
func bindEnvVariables(v *viper.Viper) {
	bindings := map[string]string{
		"server.port":                 "PORT",
		"server.mode":                 "GIN_MODE",
		"database.host":               "DB_HOST",
		"database.port":               "DB_PORT",
		"database.user":               "DB_USER",
		"database.password":           "DB_PASSWORD",
		"database.name":               "DB_NAME",
		"database.sslmode":            "DB_SSLMODE",
		"log.level":                   "LOG_LEVEL",
		"log.format":                  "LOG_FORMAT",
		"jwt.secret":                  "JWT_SECRET",
		"alerts.expiry_critical_days": "ALERT_EXPIRY_CRITICAL_DAYS",
		"alerts.expiry_warning_days":  "ALERT_EXPIRY_WARNING_DAYS",
		"alerts.expiry_notice_days":   "ALERT_EXPIRY_NOTICE_DAYS",
		"clinic.name":                 "CLINIC_NAME",
		"clinic.address":              "CLINIC_ADDRESS",
		"clinic.phone":                "CLINIC_PHONE",
		"clinic.currency":             "CURRENCY",
		"email.enabled":               "EMAIL_ENABLED",
		"email.host":                  "EMAIL_HOST",
		"email.port":                  "EMAIL_PORT",
		"email.username":              "EMAIL_USER",
		"email.password":              "EMAIL_PASSWORD",
		"email.from":                  "EMAIL_FROM",
		"email.to":                    "EMAIL_TO",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

func (c *Config) Validate() error {
	if c.Server.Mode == "release" && c.JWT.Secret == "" {
		return errors.New("jwt.secret is required in release mode")
	}
	a := c.Alerts
	if a.ExpiryCriticalDays < 0 ||
		a.ExpiryCriticalDays >= a.ExpiryWarningDays ||
		a.ExpiryWarningDays >= a.ExpiryNoticeDays {
		return fmt.Errorf("alert expiry windows must increase: critical=%d warning=%d notice=%d",
			a.ExpiryCriticalDays, a.ExpiryWarningDays, a.ExpiryNoticeDays)
	}
	return nil
}
