package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFile           string `mapstructure:"LOG_FILE"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage backend: "mongo", "firestore" or "memory".
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB  int    `mapstructure:"REDIS_SESSION_DB"`
	RedisQueueDB    int    `mapstructure:"REDIS_QUEUE_DB"`
	SessionStore    string `mapstructure:"SESSION_STORE"`
	SessionSecret   string `mapstructure:"SESSION_SECRET"`
	SessionTTLHours int    `mapstructure:"SESSION_TTL_HOURS"`

	// Firebase.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseBucket          string `mapstructure:"FIREBASE_BUCKET"`
	AdminTopic              string `mapstructure:"ADMIN_TOPIC"`

	// Notifications.
	NotifyMode   string `mapstructure:"NOTIFY_MODE"`
	AdminEmail   string `mapstructure:"ADMIN_EMAIL"`
	FromEmail    string `mapstructure:"FROM_EMAIL"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// Service presentation.
	ServiceName      string `mapstructure:"SERVICE_NAME"`
	WhatsAppNumber   string `mapstructure:"WHATSAPP_NUMBER"`
	EmergencyContact string `mapstructure:"EMERGENCY_CONTACT"`
	TrackingBaseURL  string `mapstructure:"TRACKING_BASE_URL"`
	Timezone         string `mapstructure:"TIMEZONE"`

	// "permissive" or "strict".
	TransitionMode string `mapstructure:"TRANSITION_MODE"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("STORE_BACKEND", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("DATABASE_NAME", "ambulance")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 3)
	v.SetDefault("SESSION_STORE", "redis")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_TTL_HOURS", 12)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "config/firebase-service-account.json")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_BUCKET", "")
	v.SetDefault("ADMIN_TOPIC", "ambulance-admins")
	v.SetDefault("NOTIFY_MODE", "inline")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("FROM_EMAIL", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SERVICE_NAME", "Om Ambulance Service Patna")
	v.SetDefault("WHATSAPP_NUMBER", "917260871851")
	v.SetDefault("EMERGENCY_CONTACT", "8084527516")
	v.SetDefault("TRACKING_BASE_URL", "http://localhost:8080/track")
	v.SetDefault("TIMEZONE", "Asia/Kolkata")
	v.SetDefault("TRANSITION_MODE", "permissive")
}

// Load reads config.yaml (from "." or "./config") and the environment into a
// Config. Environment variables win over the file.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig populates AppConfig from the global viper instance.
func LoadConfig() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// SessionTTL is the lifetime of a signed-in session.
func (c Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Location resolves the configured timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
