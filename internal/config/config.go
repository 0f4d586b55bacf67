package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Bridge transports.
const (
	BridgeTransportWebSocket = "websocket"
	BridgeTransportNATS      = "nats"
)

// Token stores.
const (
	TokenStoreNone      = "none"
	TokenStorePostgres  = "postgres"
	TokenStoreFirestore = "firestore"
	TokenStoreREST      = "rest"
)

type Config struct {
	Port    string
	GinMode string

	// Firebase
	FirebaseProjectID string
	FirebaseCredJSON  string
	FirebaseVAPIDKey  string

	// FirebaseWeb is the client-side Firebase config handed to the background
	// delivery worker. Loaded from the config file.
	FirebaseWeb map[string]string `yaml:"firebase_web"`

	// Push Notifications
	PushNotificationsEnabled bool // Enable/disable server-side test pushes (default: true)
	PushDryRun               bool // Validate test pushes with FCM without delivering them

	// Native bridge
	BridgeTransport    string
	NatsURL            string
	BridgeProbeTimeout time.Duration
	BridgeCallTimeout  time.Duration

	// Console behaviour
	ToastTimeout     time.Duration
	DeepLinkDelay    time.Duration
	EventLogCapacity int

	// Token submission
	TokenStore       string
	DatabaseURL      string
	TokenRESTURL     string
	TokenRESTAPIKey  string
	TokenRESTTimeout time.Duration

	// Database Connection Pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime int // in minutes
	DBConnMaxLifetime int // in minutes

	// Server
	ServerShutdownTimeoutSeconds int

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string
}

var (
	AppConfig *Config

	DefaultToastTimeout       = 5 * time.Second
	DefaultDeepLinkDelay      = 1 * time.Second
	DefaultBridgeProbeTimeout = 3 * time.Second
	DefaultBridgeCallTimeout  = 15 * time.Second
	DefaultEventLogCapacity   = 20
)

// LoadConfig populates AppConfig from .env, the environment and the optional config file.
func LoadConfig() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = FromEnv()

	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	configFile, err := os.Open(configFilePath)
	if err != nil {
		log.Printf("No config file at %s, worker handoff will carry an empty Firebase config", configFilePath)
	} else {
		defer configFile.Close()
		log.Printf("Loading config file: %v", configFilePath)
		if err := LoadConfigFile(configFile, AppConfig); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}

	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if AppConfig.FirebaseProjectID == "" {
		log.Println("Warning: Firebase project ID is missing. Test pushes are disabled.")
	}

	if AppConfig.FirebaseVAPIDKey == "" {
		log.Println("Warning: FIREBASE_VAPID_KEY is missing. Web clients will not be able to request a token.")
	}

	log.Printf("Bridge transport: %s, token store: %s", AppConfig.BridgeTransport, AppConfig.TokenStore)
}

// FromEnv builds a Config from environment variables only.
func FromEnv() *Config {
	return &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Firebase
		FirebaseProjectID: getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
		FirebaseCredJSON:  getEnvOrDefault("FIREBASE_CRED_JSON", ""),
		FirebaseVAPIDKey:  strings.TrimSpace(getEnvOrDefault("FIREBASE_VAPID_KEY", "")),

		// Push Notifications
		PushNotificationsEnabled: getEnvOrDefault("PUSH_NOTIFICATIONS_ENABLED", "true") == "true",
		PushDryRun:               getEnvOrDefault("PUSH_DRY_RUN", "false") == "true",

		// Native bridge
		BridgeTransport:    strings.ToLower(getEnvOrDefault("BRIDGE_TRANSPORT", BridgeTransportWebSocket)),
		NatsURL:            getEnvOrDefault("NATS_URL", ""),
		BridgeProbeTimeout: getEnvAsDuration("BRIDGE_PROBE_TIMEOUT", DefaultBridgeProbeTimeout),
		BridgeCallTimeout:  getEnvAsDuration("BRIDGE_CALL_TIMEOUT", DefaultBridgeCallTimeout),

		// Console behaviour
		ToastTimeout:     getEnvAsDuration("TOAST_TIMEOUT", DefaultToastTimeout),
		DeepLinkDelay:    getEnvAsDuration("DEEP_LINK_DELAY", DefaultDeepLinkDelay),
		EventLogCapacity: getEnvAsInt("EVENT_LOG_CAPACITY", DefaultEventLogCapacity),

		// Token submission
		TokenStore:       strings.ToLower(getEnvOrDefault("TOKEN_STORE", TokenStoreNone)),
		DatabaseURL:      getEnvOrDefault("DATABASE_URL", "postgres://localhost/push_bridge?sslmode=disable"),
		TokenRESTURL:     getEnvOrDefault("TOKEN_REST_URL", ""),
		TokenRESTAPIKey:  strings.TrimSpace(getEnvOrDefault("TOKEN_REST_API_KEY", "")),
		TokenRESTTimeout: getEnvAsDuration("TOKEN_REST_TIMEOUT", 10*time.Second),

		// Database Connection Pool
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 5),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		DBConnMaxIdleTime: getEnvAsInt("DB_CONN_MAX_IDLE_TIME_MINUTES", 1),
		DBConnMaxLifetime: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 30),

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		// CORS
		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "debug"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.BridgeTransport {
	case BridgeTransportWebSocket:
	case BridgeTransportNATS:
		if c.NatsURL == "" {
			return fmt.Errorf("BRIDGE_TRANSPORT=nats requires NATS_URL")
		}
	default:
		return fmt.Errorf("unknown bridge transport %q", c.BridgeTransport)
	}

	switch c.TokenStore {
	case TokenStoreNone, TokenStorePostgres:
	case TokenStoreFirestore:
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("TOKEN_STORE=firestore requires FIREBASE_PROJECT_ID")
		}
	case TokenStoreREST:
		if c.TokenRESTURL == "" {
			return fmt.Errorf("TOKEN_STORE=rest requires TOKEN_REST_URL")
		}
	default:
		return fmt.Errorf("unknown token store %q", c.TokenStore)
	}

	if c.EventLogCapacity <= 0 {
		return fmt.Errorf("EVENT_LOG_CAPACITY must be positive, got %d", c.EventLogCapacity)
	}
	if c.ToastTimeout <= 0 {
		return fmt.Errorf("TOAST_TIMEOUT must be positive, got %s", c.ToastTimeout)
	}

	return nil
}

// CORSOrigins splits CORSAllowedOrigins on commas.
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

// LoadConfigFile decodes YAML settings on top of config.
func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		return err
	}

	return nil
}
