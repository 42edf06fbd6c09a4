package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sacco-ledger/internal/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-level config
type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	LogLevel string `yaml:"level"`
}

type OtelConfig struct {
	ServiceName  string `yaml:"service_name"`
	CollectorURL string `yaml:"collector_url"`
}

// MongoDB connection config
type MongoConfig struct {
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	URI             string        `yaml:"uri"`
	DBName          string        `yaml:"db_name"`
	MaxPoolSize     uint64        `yaml:"max_pool_size"`
	MinPoolSize     uint64        `yaml:"min_pool_size"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_minutes"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout_seconds"`
}

// Redis connection config
type RedisConfig struct {
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	EnableTLS      bool          `yaml:"enable_tls"`
	ConnectTimeout time.Duration `yaml:"connect_timeout_seconds"`
	CertContent    string        `yaml:"cert_content"`
}

// Kafka connection config
type KafkaConfig struct {
	Server           string `yaml:"server"`
	AuditTopic       string `yaml:"audit_topic"`
	SecurityProtocol string `yaml:"security_protocol"`
	SASLMechanism    string `yaml:"sasl_mechanism"`
	SASLUsername     string `yaml:"sasl_username"`
	SASLPassword     string `yaml:"sasl_password"`
	SessionTimeoutMs int    `yaml:"session_timeout_ms"`
	ClientID         string `yaml:"client_id"`
}

type PubSubConfig struct {
	ProjectID         string `yaml:"project_id"`
	NotificationTopic string `yaml:"notification_topic"`
}

type GCSConfig struct {
	BucketName string `yaml:"bucket_name"`
	FolderName string `yaml:"folder_name"`
}

// GatewayConfig points at the mobile-money gateway (Daraja style STK push).
type GatewayConfig struct {
	BaseURL        string        `yaml:"base_url"`
	ConsumerKey    string        `yaml:"consumer_key"`
	ConsumerSecret string        `yaml:"consumer_secret"`
	ShortCode      string        `yaml:"short_code"`
	PassKey        string        `yaml:"pass_key"`
	CallbackURL    string        `yaml:"callback_url"`
	HTTPTimeout    time.Duration `yaml:"http_timeout_seconds"`
}

// RulesConfig carries the business constants. Amounts are whole KES.
type RulesConfig struct {
	MinSavings          int64   `yaml:"min_savings"`
	LoanLimitRatio      float64 `yaml:"loan_limit_ratio"`
	InterestRate        float64 `yaml:"interest_rate"`
	PenaltyRate         float64 `yaml:"penalty_rate"`
	WelfareTarget       int64   `yaml:"welfare_target"`
	MinTenureMonths     int     `yaml:"min_tenure_months"`
	LoanTermDays        int     `yaml:"loan_term_days"`
	DefaultAfterDays    int     `yaml:"default_after_days"`
	MinLoanAmount       int64   `yaml:"min_loan_amount"`
	LedgerMaxCASRetries int     `yaml:"ledger_max_cas_retries"`
}

type ComplianceSweepConfig struct {
	WorkerCount int           `yaml:"worker_count"`
	BufferSize  int           `yaml:"buffer_size"`
	LockTTL     time.Duration `yaml:"lock_ttl_minutes"`
}

// AppConfig is the main config struct that holds all configs
type AppConfig struct {
	Server          ServerConfig          `yaml:"server"`
	Logging         LogConfig             `yaml:"logging"`
	Otel            OtelConfig            `yaml:"otel"`
	Mongo           MongoConfig           `yaml:"mongo"`
	Redis           RedisConfig           `yaml:"redis"`
	Kafka           KafkaConfig           `yaml:"kafka"`
	PubSub          PubSubConfig          `yaml:"pubsub"`
	GCS             GCSConfig             `yaml:"gcs"`
	Gateway         GatewayConfig         `yaml:"gateway"`
	Rules           RulesConfig           `yaml:"rules"`
	ComplianceSweep ComplianceSweepConfig `yaml:"compliance_sweep"`
}

// nolint: funlen
func assignDefaultConfigValues(cfg *AppConfig) *AppConfig {

	// server config defaults
	cfg.Server.Port = GetEnvOrDefaultAsInt("SERVER_PORT", orInt(cfg.Server.Port, 8080))

	// log config defaults
	cfg.Logging.LogLevel = GetEnvOrDefaultAsString("LOGGING_LEVEL", cfg.Logging.LogLevel)

	cfg.Otel.ServiceName = GetEnvOrDefaultAsString("SERVICE_NAME", orString(cfg.Otel.ServiceName, "sacco-ledger"))
	cfg.Otel.CollectorURL = GetEnvOrDefaultAsString("OTEL_COLLECTOR_URL", cfg.Otel.CollectorURL)

	// MongoDB config defaults
	cfg.Mongo.URI = GetEnvOrDefaultAsString("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.DBName = GetEnvOrDefaultAsString("MONGO_DB_NAME", cfg.Mongo.DBName)
	cfg.Mongo.Username = GetEnvOrDefaultAsString("MONGO_USERNAME", cfg.Mongo.Username)
	cfg.Mongo.Password = GetEnvOrDefaultAsString("MONGO_PASSWORD", cfg.Mongo.Password)
	cfg.Mongo.MaxPoolSize = GetEnvOrDefaultAsUint64("MONGO_MAX_POOL_SIZE", cfg.Mongo.MaxPoolSize)
	cfg.Mongo.MinPoolSize = GetEnvOrDefaultAsUint64("MONGO_MIN_POOL_SIZE", cfg.Mongo.MinPoolSize)
	cfg.Mongo.MaxConnIdleTime = time.Duration(GetEnvOrDefaultAsInt("MONGO_MAX_CONN_IDLE_MINUTES", 30)) * time.Minute
	cfg.Mongo.ConnectTimeout = time.Duration(GetEnvOrDefaultAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second

	// Redis config defaults
	cfg.Redis.Addr = GetEnvOrDefaultAsString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = GetEnvOrDefaultAsString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = GetEnvOrDefaultAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.EnableTLS = GetEnvOrDefaultAsBool("REDIS_ENABLE_TLS", cfg.Redis.EnableTLS)
	cfg.Redis.ConnectTimeout = time.Duration(GetEnvOrDefaultAsInt("REDIS_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.Redis.CertContent = GetEnvOrDefaultAsString("REDIS_TLS_CERT", cfg.Redis.CertContent)

	// Kafka config defaults
	cfg.Kafka.Server = GetEnvOrDefaultAsString("KAFKA_SERVER", cfg.Kafka.Server)
	cfg.Kafka.AuditTopic = GetEnvOrDefaultAsString("KAFKA_AUDIT_TOPIC", cfg.Kafka.AuditTopic)
	cfg.Kafka.SecurityProtocol = GetEnvOrDefaultAsString("KAFKA_SECURITY_PROTOCOL", cfg.Kafka.SecurityProtocol)
	cfg.Kafka.SASLMechanism = GetEnvOrDefaultAsString("KAFKA_SASL_MECHANISM", cfg.Kafka.SASLMechanism)
	cfg.Kafka.SASLUsername = GetEnvOrDefaultAsString("KAFKA_SASL_USERNAME", cfg.Kafka.SASLUsername)
	cfg.Kafka.SASLPassword = GetEnvOrDefaultAsString("KAFKA_SASL_PASSWORD", cfg.Kafka.SASLPassword)
	cfg.Kafka.SessionTimeoutMs = GetEnvOrDefaultAsInt("KAFKA_SESSION_TIMEOUT_MS", orInt(cfg.Kafka.SessionTimeoutMs, 15000))
	cfg.Kafka.ClientID = GetEnvOrDefaultAsString("KAFKA_CLIENT_ID", cfg.Kafka.ClientID)

	// PubSub config defaults
	cfg.PubSub.ProjectID = GetEnvOrDefaultAsString("PROJECT_ID", cfg.PubSub.ProjectID)
	cfg.PubSub.NotificationTopic = GetEnvOrDefaultAsString("PUBSUB_NOTIFICATION_TOPIC", cfg.PubSub.NotificationTopic)

	cfg.GCS.BucketName = GetEnvOrDefaultAsString("GCS_BUCKET_NAME", cfg.GCS.BucketName)
	cfg.GCS.FolderName = GetEnvOrDefaultAsString("GCS_FOLDER_NAME", orString(cfg.GCS.FolderName, "welfare-claims"))

	cfg.Gateway.BaseURL = GetEnvOrDefaultAsString("GATEWAY_BASE_URL", cfg.Gateway.BaseURL)
	cfg.Gateway.ConsumerKey = GetEnvOrDefaultAsString("GATEWAY_CONSUMER_KEY", cfg.Gateway.ConsumerKey)
	cfg.Gateway.ConsumerSecret = GetEnvOrDefaultAsString("GATEWAY_CONSUMER_SECRET", cfg.Gateway.ConsumerSecret)
	cfg.Gateway.ShortCode = GetEnvOrDefaultAsString("GATEWAY_SHORT_CODE", cfg.Gateway.ShortCode)
	cfg.Gateway.PassKey = GetEnvOrDefaultAsString("GATEWAY_PASS_KEY", cfg.Gateway.PassKey)
	cfg.Gateway.CallbackURL = GetEnvOrDefaultAsString("GATEWAY_CALLBACK_URL", cfg.Gateway.CallbackURL)
	cfg.Gateway.HTTPTimeout = time.Duration(GetEnvOrDefaultAsInt("GATEWAY_HTTP_TIMEOUT_SECONDS", 10)) * time.Second

	cfg.Rules.MinSavings = GetEnvOrDefaultAsInt64("RULES_MIN_SAVINGS", orInt64(cfg.Rules.MinSavings, 10000))
	cfg.Rules.LoanLimitRatio = GetEnvOrDefaultAsFloat("RULES_LOAN_LIMIT_RATIO", orFloat(cfg.Rules.LoanLimitRatio, 0.80))
	cfg.Rules.InterestRate = GetEnvOrDefaultAsFloat("RULES_INTEREST_RATE", orFloat(cfg.Rules.InterestRate, 0.05))
	cfg.Rules.PenaltyRate = GetEnvOrDefaultAsFloat("RULES_PENALTY_RATE", orFloat(cfg.Rules.PenaltyRate, 0.10))
	cfg.Rules.WelfareTarget = GetEnvOrDefaultAsInt64("RULES_WELFARE_TARGET", orInt64(cfg.Rules.WelfareTarget, 4000))
	cfg.Rules.MinTenureMonths = GetEnvOrDefaultAsInt("RULES_MIN_TENURE_MONTHS", orInt(cfg.Rules.MinTenureMonths, 6))
	cfg.Rules.LoanTermDays = GetEnvOrDefaultAsInt("RULES_LOAN_TERM_DAYS", orInt(cfg.Rules.LoanTermDays, 30))
	cfg.Rules.DefaultAfterDays = GetEnvOrDefaultAsInt("RULES_DEFAULT_AFTER_DAYS", orInt(cfg.Rules.DefaultAfterDays, 91))
	cfg.Rules.MinLoanAmount = GetEnvOrDefaultAsInt64("RULES_MIN_LOAN_AMOUNT", orInt64(cfg.Rules.MinLoanAmount, 500))
	cfg.Rules.LedgerMaxCASRetries = GetEnvOrDefaultAsInt("LEDGER_MAX_CAS_RETRIES", orInt(cfg.Rules.LedgerMaxCASRetries, 5))

	cfg.ComplianceSweep.WorkerCount = GetEnvOrDefaultAsInt("SWEEP_WORKER_COUNT", orInt(cfg.ComplianceSweep.WorkerCount, 4))
	cfg.ComplianceSweep.BufferSize = GetEnvOrDefaultAsInt("SWEEP_BUFFER_SIZE", orInt(cfg.ComplianceSweep.BufferSize, 64))
	cfg.ComplianceSweep.LockTTL = time.Duration(GetEnvOrDefaultAsInt("SWEEP_LOCK_TTL_MINUTES", 30)) * time.Minute
	return cfg
}

// LoadFromConfigFilePath loads and parses config file into AppConfig
func LoadFromConfigFilePath(configPath string) (*AppConfig, error) {

	// #nosec G304: config path comes from the deployment environment
	data, err := os.ReadFile(configPath)
	if err != nil {
		logger.Error("Failed to read config file", err, zap.String("path", configPath))
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("Failed to unmarshal config", err)
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultCfg := assignDefaultConfigValues(&cfg)

	if err := validateConfig(defaultCfg); err != nil {
		logger.Error("Config validation failed", err)
		return nil, err
	}

	logger.Info("Configuration loaded successfully", zap.String("path", configPath))

	return defaultCfg, nil
}

func validateConfig(cfg *AppConfig) error {
	if err := validateMongoConfig(cfg.Mongo); err != nil {
		return err
	}
	if err := validateKafkaConfig(cfg.Kafka); err != nil {
		return err
	}
	if err := validateRulesConfig(cfg.Rules); err != nil {
		return err
	}
	return validateSweepConfig(cfg.ComplianceSweep)
}

func validateMongoConfig(mongo MongoConfig) error {
	if mongo.MinPoolSize < 5 || mongo.MinPoolSize > 10 {
		return fmt.Errorf("mongo.min_pool_size must be between 5 and 10, got %d", mongo.MinPoolSize)
	}

	if mongo.MaxPoolSize < 10 || mongo.MaxPoolSize > 50 {
		return fmt.Errorf("mongo.max_pool_size must be between 10 and 50, got %d", mongo.MaxPoolSize)
	}

	minIdle := 20 * time.Minute
	maxIdle := 30 * time.Minute
	if mongo.MaxConnIdleTime < minIdle || mongo.MaxConnIdleTime > maxIdle {
		return fmt.Errorf("mongo.max_conn_idle_minutes must be between %v and %v, got %v",
			minIdle, maxIdle, mongo.MaxConnIdleTime)
	}

	return nil
}

func validateKafkaConfig(kafka KafkaConfig) error {
	if kafka.SessionTimeoutMs < 10000 || kafka.SessionTimeoutMs > 15000 {
		return fmt.Errorf("kafka.session_timeout_ms must be between 10000 and 15000 ms, got %d",
			kafka.SessionTimeoutMs)
	}
	return nil
}

func validateRulesConfig(rules RulesConfig) error {
	if rules.LoanLimitRatio <= 0 || rules.LoanLimitRatio > 1 {
		return fmt.Errorf("rules.loan_limit_ratio must be in (0, 1], got %v", rules.LoanLimitRatio)
	}
	if rules.InterestRate < 0 || rules.InterestRate > 1 {
		return fmt.Errorf("rules.interest_rate must be in [0, 1], got %v", rules.InterestRate)
	}
	if rules.PenaltyRate < 0 || rules.PenaltyRate > 1 {
		return fmt.Errorf("rules.penalty_rate must be in [0, 1], got %v", rules.PenaltyRate)
	}
	if rules.LoanTermDays <= 0 {
		return fmt.Errorf("rules.loan_term_days must be positive, got %d", rules.LoanTermDays)
	}
	if rules.DefaultAfterDays <= 1 {
		return fmt.Errorf("rules.default_after_days must be greater than 1, got %d", rules.DefaultAfterDays)
	}
	if rules.LedgerMaxCASRetries < 1 || rules.LedgerMaxCASRetries > 20 {
		return fmt.Errorf("rules.ledger_max_cas_retries must be between 1 and 20, got %d",
			rules.LedgerMaxCASRetries)
	}
	return nil
}

func validateSweepConfig(sweep ComplianceSweepConfig) error {
	if sweep.WorkerCount < 1 || sweep.WorkerCount > 32 {
		return fmt.Errorf("compliance_sweep.worker_count must be between 1 and 32, got %d", sweep.WorkerCount)
	}
	if sweep.BufferSize < 1 {
		return fmt.Errorf("compliance_sweep.buffer_size must be positive, got %d", sweep.BufferSize)
	}
	return nil
}

// GetEnvOrDefaultAsInt returns the value of the given env variable
// as an int or the default value if not set or invalid.
func GetEnvOrDefaultAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return int(value)
}

func GetEnvOrDefaultAsInt64(key string, defaultValue int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvOrDefaultAsString returns the value of the given env variable or the default value if not set.
func GetEnvOrDefaultAsString(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		if val != "" {
			return val
		}
	}
	return defaultVal
}

func GetEnvOrDefaultAsUint64(key string, defaultValue uint64) uint64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orInt64(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// LoadFromConfig loads an optional .env file and then the config file.
func LoadFromConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.String("reason", err.Error()))
	}

	configPath := GetEnvOrDefaultAsString("CONFIG_PATH", "configs/config.yaml")

	cfg, err := LoadFromConfigFilePath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	return cfg, nil
}
