package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/joho/godotenv"
)

// maxLoanTenureLimit caps MAX_LOAN_TENURE at 100 years
const maxLoanTenureLimit = 1200

// Config holds application configuration
type Config struct {
	Port          string
	StorageDriver string
	DBConn        string
	LogLevel      string
	JWTSecret     string
	JWTTTL        time.Duration
	HMACSecret    string
	EncryptionKey string
	KeyRateURL    string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ScoringStrategy   eligibility.Strategy
	ScoringCacheTTL   time.Duration
	ApprovalThreshold float64

	GenAIURL        string
	GenAIAPIKey     string
	GenAIModel      string
	GenAITimeout    time.Duration
	GenAIMaxRetries int

	MinCreditScore  int
	MaxCreditScore  int
	MinAnnualIncome float64
	MinLoanAmount   float64
	MinLoanTenure   int
	MaxLoanTenure   int

	UploadDir      string
	MaxUploadBytes int64

	EvaluationCron string
	RateLimitRPS   float64
	RateLimitBurst int

	AdminEmail    string
	AdminPassword string
}

// NewConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		DBConn:        getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=loans sslmode=disable"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		JWTTTL:        getDuration("JWT_TTL", 24*time.Hour, &errs),
		HMACSecret:    getEnv("HMAC_SECRET", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		EncryptionKey: getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),
		KeyRateURL:    getEnv("KEY_RATE_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "noreply@loan-service.local"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0, &errs),

		ScoringCacheTTL:   getDuration("SCORING_CACHE_TTL", 10*time.Minute, &errs),
		ApprovalThreshold: getFloat("AI_APPROVAL_THRESHOLD", eligibility.DefaultApprovalThreshold, &errs),

		GenAIURL:        getEnv("GENAI_URL", ""),
		GenAIAPIKey:     getEnv("GENAI_API_KEY", ""),
		GenAIModel:      getEnv("GENAI_MODEL", ""),
		GenAITimeout:    getDuration("GENAI_TIMEOUT", 30*time.Second, &errs),
		GenAIMaxRetries: getInt("GENAI_MAX_RETRIES", 2, &errs),

		MinCreditScore:  getInt("MIN_CREDIT_SCORE", 300, &errs),
		MaxCreditScore:  getInt("MAX_CREDIT_SCORE", 850, &errs),
		MinAnnualIncome: getFloat("MIN_ANNUAL_INCOME", 10000, &errs),
		MinLoanAmount:   getFloat("MIN_LOAN_AMOUNT", 1000, &errs),
		MinLoanTenure:   getInt("MIN_LOAN_TENURE", 6, &errs),
		MaxLoanTenure:   getInt("MAX_LOAN_TENURE", 480, &errs),

		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", 2<<20, &errs)),

		EvaluationCron: getEnv("EVALUATION_CRON", "0 0 2 * * *"),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5, &errs),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10, &errs),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	strategy, err := eligibility.ParseStrategy(getEnv("SCORING_STRATEGY", string(eligibility.StrategyRules)))
	if err != nil {
		return nil, err
	}
	cfg.ScoringStrategy = strategy

	if cfg.StorageDriver != "postgres" && cfg.StorageDriver != "memory" {
		return nil, fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", cfg.StorageDriver)
	}
	if cfg.StorageDriver == "postgres" && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("HMAC_SECRET is required")
	}
	if cfg.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if cfg.ScoringStrategy == eligibility.StrategyAI && cfg.GenAIURL == "" {
		return nil, fmt.Errorf("GENAI_URL is required when SCORING_STRATEGY is ai")
	}
	if cfg.ApprovalThreshold <= 0 || cfg.ApprovalThreshold > 100 {
		return nil, fmt.Errorf("AI_APPROVAL_THRESHOLD must be in (0, 100]")
	}
	if cfg.MinCreditScore >= cfg.MaxCreditScore {
		return nil, fmt.Errorf("MIN_CREDIT_SCORE must be below MAX_CREDIT_SCORE")
	}
	if cfg.MinLoanTenure < 1 || cfg.MinLoanTenure > cfg.MaxLoanTenure {
		return nil, fmt.Errorf("MIN_LOAN_TENURE must be between 1 and MAX_LOAN_TENURE")
	}
	if cfg.MaxLoanTenure > maxLoanTenureLimit {
		return nil, fmt.Errorf("MAX_LOAN_TENURE must not exceed %d months", maxLoanTenureLimit)
	}
	if cfg.MinAnnualIncome <= 0 {
		return nil, fmt.Errorf("MIN_ANNUAL_INCOME must be positive")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

// Limits returns the validation bounds for eligibility input
func (c *Config) Limits() eligibility.Limits {
	return eligibility.Limits{
		MinCreditScore:  c.MinCreditScore,
		MaxCreditScore:  c.MaxCreditScore,
		MinAnnualIncome: c.MinAnnualIncome,
		MinLoanAmount:   c.MinLoanAmount,
		MinLoanTenure:   c.MinLoanTenure,
		MaxLoanTenure:   c.MaxLoanTenure,
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int, errs *[]error) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be an integer: %w", key, err))
		return defaultVal
	}
	return v
}

func getFloat(key string, defaultVal float64, errs *[]error) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a number: %w", key, err))
		return defaultVal
	}
	return v
}

func getDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultVal
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s must be a duration: %w", key, err))
		return defaultVal
	}
	return v
}
