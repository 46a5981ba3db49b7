package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Judge engine
	JudgeBackendURL      string
	JudgeBackendOverhead time.Duration // added on top of a testcase's own time limit
	JudgeRetryPerTest    int
	JudgePolicy          string // stop_on_first_failure | run_all
	LanguageConfigPath   string // optional TOML override for the language registry

	// Background reconciliation
	JudgeQueueName     string
	JudgeLockTTL       time.Duration
	SweepInterval      time.Duration
	StaleRunningAfter  time.Duration
	PersistMaxAttempts int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort: getEnv("API_PORT", "8080"),
		JWTKey:  []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:  time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "codearena_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JudgeBackendURL:      getEnv("JUDGE_BACKEND_URL", "http://localhost:2358"),
		JudgeBackendOverhead: time.Duration(getEnvAsInt("JUDGE_BACKEND_OVERHEAD_SECONDS", 10)) * time.Second,
		JudgeRetryPerTest:    getEnvAsInt("JUDGE_RETRY_PER_TESTCASE", 1),
		JudgePolicy:          getEnv("JUDGE_POLICY", "stop_on_first_failure"),
		LanguageConfigPath:   getEnv("LANGUAGE_CONFIG_PATH", ""),

		JudgeQueueName:     getEnv("JUDGE_QUEUE_NAME", "judge_requeue"),
		JudgeLockTTL:       time.Duration(getEnvAsInt("JUDGE_LOCK_TTL_SECONDS", 300)) * time.Second,
		SweepInterval:      time.Duration(getEnvAsInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second,
		StaleRunningAfter:  time.Duration(getEnvAsInt("STALE_RUNNING_THRESHOLD_SECONDS", 300)) * time.Second,
		PersistMaxAttempts: getEnvAsInt("PERSIST_MAX_ATTEMPTS", 5),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
