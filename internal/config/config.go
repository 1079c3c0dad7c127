package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration. Values are read from the
// environment with defaults matching the reference deployment.
type Config struct {
	Port string

	// Data layout
	DataDir           string
	KnowledgeBasePath string
	OutputsDir        string
	ReportsDir        string

	// Optional report archive
	DatabaseURL    string
	MigrationsPath string

	// Text-generation service
	LLMModel       string
	LLMTemperature float32
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// Diagnosis tuning
	TopKDiseases            int
	ConfidenceThreshold     float64
	MinSymptomsForDiagnosis int
	HistoryWindow           int
}

// Load builds a Config from environment variables with defaults.
func Load() *Config {
	dataDir := getEnv("DATA_DIR", "data")
	outputsDir := getEnv("OUTPUTS_DIR", "outputs")

	return &Config{
		Port: getEnv("PORT", "8080"),

		DataDir:           dataDir,
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", filepath.Join(dataDir, "knowledge_base.json")),
		OutputsDir:        outputsDir,
		ReportsDir:        getEnv("REPORTS_DIR", filepath.Join(outputsDir, "reports")),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),

		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTemperature: float32(getFloatEnv("LLM_TEMPERATURE", 0.7)),
		LLMMaxTokens:   getIntEnv("LLM_MAX_TOKENS", 2048),
		LLMTimeout:     getDurationEnv("LLM_TIMEOUT", 30*time.Second),

		TopKDiseases:            getIntEnv("TOP_K_DISEASES", 5),
		ConfidenceThreshold:     getFloatEnv("CONFIDENCE_THRESHOLD", 0.6),
		MinSymptomsForDiagnosis: getIntEnv("MIN_SYMPTOMS_FOR_DIAGNOSIS", 2),
		HistoryWindow:           getIntEnv("HISTORY_WINDOW", 10),
	}
}

// EnsureDirs creates the output directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.OutputsDir, c.ReportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
