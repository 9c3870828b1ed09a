package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "expense_reconciliation"),
			getEnv("DB_PORT", "5432"),
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	return db
}

// ProcessingOptions controls the delta engine. Defaults match production.
type ProcessingOptions struct {
	EnableDeltaProcessing          bool
	SkipUnchangedEmployees         bool
	AmountChangeThreshold          float64
	ForceReprocessValidationIssues bool
	MaxUnchangedSkipPercentage     float64
	SimilarityThreshold            float64
	BulkChunkSize                  int
}

func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		EnableDeltaProcessing:          true,
		SkipUnchangedEmployees:         true,
		AmountChangeThreshold:          0.01,
		ForceReprocessValidationIssues: true,
		MaxUnchangedSkipPercentage:     0.8,
		SimilarityThreshold:            0.8,
		BulkChunkSize:                  500,
	}
}

// LoadProcessingOptions reads overrides from the environment.
func LoadProcessingOptions() ProcessingOptions {
	opts := DefaultProcessingOptions()
	opts.EnableDeltaProcessing = getBool("ENABLE_DELTA_PROCESSING", opts.EnableDeltaProcessing)
	opts.SkipUnchangedEmployees = getBool("SKIP_UNCHANGED_EMPLOYEES", opts.SkipUnchangedEmployees)
	opts.AmountChangeThreshold = getFloat("AMOUNT_CHANGE_THRESHOLD", opts.AmountChangeThreshold)
	opts.ForceReprocessValidationIssues = getBool("FORCE_REPROCESS_VALIDATION_ISSUES", opts.ForceReprocessValidationIssues)
	opts.MaxUnchangedSkipPercentage = getFloat("MAX_UNCHANGED_SKIP_PERCENTAGE", opts.MaxUnchangedSkipPercentage)
	opts.SimilarityThreshold = getFloat("SIMILARITY_THRESHOLD", opts.SimilarityThreshold)
	if v := getInt("BULK_CHUNK_SIZE", 0); v > 0 {
		opts.BulkChunkSize = v
	}
	return opts
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("invalid value for %s: %q, using default", key, v)
		return fallback
	}
	return f
}
