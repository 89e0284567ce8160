package config

import (
	"log"
	"os"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port            string
	DatabaseURL     string
	MatchServiceURL string
	KafkaBroker     string
	KafkaTopic      string
	LogLevel        string

	// AmountOnlyDateWindowDays bounds the date gap allowed on amount-only
	// matches; 0 disables the check.
	AmountOnlyDateWindowDays int
}

func Load() Config {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MatchServiceURL: os.Getenv("MATCH_SERVICE_URL"),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "fee.verification.decided"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	if v := os.Getenv("AMOUNT_ONLY_DATE_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid AMOUNT_ONLY_DATE_WINDOW_DAYS %q, ignoring", v)
		} else {
			cfg.AmountOnlyDateWindowDays = days
		}
	}
	return cfg
}

func InitDB(cfg Config) *gorm.DB {
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	return db
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
