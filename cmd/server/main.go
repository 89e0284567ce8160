package main

import (
	"log"
	"log/slog"
	"strings"
	"time"

	"fee-reconciliation-backend/internal/config"
	"fee-reconciliation-backend/internal/events"
	"fee-reconciliation-backend/internal/logger"
	"fee-reconciliation-backend/internal/matching"
	"fee-reconciliation-backend/internal/models"
	"fee-reconciliation-backend/internal/reconciliation"
	"fee-reconciliation-backend/internal/routes"
	"fee-reconciliation-backend/internal/storage/postgres"
	"fee-reconciliation-backend/internal/verification"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	db := config.InitDB(cfg)

	db.AutoMigrate(
		&models.Student{},
		&models.Invoice{},
		&models.Transaction{},
		&models.VerificationDecision{},
		&models.StatementBatch{},
	)

	store := postgres.NewStore(db)

	var pub events.Publisher = events.NoopPublisher{}
	if cfg.KafkaBroker != "" {
		kp := events.NewKafkaPublisher(strings.Split(cfg.KafkaBroker, ","), cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
	}

	matchers := map[string]matching.Matcher{
		matching.StrategyRules: matching.NewRuleMatcher(matching.RuleConfig{
			AmountOnlyDateWindowDays: cfg.AmountOnlyDateWindowDays,
		}),
	}
	if cfg.MatchServiceURL != "" {
		matchers[matching.StrategyAI] = matching.NewAIMatcher(cfg.MatchServiceURL)
	} else {
		slog.Warn("MATCH_SERVICE_URL not set, AI matching disabled")
	}

	engine := verification.NewEngine(store, pub)
	svc := reconciliation.NewService(store, matchers, matching.Selector{})

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-School-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, svc, engine)

	r.Run(":" + cfg.Port)
}
