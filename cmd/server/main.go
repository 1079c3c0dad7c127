package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"ai-doctor/internal/config"
	"ai-doctor/internal/conversation"
	"ai-doctor/internal/diagnosis"
	"ai-doctor/internal/knowledge"
	"ai-doctor/internal/llm"
	"ai-doctor/internal/report"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	if os.Getenv("ENVIRONMENT") == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	cfg := config.Load()
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("Could not create data directories: %v", err)
	}

	// 1. Knowledge base. A schema error here is fatal: the process must
	// not start on a malformed knowledge base.
	store, err := knowledge.Load(cfg.KnowledgeBasePath, log)
	if err != nil {
		log.Fatalf("Could not load knowledge base: %v", err)
	}

	// 2. Optional report archive.
	var archive conversation.Repository
	if cfg.DatabaseURL != "" {
		var db *sql.DB

		// Simple retry loop for DB availability at startup.
		for i := 0; i < 10; i++ {
			db, err = sql.Open("postgres", cfg.DatabaseURL)
			if err == nil {
				err = db.Ping()
			}
			if err == nil {
				break
			}
			log.Infof("Waiting for DB... (%d/10)", i+1)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			log.Warnf("Could not connect to DB: %v. Continuing without the report archive.", err)
		} else {
			m, err := migrate.New(cfg.MigrationsPath, cfg.DatabaseURL)
			if err != nil {
				log.Warnf("Migration init failed: %v", err)
			} else if err := m.Up(); err != nil && err != migrate.ErrNoChange {
				log.Warnf("Migration up failed: %v", err)
			} else {
				log.Info("Migrations applied")
			}
			archive = conversation.NewRepository(db)
			log.Info("Connected to report archive")
		}
	}

	// 3. Services.
	engine := diagnosis.NewEngine(store, cfg.TopKDiseases, cfg.ConfidenceThreshold, cfg.MinSymptomsForDiagnosis, log)
	generator := llm.NewOpenAIClient(cfg.LLMModel, cfg.LLMTimeout, log)
	reportSvc := report.NewService(cfg.ReportsDir, log)

	params := llm.Params{Temperature: cfg.LLMTemperature, MaxTokens: cfg.LLMMaxTokens}
	svc := conversation.NewService(store, engine, generator, params, reportSvc, archive, cfg.HistoryWindow, log)
	handler := conversation.NewHandler(svc, store, reportSvc)

	// 4. Router.
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS for the presentation layer
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == "OPTIONS" {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		conversation.RegisterRoutes(r, handler)
	})

	log.Infof("Server starting on port %s...", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
