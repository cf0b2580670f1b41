package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/rkamath/bank-office/internal/clock"
	"github.com/rkamath/bank-office/internal/config"
	"github.com/rkamath/bank-office/internal/events"
	"github.com/rkamath/bank-office/internal/events/kafka"
	"github.com/rkamath/bank-office/internal/handler"
	"github.com/rkamath/bank-office/internal/integrations/cbr"
	"github.com/rkamath/bank-office/internal/ledger"
	"github.com/rkamath/bank-office/internal/loan"
	"github.com/rkamath/bank-office/internal/middleware"
	"github.com/rkamath/bank-office/internal/obligation"
	"github.com/rkamath/bank-office/internal/repository"
	"github.com/rkamath/bank-office/internal/scheduler"
	"github.com/rkamath/bank-office/internal/scoring"
	"github.com/rkamath/bank-office/internal/service"
	"github.com/rkamath/bank-office/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment")
	}
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize storage: Postgres when configured, in-memory otherwise.
	var store repository.Store
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		pg := repository.NewPostgresStore(db)
		if err := pg.Migrate(context.Background()); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		store = pg
	} else {
		logger.Warn("DB_CONN not set, using in-memory store")
		store = repository.NewMemoryStore()
	}

	// Optional event bus mirroring.
	var pub events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
		logger.Infof("Publishing events to kafka topic %s", cfg.KafkaTopic)
	}
	sink := events.NewFanout(store, pub, logger)

	// Initialize engines
	ledgerSvc := ledger.NewService(sink, logger)
	loanEngine := loan.NewEngine(ledgerSvc, sink, logger)
	var gen obligation.AmountGenerator
	if cfg.VarianceSeed != 0 {
		gen = obligation.NewVarianceGenerator(cfg.VarianceSeed, cfg.Variance)
	}
	limits := scoring.NewLimitEvaluator(logger)

	var notify scheduler.Notifier
	if cfg.SMTPHost != "" {
		notify = email.NewSender(cfg, logger)
	}
	// The scheduler builds its own engines so each simulated date commits
	// through the store as one atomic batch.
	sched := scheduler.New(store, gen, pub, notify, logger)

	// Position the clock at the last committed date, or the configured start.
	start := cfg.SimStartDate
	if committed, err := store.LastCommittedDate(context.Background()); err == nil && !committed.IsZero() {
		start = committed
	}
	clk := clock.New(start, sched)
	logger.Infof("Simulated clock positioned at %s", clk.Today().Format("2006-01-02"))

	cbrClient := cbr.NewClient(cfg, logger)
	svc := service.NewService(store, clk, ledgerSvc, loanEngine, limits, sink, cbrClient, logger, cfg)
	h := handler.NewHandler(svc)

	// Optional scheduled day advance.
	if cfg.AdvanceCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.AdvanceCron, func() {
			if err := clk.AdvanceDays(context.Background(), 1); err != nil {
				logger.Errorf("Scheduled advance failed: %v", err)
			}
		})
		if err != nil {
			logger.Fatalf("Invalid ADVANCE_CRON: %v", err)
		}
		c.Start()
		defer c.Stop()
		logger.Infof("Auto-advance scheduled: %s", cfg.AdvanceCron)
	}

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/clock", h.Clock).Methods("GET")
	authRouter.HandleFunc("/clock/advance", h.AdvanceClock).Methods("POST")
	authRouter.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	authRouter.HandleFunc("/customers/{id}/score", h.GetScore).Methods("GET")
	authRouter.HandleFunc("/customers/{id}/burden", h.GetCreditBurden).Methods("GET")
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts/{id}", h.GetAccount).Methods("GET")
	authRouter.HandleFunc("/accounts/{id}/deposit", h.Deposit).Methods("POST")
	authRouter.HandleFunc("/accounts/{id}/withdraw", h.Withdraw).Methods("POST")
	authRouter.HandleFunc("/accounts/{id}/events", h.GetAccountEvents).Methods("GET")
	authRouter.HandleFunc("/accounts/{id}/stats", h.GetIncomeExpense).Methods("GET")
	authRouter.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}", h.GetLoan).Methods("GET")
	authRouter.HandleFunc("/loans/{id}/prepay", h.PrepayLoan).Methods("POST")
	authRouter.HandleFunc("/obligations", h.CreateObligation).Methods("POST")
	authRouter.HandleFunc("/cards", h.CreateCard).Methods("POST")
	authRouter.HandleFunc("/cards/{id}/purchase", h.CardPurchase).Methods("POST")
	authRouter.HandleFunc("/cards/{id}/limit-review", h.ReviewLimit).Methods("POST")
	authRouter.HandleFunc("/events", h.GetEvents).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
