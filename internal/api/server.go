package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tailorline/settlement-api/internal/clients"
	"github.com/tailorline/settlement-api/internal/config"
	"github.com/tailorline/settlement-api/internal/database"
	"github.com/tailorline/settlement-api/internal/handlers"
	"github.com/tailorline/settlement-api/internal/models"
	"github.com/tailorline/settlement-api/internal/outbox"
	"github.com/tailorline/settlement-api/internal/repository"
	"github.com/tailorline/settlement-api/internal/service"
	"github.com/tailorline/settlement-api/internal/settlement"
	"github.com/tailorline/settlement-api/pkg/kafka"
	"github.com/tailorline/settlement-api/pkg/logger"
	"github.com/tailorline/settlement-api/pkg/middleware"
)

// orderService is the slice of the order service the handlers consume
type orderService interface {
	CreateOrder(ctx context.Context, actor models.Actor, designID string, asaID *int64) (*models.Order, error)
	ConfirmPayment(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error)
	GetOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error)
	GetOrdersForActor(ctx context.Context, actor models.Actor, limit, offset int) ([]*models.Order, error)
}

// catalogService manages designs and wallet registration
type catalogService interface {
	CreateDesign(ctx context.Context, actor models.Actor, name, description string, price decimal.Decimal) (*models.Design, error)
	GetDesignsForTailor(ctx context.Context, actor models.Actor) ([]*models.Design, error)
	RegisterWallet(ctx context.Context, actor models.Actor, address, signingKey string) (*models.Wallet, error)
}

// settlementService executes release and refund actions
type settlementService interface {
	Settle(ctx context.Context, orderID string, actor models.Actor, action settlement.Action) (*settlement.Result, error)
}

// walletStore resolves actor wallets
type walletStore interface {
	GetByActorID(ctx context.Context, actorID string) (*models.Wallet, error)
}

// balanceClient reads account balances from the ledger node
type balanceClient interface {
	AccountBalance(ctx context.Context, address string) (uint64, error)
}

type Server struct {
	config          *config.Config
	logger          logger.Logger
	router          *mux.Router
	httpServer      *http.Server
	db              *database.Database
	orderService    orderService
	catalog         catalogService
	settlements     settlementService
	wallets         walletStore
	balances        balanceClient
	outboxProcessor *outbox.Processor
	kafkaProducer   *kafka.Producer
	kafkaConsumer   *kafka.Consumer
	actorLimiter    *middleware.ActorRateLimiterMiddleware
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, logger logger.Logger) *Server {
	r := mux.NewRouter()
	db, err := database.New(cfg, logger)

	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		panic(err)
	}

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		panic(err)
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db, logger)
	designRepo := repository.NewDesignRepository(db, logger)
	walletRepo := repository.NewWalletRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	settlementStore := repository.NewSettlementStore(orderRepo, outboxRepo, logger)

	// Ledger node client
	algodClient := clients.NewAlgodClient(cfg.Ledger.NodeAddress, cfg.Ledger.APIToken, logger)

	// Initialize services
	svc := service.NewOrderService(orderRepo, designRepo, walletRepo, outboxRepo, algodClient, logger)
	catalogSvc := service.NewCatalogService(designRepo, walletRepo, logger)
	coordinator := settlement.NewCoordinator(settlementStore, walletRepo, algodClient, settlement.Config{
		MaxPollRounds:   cfg.Settlement.MaxPollRounds,
		PollInterval:    cfg.Settlement.PollInterval,
		MaxPollInterval: cfg.Settlement.MaxPollInterval,
		InFlightTTL:     cfg.Settlement.InFlightTTL,
	}, logger)

	// Initialize outbox processor
	outboxProcessor := outbox.NewProcessor(outboxRepo, outbox.ProcessorConfig{
		PollingInterval: 5 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
	}, logger)

	// Events go to Kafka, keyed by order ID. With no brokers configured they
	// are logged instead, which keeps the outbox draining in local setups.
	var eventsHandler outbox.MessageHandler = outbox.NewLoggingHandler(logger)
	var kafkaProducer *kafka.Producer
	var kafkaConsumer *kafka.Consumer

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, logger)

		if err != nil {
			logger.Error("Failed to create Kafka producer", "error", err)
			panic(err)
		}

		eventsHandler = outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.SettlementsTopic, logger)

		consumerConfig := &kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topics:        []string{cfg.Kafka.SettlementsTopic},
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}

		kafkaConsumer, err = kafka.NewConsumer(consumerConfig, logger)

		if err != nil {
			logger.Error("Failed to create Kafka consumer", "error", err)
			panic(err)
		}

		kafkaConsumer.RegisterHandler(cfg.Kafka.SettlementsTopic, handlers.NewSettlementEventsHandler(logger))
	}

	outboxProcessor.RegisterHandler(models.EventOrderCreated, eventsHandler)
	outboxProcessor.RegisterHandler(models.EventPaymentConfirmed, eventsHandler)
	outboxProcessor.RegisterHandler(models.EventFundsReleased, eventsHandler)
	outboxProcessor.RegisterHandler(models.EventFundsRefunded, eventsHandler)

	// Per-actor rate limiting for the settlement endpoints
	actorLimiter := middleware.NewActorRateLimiterMiddleware(&middleware.ActorRateLimiterConfig{
		MaxTokens:  cfg.RateLimit.ActorMaxTokens,
		RefillRate: cfg.RateLimit.ActorRefillRate,
	}, logger)

	server := &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:          logger,
		config:          cfg,
		db:              db,
		orderService:    svc,
		catalog:         catalogSvc,
		settlements:     coordinator,
		wallets:         walletRepo,
		balances:        algodClient,
		outboxProcessor: outboxProcessor,
		kafkaProducer:   kafkaProducer,
		kafkaConsumer:   kafkaConsumer,
		actorLimiter:    actorLimiter,
	}

	server.setupRoutes()

	outboxProcessor.Start()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Start(); err != nil {
			logger.Error("Failed to start Kafka consumer", "error", err)
			// Non-fatal error, continue without the consumer
		}
	}

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.actorLimiter.Stop()

	if s.kafkaConsumer != nil {
		if err := s.kafkaConsumer.Stop(); err != nil {
			s.logger.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	api.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.createOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.getOrderByIDHandler).Methods(http.MethodGet)

	api.HandleFunc("/designs", s.getDesignsHandler).Methods(http.MethodGet)
	api.HandleFunc("/designs", s.createDesignHandler).Methods(http.MethodPost)

	api.HandleFunc("/profile", s.profileHandler).Methods(http.MethodGet)
	api.HandleFunc("/profile/wallet", s.registerWalletHandler).Methods(http.MethodPut)

	// Settlement actions sit behind the per-actor rate limiter: each one
	// can tie up a ledger poll loop for several seconds
	settle := api.PathPrefix("/orders/{id}").Subrouter()
	settle.Use(s.actorLimiter.Middleware)
	settle.HandleFunc("/confirm", s.confirmPaymentHandler).Methods(http.MethodPost)
	settle.HandleFunc("/release", s.releaseFundsHandler).Methods(http.MethodPost)
	settle.HandleFunc("/refund", s.refundFundsHandler).Methods(http.MethodPost)
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
