package runtime

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sacco-ledger/internal/app/router"
	"sacco-ledger/internal/pkg/cleanup"
	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/db/mongo"
	"sacco-ledger/internal/pkg/db/redis"
	"sacco-ledger/internal/pkg/downstream"
	"sacco-ledger/internal/pkg/gcs"
	"sacco-ledger/internal/pkg/kafka"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/otel"
	"sacco-ledger/internal/pkg/pubsub"
	"sacco-ledger/internal/pkg/store/impl/guarantors"
	"sacco-ledger/internal/pkg/store/impl/loans"
	"sacco-ledger/internal/pkg/store/impl/members"
	"sacco-ledger/internal/pkg/store/impl/transactions"
	"sacco-ledger/internal/pkg/store/impl/wallets"
	welfareclaims "sacco-ledger/internal/pkg/store/impl/welfare_claims"
	"sacco-ledger/internal/pkg/store/impl/withdrawals"
	"sacco-ledger/internal/pkg/store/repository"
	"sacco-ledger/internal/service/audit"
	"sacco-ledger/internal/service/compliance"
	"sacco-ledger/internal/service/deposits"
	guarantorservice "sacco-ledger/internal/service/guarantors"
	"sacco-ledger/internal/service/interfaces"
	"sacco-ledger/internal/service/ledger"
	loanservice "sacco-ledger/internal/service/loans"
	memberservice "sacco-ledger/internal/service/members"
	"sacco-ledger/internal/service/notification"
	"sacco-ledger/internal/service/welfare"
	withdrawalservice "sacco-ledger/internal/service/withdrawals"

	"go.uber.org/zap"
)

var (
	setupTracing   = otel.Setup
	connectMongoDB = mongo.ConnectToMongoDB
	ensureIndexes  = mongo.EnsureIndexes
	connectRedisDB = func(ctx context.Context, cfg config.RedisConfig) (*redis.RedisClient, error) {
		return redis.ConnectToRedis(ctx, cfg, nil)
	}
	newKafkaProducer = kafka.NewKafkaProducer
	newGCSClient     = gcs.NewGCSClient
)

// Closer is any resource released on shutdown.
type Closer interface {
	Close() error
}

// App encapsulates application resources and lifecycle.
type App struct {
	Cfg             *config.AppConfig
	Services        router.Services
	KafkaProducer   Closer
	PubSubPublisher Closer
	MongoClient     *mongo.MongoClient
	RedisClient     *redis.RedisClient
	GcsClient       gcs.GcsInterface
	HTTPServer      *http.Server
	TracerShutdown  func(context.Context) error
}

// New connects every backing store and builds the services. Kafka, PubSub and
// GCS are optional: without them audit events and notifications go to the log
// and evidence uploads are refused.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadFromConfig()
	if err != nil {
		logger.CtxError(ctx, log_messages.FailedLoadingConfiguration, err)
		return nil, err
	}
	logger.Init(cfg.Logging.LogLevel)

	app := &App{Cfg: cfg}

	app.TracerShutdown, err = setupTracing(ctx, cfg.Otel.ServiceName, cfg.Otel.CollectorURL)
	if err != nil {
		logger.CtxError(ctx, log_messages.TracerSetupFailed, err)
		return nil, err
	}

	app.MongoClient, err = connectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		logger.CtxError(ctx, log_messages.MongoConnectFailed, err)
		return nil, err
	}
	if err := ensureIndexes(ctx, app.MongoClient.Database); err != nil {
		logger.CtxError(ctx, log_messages.MongoIndexesFailed, err)
		return nil, err
	}

	app.RedisClient, err = connectRedisDB(ctx, cfg.Redis)
	if err != nil {
		logger.CtxError(ctx, log_messages.RedisConnectFailed, err)
		return nil, err
	}

	var auditSink interfaces.AuditSink = audit.LogSink{}
	if cfg.Kafka.Server != "" && cfg.Kafka.AuditTopic != "" {
		producer, err := newKafkaProducer(cfg.Kafka)
		if err != nil {
			logger.CtxError(ctx, log_messages.KafkaProducerFailed, err)
			return nil, err
		}
		app.KafkaProducer = producer
		auditSink = audit.NewKafkaSink(producer)
	} else {
		logger.CtxWarn(ctx, log_messages.OptionalSinkDisabled, zap.String("sink", "kafka"))
	}

	var notifier interfaces.Notifier = notification.LogNotifier{}
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.NotificationTopic != "" {
		publisher, err := pubsub.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.NotificationTopic)
		if err != nil {
			logger.CtxError(ctx, log_messages.PubSubPublisherFailed, err)
			return nil, err
		}
		app.PubSubPublisher = publisher
		notifier = notification.NewNotificationService(publisher)
	} else {
		logger.CtxWarn(ctx, log_messages.OptionalSinkDisabled, zap.String("sink", "pubsub"))
	}

	var evidence interfaces.EvidenceStore
	if cfg.GCS.BucketName != "" {
		app.GcsClient, err = newGCSClient(ctx, cfg.GCS.BucketName, cfg.GCS.FolderName)
		if err != nil {
			logger.CtxError(ctx, log_messages.GCSClientFailed, err)
			return nil, err
		}
		evidence = app.GcsClient
	} else {
		logger.CtxWarn(ctx, log_messages.OptionalSinkDisabled, zap.String("sink", "gcs"))
	}

	app.Services = buildServices(cfg, app.MongoClient, app.RedisClient, auditSink, notifier, evidence)
	return app, nil
}

func buildServices(
	cfg *config.AppConfig,
	mongoClient *mongo.MongoClient,
	redisClient *redis.RedisClient,
	auditSink interfaces.AuditSink,
	notifier interfaces.Notifier,
	evidence interfaces.EvidenceStore,
) router.Services {
	uow := mongo.NewTxRunner(mongoClient)
	redisStore := repository.NewRedisStoreAdapter(redisClient.Client)

	memberRepo := members.NewMembersRepository(mongoClient)
	walletRepo := wallets.NewWalletsRepository(mongoClient)
	transactionRepo := transactions.NewTransactionsRepository(mongoClient)
	loanRepo := loans.NewLoansRepository(mongoClient)
	guarantorRepo := guarantors.NewGuarantorsRepository(mongoClient)
	withdrawalRepo := withdrawals.NewWithdrawalsRepository(mongoClient)
	claimRepo := welfareclaims.NewWelfareClaimsRepository(mongoClient)

	ledgerService := ledger.NewLedgerService(uow, walletRepo, transactionRepo, cfg.Rules)
	guarantorService := guarantorservice.NewGuarantorService(uow, guarantorservice.Repositories{
		Members:    memberRepo,
		Wallets:    walletRepo,
		Loans:      loanRepo,
		Guarantors: guarantorRepo,
	}, ledgerService, auditSink, notifier)
	loanService := loanservice.NewLoanService(uow, loanservice.Repositories{
		Members: memberRepo,
		Wallets: walletRepo,
		Loans:   loanRepo,
	}, ledgerService, guarantorService, auditSink, notifier, cfg.Rules)

	gateway := downstream.NewDarajaClient(cfg.Gateway, redisStore)

	return router.Services{
		Members: memberservice.NewMemberService(uow, memberservice.Repositories{
			Members: memberRepo,
			Wallets: walletRepo,
		}, auditSink),
		Loans:      loanService,
		Guarantors: guarantorService,
		Withdrawals: withdrawalservice.NewWithdrawalService(uow, withdrawalservice.Repositories{
			Wallets:     walletRepo,
			Withdrawals: withdrawalRepo,
		}, ledgerService, auditSink, notifier),
		Deposits: deposits.NewDepositService(uow, deposits.Repositories{
			Members:      memberRepo,
			Wallets:      walletRepo,
			Transactions: transactionRepo,
		}, ledgerService, gateway, redisStore, auditSink, notifier, cfg.Rules),
		Welfare:    welfare.NewWelfareService(claimRepo, evidence, auditSink, notifier),
		Compliance: compliance.NewComplianceService(loanService, redisStore, cfg.ComplianceSweep),
	}
}

// Run starts the HTTP server, then blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	engine := router.SetupRouter(a.Cfg.Otel.ServiceName, a.Services)
	a.HTTPServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.CtxInfo(ctx, log_messages.ServerStarted, zap.String("addr", a.HTTPServer.Addr))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.CtxError(ctx, log_messages.ServerStartFailure, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	a.Shutdown(ctx)
	logger.CtxInfo(ctx, log_messages.ServerExiting)
	return nil
}

// Shutdown gracefully closes all resources with bounded timeouts.
func (a *App) Shutdown(ctx context.Context) {
	cleanup.CleanupResources(ctx, cleanup.Resources{
		Server:          a.HTTPServer,
		PubSubPublisher: a.PubSubPublisher,
		KafkaProducer:   a.KafkaProducer,
		MongoClient:     a.MongoClient,
		RedisClient:     a.RedisClient,
		GCSClient:       a.GcsClient,
		TracerShutdown:  a.TracerShutdown,
	})
}
