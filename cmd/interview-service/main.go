// cmd/interview-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"interview-sync/internal/api"
	"interview-sync/internal/audit"
	commonaws "interview-sync/internal/common/aws"
	"interview-sync/internal/common/camunda"
	"interview-sync/internal/common/config"
	"interview-sync/internal/common/database"
	commonhttp "interview-sync/internal/common/http"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/observability"
	"interview-sync/internal/invites"
	"interview-sync/internal/orchestrator"
	"interview-sync/internal/reconcile"
	"interview-sync/internal/sessions"
	"interview-sync/internal/store/postgres"
	syncgw "interview-sync/internal/sync"
	"interview-sync/internal/webhooks"
	"interview-sync/pkg/registry"

	sr "interview-sync/internal/workers/interview/status-refresh"
	in "interview-sync/internal/workers/notification/invite-notify"
	osum "interview-sync/internal/workers/organization/orphans-summarize"
	dd "interview-sync/internal/workers/webhook/delivery-dispatch"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting interview service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(ctx, cfg.Database.Postgres, 5*time.Second)
		return err
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if cfg.Database.Postgres.AutoMigrate {
		if err := postgres.Migrate(pg.DB); err != nil {
			zapLog.Fatal("migrations failed", zap.Error(err))
		}
		zapLog.Info("Migrations applied")
	}

	// --- Redis ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	ready := map[string]api.Pinger{"postgres": pg, "redis": redis}

	// --- Elasticsearch audit mirror (optional) ---
	var mirror audit.Mirror
	if cfg.Database.Elasticsearch.Enabled() {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			if es, err = database.NewElasticsearch(cfg.Database.Elasticsearch); err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, audit mirror disabled", zap.Error(err))
		} else {
			mirror = audit.NewElasticMirror(es.Client, cfg.Database.Elasticsearch.AuditIndex)
			ready["elasticsearch"] = es
			zapLog.Info("Elasticsearch audit mirror enabled")
		}
	}

	// --- Domain services ---
	store := postgres.New(pg.DB)
	trail := audit.NewTrail(store, mirror, log)

	orchestratorClient := orchestrator.NewClient(
		cfg.Orchestrator.BaseURL,
		commonhttp.NewClient(cfg.Orchestrator.GetTimeout()),
		log,
	)
	gateway := syncgw.NewGateway(orchestratorClient, store, syncgw.Config{
		FallbackKey:     cfg.Orchestrator.APIKey,
		BootstrapSecret: cfg.Orchestrator.BootstrapSecret,
		Timeout:         cfg.Orchestrator.GetTimeout(),
	}, log)

	lifecycle := invites.NewManager(store, gateway, trail,
		invites.NewStatusCache(redis.Client, time.Duration(cfg.Orchestrator.StatusCacheTTL)*time.Second),
		invites.Config{
			InviteTTL:       cfg.Invites.TTL(),
			DefaultMaxUses:  cfg.Invites.DefaultMaxUses,
			ShortCodeLength: cfg.Invites.ShortCodeLength,
			PublicBaseURL:   cfg.Invites.PublicBaseURL,
		}, log)

	candidateSessions := sessions.NewManager(store,
		sessions.NewTokenIssuer(cfg.Sessions.SigningSecret, cfg.Sessions.Issuer),
		trail, cfg.Sessions.TTL(), log)

	receiver := webhooks.NewReceiver(
		webhooks.NewVerifier(cfg.Webhooks.ReplayWindow(), cfg.Webhooks.RequireSignature),
		cfg.Webhooks.Secret, store, lifecycle, log)

	delivery := cfg.Webhooks.Delivery
	dispatcher := webhooks.NewDispatcher(store, commonhttp.NewClient(config.GetDuration(delivery.RequestTimeout)), webhooks.DispatcherConfig{
		MaxAttempts:    delivery.MaxAttempts,
		BaseBackoff:    time.Duration(delivery.BaseBackoff) * time.Second,
		MaxBackoff:     time.Duration(delivery.MaxBackoff) * time.Second,
		RequestTimeout: config.GetDuration(delivery.RequestTimeout),
	}, log)

	reconciler := reconcile.NewReconciler(store, log)

	// --- Camunda workers ---
	var zeebe *camunda.Client
	var jobWorkers []worker.JobWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		ready["zeebe"] = api.PingFunc(zeebe.HealthCheck)

		activities, err := registry.Default()
		if err != nil {
			zapLog.Fatal("activity registry unreadable", zap.Error(err))
		}

		start := func(taskType, configKey string, handle func(worker.JobClient, entities.Job)) {
			if _, ok := activities.Lookup(taskType); !ok {
				zapLog.Warn("task type missing from activity registry", zap.String("taskType", taskType))
			}
			if jw := camunda.StartWorker(zeebe.GetClient(), taskType, cfg.Workers[configKey], handle, log); jw != nil {
				jobWorkers = append(jobWorkers, jw)
			}
		}

		if cfg.Workers[sr.ConfigKey].Enabled {
			handler := sr.NewHandler(sr.ConfigFrom(cfg.Workers[sr.ConfigKey]), lifecycle, log)
			start(sr.TaskType, sr.ConfigKey, handler.Handle)
		}

		if cfg.Workers[in.ConfigKey].Enabled {
			notifyCfg := in.ConfigFrom(cfg.Workers[in.ConfigKey], cfg)
			if err := notifyCfg.Validate(); err != nil {
				zapLog.Fatal("invalid invite-notify config", zap.Error(err))
			}
			var email in.EmailSender
			var sms in.SMSSender
			if notifyCfg.EmailEnabled || notifyCfg.SMSEnabled {
				awsCfg, err := commonaws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
				if err != nil {
					zapLog.Fatal("failed to load AWS config", zap.Error(err))
				}
				if notifyCfg.EmailEnabled {
					email = commonaws.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail)
				}
				if notifyCfg.SMSEnabled {
					sms = commonaws.NewSNSClient(awsCfg, cfg.Notifications.SMS.SenderID)
				}
			}
			handler := in.NewHandler(notifyCfg, store, email, sms, log)
			start(in.TaskType, in.ConfigKey, handler.Handle)
		}

		if cfg.Workers[dd.ConfigKey].Enabled {
			handler := dd.NewHandler(dd.ConfigFrom(cfg.Workers[dd.ConfigKey]), dispatcher, log)
			start(dd.TaskType, dd.ConfigKey, handler.Handle)
		}

		if cfg.Workers[osum.ConfigKey].Enabled {
			handler := osum.NewHandler(osum.ConfigFrom(cfg.Workers[osum.ConfigKey]), reconciler, log)
			start(osum.TaskType, osum.ConfigKey, handler.Handle)
		}
		zapLog.Info("Workers registered", zap.Int("count", len(jobWorkers)))
	}

	// --- HTTP API ---
	srv := api.NewServer(api.Deps{
		Store:     store,
		Gateway:   gateway,
		Lifecycle: lifecycle,
		Sessions:  candidateSessions,
		Audit:     trail,
		Orphans:   reconciler,
		Webhooks:  receiver,
		Ready:     ready,
		Obs:       obs,
	}, api.Config{
		SignatureHeader: cfg.Webhooks.SignatureHeader,
		TimestampHeader: cfg.Webhooks.TimestampHeader,
		RedeemRate:      cfg.Server.RedeemRateLimit,
		RedeemBurst:     cfg.Server.RedeemBurst,
	}, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	for _, jw := range jobWorkers {
		jw.Close()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down metrics provider", zap.Error(err))
	}

	zapLog.Info("Interview service stopped gracefully")
}
