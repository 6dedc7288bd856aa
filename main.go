package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.25.0"

	"messenger-client/internal/api"
	"messenger-client/internal/config"
	"messenger-client/internal/handlers"
	"messenger-client/internal/presence"
	"messenger-client/internal/rabbitmq"
	"messenger-client/internal/reconcile"
	"messenger-client/internal/session"
	"messenger-client/internal/store"
	"messenger-client/internal/telemetry"
	"messenger-client/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := initTracer(ctx, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			log.Fatalf("failed to init tracer: %v", err)
		}
		defer shutdownTracer()
	}

	sessions, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open local store: %v", err)
	}
	defer sessions.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("sync publisher mode=%s", rabbitmq.PublisherMode(publisher))

	emitter := telemetry.NewSyncEmitter(publisher, cfg.SyncRoutingKey, "messenger-client", cfg.Environment)

	historyClient := api.NewClient(cfg.ServerURL, cfg.HTTPTimeout)
	reconciler := reconcile.NewReconciler(cfg.PendingWindow)
	tracker := presence.NewTracker()

	coord := session.NewCoordinator(historyClient, reconciler, tracker, sessions, emitter)
	coord.SetLiveFactory(func(sessionID string) session.Live {
		return transport.NewSupervisor(
			cfg.WSURL+"/ws/"+sessionID,
			cfg.ReconnectDelay,
			nil,
			coord.HandleEvent,
			coord.HandleConnState,
			coord.ActiveJoin,
		)
	})

	router := handlers.NewOpsRouter(coord, emitter, cfg.DebugRoutes)
	srv := &http.Server{Addr: cfg.OpsAddr, Handler: router}
	go func() {
		log.Printf("ops server listening on %s", cfg.OpsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ops server error: %v", err)
		}
	}()

	if sess, err := coord.RestoreSession(ctx); err == nil {
		log.Printf("session restored for %s", sess.User.Username)
	} else if cfg.Username != "" {
		sess, err := coord.Login(ctx, cfg.Username, cfg.Password)
		if err != nil {
			log.Fatalf("login failed for %s: %v", cfg.Username, err)
		}
		log.Printf("logged in as %s", sess.User.Username)
	} else {
		log.Printf("no persisted session and no credentials configured, waiting")
	}

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	coord.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ops server shutdown: %v", err)
	}
}

func initTracer(ctx context.Context, endpoint, environment string) (func(), error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("messenger-client"),
			semconv.DeploymentEnvironmentKey.String(environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("tracer shutdown: %v", err)
		}
	}, nil
}
