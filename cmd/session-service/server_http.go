package main

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	config "github.com/NordCoder/Rotatus/internal/config/session-service"
	"github.com/NordCoder/Rotatus/internal/obs"
	kafkarepo "github.com/NordCoder/Rotatus/internal/repository/kafka"
	pg "github.com/NordCoder/Rotatus/internal/repository/postgres"
	"github.com/NordCoder/Rotatus/internal/services/session-service/session"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, db *pg.DB) (*http.Server, func(), error) {
	tokens := pg.NewRefreshTokenRepo(db)
	users := pg.NewUserRepo(db)
	tx := pg.NewTransactor(db, logger)

	var events session.SecurityEvents
	closeDeps := func() {}
	if cfg.Kafka.Enable {
		prod := kafkarepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(logger)
		events = kafkarepo.NewSecurityEventsKafka(prod, logger)
		closeDeps = func() { _ = prod.Close() }
	}

	uc := session.NewUsecase(users, tokens, tx, events, logger, session.Config{
		RefreshTTL: cfg.Tokens.RefreshTTL,
	})
	h := session.NewHandler(uc, users, session.HandlerOpts{
		Logger:       logger,
		CookieName:   cfg.Tokens.CookieName,
		CookieDomain: cfg.Tokens.CookieDomain,
		CookiePath:   cfg.Tokens.CookiePath,
		CookieSecure: cfg.Tokens.CookieSecure,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("/metrics", obs.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := db.Pool.Ping(hctx); err != nil {
			http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           otelhttp.NewHandler(mux, "session-service"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	return httpSrv, closeDeps, nil
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
