package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chatvault/internal/app"
	"chatvault/internal/config"
	"chatvault/internal/ratelimit"
	"chatvault/internal/server"
	"chatvault/internal/token"
	"chatvault/internal/util"
	"chatvault/pkg/ai"
	"chatvault/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := util.InitLogger(cfg.LogLevel)

	tokens, err := token.New(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
	})
	if err != nil {
		log.Fatalf("failed to init token service: %v", err)
	}

	dataStore, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init postgres store: %v", err)
	}

	appCore, err := app.New(app.Config{Store: dataStore, Tokens: tokens})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}
	var loginLimiter, registerLimiter *ratelimit.FixedWindowLimiter
	if cfg.LoginRateLimitPerMinute > 0 {
		loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "chatvault:login",
			cfg.LoginRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			log.Fatalf("failed to init login limiter: %v", err)
		}
	}
	if cfg.RegisterRateLimitPerMinute > 0 {
		registerLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "chatvault:register",
			cfg.RegisterRateLimitPerMinute, time.Minute,
		)
		if err != nil {
			log.Fatalf("failed to init register limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:             appCore,
		Tokens:          tokens,
		Completer:       ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.CompletionModel),
		CORSOrigin:      cfg.CORSOrigin,
		SecureCookies:   cfg.IsProduction(),
		LoginLimiter:    loginLimiter,
		RegisterLimiter: registerLimiter,
		TrustedProxies:  trustedProxies,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
