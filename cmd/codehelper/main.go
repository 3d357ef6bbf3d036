package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"codehelper/internal/app"
	"codehelper/internal/config"
	"codehelper/internal/server"
	"codehelper/internal/usage"
	"codehelper/internal/util"
	"codehelper/pkg/ai"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(os.Getenv("CODEHELPER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel)
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.FileConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout, err := config.ParseGenerationTimeout(cfg.GenerationTimeout)
	if err != nil {
		return err
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}

	generator, err := ai.NewGenerator(ctx, ai.Config{
		Provider: cfg.GenerationProvider,
		Model:    cfg.GenerationModel,
		APIKey:   cfg.GenerationAPIKey,
		BaseURL:  cfg.GenerationBaseURL,
	})
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	if closer, ok := generator.(io.Closer); ok {
		defer closer.Close()
	}

	appCfg := app.Config{
		Generator:         generator,
		GenerationTimeout: timeout,
		DefaultLanguage:   cfg.DefaultLanguage,
	}
	srvCfg := server.Config{
		Provider:       ai.DisplayName(cfg.GenerationProvider),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		TrustedProxies: trusted,
	}
	if cfg.RedisAddr != "" {
		recorder, err := usage.NewRedisRecorder(cfg.RedisAddr, cfg.RedisPassword, cfg.UsagePrefix, 0)
		if err != nil {
			return fmt.Errorf("init usage recorder: %w", err)
		}
		defer recorder.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := recorder.Ping(pingCtx); err != nil {
			logger.Warn("usage store unreachable; counters will be skipped until it recovers", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()
		appCfg.Usage = recorder
		srvCfg.Usage = recorder
	}

	appCore, err := app.New(appCfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	srvCfg.App = appCore
	httpServer := server.New(srvCfg)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("codehelper listening",
			"addr", addr,
			"provider", cfg.GenerationProvider,
			"model", cfg.GenerationModel,
			"usage", cfg.RedisAddr != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
