package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/promptpilot/server/internal/admin"
	"github.com/promptpilot/server/internal/billing"
	"github.com/promptpilot/server/internal/http/handlers"
	"github.com/promptpilot/server/internal/http/httpapi"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/infra/geoip"
	"github.com/promptpilot/server/internal/infra/google"
	"github.com/promptpilot/server/internal/middleware"
	"github.com/promptpilot/server/internal/prefs"
	"github.com/promptpilot/server/internal/providers/prompt"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer func() {
		_ = rdb.Close()
	}()
	prefsStore := prefs.NewStore(rdb)

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable, continuing without lookup")
	} else if resolver != nil {
		countryLookup = resolver.CountryCode
		defer func() {
			_ = resolver.Close()
		}()
	}

	credentials := billing.NewSource(cfg, prefsStore)
	billingClient, err := billing.NewClient(billing.ClientOptions{
		Credentials: credentials,
		BaseURL:     cfg.StripeBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build billing client")
	}

	var enhancer prompt.Enhancer = prompt.NewStaticEnhancer()
	if cfg.OpenAIAPIKey != "" {
		openai, err := prompt.NewOpenAIEnhancer(prompt.OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			PremiumModel: cfg.OpenAIPremiumModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Fallback:     prompt.NewStaticEnhancer(),
			OnFallback: func(reason string, err error) {
				logger.Warn().Err(err).Str("reason", reason).Msg("enhancer fell back to static")
			},
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build openai enhancer")
		}
		enhancer = openai
	}

	app := &handlers.App{
		SQL:            runner,
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		GoogleVerifier: google.NewVerifier(cfg.GoogleIssuer, cfg.GoogleClientID),
		Billing:        billingClient,
		Credentials:    credentials,
		Prefs:          prefsStore,
		Admin:          admin.NewService(runner, logger),
		Enhancer:       enhancer,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Config:        cfg,
		Logger:        logger,
		CountryLookup: countryLookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
