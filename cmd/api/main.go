package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"adstudio/internal/http/handlers"
	httpapi "adstudio/internal/http/httpapi"
	"adstudio/internal/infra"
	"adstudio/internal/orchestrator"
	"adstudio/internal/providers/credentials"
	"adstudio/internal/providers/image"
	"adstudio/internal/providers/prompt"
	"adstudio/internal/providers/search"
	"adstudio/internal/providers/speech"
	"adstudio/internal/providers/video"
)

func main() {
	// Load .env (optional).
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	refiner := prompt.NewRefiner(prompt.Options{
		APIKey:  cfg.PromptAPIKey,
		Model:   cfg.PromptModel,
		BaseURL: cfg.PromptBaseURL,
		Logger:  &logger,
		OnFallback: func(reason string, err error) {
			logger.Warn().Err(err).Str("reason", reason).Msg("prompt refinement degraded")
		},
	})

	chain := image.NewChain(&logger,
		image.NewFlux(image.FluxOptions{
			APIKey:  cfg.ImagePrimaryAPIKey,
			BaseURL: cfg.ImagePrimaryBaseURL,
			Logger:  &logger,
		}),
		image.NewSDXL(image.SDXLOptions{
			APIKey:  cfg.ImageSecondaryAPIKey,
			BaseURL: cfg.ImageSecondaryBaseURL,
			Logger:  &logger,
		}),
	)

	videos := video.NewClient(video.Options{
		APIKey:  cfg.VideoAPIKey,
		BaseURL: cfg.VideoBaseURL,
		Logger:  &logger,
	})

	synth := speech.NewSynthesizer(speech.Options{
		APIKey:  cfg.SpeechAPIKey,
		Model:   cfg.SpeechModel,
		BaseURL: cfg.SpeechBaseURL,
		Logger:  &logger,
	})

	tokens := credentials.NewCache(credentials.Options{
		ClientID:     cfg.SearchClientID,
		ClientSecret: cfg.SearchClientSecret,
		TokenURL:     cfg.SearchTokenURL,
		Logger:       &logger,
	})
	stock := search.NewClient(search.Options{
		BaseURL: cfg.SearchBaseURL,
		Tokens:  tokens,
		Logger:  &logger,
	})

	orc := orchestrator.New(orchestrator.Options{
		Refiner:   refiner,
		Images:    chain,
		Videos:    videos,
		Speech:    synth,
		Search:    stock,
		Logger:    &logger,
		PollEvery: cfg.VideoPollInterval,
	})

	app := handlers.NewApp(orc, &logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
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
