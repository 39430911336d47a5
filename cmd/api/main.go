package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"capedash/internal/botapi"
	"capedash/internal/discord"
	"capedash/internal/http/handlers"
	httpapi "capedash/internal/http/httpapi"
	"capedash/internal/infra"
	"capedash/internal/providers/roblox"
	"capedash/internal/storage"
)

func main() {
	os.Exit(run())
}

// run returns the exit code once deferred cleanup has run.
func run() int {
	// .env is optional; the bot's .env one directory up is also honoured.
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	files, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure bot data directory")
	}

	lookup := roblox.NewClient(roblox.Options{
		ThumbnailsURL:    cfg.RobloxThumbnailsURL,
		AssetDeliveryURL: cfg.RobloxAssetDeliveryURL,
		RequestTimeout:   cfg.ResolveRequestTimeout,
		Logger:           &logger,
	})

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Data:     storage.NewBotData(files, &logger),
		Bot:      botapi.NewClient(botapi.Options{BaseURL: cfg.BotAPIURL, Logger: &logger}),
		Resolver: roblox.NewResolver(lookup, roblox.ResolverOptions{Logger: &logger}),
		Identity: discord.BearerIdentity{},
	}

	if cfg.UploadConfigured() {
		app.Uploader = roblox.NewUploader(roblox.UploaderOptions{
			APIKey:    cfg.RobloxAPIKey,
			CreatorID: cfg.RobloxCreatorID,
			ToGroup:   cfg.RobloxUploadToGroup,
			BaseURL:   cfg.RobloxAPIsURL,
			Logger:    &logger,
		})
	} else {
		logger.Warn().Msg("ROBLOX_API_KEY or ROBLOX_CREATOR_ID not set, cape uploads disabled")
	}

	if cfg.OAuthConfigured() {
		app.OAuth = discord.NewOAuthConfig(cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURI)
	} else {
		logger.Warn().Msg("DISCORD_CLIENT_ID not set, Discord OAuth will not work until configured")
	}

	// The bot client lives for the whole process and is closed on shutdown.
	if cfg.DiscordBotToken != "" {
		bot, err := discord.New(discord.Options{
			Token:              cfg.DiscordBotToken,
			MainGuildID:        cfg.MainGuildID,
			AuthorizedGuildIDs: cfg.AuthorizedGuildIDs,
			StaffRoleIDs:       cfg.StaffRoleIDs,
			StaffRoleNames:     cfg.StaffRoleNames,
			Logger:             &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create discord client")
		}
		defer func() {
			if err := bot.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close discord client")
			}
		}()
		if err := bot.Verify(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("discord bot token rejected, guild data unavailable")
		}
		app.Guild = bot
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	// Start async; a listener failure takes the same shutdown path as a signal.
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr()).Str("data_dir", files.BasePath()).Msg("API listening")
		serverErr <- server.Start()
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
	return exitCode
}
