package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"binaryTradeBot/config"
	"binaryTradeBot/internal/adapters/authority"
	"binaryTradeBot/internal/adapters/binancefeed"
	"binaryTradeBot/internal/adapters/logger"
	"binaryTradeBot/internal/adapters/push"
	"binaryTradeBot/internal/adapters/sqlite"
	"binaryTradeBot/internal/app"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.NewLogrusLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize History Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize history repository")
		log.Fatalf("FATAL: Failed to initialize history repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing history repository")
		}
	}()

	// 4. Initialize Settlement Authority Client
	authorityClient, err := authority.New(authority.Config{
		BaseURL: cfg.AuthorityBaseURL,
		APIKey:  cfg.AuthorityAPIKey,
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize settlement authority client")
		log.Fatalf("FATAL: Failed to initialize settlement authority client: %v", err)
	}

	// 5. Initialize Price Feed
	feed, err := binancefeed.New(binancefeed.Config{
		APIKey:               cfg.BinanceAPIKey,
		SecretKey:            cfg.BinanceSecretKey,
		UseTestnet:           cfg.IsTestnet,
		Symbol:               cfg.Symbol,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize price feed")
		log.Fatalf("FATAL: Failed to initialize price feed: %v", err)
	}

	// 6. Initialize Push Channel Listener
	pushListener, err := push.New(push.Config{
		URL:                  cfg.PushURL,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize push listener")
		log.Fatalf("FATAL: Failed to initialize push listener: %v", err)
	}

	// 7. Initialize Application Service
	clientService, err := app.NewClientService(
		cfg,
		appLogger,
		authorityClient,
		feed,
		pushListener,
		repo,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize client service")
		log.Fatalf("FATAL: Failed to initialize client service: %v", err)
	}

	// 8. Start the Service
	if err := clientService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Trading client exited with error")
		log.Fatalf("FATAL: Trading client exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
