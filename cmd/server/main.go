package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/crease-analytics/faceoff/internal/api/handlers"
	"github.com/crease-analytics/faceoff/internal/cache"
	"github.com/crease-analytics/faceoff/internal/config"
	"github.com/crease-analytics/faceoff/internal/dataset"
	"github.com/crease-analytics/faceoff/internal/elo"
	"github.com/crease-analytics/faceoff/internal/features"
	"github.com/crease-analytics/faceoff/internal/gamelog"
	"github.com/crease-analytics/faceoff/internal/models"
	"github.com/crease-analytics/faceoff/internal/providers"
	"github.com/crease-analytics/faceoff/pkg/database"
	"github.com/crease-analytics/faceoff/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger("", cfg.IsDevelopment())
	logger.WithComponent("server").WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting faceoff prediction service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.WithComponent("server").Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithComponent("server").Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithComponent("server").Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := cache.NewService(redisClient, cfg.PredictionCacheTTL, structuredLogger)

	repo := gamelog.NewRepository(db, structuredLogger)
	if err := repo.Migrate(); err != nil {
		logger.WithComponent("server").Fatalf("Failed to migrate schema: %v", err)
	}
	games, err := repo.LoadGames()
	if err != nil {
		logger.WithComponent("server").Fatalf("Failed to load game log: %v", err)
	}
	goalieGames, err := repo.LoadGoalieGames()
	if err != nil {
		logger.WithComponent("server").Fatalf("Failed to load goalie log: %v", err)
	}

	// Refresh the newest season from the stats feed before building, so the
	// engines see games completed since the last persisted sync.
	if cfg.StatsProviderURL != "" {
		if seasonID := latestSeason(games); seasonID != "" {
			provider := providers.NewHTTPStatsProvider(cfg.StatsProviderURL, cfg.StatsProviderTimeout, cfg.CircuitBreakerThreshold, structuredLogger)
			if err := syncSeason(ctx, provider, repo, seasonID, structuredLogger); err != nil {
				logger.WithComponent("server").WithError(err).Warn("Stats feed sync failed, serving persisted history")
			} else {
				if games, err = repo.LoadGames(); err != nil {
					logger.WithComponent("server").Fatalf("Failed to reload game log: %v", err)
				}
				if goalieGames, err = repo.LoadGoalieGames(); err != nil {
					logger.WithComponent("server").Fatalf("Failed to reload goalie log: %v", err)
				}
			}
		}
	}

	builderCfg := dataset.Config{
		Elo: elo.Config{
			BaseRating:           cfg.EloBaseRating,
			KFactor:              cfg.EloKFactor,
			HomeAdvantage:        cfg.EloHomeAdvantage,
			CarryoverFactor:      cfg.EloCarryoverFactor,
			DynamicHomeAdvantage: cfg.EloDynamicHomeAdvantage,
			HomeAdvantageWindow:  cfg.EloHomeAdvantageWindow,
		},
		Features: features.Config{
			ShortWindow:         cfg.ShortWindow,
			LongWindow:          cfg.LongWindow,
			GoalieRecentGames:   cfg.GoalieRecentGames,
			GoalieMinVsOpponent: cfg.GoalieMinVsOpponentGames,
		},
		FeatureList: features.DefaultFeatureList(),
	}

	builder := dataset.NewBuilder(builderCfg, structuredLogger)

	// Resume from the season's saved checkpoint when one exists: the rating
	// engine then only advances the games newer than the checkpoint instead
	// of replaying the full history on every boot.
	seasonID := latestSeason(games)
	if seasonID != "" {
		if cp, found, err := cacheService.LoadCheckpoint(ctx, seasonID); err != nil {
			logger.WithComponent("server").WithError(err).Warn("Failed to load Elo checkpoint, replaying full history")
		} else if found {
			builder.RestoreCheckpoint(cp)
		}
	}

	if err := builder.Ingest(games, goalieGames); err != nil {
		logger.WithComponent("server").Fatalf("Failed to ingest history: %v", err)
	}

	trainingSet, err := builder.BuildTrainingSet()
	if err != nil {
		logger.WithComponent("server").Fatalf("Failed to build training set: %v", err)
	}

	classifier := dataset.NewLogisticClassifier()
	if trainingSet.Len() > 0 {
		if err := classifier.Train(trainingSet); err != nil {
			logger.WithComponent("server").Fatalf("Failed to train baseline classifier: %v", err)
		}
	} else {
		logger.WithComponent("server").Warn("No training rows available; predictions will be neutral")
	}

	// Persist the engine state so the next boot resumes from here instead of
	// replaying the full history.
	if seasonID != "" {
		if err := cacheService.SaveCheckpoint(ctx, seasonID, builder.Elo().Checkpoint()); err != nil {
			logger.WithComponent("server").WithError(err).Warn("Failed to save Elo checkpoint")
		}
	}

	healthHandler := handlers.NewHealthHandler(db, redisClient, structuredLogger)
	predictionHandler := handlers.NewPredictionHandler(builder, classifier, cacheService, structuredLogger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", healthHandler.GetHealth)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/predictions/:home/:away", predictionHandler.GetPrediction)
		v1.GET("/ratings", predictionHandler.GetRatings)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithComponent("server").WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithComponent("server").Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithComponent("server").Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithComponent("server").Errorf("Forced shutdown: %v", err)
	}
}

// latestSeason returns the season of the newest loaded game; games arrive
// sorted from the repository.
func latestSeason(games []models.GameRecord) string {
	if len(games) == 0 {
		return ""
	}
	return games[len(games)-1].SeasonID
}

// syncSeason pulls one season's completed games from the stats feed and
// upserts them. Save is an upsert on game id, so already-persisted games are
// refreshed in place rather than duplicated.
func syncSeason(ctx context.Context, provider providers.StatsProvider, repo *gamelog.Repository, seasonID string, log *logrus.Logger) error {
	fetched, err := provider.FetchGames(ctx, seasonID)
	if err != nil {
		return err
	}
	if err := repo.SaveGames(fetched); err != nil {
		return err
	}
	goalieFetched, err := provider.FetchGoalieGames(ctx, seasonID)
	if err != nil {
		return err
	}
	if err := repo.SaveGoalieGames(goalieFetched); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"component":    "server",
		"season_id":    seasonID,
		"games":        len(fetched),
		"goalie_games": len(goalieFetched),
	}).Info("Synced season from stats feed")
	return nil
}
