package services

import (
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/internal/database"
	"github.com/avreyn/chorus/internal/repository"
)

type Services struct {
	Health          *HealthService
	Embedding       *EmbeddingService
	Similarity      *SimilarityEngine
	Songs           *SongService
	Recommendations *RecommendationService
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	songRepo := repository.NewSongRepository(db.PG, logger)
	recommendationRepo := repository.NewRecommendationRepository(db.PG, logger)

	healthService := NewHealthService(logger, db)
	embeddingService := NewEmbeddingService(&cfg.Embedding, logger)
	similarityEngine := NewSimilarityEngine(songRepo, embeddingService, logger)

	cache := NewRecommendationCache(NewRedisStore(db.Redis), cfg.Recommendation.CacheTTL, logger)

	songService := NewSongService(songRepo, embeddingService, similarityEngine, logger)
	recommendationService := NewRecommendationService(
		recommendationRepo, songRepo, similarityEngine, cache, &cfg.Recommendation, logger,
	)

	return &Services{
		Health:          healthService,
		Embedding:       embeddingService,
		Similarity:      similarityEngine,
		Songs:           songService,
		Recommendations: recommendationService,
	}, nil
}
