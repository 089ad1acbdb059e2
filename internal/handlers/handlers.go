package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/internal/services"
	"github.com/avreyn/chorus/internal/validation"
)

type Handlers struct {
	Health          *HealthHandler
	Songs           *SongsHandler
	Recommendations *RecommendationsHandler
}

func New(logger *logrus.Logger, cfg *config.Config, svcs *services.Services) (*Handlers, error) {
	schemaValidator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	return &Handlers{
		Health:          NewHealthHandler(logger, svcs.Health),
		Songs:           NewSongsHandler(svcs.Songs, schemaValidator, &cfg.Recommendation, logger),
		Recommendations: NewRecommendationsHandler(svcs.Recommendations, &cfg.Recommendation, logger),
	}, nil
}
