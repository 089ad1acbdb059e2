package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avreyn/chorus/internal/config"
	"github.com/avreyn/chorus/internal/services"
	"github.com/avreyn/chorus/pkg/models"
)

type RecommendationsHandler struct {
	recommendations services.RecommendationServiceInterface
	cfg             *config.RecommendationConfig
	logger          *logrus.Logger
}

func NewRecommendationsHandler(
	recommendations services.RecommendationServiceInterface,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationsHandler {
	return &RecommendationsHandler{
		recommendations: recommendations,
		cfg:             cfg,
		logger:          logger,
	}
}

func (h *RecommendationsHandler) Personalized(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}

	feed, err := h.recommendations.Personalized(c.Request.Context(), userID, h.clampCount(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (h *RecommendationsHandler) GenreBased(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}

	feed, err := h.recommendations.GenreBased(c.Request.Context(), userID, h.clampCount(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (h *RecommendationsHandler) History(c *gin.Context) {
	userID, ok := pathUserID(c)
	if !ok {
		return
	}

	page := positiveQueryInt(c, "page", 1)
	perPage := positiveQueryInt(c, "per_page", 15)
	if perPage > 100 {
		perPage = 100
	}

	recs, total, err := h.recommendations.PaginatedHistory(c.Request.Context(), userID, page, perPage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	c.JSON(http.StatusOK, models.RecommendationHistoryResponse{
		Recommendations: recs,
		Pagination:      models.NewPagination(page, perPage, total),
	})
}

func (h *RecommendationsHandler) Store(c *gin.Context) {
	var req models.StoreRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}

	rec, err := h.recommendations.Store(c.Request.Context(), req.UserID, req.SongID, req.SourceSongIDs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *RecommendationsHandler) Rate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req models.RateRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_RATING", "Rating must be -1 or 1")
		return
	}

	if err := h.recommendations.Rate(c.Request.Context(), id, req.Rating); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *RecommendationsHandler) clampCount(c *gin.Context) int {
	count := positiveQueryInt(c, "count", h.cfg.DefaultCount)
	if count > h.cfg.MaxCount {
		count = h.cfg.MaxCount
	}
	return count
}

func pathUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		badRequest(c, "INVALID_USER_ID", "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}
