package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"foundlink/internal/matching"
	"foundlink/internal/models"
)

// MatchIngestor feeds match events into the ingest pipeline.
type MatchIngestor interface {
	Ingest(ctx context.Context, event matching.MatchEvent) (models.Match, error)
}

// MatchHandler exposes the internal trigger called by the similarity
// service. Guarded by a shared service token, not user auth.
type MatchHandler struct {
	pipeline     MatchIngestor
	serviceToken string
}

// NewMatchHandler builds a MatchHandler.
func NewMatchHandler(pipeline MatchIngestor, serviceToken string) *MatchHandler {
	return &MatchHandler{pipeline: pipeline, serviceToken: serviceToken}
}

// Ingest accepts one match event.
func (h *MatchHandler) Ingest(c *gin.Context) {
	if h.serviceToken == "" || c.GetHeader("X-Service-Token") != h.serviceToken {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid service token"})
		return
	}

	var event matching.MatchEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := h.pipeline.Ingest(c.Request.Context(), event)
	if err != nil {
		if errors.Is(err, matching.ErrInvalidEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest match"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"match_id": match.ID})
}
