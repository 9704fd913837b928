package handler

import (
	"context"
	"net/http"

	"hivley/internal/domain"
	"hivley/internal/services"
	"hivley/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatusHandler serves receipts and reactions.
type StatusHandler struct {
	service *services.StatusService
}

func NewStatusHandler(service *services.StatusService) *StatusHandler {
	return &StatusHandler{service: service}
}

func (h *StatusHandler) MarkStatus(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.MarkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stored, err := h.service.MarkStatus(c.Request.Context(), messageID, userID, domain.DeliveryStatus(req.Status))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StatusResponse{MessageID: messageID.String(), Status: string(stored)}))
}

// Aggregate returns the combined status of a message across recipients.
func (h *StatusHandler) Aggregate(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	agg, err := h.service.Aggregate(c.Request.Context(), userID, messageID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.StatusResponse{MessageID: messageID.String(), Status: string(agg)}))
}

func (h *StatusHandler) ListReactions(c *gin.Context) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	reactions, err := h.service.Reactions(c.Request.Context(), userID, messageID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReactions(reactions)))
}

func (h *StatusHandler) AddReaction(c *gin.Context) {
	h.changeReaction(c, h.service.AddReaction)
}

func (h *StatusHandler) RemoveReaction(c *gin.Context) {
	h.changeReaction(c, h.service.RemoveReaction)
}

func (h *StatusHandler) changeReaction(c *gin.Context, apply func(ctx context.Context, messageID, profileID uuid.UUID, emoji string) (bool, error)) {
	messageID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	changed, err := apply(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ReactionChangeResponse{Changed: changed}))
}
