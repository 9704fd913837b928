package handler

import (
	"net/http"

	"hivley/internal/services"
	"hivley/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationHandler struct {
	service  *services.ConversationService
	statuses *services.StatusService
}

func NewConversationHandler(service *services.ConversationService, statuses *services.StatusService) *ConversationHandler {
	return &ConversationHandler{service: service, statuses: statuses}
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ConversationsResponse{
		Conversations: httpdto.FromSummarySlice(items),
	}))
}

// CreateDirect returns the existing direct conversation with the other
// participant, creating it on first contact.
func (h *ConversationHandler) CreateDirect(c *gin.Context) {
	var req httpdto.CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	otherID, err := parseUUID(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid participant_id", "INVALID_REQUEST"))
		return
	}

	conv, created, err := h.service.CreateOrGetDirect(c.Request.Context(), userID, otherID, req.Metadata)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, httpdto.NewSuccessResponse(httpdto.FromConversation(conv, created)))
}

func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req httpdto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	participantIDs := make([]uuid.UUID, 0, len(req.ParticipantIDs))
	for _, idStr := range req.ParticipantIDs {
		id, err := parseUUID(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid participant id", "INVALID_REQUEST"))
			return
		}
		participantIDs = append(participantIDs, id)
	}

	conv, err := h.service.CreateGroup(c.Request.Context(), userID, participantIDs, req.Title)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromConversation(conv, true)))
}

func (h *ConversationHandler) Get(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	summary, err := h.service.Get(c.Request.Context(), userID, conversationID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromSummary(summary)))
}

// MarkRead marks every message from others as read.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	n, err := h.statuses.MarkConversationRead(c.Request.Context(), userID, conversationID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MarkReadResponse{Updated: n}))
}

func (h *ConversationHandler) SetNotifications(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.UpdateNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.service.SetNotifications(c.Request.Context(), userID, conversationID, *req.Enabled); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	conversationID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.UpdateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conv, err := h.service.RenameGroup(c.Request.Context(), userID, conversationID, req.Title)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromConversation(conv, false)))
}
