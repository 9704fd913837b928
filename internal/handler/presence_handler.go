package handler

import (
	"net/http"
	"strings"

	"hivley/internal/domain"
	"hivley/internal/services"
	"hivley/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxPresenceLookup = 200

type PresenceHandler struct {
	service *services.PresenceService
}

func NewPresenceHandler(service *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{service: service}
}

// Heartbeat records that the caller is online, or the status they sent.
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	var req httpdto.HeartbeatRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
			return
		}
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status := domain.PresenceOnline
	if req.Status != "" {
		status = domain.PresenceStatus(req.Status)
	}
	if err := h.service.Heartbeat(c.Request.Context(), userID, status); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Get expects ids as a comma separated list.
func (h *PresenceHandler) Get(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	var ids []uuid.UUID
	for _, part := range strings.Split(c.Query("ids"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := parseUUID(part)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid id "+part, "INVALID_REQUEST"))
			return
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 || len(ids) > maxPresenceLookup {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("ids must list between 1 and 200 profiles", "INVALID_REQUEST"))
		return
	}

	views, err := h.service.Get(c.Request.Context(), ids)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromPresenceViews(views)))
}
