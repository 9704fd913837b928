package handler

import (
	"net/http"

	"hivley/internal/services"
	"hivley/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	service *services.UserService
}

func NewProfileHandler(service *services.UserService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Get(c *gin.Context) {
	profileID, err := parseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid profile id", "INVALID_REQUEST"))
		return
	}

	profile, err := h.service.GetByID(c.Request.Context(), profileID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromProfileSummary(profile)))
}
