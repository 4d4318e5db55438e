package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/service"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/response"
)

// GroupHandler exposes group preference endpoints.
type GroupHandler struct {
	groups *service.GroupService
}

// NewGroupHandler constructs handler.
func NewGroupHandler(groups *service.GroupService) *GroupHandler {
	return &GroupHandler{groups: groups}
}

// GetPreference godoc
// @Summary Get a group's meeting preferences
// @Tags Groups
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/preference [get]
func (h *GroupHandler) GetPreference(c *gin.Context) {
	pref, err := h.groups.GetPreference(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}

// UpdatePreference godoc
// @Summary Update a group's meeting preferences
// @Tags Groups
// @Accept json
// @Produce json
// @Param groupId path string true "Group ID"
// @Param payload body dto.UpdateGroupPreferenceRequest true "Preference payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/preference [put]
func (h *GroupHandler) UpdatePreference(c *gin.Context) {
	var req dto.UpdateGroupPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pref, err := h.groups.UpdatePreference(c.Request.Context(), c.Param("groupId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pref, nil)
}
