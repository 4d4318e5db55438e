package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/service"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/response"
)

// ChangeRequestHandler exposes the group change-request workflow.
type ChangeRequestHandler struct {
	requests *service.ChangeRequestService
	metrics  *service.MetricsService
}

// NewChangeRequestHandler constructs handler.
func NewChangeRequestHandler(requests *service.ChangeRequestService, metrics *service.MetricsService) *ChangeRequestHandler {
	return &ChangeRequestHandler{requests: requests, metrics: metrics}
}

// Create godoc
// @Summary Propose a move or resize of a group meeting
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequestRequest true "Proposal"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Create(c *gin.Context) {
	var req dto.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.requests.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if request.Terminal() {
		h.metrics.ObserveRequestResolution(request.Status)
	}
	response.Created(c, request)
}

// Vote godoc
// @Summary Cast a vote on a pending change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path string true "Change request ID"
// @Param payload body dto.VoteRequest true "Vote"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/votes [post]
func (h *ChangeRequestHandler) Vote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.requests.Vote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Resolution != "" {
		h.metrics.ObserveRequestResolution(result.Status)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListByGroup godoc
// @Summary List a group's change requests
// @Tags ChangeRequests
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{groupId}/change-requests [get]
func (h *ChangeRequestHandler) ListByGroup(c *gin.Context) {
	requests, err := h.requests.ListByGroup(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}
