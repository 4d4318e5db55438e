package handler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	"github.com/noah-isme/study-planner-api/internal/service"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
	"github.com/noah-isme/study-planner-api/pkg/export"
	"github.com/noah-isme/study-planner-api/pkg/response"
	"github.com/noah-isme/study-planner-api/pkg/storage"
)

var dayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// PlanHandler exposes plan generation, retrieval, editing and export.
type PlanHandler struct {
	plans        *service.WeeklyPlanService
	availability *service.AvailabilityService
	metrics      *service.MetricsService
	exporter     *export.PlanPDFExporter
	archive      *storage.ExportArchive
	signer       *storage.DownloadSigner
}

// NewPlanHandler constructs handler. Archive and signer are optional; without
// them Export streams the PDF but issues no re-download token.
func NewPlanHandler(plans *service.WeeklyPlanService, availability *service.AvailabilityService, metrics *service.MetricsService, exporter *export.PlanPDFExporter, archive *storage.ExportArchive, signer *storage.DownloadSigner) *PlanHandler {
	return &PlanHandler{plans: plans, availability: availability, metrics: metrics, exporter: exporter, archive: archive, signer: signer}
}

// Generate godoc
// @Summary Generate weekly plans
// @Tags Plans
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlansRequest true "Generation scope"
// @Success 200 {object} response.Envelope
// @Router /plans/generate [post]
func (h *PlanHandler) Generate(c *gin.Context) {
	var req dto.GeneratePlansRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	start := time.Now()
	result, err := h.plans.GenerateWeek(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.observeGeneration(req, result, time.Since(start))
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a user's weekly plan
// @Tags Plans
// @Produce json
// @Param userId path string true "User ID"
// @Param weekStart query string true "Any date inside the target week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /plans/{userId} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, blocks, err := h.plans.GetUserPlan(c.Request.Context(), c.Param("userId"), c.Query("weekStart"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"plan": plan, "blocks": blocks}, nil)
}

// Edit godoc
// @Summary Move or resize a plan block
// @Tags Plans
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param blockId path string true "Block ID"
// @Param payload body dto.ApplyEditRequest true "Edit payload"
// @Success 200 {object} response.Envelope
// @Router /plans/{userId}/blocks/{blockId} [post]
func (h *PlanHandler) Edit(c *gin.Context) {
	var req dto.ApplyEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.UserID = c.Param("userId")
	result, err := h.plans.ApplyEdit(c.Request.Context(), c.Param("blockId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.RejectedReason != "" {
		response.JSON(c, http.StatusUnprocessableEntity, result, nil)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a user's weekly plan as PDF
// @Tags Plans
// @Produce application/pdf
// @Param userId path string true "User ID"
// @Param weekStart query string true "Any date inside the target week (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /plans/{userId}/export [get]
func (h *PlanHandler) Export(c *gin.Context) {
	plan, blocks, err := h.plans.GetUserPlan(c.Request.Context(), c.Param("userId"), c.Query("weekStart"))
	if err != nil {
		response.Error(c, err)
		return
	}
	doc := export.PlanDocument{
		Owner:     plan.UserID,
		WeekStart: plan.WeekStart.Format("2006-01-02"),
	}
	for _, block := range blocks {
		day := ""
		if block.DayOfWeek >= 0 && block.DayOfWeek < len(dayNames) {
			day = dayNames[block.DayOfWeek]
		}
		doc.Entries = append(doc.Entries, export.PlanEntry{
			Day:    day,
			Start:  block.StartTime,
			End:    block.EndTime,
			Course: block.CourseID,
			Kind:   block.Kind,
			Locked: block.Locked,
		})
	}
	body, err := h.exporter.Render(doc)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render plan"))
		return
	}
	filename := fmt.Sprintf("plan-%s-%s.pdf", plan.UserID, doc.WeekStart)
	if h.archive != nil && h.signer != nil {
		if stored, err := h.archive.Save(filename, body); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive plan export"))
			return
		} else if token, _, err := h.signer.Generate(plan.UserID, stored); err == nil {
			c.Header("X-Export-Token", token)
		}
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", body)
}

// Download godoc
// @Summary Download a previously exported plan by signed token
// @Tags Plans
// @Produce application/pdf
// @Param token path string true "Signed export token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *PlanHandler) Download(c *gin.Context) {
	if h.archive == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export archive disabled"))
		return
	}
	_, filename, _, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrForbidden.Code, http.StatusForbidden, "invalid export token"))
		return
	}
	file, err := h.archive.Open(filename)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export no longer available"))
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

// Availability godoc
// @Summary Get a user's free intervals for a week
// @Tags Plans
// @Produce json
// @Param userId path string true "User ID"
// @Param weekStart query string true "Any date inside the target week (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /availability/{userId} [get]
func (h *PlanHandler) Availability(c *gin.Context) {
	weekStart, err := service.ParseWeekStart(c.Query("weekStart"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid week start"))
		return
	}
	free, err := h.availability.FreeIntervals(c.Request.Context(), c.Param("userId"), weekStart)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, freePayload(free), nil)
}

func freePayload(free map[int][]service.Interval) []gin.H {
	var out []gin.H
	for day := 0; day < 7; day++ {
		for _, interval := range free[day] {
			out = append(out, gin.H{"dayOfWeek": day, "interval": interval.String()})
		}
	}
	return out
}

func (h *PlanHandler) observeGeneration(req dto.GeneratePlansRequest, result *dto.GeneratePlansResponse, duration time.Duration) {
	scope := "all"
	if req.UserID != nil {
		scope = "user"
	} else if req.GroupID != nil {
		scope = "group"
	}
	personal := 0
	fallback := false
	for _, user := range result.Users {
		personal += user.Blocks
		fallback = fallback || user.UsedFallback
	}
	group := 0
	for _, g := range result.Groups {
		group += g.Blocks
	}
	h.metrics.ObserveGeneration(scope, personal, models.BlockKindPersonal, fallback, duration)
	if group > 0 {
		h.metrics.ObserveGeneration(scope, group, models.BlockKindGroup, false, 0)
	}
}
